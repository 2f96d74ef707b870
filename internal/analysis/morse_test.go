package analysis

import (
	"math"
	"testing"

	"github.com/user/pes_analyzer_go/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// h2Curve samples the H2 Morse curve at r = 0.6 .. 1.0 in steps of 0.05.
func h2Curve(de, a float64) *parser.BondPES {
	pes := &parser.BondPES{}
	for k := 0; k <= 8; k++ {
		r := 0.6 + 0.05*float64(k)
		pes.R = append(pes.R, r)
		pes.E = append(pes.E, Morse(r, de, a, H2EquilibriumBondLength))
	}
	return pes
}

func TestMorse(t *testing.T) {
	assert.InDelta(t, -4.75, Morse(0.74, 4.75, 1.94, 0.74), 1e-12)
	// dissociation limit
	assert.InDelta(t, 0, Morse(50, 4.75, 1.94, 0.74), 1e-9)
	// repulsive wall
	assert.Greater(t, Morse(0.3, 4.75, 1.94, 0.74), 0.0)
}

func TestFitMorseRecoversH2(t *testing.T) {
	for _, method := range []string{MethodLBFGS, MethodNelderMead} {
		t.Run(method, func(t *testing.T) {
			opts := DefaultFitOptions()
			opts.Method = method

			fit, err := FitMorse(h2Curve(4.75, 1.94), opts)
			require.NoError(t, err)
			assert.InDelta(t, 4.75, fit.De, 0.05)
			assert.InDelta(t, 1.94, fit.A, 0.05)
			assert.Equal(t, 0.74, fit.R0)
			assert.Equal(t, 9, fit.Points)
			assert.Less(t, fit.RMSE, 1e-3)
			assert.InDelta(t, 1.0, fit.RSquared, 1e-4)
		})
	}
}

func TestFitMorseRecoversOtherParameters(t *testing.T) {
	tests := []struct {
		de, a float64
	}{
		{de: 2.0, a: 1.2},
		{de: 6.5, a: 2.5},
		{de: 4.75, a: 0.8},
	}

	for _, tt := range tests {
		fit, err := FitMorse(h2Curve(tt.de, tt.a), FitOptions{})
		require.NoError(t, err)
		assert.InDelta(t, tt.de, fit.De, 0.01*tt.de)
		assert.InDelta(t, tt.a, fit.A, 0.01*tt.a)
	}
}

func TestFitMorseRowOrderInvariant(t *testing.T) {
	pes := h2Curve(4.75, 1.94)
	// add a little deterministic noise so the optimum is not an exact zero
	for i := range pes.E {
		pes.E[i] += 0.01 * math.Sin(float64(7*i))
	}

	shuffled := &parser.BondPES{}
	for _, i := range []int{5, 0, 8, 3, 1, 7, 2, 6, 4} {
		shuffled.R = append(shuffled.R, pes.R[i])
		shuffled.E = append(shuffled.E, pes.E[i])
	}

	a, err := FitMorse(pes, FitOptions{})
	require.NoError(t, err)
	b, err := FitMorse(shuffled, FitOptions{})
	require.NoError(t, err)

	assert.InDelta(t, a.De, b.De, 1e-4)
	assert.InDelta(t, a.A, b.A, 1e-4)
	assert.InDelta(t, a.SSR, b.SSR, 1e-8)
}

func TestFitMorseErrors(t *testing.T) {
	_, err := FitMorse(&parser.BondPES{R: []float64{0.7}, E: []float64{-4}}, FitOptions{})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = FitMorse(nil, FitOptions{})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = FitMorse(&parser.BondPES{R: []float64{0.7, 0.8, 0.9}, E: []float64{-4, -4.5}}, FitOptions{})
	assert.ErrorIs(t, err, ErrLengthMismatch)

	// repeated bond length leaves a undetermined
	_, err = FitMorse(&parser.BondPES{R: []float64{0.8, 0.8, 0.8}, E: []float64{-4.5, -4.4, -4.6}}, FitOptions{})
	assert.ErrorIs(t, err, ErrTooFewPoints)

	_, err = FitMorse(h2Curve(4.75, 1.94), FitOptions{Method: "simulated-annealing"})
	assert.Error(t, err)
}

func TestCurve(t *testing.T) {
	fit := &MorseFit{De: 4.75, A: 1.94, R0: 0.74}
	xs, ys := fit.Curve(0.5, 1.2, 100)
	require.Len(t, xs, 100)
	require.Len(t, ys, 100)
	assert.Equal(t, 0.5, xs[0])
	assert.Equal(t, 1.2, xs[99])
	assert.InDelta(t, (1.2-0.5)/99, xs[1]-xs[0], 1e-12)
	for i := range xs {
		assert.Equal(t, fit.Eval(xs[i]), ys[i])
	}
}

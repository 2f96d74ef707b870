package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFlat builds a canonical grid whose mean is a bowl centred on (cMin, aMin).
func makeFlat(g int, cMin, aMin float64) []float64 {
	flat := make([]float64, 0, g*g*4)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			c := float64(i) * 0.1
			alpha := 0.5 + float64(j)*0.1
			mean := -0.5 + (c-cMin)*(c-cMin) + (alpha-aMin)*(alpha-aMin)
			flat = append(flat, c, alpha, mean, 0.01*float64(i+j))
		}
	}
	return flat
}

func TestReshapeRoundTrip(t *testing.T) {
	for _, g := range []int{2, 11, 21} {
		flat := makeFlat(g, 0.3, 1.0)
		grid, err := Reshape(flat, g)
		require.NoError(t, err)
		assert.Equal(t, g, grid.Size())
		assert.Equal(t, flat, grid.Flatten())
	}
}

func TestReshapeCopiesInput(t *testing.T) {
	flat := makeFlat(3, 0, 1)
	grid, err := Reshape(flat, 3)
	require.NoError(t, err)
	flat[2] = 99
	assert.NotEqual(t, 99.0, grid.At(0, 0, ChanMean))
}

func TestReshapeLayout(t *testing.T) {
	flat := makeFlat(3, 0, 1)
	grid, err := Reshape(flat, 3)
	require.NoError(t, err)

	// element (i, j, k) lives at (i*G + j)*4 + k
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := Channel(0); k < NumChannels; k++ {
				assert.Equal(t, flat[(i*3+j)*4+int(k)], grid.At(i, j, k))
			}
		}
	}
	assert.InDelta(t, 0.2, grid.At(2, 1, ChanParam1), 1e-12)
	assert.InDelta(t, 0.6, grid.At(2, 1, ChanParam2), 1e-12)

	mean := grid.Channel(ChanMean)
	require.Len(t, mean, 3)
	assert.Equal(t, grid.At(1, 2, ChanMean), mean[1][2])
}

func TestReshapeRejectsBadShapes(t *testing.T) {
	tests := []struct {
		name string
		n    int
		g    int
		want error
	}{
		{name: "short by one", n: 11*11*4 - 1, g: 11, want: ErrGridShape},
		{name: "long by one record", n: 11*11*4 + 4, g: 11, want: ErrGridShape},
		{name: "two grids worth", n: 2 * 11 * 11 * 4, g: 11, want: ErrGridShape},
		{name: "wrong G", n: 21 * 21 * 4, g: 11, want: ErrGridShape},
		{name: "G too small", n: 4, g: 1, want: ErrGridSize},
		{name: "infer non multiple of 4", n: 10, g: 0, want: ErrGridShape},
		{name: "infer non square", n: 3 * 4, g: 0, want: ErrGridShape},
		{name: "infer single cell", n: 4, g: 0, want: ErrGridSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Reshape(make([]float64, tt.n), tt.g)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestReshapeInfersSize(t *testing.T) {
	grid, err := Reshape(makeFlat(21, 0, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, 21, grid.Size())
}

func TestAxisValues(t *testing.T) {
	grid, err := Reshape(makeFlat(4, 0, 1), 4)
	require.NoError(t, err)

	p1, p2, err := grid.AxisValues()
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0.1, 0.2, 0.3}, p1, 1e-12)
	assert.InDeltaSlice(t, []float64{0.5, 0.6, 0.7, 0.8}, p2, 1e-12)

	flat := makeFlat(4, 0, 1)
	flat[(1*4+0)*4+int(ChanParam1)] = -1 // break parameter-1 ordering
	grid, err = Reshape(flat, 4)
	require.NoError(t, err)
	_, _, err = grid.AxisValues()
	assert.ErrorIs(t, err, ErrAxisOrder)
}

func TestMeanRangeAndMinimum(t *testing.T) {
	flat := makeFlat(5, 0.2, 0.7)
	flat[(0*5+0)*4+int(ChanMean)] = math.NaN()
	grid, err := Reshape(flat, 5)
	require.NoError(t, err)

	lo, hi := grid.MeanRange()
	assert.InDelta(t, -0.5, lo, 1e-12)
	assert.False(t, math.IsNaN(hi))
	assert.Greater(t, hi, lo)

	best, ok := grid.Minimum()
	require.True(t, ok)
	assert.Equal(t, 2, best.I)
	assert.Equal(t, 2, best.J)
	assert.InDelta(t, 0.2, best.Param1, 1e-12)
	assert.InDelta(t, 0.7, best.Param2, 1e-12)
	assert.InDelta(t, -0.5, best.Mean, 1e-12)
}

func TestMinimumAllNaN(t *testing.T) {
	flat := makeFlat(2, 0, 1)
	for n := 0; n < 4; n++ {
		flat[n*4+int(ChanMean)] = math.NaN()
	}
	grid, err := Reshape(flat, 2)
	require.NoError(t, err)

	_, ok := grid.Minimum()
	assert.False(t, ok)
	lo, hi := grid.MeanRange()
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}

package analysis

import (
	"fmt"
	"math"

	"github.com/user/pes_analyzer_go/internal/parser"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Fit methods accepted by FitOptions.Method.
const (
	MethodLBFGS      = "lbfgs"
	MethodNelderMead = "nelder-mead"
)

// H2EquilibriumBondLength is the equilibrium bond length of H2 in angstroms.
const H2EquilibriumBondLength = 0.74

// FitOptions controls FitMorse. Zero values take the defaults in DefaultFitOptions.
type FitOptions struct {
	R0            float64 // fixed equilibrium bond length
	MaxIterations int     // major iteration budget of the optimiser
	Method        string
	InitDe        float64 // initial guess for De; 0 derives one from the data
	InitA         float64 // initial guess for a; 0 means 1
}

// DefaultFitOptions returns the settings used for the H2 curve.
func DefaultFitOptions() FitOptions {
	return FitOptions{
		R0:            H2EquilibriumBondLength,
		MaxIterations: 800,
		Method:        MethodLBFGS,
	}
}

// Morse evaluates -de + de*(1 - exp(-a*(r - r0)))^2.
func Morse(r, de, a, r0 float64) float64 {
	s := 1 - math.Exp(-a*(r-r0))
	return -de + de*s*s
}

// morseProblem is the least-squares objective for fixed r0 over x = (De, a).
type morseProblem struct {
	r, e []float64
	r0   float64
}

func (m *morseProblem) ssr(x []float64) float64 {
	var sum float64
	for i, r := range m.r {
		d := Morse(r, x[0], x[1], m.r0) - m.e[i]
		sum += d * d
	}
	return sum
}

func (m *morseProblem) grad(grad, x []float64) {
	de, a := x[0], x[1]
	grad[0], grad[1] = 0, 0
	for i, r := range m.r {
		dr := r - m.r0
		ex := math.Exp(-a * dr)
		s := 1 - ex
		res := -de + de*s*s - m.e[i]
		grad[0] += 2 * res * (s*s - 1)
		grad[1] += 2 * res * (2 * de * s * ex * dr)
	}
}

// FitMorse fits the Morse form to pes by minimising the sum of squared
// residuals over (De, a) with r0 held fixed.
func FitMorse(pes *parser.BondPES, opts FitOptions) (*MorseFit, error) {
	if pes.Len() < 2 {
		return nil, fmt.Errorf("%w: got %d, need at least 2", ErrTooFewPoints, pes.Len())
	}
	if len(pes.E) != len(pes.R) {
		return nil, fmt.Errorf("%w: %d bond lengths but %d energies", ErrLengthMismatch, len(pes.R), len(pes.E))
	}
	if floats.Max(pes.R) == floats.Min(pes.R) {
		return nil, fmt.Errorf("%w: every bond length is %g, need at least 2 distinct", ErrTooFewPoints, pes.R[0])
	}

	def := DefaultFitOptions()
	if opts.R0 == 0 {
		opts.R0 = def.R0
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.Method == "" {
		opts.Method = def.Method
	}
	if opts.InitDe == 0 {
		// Well depth is a good starting point for De.
		opts.InitDe = -floats.Min(pes.E)
		if opts.InitDe <= 0 {
			opts.InitDe = 1
		}
	}
	if opts.InitA == 0 {
		opts.InitA = 1
	}

	mp := &morseProblem{r: pes.R, e: pes.E, r0: opts.R0}
	problem := optimize.Problem{Func: mp.ssr, Grad: mp.grad}
	init := []float64{opts.InitDe, opts.InitA}

	var (
		result *optimize.Result
		err    error
		method = opts.Method
		evals  int
	)
	switch opts.Method {
	case MethodLBFGS:
		result, err = minimize(problem, init, opts.MaxIterations, &optimize.LBFGS{})
		if result != nil {
			evals += result.Stats.FuncEvaluations
		}
		if err != nil {
			// Line search failures are common once the residual is near
			// machine precision; restart the simplex from the best point.
			start := init
			if result != nil && finite(result.X) {
				start = result.X
			}
			result, err = minimize(problem, start, opts.MaxIterations, &optimize.NelderMead{})
			if result != nil {
				evals += result.Stats.FuncEvaluations
			}
			method = MethodLBFGS + "+" + MethodNelderMead
		}
	case MethodNelderMead:
		result, err = minimize(problem, init, opts.MaxIterations, &optimize.NelderMead{})
		if result != nil {
			evals += result.Stats.FuncEvaluations
		}
	default:
		return nil, fmt.Errorf("unknown fit method: %s", opts.Method)
	}
	if err != nil {
		return nil, err
	}

	de, a := result.X[0], result.X[1]
	estimates := make([]float64, len(pes.R))
	for i, r := range pes.R {
		estimates[i] = Morse(r, de, a, opts.R0)
	}
	ssr := mp.ssr(result.X)

	return &MorseFit{
		De:          de,
		A:           a,
		R0:          opts.R0,
		SSR:         ssr,
		RMSE:        math.Sqrt(ssr / float64(len(pes.R))),
		RSquared:    stat.RSquaredFrom(estimates, pes.E, nil),
		Points:      len(pes.R),
		Evaluations: evals,
		Method:      method,
	}, nil
}

func minimize(problem optimize.Problem, init []float64, iterations int, method optimize.Method) (*optimize.Result, error) {
	settings := &optimize.Settings{
		MajorIterations: iterations,
	}
	result, err := optimize.Minimize(problem, init, settings, method)
	if err != nil {
		return result, fmt.Errorf("%w: %v", ErrFitNotConverged, err)
	}
	switch result.Status {
	case optimize.IterationLimit, optimize.FunctionEvaluationLimit, optimize.Failure:
		return result, fmt.Errorf("%w: status %v after %d iterations", ErrFitNotConverged, result.Status, result.Stats.MajorIterations)
	}
	if !finite(result.X) || math.IsNaN(result.F) {
		return result, fmt.Errorf("%w: non-finite parameters %v", ErrFitNotConverged, result.X)
	}
	return result, nil
}

func finite(xs []float64) bool {
	for _, x := range xs {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

// Eval returns the fitted energy at r.
func (f *MorseFit) Eval(r float64) float64 {
	return Morse(r, f.De, f.A, f.R0)
}

// Curve samples the fitted function at n evenly spaced points in [lo, hi].
func (f *MorseFit) Curve(lo, hi float64, n int) (xs, ys []float64) {
	if n < 2 {
		n = 2
	}
	xs = floats.Span(make([]float64, n), lo, hi)
	ys = make([]float64, n)
	for i, x := range xs {
		ys[i] = f.Eval(x)
	}
	return xs, ys
}

package analysis

import "errors"

// Channel indexes the four values stored for every grid cell.
type Channel int

const (
	ChanParam1 Channel = iota // first tunable parameter (c)
	ChanParam2                // second tunable parameter (alpha)
	ChanMean                  // mean energy
	ChanStd                   // standard deviation of the energy
	NumChannels
)

// Validation and fitting errors.
var (
	ErrGridShape       = errors.New("element count does not match a (G, G, 4) grid")
	ErrGridSize        = errors.New("invalid grid size")
	ErrAxisOrder       = errors.New("axis channel is not strictly increasing")
	ErrTooFewPoints    = errors.New("not enough data points to fit")
	ErrLengthMismatch  = errors.New("bond lengths and energies differ in length")
	ErrFitNotConverged = errors.New("fit did not converge")
)

// GridPoint is one cell of an energy grid.
type GridPoint struct {
	I, J   int // indices along parameter-1 and parameter-2
	Param1 float64
	Param2 float64
	Mean   float64
	Std    float64
}

// MorseFit holds the fitted Morse parameters and fit diagnostics.
type MorseFit struct {
	De          float64 // dissociation energy, eV
	A           float64 // width parameter, 1/Å
	R0          float64 // equilibrium bond length (fixed), Å
	SSR         float64 // sum of squared residuals
	RMSE        float64
	RSquared    float64
	Points      int
	Evaluations int
	Method      string
}

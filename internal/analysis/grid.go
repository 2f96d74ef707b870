package analysis

import (
	"fmt"
	"math"
)

// EnergyGrid is a (G, G, 4) block of grid cells.
//
// Layout is channel-minor and row-major: element (i, j, k) sits at flat
// offset (i*G + j)*4 + k, i.e. one (param1, param2, mean, std) record per cell
// with param1 in the outer loop. This is the order the VMC explorer writes.
type EnergyGrid struct {
	size int
	data []float64
}

// InferGridSize returns G for a flat sequence of n values, or an error if n is
// not 4*G*G for some G >= 2.
func InferGridSize(n int) (int, error) {
	if n%int(NumChannels) != 0 {
		return 0, fmt.Errorf("%w: %d values is not a multiple of %d", ErrGridShape, n, NumChannels)
	}
	cells := n / int(NumChannels)
	g := int(math.Round(math.Sqrt(float64(cells))))
	if g*g != cells {
		return 0, fmt.Errorf("%w: %d cells is not a square number", ErrGridShape, cells)
	}
	if g < 2 {
		return 0, fmt.Errorf("%w: inferred G=%d, need at least 2", ErrGridSize, g)
	}
	return g, nil
}

// Reshape interprets flat as a (g, g, 4) grid. A g of 0 infers the size from
// len(flat). The input slice is copied.
func Reshape(flat []float64, g int) (*EnergyGrid, error) {
	if g == 0 {
		var err error
		if g, err = InferGridSize(len(flat)); err != nil {
			return nil, err
		}
	}
	if g < 2 {
		return nil, fmt.Errorf("%w: G=%d, need at least 2", ErrGridSize, g)
	}
	want := g * g * int(NumChannels)
	if len(flat) != want {
		return nil, fmt.Errorf("%w: got %d values, want %d for G=%d", ErrGridShape, len(flat), want, g)
	}

	data := make([]float64, want)
	copy(data, flat)
	return &EnergyGrid{size: g, data: data}, nil
}

// Size returns G.
func (g *EnergyGrid) Size() int { return g.size }

func (g *EnergyGrid) offset(i, j int, ch Channel) int {
	return (i*g.size+j)*int(NumChannels) + int(ch)
}

// At returns channel ch of cell (i, j).
func (g *EnergyGrid) At(i, j int, ch Channel) float64 {
	return g.data[g.offset(i, j, ch)]
}

// Cell returns every channel of cell (i, j).
func (g *EnergyGrid) Cell(i, j int) GridPoint {
	return GridPoint{
		I:      i,
		J:      j,
		Param1: g.At(i, j, ChanParam1),
		Param2: g.At(i, j, ChanParam2),
		Mean:   g.At(i, j, ChanMean),
		Std:    g.At(i, j, ChanStd),
	}
}

// Channel extracts one channel as a G x G matrix indexed [i][j].
func (g *EnergyGrid) Channel(ch Channel) [][]float64 {
	out := make([][]float64, g.size)
	for i := range out {
		out[i] = make([]float64, g.size)
		for j := range out[i] {
			out[i][j] = g.At(i, j, ch)
		}
	}
	return out
}

// Flatten returns the grid in its canonical flat order.
func (g *EnergyGrid) Flatten() []float64 {
	out := make([]float64, len(g.data))
	copy(out, g.data)
	return out
}

// AxisValues returns the parameter-1 values along i (taken at j=0) and the
// parameter-2 values along j (taken at i=0). Both must be strictly increasing
// for the grid to be drawn against its parameter axes.
func (g *EnergyGrid) AxisValues() (p1, p2 []float64, err error) {
	p1 = make([]float64, g.size)
	p2 = make([]float64, g.size)
	for k := 0; k < g.size; k++ {
		p1[k] = g.At(k, 0, ChanParam1)
		p2[k] = g.At(0, k, ChanParam2)
	}
	if !strictlyIncreasing(p1) {
		return nil, nil, fmt.Errorf("%w: parameter-1", ErrAxisOrder)
	}
	if !strictlyIncreasing(p2) {
		return nil, nil, fmt.Errorf("%w: parameter-2", ErrAxisOrder)
	}
	return p1, p2, nil
}

// MeanRange returns the smallest and largest finite mean energy.
// Both are NaN when no cell holds a finite mean.
func (g *EnergyGrid) MeanRange() (lo, hi float64) {
	lo, hi = math.NaN(), math.NaN()
	for i := 0; i < g.size; i++ {
		for j := 0; j < g.size; j++ {
			v := g.At(i, j, ChanMean)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if math.IsNaN(lo) || v < lo {
				lo = v
			}
			if math.IsNaN(hi) || v > hi {
				hi = v
			}
		}
	}
	return lo, hi
}

// Minimum returns the cell with the lowest finite mean energy, which is the
// variational optimum over the sampled parameters. ok is false if every mean
// is NaN or infinite.
func (g *EnergyGrid) Minimum() (best GridPoint, ok bool) {
	for i := 0; i < g.size; i++ {
		for j := 0; j < g.size; j++ {
			v := g.At(i, j, ChanMean)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			if !ok || v < best.Mean {
				best = g.Cell(i, j)
				ok = true
			}
		}
	}
	return best, ok
}

func strictlyIncreasing(xs []float64) bool {
	for k := 1; k < len(xs); k++ {
		if !(xs[k] > xs[k-1]) {
			return false
		}
	}
	return true
}

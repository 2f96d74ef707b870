package report

import (
	"bytes"
	"fmt"
	"image/color"
	"math"

	"github.com/user/pes_analyzer_go/internal/analysis"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/palette/moreland"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// colorBarWidth is the strip on the right of the contour image holding the colour scale.
const colorBarWidth = 90

// ContourOptions controls CreateContourPlot.
type ContourOptions struct {
	Title  string
	XLabel string
	YLabel string

	// Levels is the number of contour lines over the filled map; 0 draws none.
	Levels int

	// ColorMin and ColorMax clip the colour scale when both are non-nil.
	// Cells outside the range take the colour of the nearest end.
	ColorMin *float64
	ColorMax *float64

	// IndexAxes draws against array index instead of the parameter channels.
	IndexAxes bool

	Width, Height float64 // points
}

// meanGrid exposes the mean-energy channel as a plotter.GridXYZ.
// Column c is the parameter-1 index, row r the parameter-2 index.
type meanGrid struct {
	grid   *analysis.EnergyGrid
	xs, ys []float64
}

func (m meanGrid) Dims() (c, r int)   { return len(m.xs), len(m.ys) }
func (m meanGrid) Z(c, r int) float64 { return m.grid.At(c, r, analysis.ChanMean) }
func (m meanGrid) X(c int) float64    { return m.xs[c] }
func (m meanGrid) Y(r int) float64    { return m.ys[r] }

// lineColor is a single-colour palette for contour lines.
type lineColor struct{ c color.Color }

func (l lineColor) Colors() []color.Color { return []color.Color{l.c} }

var _ palette.Palette = lineColor{}

func indexAxis(n int) []float64 {
	return floats.Span(make([]float64, n), 0, float64(n-1))
}

// CreateContourPlot renders the mean-energy channel of grid as a filled map
// with contour lines and a colour bar, and returns PNG bytes.
func CreateContourPlot(grid *analysis.EnergyGrid, opts ContourOptions) ([]byte, error) {
	if grid == nil {
		return nil, fmt.Errorf("no energy grid to plot")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %gx%g", opts.Width, opts.Height)
	}

	var xs, ys []float64
	if opts.IndexAxes {
		xs, ys = indexAxis(grid.Size()), indexAxis(grid.Size())
	} else {
		var err error
		xs, ys, err = grid.AxisValues()
		if err != nil {
			return nil, fmt.Errorf("cannot use parameter axes (try index axes): %w", err)
		}
	}
	data := meanGrid{grid: grid, xs: xs, ys: ys}

	lo, hi := grid.MeanRange()
	if math.IsNaN(lo) {
		return nil, fmt.Errorf("energy grid has no finite mean values")
	}
	clipped := opts.ColorMin != nil && opts.ColorMax != nil
	if clipped {
		lo, hi = *opts.ColorMin, *opts.ColorMax
		if !(hi > lo) {
			return nil, fmt.Errorf("invalid colour range [%g, %g]", lo, hi)
		}
	}
	if hi == lo { // flat surface
		hi = lo + 1
	}

	cm := moreland.ExtendedBlackBody()
	cm.SetMax(hi)
	cm.SetMin(lo)
	pal := cm.Palette(255)
	colors := pal.Colors()

	p := plot.New()
	p.Title.Text = opts.Title
	p.X.Label.Text = opts.XLabel
	p.Y.Label.Text = opts.YLabel

	hm := plotter.NewHeatMap(data, pal)
	hm.Min = lo
	hm.Max = hi
	hm.Underflow = colors[0]
	hm.Overflow = colors[len(colors)-1]
	hm.NaN = color.Gray{Y: 200}
	p.Add(hm)

	if opts.Levels > 0 {
		// Interior levels only; the ends of the range would trace the border.
		span := floats.Span(make([]float64, opts.Levels+2), lo, hi)
		c := plotter.NewContour(data, span[1:len(span)-1], lineColor{color.Gray{Y: 40}})
		c.Min, c.Max = lo, hi
		p.Add(c)
	}

	cbPlot := plot.New()
	cbPlot.Add(&plotter.ColorBar{ColorMap: cm, Vertical: true})
	cbPlot.HideX()
	cbPlot.Y.Label.Text = "Mean energy"

	w, h := vg.Points(opts.Width), vg.Points(opts.Height)
	img := vgimg.New(w, h)
	dc := draw.New(img)
	bar := vg.Points(colorBarWidth)
	p.Draw(draw.Crop(dc, 0, -bar, 0, 0))
	cbPlot.Draw(draw.Crop(dc, w-bar, 0, 0, 0))

	buf := new(bytes.Buffer)
	png := vgimg.PngCanvas{Canvas: img}
	if _, err := png.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write contour plot to buffer: %v", err)
	}
	return buf.Bytes(), nil
}

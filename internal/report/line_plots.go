package report

import (
	"bytes"
	"fmt"
	"image/color"

	"github.com/user/pes_analyzer_go/internal/analysis"
	"github.com/user/pes_analyzer_go/internal/parser"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// FitPlotOptions controls CreateFitPlot.
type FitPlotOptions struct {
	DisplayMin, DisplayMax float64 // range of the sampled fit curve
	Samples                int
	Width, Height          float64 // points
}

// CreateFitPlot draws the raw bond energies against the sampled Morse fit and
// returns PNG bytes.
func CreateFitPlot(pes *parser.BondPES, fit *analysis.MorseFit, opts FitPlotOptions) ([]byte, error) {
	if pes.Len() == 0 {
		return nil, fmt.Errorf("no PES data to plot")
	}
	if fit == nil {
		return nil, fmt.Errorf("no fit to plot")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %gx%g", opts.Width, opts.Height)
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Morse fit: De = %.4f eV, a = %.4f 1/Å", fit.De, fit.A)
	p.X.Label.Text = "Bond Length/Å"
	p.Y.Label.Text = "Bond Energy/eV"
	p.Add(plotter.NewGrid())

	xs, ys := fit.Curve(opts.DisplayMin, opts.DisplayMax, opts.Samples)
	curve := make(plotter.XYs, len(xs))
	for i := range xs {
		curve[i] = plotter.XY{X: xs[i], Y: ys[i]}
	}
	line, err := plotter.NewLine(curve)
	if err != nil {
		return nil, fmt.Errorf("failed to create fit line: %v", err)
	}
	line.Color = color.RGBA{B: 255, A: 255}
	line.LineStyle.Width = vg.Points(1.5)
	p.Add(line)
	p.Legend.Add("Morse fit", line)

	pts := make(plotter.XYs, pes.Len())
	for i := range pes.R {
		pts[i] = plotter.XY{X: pes.R[i], Y: pes.E[i]}
	}
	scatter, err := plotter.NewScatter(pts)
	if err != nil {
		return nil, fmt.Errorf("failed to create data points: %v", err)
	}
	scatter.GlyphStyle.Shape = draw.CircleGlyph{}
	scatter.GlyphStyle.Color = color.RGBA{R: 255, A: 255}
	scatter.GlyphStyle.Radius = vg.Points(3)
	p.Add(scatter)
	p.Legend.Add("data", scatter)

	p.Legend.Top = true
	p.Legend.XOffs = -vg.Points(10)

	writer, err := p.WriterTo(vg.Points(opts.Width), vg.Points(opts.Height), "png")
	if err != nil {
		return nil, fmt.Errorf("failed to create plot writer: %v", err)
	}
	buf := new(bytes.Buffer)
	if _, err := writer.WriteTo(buf); err != nil {
		return nil, fmt.Errorf("failed to write plot to buffer: %v", err)
	}
	return buf.Bytes(), nil
}

// OutputPath returns the image path written next to input.
func OutputPath(input string) string {
	return input + ".png"
}

package report

import (
	"bytes"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/pes_analyzer_go/internal/analysis"
	"github.com/user/pes_analyzer_go/internal/parser"
)

func bowlGrid(t *testing.T, g int) *analysis.EnergyGrid {
	t.Helper()
	flat := make([]float64, 0, g*g*4)
	for i := 0; i < g; i++ {
		for j := 0; j < g; j++ {
			c := -0.5 + float64(i)/float64(g-1)
			alpha := 0.5 + float64(j)/float64(g-1)
			mean := -0.5 + 0.1*c*c + 0.2*(alpha-1)*(alpha-1)
			flat = append(flat, c, alpha, mean, 0.01)
		}
	}
	grid, err := analysis.Reshape(flat, g)
	require.NoError(t, err)
	return grid
}

func defaultContourOptions() ContourOptions {
	return ContourOptions{
		Title:  "Mean energy",
		XLabel: "c parameter",
		YLabel: "alpha parameter",
		Levels: 8,
		Width:  400,
		Height: 300,
	}
}

func decodeSize(t *testing.T, b []byte) (int, int) {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(b))
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestCreateContourPlot(t *testing.T) {
	grid := bowlGrid(t, 11)

	b, err := CreateContourPlot(grid, defaultContourOptions())
	require.NoError(t, err)
	w, h := decodeSize(t, b)
	assert.Greater(t, w, 0)
	assert.Greater(t, h, 0)
}

func TestCreateContourPlotClippedAndIndexAxes(t *testing.T) {
	grid := bowlGrid(t, 5)
	lo, hi := -0.5, -0.48
	opts := defaultContourOptions()
	opts.ColorMin, opts.ColorMax = &lo, &hi
	opts.IndexAxes = true
	opts.Levels = 0

	b, err := CreateContourPlot(grid, opts)
	require.NoError(t, err)
	decodeSize(t, b)
}

func TestCreateContourPlotErrors(t *testing.T) {
	_, err := CreateContourPlot(nil, defaultContourOptions())
	assert.Error(t, err)

	// scrambled parameter-1 axis
	flat := bowlGrid(t, 3).Flatten()
	flat[(2*3+0)*4] = -10
	grid, err := analysis.Reshape(flat, 3)
	require.NoError(t, err)
	_, err = CreateContourPlot(grid, defaultContourOptions())
	assert.ErrorIs(t, err, analysis.ErrAxisOrder)

	opts := defaultContourOptions()
	opts.IndexAxes = true
	_, err = CreateContourPlot(grid, opts)
	assert.NoError(t, err)

	lo, hi := 1.0, 0.0
	opts.ColorMin, opts.ColorMax = &lo, &hi
	_, err = CreateContourPlot(grid, opts)
	assert.Error(t, err)

	nan := bowlGrid(t, 2).Flatten()
	for n := 0; n < 4; n++ {
		nan[n*4+int(analysis.ChanMean)] = math.NaN()
	}
	grid, err = analysis.Reshape(nan, 2)
	require.NoError(t, err)
	_, err = CreateContourPlot(grid, defaultContourOptions())
	assert.Error(t, err)
}

func h2Fit(t *testing.T) (*parser.BondPES, *analysis.MorseFit) {
	t.Helper()
	pes := &parser.BondPES{}
	for k := 0; k <= 8; k++ {
		r := 0.6 + 0.05*float64(k)
		pes.R = append(pes.R, r)
		pes.E = append(pes.E, analysis.Morse(r, 4.75, 1.94, 0.74))
	}
	fit, err := analysis.FitMorse(pes, analysis.DefaultFitOptions())
	require.NoError(t, err)
	return pes, fit
}

func TestCreateFitPlot(t *testing.T) {
	pes, fit := h2Fit(t)
	b, err := CreateFitPlot(pes, fit, FitPlotOptions{DisplayMin: 0.5, DisplayMax: 1.2, Samples: 100, Width: 400, Height: 300})
	require.NoError(t, err)
	decodeSize(t, b)

	_, err = CreateFitPlot(&parser.BondPES{}, fit, FitPlotOptions{Width: 1, Height: 1})
	assert.Error(t, err)
	_, err = CreateFitPlot(pes, nil, FitPlotOptions{Width: 1, Height: 1})
	assert.Error(t, err)
}

func TestOutputPath(t *testing.T) {
	assert.Equal(t, "energy_surface.txt.png", OutputPath("energy_surface.txt"))
	assert.Equal(t, "/data/h2_pes.txt.png", OutputPath("/data/h2_pes.txt"))
}

func TestBuildPDFReport(t *testing.T) {
	grid := bowlGrid(t, 5)
	contour, err := CreateContourPlot(grid, defaultContourOptions())
	require.NoError(t, err)
	pes, fit := h2Fit(t)
	fitPNG, err := CreateFitPlot(pes, fit, FitPlotOptions{DisplayMin: 0.5, DisplayMax: 1.2, Samples: 50, Width: 400, Height: 300})
	require.NoError(t, err)

	dir := t.TempDir()
	path := filepath.Join(dir, "report.pdf")
	err = BuildPDFReport(path, ReportInput{
		GridFile:   "energy_surface.txt",
		Grid:       grid,
		ContourPNG: contour,
		PESFile:    "h2_pes.txt",
		Fit:        fit,
		FitPNG:     fitPNG,
		Generated:  time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(b, []byte("%PDF-")))

	// both halves optional
	path = filepath.Join(dir, "empty.pdf")
	require.NoError(t, BuildPDFReport(path, ReportInput{}))
	_, err = os.Stat(path)
	assert.NoError(t, err)
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/user/pes_analyzer_go/internal/analysis"
	"github.com/user/pes_analyzer_go/internal/config"
	"github.com/user/pes_analyzer_go/internal/parser"
	"github.com/user/pes_analyzer_go/internal/qmc"
	"github.com/user/pes_analyzer_go/internal/report"

	"go.uber.org/zap"
)

// App runs the analysis steps behind each subcommand.
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	out    io.Writer // user-facing results (fit parameters)
}

// NewApp creates a new App.
func NewApp(cfg *config.Config, logger *zap.Logger, out io.Writer) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &App{cfg: cfg, logger: logger, out: out}
}

func (a *App) sendStatus(message string, fields ...zap.Field) {
	a.logger.Info(message, fields...)
}

func (a *App) contourOptions() report.ContourOptions {
	c := a.cfg.Contour
	return report.ContourOptions{
		Title:     "Mean energy",
		XLabel:    c.XLabel,
		YLabel:    c.YLabel,
		Levels:    c.Levels,
		ColorMin:  c.ColorMin,
		ColorMax:  c.ColorMax,
		IndexAxes: c.IndexAxes,
		Width:     c.Width,
		Height:    c.Height,
	}
}

func (a *App) fitPlotOptions() report.FitPlotOptions {
	f := a.cfg.Fit
	return report.FitPlotOptions{
		DisplayMin: f.DisplayMin,
		DisplayMax: f.DisplayMax,
		Samples:    f.Samples,
		Width:      f.Width,
		Height:     f.Height,
	}
}

// loadGrid parses and reshapes an energy grid file.
func (a *App) loadGrid(path string) (*analysis.EnergyGrid, error) {
	a.sendStatus("Parsing energy grid", zap.String("file", path))
	flat, err := parser.ParseEnergyGrid(path)
	if err != nil {
		return nil, fmt.Errorf("error parsing energy grid: %w", err)
	}
	grid, err := analysis.Reshape(flat, a.cfg.Contour.GridSize)
	if err != nil {
		return nil, fmt.Errorf("error shaping %s: %w", path, err)
	}
	a.sendStatus("Energy grid loaded", zap.Int("values", len(flat)), zap.Int("grid_size", grid.Size()))
	if best, ok := grid.Minimum(); ok {
		a.sendStatus("Lowest mean energy",
			zap.Float64("c", best.Param1),
			zap.Float64("alpha", best.Param2),
			zap.Float64("mean", best.Mean),
			zap.Float64("std", best.Std))
	}
	return grid, nil
}

// fitPES parses a bond curve file and fits the Morse form to it.
func (a *App) fitPES(path string) (*parser.BondPES, *analysis.MorseFit, error) {
	a.sendStatus("Parsing bond curve", zap.String("file", path))
	pes, err := parser.ParseBondPES(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error parsing bond curve: %w", err)
	}
	a.sendStatus("Fitting Morse potential",
		zap.Int("points", pes.Len()),
		zap.String("method", a.cfg.Fit.Method),
		zap.Float64("r0", a.cfg.Fit.R0))
	fit, err := analysis.FitMorse(pes, a.cfg.Fit.FitOptions())
	if err != nil {
		return nil, nil, fmt.Errorf("error fitting %s: %w", path, err)
	}
	a.sendStatus("Fit complete",
		zap.Float64("De", fit.De),
		zap.Float64("a", fit.A),
		zap.Float64("rmse", fit.RMSE),
		zap.Int("evaluations", fit.Evaluations),
		zap.String("method", fit.Method))
	return pes, fit, nil
}

// HandleContour renders <path>.png from an energy grid file.
func (a *App) HandleContour(path string) (string, error) {
	grid, err := a.loadGrid(path)
	if err != nil {
		return "", err
	}
	img, err := report.CreateContourPlot(grid, a.contourOptions())
	if err != nil {
		return "", fmt.Errorf("error generating contour plot: %w", err)
	}
	out := report.OutputPath(path)
	if err := os.WriteFile(out, img, 0o644); err != nil {
		return "", fmt.Errorf("error writing %s: %w", out, err)
	}
	a.sendStatus("Contour plot written", zap.String("file", out))
	return out, nil
}

// HandleFit fits the bond curve in path, prints the parameters and renders <path>.png.
func (a *App) HandleFit(path string) (*analysis.MorseFit, string, error) {
	pes, fit, err := a.fitPES(path)
	if err != nil {
		return nil, "", err
	}
	fmt.Fprintf(a.out, "De = %.6f eV\na  = %.6f 1/Å\n", fit.De, fit.A)

	img, err := report.CreateFitPlot(pes, fit, a.fitPlotOptions())
	if err != nil {
		return nil, "", fmt.Errorf("error generating fit plot: %w", err)
	}
	out := report.OutputPath(path)
	if err := os.WriteFile(out, img, 0o644); err != nil {
		return nil, "", fmt.Errorf("error writing %s: %w", out, err)
	}
	a.sendStatus("Fit plot written", zap.String("file", out))
	return fit, out, nil
}

// HandleSample runs the VMC range exploration and writes the energy grid file.
func (a *App) HandleSample(ctx context.Context) (string, error) {
	s := a.cfg.Sample
	opts := s.RangeOptions()
	total := opts.GridSize * opts.GridSize
	a.sendStatus("Start range exploration",
		zap.Int("points", total),
		zap.Int("steps", opts.Steps),
		zap.Float64("step", opts.Step),
		zap.Uint64("seed", opts.Seed))

	var done atomic.Int64
	start := time.Now()
	points, err := qmc.Explore(ctx, opts, func(p analysis.GridPoint, est qmc.Estimate) {
		a.logger.Debug("Point sampled",
			zap.Int64("done", done.Add(1)),
			zap.Int("of", total),
			zap.Float64("c", p.Param1),
			zap.Float64("alpha", p.Param2),
			zap.Float64("mean", est.Mean),
			zap.Float64("std", est.Std),
			zap.Float64("accept_ratio", est.AcceptRatio),
			zap.Float64("last_step", est.FinalStep),
			zap.Float64("last_r", est.FinalR))
	})
	if err != nil {
		return "", fmt.Errorf("error sampling energy surface: %w", err)
	}

	f, err := os.Create(s.Output)
	if err != nil {
		return "", fmt.Errorf("error creating %s: %w", s.Output, err)
	}
	if err := qmc.WriteSurface(f, points); err != nil {
		f.Close()
		return "", fmt.Errorf("error writing %s: %w", s.Output, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("error closing %s: %w", s.Output, err)
	}
	a.sendStatus("Energy grid written", zap.String("file", s.Output), zap.Duration("elapsed", time.Since(start)))
	return s.Output, nil
}

// HandlePoint samples a single (c, alpha) point with the step settings of the
// sample section and prints its row plus the walker diagnostics.
func (a *App) HandlePoint(ctx context.Context, c, alpha float64) (qmc.Estimate, error) {
	s := a.cfg.Sample
	a.sendStatus("Single point calculation",
		zap.Float64("c", c),
		zap.Float64("alpha", alpha),
		zap.Int("steps", s.Steps),
		zap.Float64("step", s.Step),
		zap.Uint64("seed", s.Seed))

	p, est, err := qmc.SamplePoint(ctx, c, alpha, s.Step, s.Steps, s.Seed)
	if err != nil {
		return qmc.Estimate{}, fmt.Errorf("error sampling c=%g alpha=%g: %w", c, alpha, err)
	}
	if err := qmc.WriteSurface(a.out, []analysis.GridPoint{p}); err != nil {
		return qmc.Estimate{}, err
	}
	fmt.Fprintf(a.out, "# accept ratio: %.2f, step size: %6.4f, last place: %6.4f\n", est.AcceptRatio, est.FinalStep, est.FinalR)
	return est, nil
}

// HandleReport builds the PDF from an energy grid file and a bond curve file.
// Either input may be empty, but not both.
func (a *App) HandleReport(gridPath, pesPath, pdfPath string) error {
	if gridPath == "" && pesPath == "" {
		return fmt.Errorf("report needs an energy grid file, a bond curve file, or both")
	}
	in := report.ReportInput{GridFile: gridPath, PESFile: pesPath, Generated: time.Now()}

	if gridPath != "" {
		grid, err := a.loadGrid(gridPath)
		if err != nil {
			return err
		}
		img, err := report.CreateContourPlot(grid, a.contourOptions())
		if err != nil {
			return fmt.Errorf("error generating contour plot: %w", err)
		}
		in.Grid, in.ContourPNG = grid, img
	}
	if pesPath != "" {
		pes, fit, err := a.fitPES(pesPath)
		if err != nil {
			return err
		}
		img, err := report.CreateFitPlot(pes, fit, a.fitPlotOptions())
		if err != nil {
			return fmt.Errorf("error generating fit plot: %w", err)
		}
		in.Fit, in.FitPNG = fit, img
	}

	a.sendStatus("Generating PDF", zap.String("file", pdfPath))
	if err := report.BuildPDFReport(pdfPath, in); err != nil {
		return fmt.Errorf("error generating PDF report: %w", err)
	}
	a.sendStatus("PDF report successfully generated", zap.String("file", pdfPath))
	return nil
}

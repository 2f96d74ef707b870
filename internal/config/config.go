package config

import (
	"bufio"
	"fmt"
	"os"

	"github.com/user/pes_analyzer_go/internal/analysis"
	"github.com/user/pes_analyzer_go/internal/qmc"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of every subcommand. It can be instanced through
// New, which reads a YAML file on top of Default, or by hand followed by Check.
type Config struct {
	Contour Contour `yaml:"contour"`
	Fit     Fit     `yaml:"fit"`
	Sample  Sample  `yaml:"sample"`
	Report  Report  `yaml:"report"`
}

// Contour configures the energy surface plot.
type Contour struct {
	// Input is the energy grid file
	Input string `yaml:"input"`

	// GridSize is G in the (G, G, 4) layout. 0 infers it from the file
	GridSize int `yaml:"grid_size"`

	// Levels is the number of contour lines drawn over the filled map
	Levels int `yaml:"levels"`

	// ColorMin and ColorMax clip the colour scale when both are set
	ColorMin *float64 `yaml:"color_min"`
	ColorMax *float64 `yaml:"color_max"`

	// IndexAxes plots against array index instead of the parameter channels
	IndexAxes bool `yaml:"index_axes"`

	XLabel string `yaml:"x_label"`
	YLabel string `yaml:"y_label"`

	// Width and Height of the image in points
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Fit configures the Morse curve fit.
type Fit struct {
	Input         string  `yaml:"input"`
	R0            float64 `yaml:"r0"`
	MaxIterations int     `yaml:"max_iterations"`
	Method        string  `yaml:"method"`

	// DisplayMin, DisplayMax and Samples describe the plotted fit curve
	DisplayMin float64 `yaml:"display_min"`
	DisplayMax float64 `yaml:"display_max"`
	Samples    int     `yaml:"samples"`

	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

// Sample configures the VMC range exploration that writes an energy grid.
type Sample struct {
	Output   string  `yaml:"output"`
	CMin     float64 `yaml:"min_c"`
	CMax     float64 `yaml:"max_c"`
	AlphaMin float64 `yaml:"min_alpha"`
	AlphaMax float64 `yaml:"max_alpha"`
	GridSize int     `yaml:"grid_size"`
	Steps    int     `yaml:"steps"`
	Step     float64 `yaml:"step"`
	Seed     uint64  `yaml:"seed"`
	Workers  int     `yaml:"workers"`
}

// Report configures the combined PDF.
type Report struct {
	Output string `yaml:"output"`
}

// Default returns the settings the analysis has always used.
func Default() *Config {
	return &Config{
		Contour: Contour{
			Input:    "energy_surface.txt",
			GridSize: 11,
			Levels:   10,
			XLabel:   "c parameter",
			YLabel:   "alpha parameter",
			Width:    640,
			Height:   480,
		},
		Fit: Fit{
			Input:         "h2_pes.txt",
			R0:            analysis.H2EquilibriumBondLength,
			MaxIterations: 800,
			Method:        analysis.MethodLBFGS,
			DisplayMin:    0.5,
			DisplayMax:    1.2,
			Samples:       100,
			Width:         640,
			Height:        480,
		},
		Sample: Sample{
			Output:   "energy_surface.txt",
			CMin:     -0.5,
			CMax:     0.5,
			AlphaMin: 0.5,
			AlphaMax: 1.5,
			GridSize: 11,
			Steps:    10000,
			Step:     0.001,
			Seed:     1,
		},
		Report: Report{
			Output: "pes_report.pdf",
		},
	}
}

// New opens and decodes the YAML file at path over the defaults. This method
// automatically calls Check.
func New(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	c := Default()
	dec := yaml.NewDecoder(bufio.NewReader(f))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if err := c.Check(); err != nil {
		return nil, fmt.Errorf("Check: %w", err)
	}
	return c, nil
}

// Check returns an error if a field doesn't meet the requirements.
func (c *Config) Check() error {
	if c.Contour.GridSize < 0 || c.Contour.GridSize == 1 {
		return fmt.Errorf("contour grid_size must be 0 (infer) or at least 2")
	}
	if c.Contour.Levels < 0 {
		return fmt.Errorf("contour levels cannot be negative")
	}
	if (c.Contour.ColorMin == nil) != (c.Contour.ColorMax == nil) {
		return fmt.Errorf("contour color_min and color_max must be set together")
	}
	if c.Contour.ColorMin != nil && !(*c.Contour.ColorMax > *c.Contour.ColorMin) {
		return fmt.Errorf("contour color_max must be greater than color_min")
	}
	if c.Contour.Width <= 0 || c.Contour.Height <= 0 {
		return fmt.Errorf("contour width and height must be positive")
	}

	if c.Fit.MaxIterations <= 0 {
		return fmt.Errorf("fit max_iterations must be positive")
	}
	switch c.Fit.Method {
	case analysis.MethodLBFGS, analysis.MethodNelderMead:
	default:
		return fmt.Errorf("fit method must be %q or %q, got %q", analysis.MethodLBFGS, analysis.MethodNelderMead, c.Fit.Method)
	}
	if !(c.Fit.DisplayMax > c.Fit.DisplayMin) {
		return fmt.Errorf("fit display_max must be greater than display_min")
	}
	if c.Fit.Samples < 2 {
		return fmt.Errorf("fit samples must be at least 2")
	}
	if c.Fit.Width <= 0 || c.Fit.Height <= 0 {
		return fmt.Errorf("fit width and height must be positive")
	}

	if err := c.Sample.RangeOptions().Check(); err != nil {
		return fmt.Errorf("sample: %w", err)
	}
	return nil
}

// FitOptions converts the fit section for analysis.FitMorse.
func (f Fit) FitOptions() analysis.FitOptions {
	return analysis.FitOptions{
		R0:            f.R0,
		MaxIterations: f.MaxIterations,
		Method:        f.Method,
	}
}

// RangeOptions converts the sample section for qmc.Explore.
func (s Sample) RangeOptions() qmc.RangeOptions {
	return qmc.RangeOptions{
		CMin:     s.CMin,
		CMax:     s.CMax,
		AlphaMin: s.AlphaMin,
		AlphaMax: s.AlphaMax,
		GridSize: s.GridSize,
		Steps:    s.Steps,
		Step:     s.Step,
		Seed:     s.Seed,
		Workers:  s.Workers,
	}
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/user/pes_analyzer_go/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// cli carries the state shared by the subcommands of one invocation.
type cli struct {
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
	app    *App
	out    io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "pes_analyzer",
		Short: "Plot variational energy surfaces and fit bond energy curves",
		Long: `pes_analyzer post-processes energy data.

  contour  draws the mean energy of a (G, G, 4) grid file as a filled contour
  fit      fits a Morse potential to a two-column bond length / energy file
  sample   writes a grid file by variational Monte Carlo on the hydrogen atom
  point    prints the variational energy of a single (c, alpha) point
  report   combines a grid file and a bond curve fit into one PDF

Grid files hold one "c alpha mean std" record per point with c in the outer
loop. Images are written next to the input as <input>.png.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			lc := zap.NewProductionConfig()
			if c.verbose {
				lc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
			}
			var err error
			c.logger, err = lc.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}

			c.cfg = config.Default()
			if c.configPath != "" {
				c.logger.Info("Reading configuration file", zap.String("file", c.configPath))
				if c.cfg, err = config.New(c.configPath); err != nil {
					return fmt.Errorf("config: %w", err)
				}
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if c.logger != nil {
				_ = c.logger.Sync()
			}
		},
	}
	root.SetOut(out)
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&c.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(c.contourCmd(), c.fitCmd(), c.sampleCmd(), c.pointCmd(), c.reportCmd())
	return root
}

// prepare applies command-line overrides on top of the loaded config and
// builds the App.
func (c *cli) prepare(apply func(*config.Config)) error {
	apply(c.cfg)
	if err := c.cfg.Check(); err != nil {
		return err
	}
	c.app = NewApp(c.cfg, c.logger, c.out)
	return nil
}

func (c *cli) contourCmd() *cobra.Command {
	var (
		gridSize, levels   int
		colorMin, colorMax float64
		indexAxes          bool
	)
	cmd := &cobra.Command{
		Use:   "contour [file]",
		Short: "Render the mean energy of a grid file as <file>.png",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.prepare(func(cfg *config.Config) {
				if len(args) == 1 {
					cfg.Contour.Input = args[0]
				}
				if cmd.Flags().Changed("grid-size") {
					cfg.Contour.GridSize = gridSize
				}
				if cmd.Flags().Changed("levels") {
					cfg.Contour.Levels = levels
				}
				if cmd.Flags().Changed("color-min") {
					cfg.Contour.ColorMin = &colorMin
				}
				if cmd.Flags().Changed("color-max") {
					cfg.Contour.ColorMax = &colorMax
				}
				if cmd.Flags().Changed("index-axes") {
					cfg.Contour.IndexAxes = indexAxes
				}
			})
			if err != nil {
				return err
			}
			_, err = c.app.HandleContour(c.cfg.Contour.Input)
			return err
		},
	}
	cmd.Flags().IntVarP(&gridSize, "grid-size", "g", 0, "grid resolution G (0 infers it from the file)")
	cmd.Flags().IntVar(&levels, "levels", 0, "number of contour lines")
	cmd.Flags().Float64Var(&colorMin, "color-min", 0, "lower end of the clipped colour scale")
	cmd.Flags().Float64Var(&colorMax, "color-max", 0, "upper end of the clipped colour scale")
	cmd.Flags().BoolVar(&indexAxes, "index-axes", false, "plot against array index instead of parameter values")
	return cmd
}

func (c *cli) fitCmd() *cobra.Command {
	var (
		method        string
		maxIterations int
		r0            float64
	)
	cmd := &cobra.Command{
		Use:   "fit [file]",
		Short: "Fit a Morse potential to a bond curve and plot it as <file>.png",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.prepare(func(cfg *config.Config) {
				if len(args) == 1 {
					cfg.Fit.Input = args[0]
				}
				if cmd.Flags().Changed("method") {
					cfg.Fit.Method = method
				}
				if cmd.Flags().Changed("max-iterations") {
					cfg.Fit.MaxIterations = maxIterations
				}
				if cmd.Flags().Changed("r0") {
					cfg.Fit.R0 = r0
				}
			})
			if err != nil {
				return err
			}
			_, _, err = c.app.HandleFit(c.cfg.Fit.Input)
			return err
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "optimiser: lbfgs or nelder-mead")
	cmd.Flags().IntVar(&maxIterations, "max-iterations", 0, "optimiser iteration budget")
	cmd.Flags().Float64Var(&r0, "r0", 0, "fixed equilibrium bond length in Å")
	return cmd
}

func (c *cli) sampleCmd() *cobra.Command {
	var (
		output                         string
		minC, maxC, minAlpha, maxAlpha float64
		gridSize, steps, workers       int
		step                           float64
		seed                           uint64
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Write an energy grid by variational Monte Carlo over (c, alpha)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.prepare(func(cfg *config.Config) {
				f := cmd.Flags()
				s := &cfg.Sample
				if f.Changed("output") {
					s.Output = output
				}
				if f.Changed("min-c") {
					s.CMin = minC
				}
				if f.Changed("max-c") {
					s.CMax = maxC
				}
				if f.Changed("min-alpha") {
					s.AlphaMin = minAlpha
				}
				if f.Changed("max-alpha") {
					s.AlphaMax = maxAlpha
				}
				if f.Changed("grid-size") {
					s.GridSize = gridSize
				}
				if f.Changed("nstep") {
					s.Steps = steps
				}
				if f.Changed("step") {
					s.Step = step
				}
				if f.Changed("seed") {
					s.Seed = seed
				}
				if f.Changed("workers") {
					s.Workers = workers
				}
			})
			if err != nil {
				return err
			}
			_, err = c.app.HandleSample(cmd.Context())
			return err
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "energy grid file to write")
	cmd.Flags().Float64Var(&minC, "min-c", 0, "minimum parameter c")
	cmd.Flags().Float64Var(&maxC, "max-c", 0, "maximum parameter c")
	cmd.Flags().Float64Var(&minAlpha, "min-alpha", 0, "minimum parameter alpha")
	cmd.Flags().Float64Var(&maxAlpha, "max-alpha", 0, "maximum parameter alpha")
	cmd.Flags().IntVarP(&gridSize, "grid-size", "g", 0, "number of grid points per parameter")
	cmd.Flags().IntVarP(&steps, "nstep", "n", 0, "Monte Carlo steps per grid point")
	cmd.Flags().Float64VarP(&step, "step", "s", 0, "Monte Carlo step size")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().IntVar(&workers, "workers", 0, "parallel samplers (0 uses all CPUs)")
	return cmd
}

func (c *cli) pointCmd() *cobra.Command {
	var (
		pc, alpha, step float64
		steps           int
		seed            uint64
	)
	cmd := &cobra.Command{
		Use:   "point",
		Short: "Sample one (c, alpha) point and print its mean energy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.prepare(func(cfg *config.Config) {
				f := cmd.Flags()
				if f.Changed("nstep") {
					cfg.Sample.Steps = steps
				}
				if f.Changed("step") {
					cfg.Sample.Step = step
				}
				if f.Changed("seed") {
					cfg.Sample.Seed = seed
				}
			})
			if err != nil {
				return err
			}
			_, err = c.app.HandlePoint(cmd.Context(), pc, alpha)
			return err
		},
	}
	cmd.Flags().Float64Var(&pc, "c", 0, "trial wave function parameter c")
	cmd.Flags().Float64Var(&alpha, "alpha", 1, "trial wave function parameter alpha")
	cmd.Flags().IntVarP(&steps, "nstep", "n", 0, "Monte Carlo steps")
	cmd.Flags().Float64VarP(&step, "step", "s", 0, "Monte Carlo step size")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "random seed")
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	var (
		gridPath, pesPath, output string
		gridSize                  int
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build a PDF from an energy grid file and a bond curve file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			err := c.prepare(func(cfg *config.Config) {
				if cmd.Flags().Changed("output") {
					cfg.Report.Output = output
				}
				if cmd.Flags().Changed("grid-size") {
					cfg.Contour.GridSize = gridSize
				}
			})
			if err != nil {
				return err
			}
			return c.app.HandleReport(gridPath, pesPath, c.cfg.Report.Output)
		},
	}
	cmd.Flags().StringVar(&gridPath, "grid", "", "energy grid file")
	cmd.Flags().IntVarP(&gridSize, "grid-size", "g", 0, "grid resolution G (0 infers it from the file)")
	cmd.Flags().StringVar(&pesPath, "pes", "", "bond curve file")
	cmd.Flags().StringVarP(&output, "output", "o", "", "PDF file to write")
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Stdout).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

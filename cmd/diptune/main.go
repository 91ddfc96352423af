// Command diptune runs closed-loop pendulum episodes and PSO gain tuning
// from a YAML configuration, and writes the resulting trajectories and
// cost histories as CSV artifacts.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/smclab/dipsim/config"
	"github.com/smclab/dipsim/dip"
	"github.com/smclab/dipsim/pso"
	"github.com/smclab/dipsim/simulate"
	"github.com/smclab/dipsim/smc"
)

func main() {
	configPath := flag.String("config", "", "YAML configuration file (defaults apply if empty)")
	outDir := flag.String("out", "output", "directory for CSV artifacts")
	mode := flag.String("mode", "tune", "run mode: sim | tune")
	seed := flag.Int64("seed", -1, "override the PSO seed (-1 keeps the configured seed)")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// Optional .env for local overrides; absence is not an error.
	if err := godotenv.Load(); err == nil {
		logger.Debug("loaded .env")
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			logger.Error("bad configuration", "err", err)
			os.Exit(1)
		}
	}
	if *seed >= 0 {
		cfg.Tuner.Seed = *seed
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch *mode {
	case "sim":
		err = runEpisode(ctx, logger, cfg, cfg.Controller.Gains, *outDir, "trajectory.csv")
	case "tune":
		err = runTuning(ctx, logger, cfg, *outDir)
	default:
		logger.Error("unknown mode", "mode", *mode)
		os.Exit(2)
	}
	if err != nil {
		logger.Error("run failed", "err", err)
		os.Exit(1)
	}
}

// runEpisode simulates one episode with the given gains and writes the
// trajectory CSV.
func runEpisode(ctx context.Context, logger *slog.Logger, cfg config.File, gains []float64, outDir, name string) error {
	model, err := cfg.NewModel()
	if err != nil {
		return err
	}
	lim := cfg.Limits()
	lim.Model = model

	kind, err := smc.ParseKind(cfg.Controller.Kind)
	if err != nil {
		return err
	}
	ctrl, err := smc.New(kind, gains, lim)
	if err != nil {
		return err
	}

	runner := &simulate.Runner{
		Model:        model,
		Integrator:   dip.NewRK4(),
		ControlLimit: lim.UMax,
		Logger:       logger,
	}
	outcome, err := runner.Run(ctx, ctrl, cfg.SimConfig())
	if err != nil {
		return err
	}

	logger.Info("episode finished",
		"controller", kind.String(),
		"diverged", outcome.Diverged,
		"cost", outcome.Cost(cfg.Weights()),
		"settling_time", outcome.Metrics.SettlingTime,
		"peak_control", outcome.Metrics.PeakControl)

	return writeTrajectoryCSV(filepath.Join(outDir, name), &outcome)
}

// runTuning optimizes the controller gains, writes the cost history and
// replays the best candidate into a trajectory CSV.
func runTuning(ctx context.Context, logger *slog.Logger, cfg config.File, outDir string) error {
	kind, err := smc.ParseKind(cfg.Controller.Kind)
	if err != nil {
		return err
	}

	fitness := simulate.Fitness(simulate.FitnessConfig{
		Kind:    kind,
		Limits:  cfg.Limits(),
		Sim:     cfg.SimConfig(),
		Weights: cfg.Weights(),
		NewModel: func() dip.Model {
			m, _ := cfg.NewModel()
			return m
		},
		Logger: logger,
	})

	tuner, err := pso.NewTuner(cfg.TunerConfig(), fitness)
	if err != nil {
		return err
	}
	tuner.SetLogger(logger)

	result, err := tuner.Optimize(ctx)
	if err != nil {
		return err
	}
	logger.Info("tuning finished",
		"controller", kind.String(),
		"best_gains", result.BestGains,
		"best_cost", result.BestCost,
		"iterations", result.Iterations,
		"converged", result.Converged)

	if err := writeCostHistoryCSV(filepath.Join(outDir, "cost_history.csv"), result.CostHistory); err != nil {
		return err
	}
	return runEpisode(ctx, logger, cfg, result.BestGains, outDir, "best_trajectory.csv")
}

package simulate

import (
	"context"
	"log/slog"

	"github.com/smclab/dipsim/dip"
	"github.com/smclab/dipsim/smc"
)

// FitnessConfig binds a controller kind and plant to a tuning cost
// function. NewModel is called once per evaluation so that models with
// internal caches never cross goroutines.
type FitnessConfig struct {
	Kind     smc.Kind
	Limits   smc.Limits // Limits.Model is replaced per evaluation
	Sim      Config
	Weights  Weights
	NewModel func() dip.Model
	Logger   *slog.Logger
}

// Fitness returns the cost function evaluated by the gain tuner. Every
// failure mode of a candidate — invalid gains, controller error,
// divergence — maps to PenaltyCost so the optimizer keeps running; only
// programming defects surface in the log.
func Fitness(fc FitnessConfig) func(gains []float64) float64 {
	lg := fc.Logger
	if lg == nil {
		lg = slog.Default()
	}

	// The nominal feedback row depends on the plant and limits only, so
	// synthesize it once up front instead of once per candidate.
	baseLim := fc.Limits
	if baseLim.Nominal == nil && fc.NewModel != nil {
		if f, err := smc.NominalFeedback(fc.NewModel(), baseLim); err == nil {
			baseLim.Nominal = f[:]
		} else {
			lg.Warn("nominal feedback synthesis failed", "err", err)
		}
	}

	return func(gains []float64) float64 {
		model := fc.NewModel()
		lim := baseLim
		lim.Model = model

		ctrl, err := smc.New(fc.Kind, gains, lim)
		if err != nil {
			lg.Debug("candidate rejected", "err", err)
			return PenaltyCost
		}

		runner := &Runner{
			Model:        model,
			Integrator:   dip.NewRK4(),
			ControlLimit: lim.UMax,
			Logger:       lg,
		}
		outcome, err := runner.Run(context.Background(), ctrl, fc.Sim)
		if err != nil {
			lg.Warn("fitness evaluation failed", "err", err)
			return PenaltyCost
		}
		return outcome.Cost(fc.Weights)
	}
}

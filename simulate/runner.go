// Package simulate drives closed-loop episodes of the pendulum plant under
// a sliding mode controller and reduces the resulting trajectories to cost
// metrics for gain tuning.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/smclab/dipsim/dip"
	"github.com/smclab/dipsim/smc"
)

// Config describes one simulation episode.
type Config struct {
	Dt      float64   // integration step (s)
	Horizon float64   // total duration (s)
	Initial dip.State // initial plant state
}

// Validate reports a configuration error.
func (c Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("simulate: dt must be positive, got %g", c.Dt)
	}
	if c.Horizon <= 0 {
		return fmt.Errorf("simulate: horizon must be positive, got %g", c.Horizon)
	}
	if c.Horizon < c.Dt {
		return errors.New("simulate: horizon shorter than one step")
	}
	if !c.Initial.IsFinite() {
		return errors.New("simulate: initial state must be finite")
	}
	return nil
}

// Steps returns the hard step-count ceiling of the episode. The ratio is
// rounded so that horizons that are not exact binary multiples of dt
// (0.3/0.1, 5.0/0.01) do not lose their final step to float truncation.
func (c Config) Steps() int { return int(math.Round(c.Horizon / c.Dt)) }

// Outcome is the result of one episode. Divergence is data, not an error:
// a destabilizing gain candidate yields Diverged=true and a penalty cost,
// while Run itself only errors on misconfiguration, contract violations or
// cancellation.
type Outcome struct {
	Times    []float64
	States   []dip.State
	Controls []float64
	Sigma    []float64

	Diverged bool
	Reason   string

	Metrics Metrics
}

// Runner executes episodes. Model and Integrator are read-only during a
// run; per-episode state lives in the controller and the local trajectory,
// so distinct Runner instances evaluate in parallel without locks.
type Runner struct {
	Model      dip.Model
	Integrator *dip.RungeKutta

	// ControlLimit, when positive, is the actuator bound used to verify
	// the controller output contract.
	ControlLimit float64

	// Logger receives divergence and saturation diagnostics. Nil means
	// slog.Default().
	Logger *slog.Logger
}

// NewRunner returns a Runner over the given model with RK4 integration.
func NewRunner(m dip.Model) *Runner {
	return &Runner{Model: m, Integrator: dip.NewRK4()}
}

func (r *Runner) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.Default()
}

// Run executes one episode. The controller is Reset before the first step.
// The dynamics -> controller -> integrate cycle is strictly sequential;
// the step count is bounded by cfg.Steps() so a divergent candidate cannot
// run unbounded.
func (r *Runner) Run(ctx context.Context, ctrl smc.Controller, cfg Config) (Outcome, error) {
	if err := cfg.Validate(); err != nil {
		return Outcome{}, err
	}
	if r.Model == nil || r.Integrator == nil {
		return Outcome{}, errors.New("simulate: runner needs a model and an integrator")
	}

	steps := cfg.Steps()
	out := Outcome{
		Times:    make([]float64, 0, steps+1),
		States:   make([]dip.State, 0, steps+1),
		Controls: make([]float64, 0, steps),
		Sigma:    make([]float64, 0, steps),
	}

	ctrl.Reset()
	x := cfg.Initial
	t := 0.0
	out.Times = append(out.Times, t)
	out.States = append(out.States, x)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return out, ctx.Err()
		default:
		}

		co, err := ctrl.Compute(x, t)
		if err != nil {
			return Outcome{}, fmt.Errorf("simulate: controller failed at t=%.4f: %w", t, err)
		}
		if err := r.checkOutput(co); err != nil {
			// A malformed output is a programming defect, not a
			// physical condition: fail loudly.
			return Outcome{}, fmt.Errorf("simulate: controller contract violation at t=%.4f: %w", t, err)
		}
		if co.Clamped || co.IntegratorSaturated {
			r.logger().Debug("controller degraded",
				"t", t, "clamped", co.Clamped, "integrator_saturated", co.IntegratorSaturated)
		}

		next, err := r.Integrator.Step(r.Model, x, co.Control, cfg.Dt)
		var divErr *dip.DivergenceError
		if errors.As(err, &divErr) {
			out.Diverged = true
			out.Reason = divErr.Reason
			r.logger().Debug("episode diverged", "t", t, "reason", divErr.Reason)
			break
		}
		if err != nil {
			return Outcome{}, fmt.Errorf("simulate: integration failed at t=%.4f: %w", t, err)
		}

		x = next
		t += cfg.Dt
		out.Controls = append(out.Controls, co.Control)
		out.Sigma = append(out.Sigma, co.Sigma)
		out.Times = append(out.Times, t)
		out.States = append(out.States, x)
	}

	out.Metrics = computeMetrics(&out, cfg.Dt)
	return out, nil
}

// checkOutput validates the controller output contract: a finite force
// within the actuator bound.
func (r *Runner) checkOutput(co smc.Output) error {
	if math.IsNaN(co.Control) || math.IsInf(co.Control, 0) {
		return errors.New("non-finite control")
	}
	if r.ControlLimit > 0 && math.Abs(co.Control) > r.ControlLimit*(1+1e-9) {
		return fmt.Errorf("control %g exceeds limit %g", co.Control, r.ControlLimit)
	}
	return nil
}

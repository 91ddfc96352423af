// Package config loads and validates the YAML configuration for
// simulation episodes and gain tuning runs.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/smclab/dipsim/dip"
	"github.com/smclab/dipsim/pso"
	"github.com/smclab/dipsim/simulate"
	"github.com/smclab/dipsim/smc"
)

// Sim describes the simulation episode.
type Sim struct {
	Dt           float64    `yaml:"dt"`
	Horizon      float64    `yaml:"horizon"`
	InitialState []float64  `yaml:"initial_state"`
	ActuatorMax  float64    `yaml:"actuator_limit"`
	Model        string     `yaml:"dynamics_model"` // simplified | full | lowrank
	Plant        dip.Params `yaml:"plant"`
}

// Controller selects the variant and, for plain simulation runs, its
// gain vector.
type Controller struct {
	Kind  string    `yaml:"kind"`
	Gains []float64 `yaml:"gains"`
}

// Tuner describes the PSO run.
type Tuner struct {
	Particles         int          `yaml:"n_particles"`
	Iterations        int          `yaml:"n_iterations"`
	Bounds            [][2]float64 `yaml:"gain_bounds"`
	Chi               float64      `yaml:"constriction"`
	Phi1              float64      `yaml:"phi1"`
	Phi2              float64      `yaml:"phi2"`
	ConvergenceTol    float64      `yaml:"convergence_tolerance"`
	ConvergenceWindow int          `yaml:"convergence_window"`
	Seed              int64        `yaml:"seed"`
	Workers           int          `yaml:"workers"`
}

// Cost weights the episode metrics.
type Cost struct {
	TrackingError float64 `yaml:"tracking_error"`
	ControlEffort float64 `yaml:"control_effort"`
	Chattering    float64 `yaml:"chattering"`
}

// File is the top-level configuration document.
type File struct {
	Sim        Sim        `yaml:"simulation"`
	Controller Controller `yaml:"controller"`
	Tuner      Tuner      `yaml:"pso"`
	Cost       Cost       `yaml:"cost"`
}

// Default returns a complete configuration for a classical-SMC tuning run
// on the simplified plant.
func Default() File {
	return File{
		Sim: Sim{
			Dt:           0.01,
			Horizon:      5,
			InitialState: []float64{0, 0.1, 0.05, 0, 0, 0},
			ActuatorMax:  150,
			Model:        "simplified",
			Plant:        dip.DefaultParams(),
		},
		Controller: Controller{
			Kind:  "classical",
			Gains: []float64{10, 8, 5, 3, 15, 2},
		},
		Tuner: Tuner{
			Particles:         20,
			Iterations:        50,
			Bounds:            defaultBounds(6),
			Chi:               0.7298,
			Phi1:              2.05,
			Phi2:              2.05,
			ConvergenceTol:    1e-6,
			ConvergenceWindow: 10,
			Seed:              42,
		},
		Cost: Cost{TrackingError: 1, ControlEffort: 1e-4, Chattering: 1e-3},
	}
}

func defaultBounds(n int) [][2]float64 {
	b := make([][2]float64, n)
	for i := range b {
		b[i] = [2]float64{1, 100}
	}
	return b
}

// Load reads a YAML file over the defaults and validates the result.
func Load(path string) (File, error) {
	f := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return File{}, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return File{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	f.Sim.Plant.ComputeDerived()
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

// Validate cross-checks the document: plant parameters, episode settings
// and the bounds-vs-gain-count agreement that the tuner relies on.
func (f File) Validate() error {
	if err := f.Sim.Plant.Validate(); err != nil {
		return err
	}
	if f.Sim.Dt <= 0 || f.Sim.Horizon <= 0 {
		return fmt.Errorf("config: dt and horizon must be positive")
	}
	if len(f.Sim.InitialState) != dip.StateDim {
		return fmt.Errorf("config: initial_state needs %d entries, got %d",
			dip.StateDim, len(f.Sim.InitialState))
	}
	if f.Sim.ActuatorMax <= 0 {
		return fmt.Errorf("config: actuator_limit must be positive")
	}
	if _, err := f.NewModel(); err != nil {
		return err
	}

	kind, err := smc.ParseKind(f.Controller.Kind)
	if err != nil {
		return err
	}
	want := smc.GainCount(kind)
	if len(f.Controller.Gains) != 0 && len(f.Controller.Gains) != want {
		return fmt.Errorf("config: %s controller needs %d gains, got %d",
			kind, want, len(f.Controller.Gains))
	}
	if len(f.Tuner.Bounds) != want {
		return fmt.Errorf("config: gain_bounds needs %d dimensions for %s controller, got %d",
			want, kind, len(f.Tuner.Bounds))
	}
	return nil
}

// NewModel constructs the configured dynamics model.
func (f File) NewModel() (dip.Model, error) {
	switch f.Sim.Model {
	case "full":
		return dip.NewFullModel(f.Sim.Plant), nil
	case "simplified", "":
		return dip.NewSimplifiedModel(f.Sim.Plant), nil
	case "lowrank", "low-rank":
		return dip.NewLowRankModel(f.Sim.Plant), nil
	}
	return nil, fmt.Errorf("config: unknown dynamics_model %q", f.Sim.Model)
}

// SimConfig converts to the runner's episode configuration.
func (f File) SimConfig() simulate.Config {
	var x0 dip.State
	copy(x0[:], f.Sim.InitialState)
	return simulate.Config{Dt: f.Sim.Dt, Horizon: f.Sim.Horizon, Initial: x0}
}

// Limits converts to the structural controller parameters. The model is
// attached by the caller.
func (f File) Limits() smc.Limits {
	lim := smc.DefaultLimits(nil)
	lim.UMax = f.Sim.ActuatorMax
	lim.Dt = f.Sim.Dt
	return lim
}

// Weights converts to the episode cost weights.
func (f File) Weights() simulate.Weights {
	return simulate.Weights{
		TrackingError: f.Cost.TrackingError,
		ControlEffort: f.Cost.ControlEffort,
		Chattering:    f.Cost.Chattering,
	}
}

// TunerConfig converts to the optimizer configuration.
func (f File) TunerConfig() pso.Config {
	return pso.Config{
		Particles:         f.Tuner.Particles,
		Iterations:        f.Tuner.Iterations,
		Bounds:            f.Tuner.Bounds,
		Chi:               f.Tuner.Chi,
		Phi1:              f.Tuner.Phi1,
		Phi2:              f.Tuner.Phi2,
		ConvergenceTol:    f.Tuner.ConvergenceTol,
		ConvergenceWindow: f.Tuner.ConvergenceWindow,
		Seed:              f.Tuner.Seed,
		Workers:           f.Tuner.Workers,
	}
}

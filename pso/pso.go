// Package pso implements a constriction-coefficient particle swarm
// optimizer for controller gain tuning. Fitness evaluations within an
// iteration run in parallel; the velocity and position updates are
// sequential and draw from a single seeded source, so a run is fully
// reproducible from its seed regardless of worker count.
package pso

import (
	"errors"
	"fmt"
	"math"
	"runtime"
)

// FailureCost is assigned to a fitness evaluation that panics or returns
// a non-finite value. It matches the simulation penalty sentinel so failed
// candidates are strictly dominated without aborting the run.
const FailureCost = 1e9

// Fitness maps a gain vector to a non-negative cost. Implementations must
// be safe for concurrent calls; the tuner never mutates the slice it
// passes in, and the callee must not retain it.
type Fitness func(gains []float64) float64

// Config describes one optimization run.
type Config struct {
	Particles  int
	Iterations int
	// Bounds is the per-dimension search box [min, max].
	Bounds [][2]float64

	// Constriction-form coefficients. The canonical values are
	// Chi ~ 0.729 with Phi1 + Phi2 ~ 4.1.
	Chi  float64
	Phi1 float64
	Phi2 float64

	// Convergence: stop early once the standard deviation of the best
	// cost over the trailing window drops below the tolerance. A zero
	// tolerance disables the check.
	ConvergenceTol    float64
	ConvergenceWindow int

	Seed    int64
	Workers int // parallel fitness evaluations; <= 0 means NumCPU
}

// DefaultConfig returns the canonical constriction parameters for the
// given search box.
func DefaultConfig(bounds [][2]float64) Config {
	return Config{
		Particles:         20,
		Iterations:        50,
		Bounds:            bounds,
		Chi:               0.7298,
		Phi1:              2.05,
		Phi2:              2.05,
		ConvergenceTol:    1e-6,
		ConvergenceWindow: 10,
		Workers:           runtime.NumCPU(),
	}
}

// Validate reports a catastrophic configuration error. These are the only
// conditions that abort before optimization starts.
func (c Config) Validate() error {
	if c.Particles <= 0 {
		return errors.New("pso: need at least one particle")
	}
	if c.Iterations <= 0 {
		return errors.New("pso: need at least one iteration")
	}
	if len(c.Bounds) == 0 {
		return errors.New("pso: empty gain bounds")
	}
	for i, b := range c.Bounds {
		if math.IsNaN(b[0]) || math.IsNaN(b[1]) || b[0] >= b[1] {
			return fmt.Errorf("pso: malformed bounds [%g, %g] for dimension %d", b[0], b[1], i)
		}
	}
	if c.Chi <= 0 || c.Chi >= 1 {
		return fmt.Errorf("pso: constriction coefficient must be in (0, 1), got %g", c.Chi)
	}
	if c.Phi1 < 0 || c.Phi2 < 0 {
		return errors.New("pso: attraction coefficients must be non-negative")
	}
	if c.ConvergenceTol > 0 && c.ConvergenceWindow < 2 {
		return errors.New("pso: convergence window must span at least two iterations")
	}
	return nil
}

// Result reports the outcome of an optimization run. All slices are
// owned by the caller.
type Result struct {
	BestGains   []float64
	BestCost    float64
	Converged   bool
	Iterations  int
	CostHistory []float64
}

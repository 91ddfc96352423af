package pso

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// Tuner runs the particle swarm optimization loop.
type Tuner struct {
	cfg     Config
	fitness Fitness
	logger  *slog.Logger
	rng     *rand.Rand
}

// NewTuner validates the configuration and prepares a run. The fitness
// function must be safe for concurrent calls.
func NewTuner(cfg Config, fitness Fitness) (*Tuner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fitness == nil {
		return nil, errors.New("pso: nil fitness function")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &Tuner{
		cfg:     cfg,
		fitness: fitness,
		logger:  slog.Default(),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// SetLogger replaces the diagnostics logger.
func (t *Tuner) SetLogger(l *slog.Logger) {
	if l != nil {
		t.logger = l
	}
}

// Optimize runs the swarm until the iteration budget or the convergence
// criterion is met. The returned history holds the global best cost after
// initialization and after each iteration; it is non-increasing by
// construction.
func (t *Tuner) Optimize(ctx context.Context) (Result, error) {
	cfg := t.cfg
	swarm := newSwarm(cfg, t.rng)

	if err := t.evaluate(ctx, swarm); err != nil {
		return Result{}, err
	}
	for _, p := range swarm {
		p.recordBest()
	}

	gbest := make([]float64, len(cfg.Bounds))
	gbestCost := math.Inf(1)
	for _, p := range swarm {
		if p.bestCost < gbestCost {
			gbestCost = p.bestCost
			copy(gbest, p.bestPos)
		}
	}

	history := make([]float64, 0, cfg.Iterations+1)
	history = append(history, gbestCost)

	converged := false
	iter := 0
	for ; iter < cfg.Iterations; iter++ {
		// Sequential update phase: all random draws happen here.
		for _, p := range swarm {
			p.advance(cfg, gbest, t.rng)
		}

		// Parallel evaluation with an iteration barrier: bests are
		// only updated once the whole population is scored.
		if err := t.evaluate(ctx, swarm); err != nil {
			return Result{}, err
		}

		for _, p := range swarm {
			// Strict improvement only; ties keep the incumbent.
			if p.cost < p.bestCost {
				p.recordBest()
			}
			if p.bestCost < gbestCost {
				gbestCost = p.bestCost
				copy(gbest, p.bestPos)
			}
		}
		history = append(history, gbestCost)

		if t.convergedAt(history) {
			converged = true
			iter++
			break
		}
	}

	t.logger.Info("optimization finished",
		"iterations", iter, "best_cost", gbestCost, "converged", converged)

	out := Result{
		BestGains:   append([]float64(nil), gbest...),
		BestCost:    gbestCost,
		Converged:   converged,
		Iterations:  iter,
		CostHistory: append([]float64(nil), history...),
	}
	return out, nil
}

// evaluate scores the whole swarm. Each evaluation is independent; a
// panic or non-finite score becomes FailureCost and is logged rather than
// aborting the run.
func (t *Tuner) evaluate(ctx context.Context, swarm []*particle) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.cfg.Workers)
	for _, p := range swarm {
		p := p
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p.cost = t.score(p.pos)
			return nil
		})
	}
	return g.Wait()
}

// score evaluates one candidate with panic containment.
func (t *Tuner) score(pos []float64) (cost float64) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Warn("fitness evaluation panicked", "recover", r)
			cost = FailureCost
		}
	}()
	cost = t.fitness(pos)
	if math.IsNaN(cost) || math.IsInf(cost, 0) {
		cost = FailureCost
	}
	return cost
}

// convergedAt checks the windowed standard deviation of the best-cost
// history against the tolerance.
func (t *Tuner) convergedAt(history []float64) bool {
	w := t.cfg.ConvergenceWindow
	if t.cfg.ConvergenceTol <= 0 || len(history) < w {
		return false
	}
	window := history[len(history)-w:]
	return stat.StdDev(window, nil) < t.cfg.ConvergenceTol
}

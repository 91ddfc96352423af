package pso

import (
	"context"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, &slog.HandlerOptions{Level: slog.LevelError}))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func sphere(gains []float64) float64 {
	var s float64
	for _, g := range gains {
		s += g * g
	}
	return s
}

func TestConfigValidate(t *testing.T) {
	bounds := [][2]float64{{-1, 1}, {-1, 1}}
	require.NoError(t, DefaultConfig(bounds).Validate())

	cfg := DefaultConfig(bounds)
	cfg.Particles = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig(bounds)
	cfg.Iterations = 0
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig([][2]float64{{5, 1}})
	require.Error(t, cfg.Validate(), "inverted bounds")

	cfg = DefaultConfig(nil)
	require.Error(t, cfg.Validate())

	cfg = DefaultConfig(bounds)
	cfg.Chi = 1.2
	require.Error(t, cfg.Validate())
}

func TestNewTunerRejectsNilFitness(t *testing.T) {
	_, err := NewTuner(DefaultConfig([][2]float64{{0, 1}}), nil)
	require.Error(t, err)
}

func TestOptimizeSphere(t *testing.T) {
	bounds := [][2]float64{{-5, 5}, {-5, 5}, {-5, 5}}
	cfg := DefaultConfig(bounds)
	cfg.Iterations = 100
	cfg.Seed = 1
	cfg.ConvergenceTol = 0 // run the full budget

	tuner, err := NewTuner(cfg, sphere)
	require.NoError(t, err)
	tuner.SetLogger(quietLogger())

	res, err := tuner.Optimize(context.Background())
	require.NoError(t, err)

	assert.Less(t, res.BestCost, 1e-3, "swarm should approach the sphere minimum")
	for d, g := range res.BestGains {
		assert.Less(t, math.Abs(g), 0.1, "dimension %d", d)
	}
	assert.Equal(t, cfg.Iterations, res.Iterations)
}

func TestCostHistoryIsNonIncreasing(t *testing.T) {
	cfg := DefaultConfig([][2]float64{{-5, 5}, {-5, 5}})
	cfg.Seed = 3
	tuner, err := NewTuner(cfg, sphere)
	require.NoError(t, err)
	tuner.SetLogger(quietLogger())

	res, err := tuner.Optimize(context.Background())
	require.NoError(t, err)

	require.NotEmpty(t, res.CostHistory)
	for i := 1; i < len(res.CostHistory); i++ {
		require.LessOrEqual(t, res.CostHistory[i], res.CostHistory[i-1],
			"global best can never regress (iteration %d)", i)
	}
	assert.Equal(t, res.CostHistory[len(res.CostHistory)-1], res.BestCost)
}

// Two runs with the same seed are bit-identical, independent of the
// worker count: evaluations are pure and all draws are sequential.
func TestSeedReproducibility(t *testing.T) {
	run := func(workers int) Result {
		cfg := DefaultConfig([][2]float64{{-5, 5}, {-5, 5}, {-5, 5}, {-5, 5}})
		cfg.Seed = 42
		cfg.Iterations = 30
		cfg.Workers = workers
		tuner, err := NewTuner(cfg, sphere)
		require.NoError(t, err)
		tuner.SetLogger(quietLogger())
		res, err := tuner.Optimize(context.Background())
		require.NoError(t, err)
		return res
	}

	a := run(1)
	b := run(4)
	assert.Equal(t, a.BestGains, b.BestGains)
	assert.Equal(t, a.BestCost, b.BestCost)
	assert.Equal(t, a.CostHistory, b.CostHistory)
}

func TestConvergenceStopsEarly(t *testing.T) {
	cfg := DefaultConfig([][2]float64{{-1, 1}})
	cfg.Seed = 7
	cfg.Iterations = 500
	cfg.ConvergenceTol = 1e-9
	cfg.ConvergenceWindow = 5

	tuner, err := NewTuner(cfg, sphere)
	require.NoError(t, err)
	tuner.SetLogger(quietLogger())

	res, err := tuner.Optimize(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Less(t, res.Iterations, cfg.Iterations)
}

// A panicking or NaN fitness is contained as FailureCost; the run
// completes and never reports a non-finite best.
func TestFailuresAreContained(t *testing.T) {
	calls := 0
	flaky := func(gains []float64) float64 {
		calls++
		switch calls % 3 {
		case 0:
			panic("fitness blew up")
		case 1:
			return math.NaN()
		default:
			return sphere(gains)
		}
	}

	cfg := DefaultConfig([][2]float64{{-1, 1}})
	cfg.Seed = 11
	cfg.Iterations = 10
	cfg.Particles = 5
	cfg.Workers = 1
	cfg.ConvergenceTol = 0

	tuner, err := NewTuner(cfg, flaky)
	require.NoError(t, err)
	tuner.SetLogger(quietLogger())

	res, err := tuner.Optimize(context.Background())
	require.NoError(t, err)
	assert.LessOrEqual(t, res.BestCost, FailureCost)
	assert.False(t, math.IsNaN(res.BestCost))
}

func TestOptimizeHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tuner, err := NewTuner(DefaultConfig([][2]float64{{-1, 1}}), sphere)
	require.NoError(t, err)
	tuner.SetLogger(quietLogger())

	_, err = tuner.Optimize(ctx)
	require.ErrorIs(t, err, context.Canceled)
}

// Result slices are copies: mutating them must not affect tuner state on
// a subsequent run with a fresh tuner.
func TestResultSlicesAreOwned(t *testing.T) {
	cfg := DefaultConfig([][2]float64{{-5, 5}})
	cfg.Seed = 5
	cfg.Iterations = 5
	cfg.ConvergenceTol = 0

	tuner, err := NewTuner(cfg, sphere)
	require.NoError(t, err)
	tuner.SetLogger(quietLogger())
	res, err := tuner.Optimize(context.Background())
	require.NoError(t, err)

	want := append([]float64(nil), res.BestGains...)
	res.BestGains[0] = 1e9

	tuner2, err := NewTuner(cfg, sphere)
	require.NoError(t, err)
	tuner2.SetLogger(quietLogger())
	res2, err := tuner2.Optimize(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, res2.BestGains)
}

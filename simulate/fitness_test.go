package simulate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smclab/dipsim/dip"
	"github.com/smclab/dipsim/smc"
)

func testFitnessConfig() FitnessConfig {
	return FitnessConfig{
		Kind:    smc.Classical,
		Limits:  smc.DefaultLimits(nil),
		Sim:     Config{Dt: 0.01, Horizon: 2, Initial: dip.State{0, 0.1, 0.05, 0, 0, 0}},
		Weights: DefaultWeights(),
		NewModel: func() dip.Model {
			return dip.NewSimplifiedModel(dip.DefaultParams())
		},
	}
}

func TestFitnessScoresStabilizingGains(t *testing.T) {
	fit := Fitness(testFitnessConfig())
	cost := fit([]float64{10, 8, 5, 3, 15, 2})
	require.Less(t, cost, PenaltyCost)
	require.Greater(t, cost, 0.0)
}

func TestFitnessPenalizesInvalidGains(t *testing.T) {
	fit := Fitness(testFitnessConfig())
	assert.Equal(t, PenaltyCost, fit([]float64{1, 2, 3}), "wrong count")
	assert.Equal(t, PenaltyCost, fit([]float64{-1, 8, 5, 3, 15, 2}), "negative gain")
}

// Better-tuned gains must score strictly better than a deliberately weak
// candidate; otherwise the tuner has nothing to optimize.
func TestFitnessDiscriminates(t *testing.T) {
	fit := Fitness(testFitnessConfig())
	good := fit([]float64{10, 8, 5, 3, 15, 2})
	weak := fit([]float64{0.1, 0.1, 0.1, 0.1, 0.1, 0.1})
	require.Less(t, good, weak)

	// An aggressive candidate excites the sampled loop and scores far
	// worse than either.
	harsh := fit([]float64{100, 100, 100, 100, 100, 100})
	require.Greater(t, harsh, 100*good)
}

// The fitness closure builds a fresh model per call, so concurrent
// evaluations never share plant caches.
func TestFitnessIsConcurrencySafe(t *testing.T) {
	calls := 0
	fc := testFitnessConfig()
	base := fc.NewModel
	fc.NewModel = func() dip.Model {
		calls++
		return base()
	}
	fit := Fitness(fc)

	gains := []float64{10, 8, 5, 3, 15, 2}
	a := fit(gains)
	b := fit(gains)
	assert.Equal(t, a, b, "same gains, same cost")
	// One model for the feedback synthesis warm-up, one per evaluation.
	assert.Equal(t, 3, calls)
}

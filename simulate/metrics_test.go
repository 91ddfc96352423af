package simulate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/smclab/dipsim/dip"
)

func TestSettlingTime(t *testing.T) {
	times := []float64{0, 0.1, 0.2, 0.3, 0.4}
	sigma := []float64{1, 0.5, 0.01, 0.02, 0.03}
	assert.Equal(t, 0.2, settlingTime(times, sigma))

	// A late excursion postpones settling past it.
	sigma = []float64{1, 0.01, 0.5, 0.01, 0.02}
	assert.Equal(t, 0.3, settlingTime(times, sigma))

	// Never settles: the final time.
	sigma = []float64{1, 1, 1, 1, 1}
	assert.Equal(t, 0.4, settlingTime(times, sigma))

	assert.Equal(t, 0.0, settlingTime(nil, nil))
}

func TestComputeMetricsConstantControl(t *testing.T) {
	dt := 0.1
	o := &Outcome{
		Times:    []float64{0, 0.1, 0.2},
		States:   []dip.State{{0, 0.1, 0, 0, 0, 0}, {0, 0.2, 0, 0, 0, 0}, {0, 0, 0, 0, 0, 0}},
		Controls: []float64{2, 2},
		Sigma:    []float64{0.01, 0.01},
	}
	m := computeMetrics(o, dt)

	// ISE sums over all but the final state.
	assert.InDelta(t, (0.01+0.04)*dt, m.ISE, 1e-12)
	assert.InDelta(t, 2*4*dt, m.ControlEnergy, 1e-12)
	assert.Equal(t, 2.0, m.PeakControl)
	assert.Equal(t, 0.0, m.Chattering, "constant control has no chattering")
	assert.Equal(t, 0.0, m.SettlingTime, "settled from the start")
}

func TestChatteringMeasuresSwitching(t *testing.T) {
	dt := 0.01
	smooth := &Outcome{
		Times:    []float64{0, 0.01, 0.02, 0.03},
		States:   make([]dip.State, 4),
		Controls: []float64{1, 1.01, 1.02},
		Sigma:    []float64{0, 0, 0},
	}
	bangbang := &Outcome{
		Times:    []float64{0, 0.01, 0.02, 0.03},
		States:   make([]dip.State, 4),
		Controls: []float64{1, -1, 1},
		Sigma:    []float64{0, 0, 0},
	}
	ms := computeMetrics(smooth, dt)
	mb := computeMetrics(bangbang, dt)
	assert.Greater(t, mb.Chattering, 100*ms.Chattering)
}

func TestCostPenalties(t *testing.T) {
	w := DefaultWeights()

	diverged := &Outcome{Diverged: true}
	assert.Equal(t, PenaltyCost, diverged.Cost(w))

	nonFinite := &Outcome{Metrics: Metrics{ISE: math.Inf(1)}}
	assert.Equal(t, PenaltyCost, nonFinite.Cost(w))

	ok := &Outcome{Metrics: Metrics{ISE: 2, ControlEnergy: 100, Chattering: 10}}
	assert.InDelta(t, 2+100*1e-4+10*1e-3, ok.Cost(w), 1e-12)
}

package simulate

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/smclab/dipsim/dip"
)

// PenaltyCost is the sentinel fitness assigned to diverged or failed
// evaluations. It strictly dominates any achievable finite cost, so such
// candidates never become a swarm best, while staying finite for windowed
// convergence statistics.
const PenaltyCost = 1e9

// settleTolerance is the |s| threshold used for the settling-time metric.
const settleTolerance = 0.05

// Metrics are the derived costs of one episode.
type Metrics struct {
	ISE           float64 // integral of squared pendulum angles
	ControlEnergy float64 // integral of u^2
	Chattering    float64 // mean |du|/dt, high-frequency content of u
	SettlingTime  float64 // first time |s| stays below tolerance; horizon if never
	PeakControl   float64
}

// Weights folds Metrics into a scalar fitness.
type Weights struct {
	TrackingError float64
	ControlEffort float64
	Chattering    float64
}

// DefaultWeights weight tracking dominant, effort and chattering as
// regularizers.
func DefaultWeights() Weights {
	return Weights{TrackingError: 1, ControlEffort: 1e-4, Chattering: 1e-3}
}

// Cost returns the scalar fitness of the episode, or PenaltyCost if it
// diverged.
func (o *Outcome) Cost(w Weights) float64 {
	if o.Diverged {
		return PenaltyCost
	}
	c := w.TrackingError*o.Metrics.ISE +
		w.ControlEffort*o.Metrics.ControlEnergy +
		w.Chattering*o.Metrics.Chattering
	if math.IsNaN(c) || math.IsInf(c, 0) {
		return PenaltyCost
	}
	return c
}

func computeMetrics(o *Outcome, dt float64) Metrics {
	var m Metrics
	for i, s := range o.States {
		if i == len(o.States)-1 {
			break
		}
		th1, th2 := s[dip.IdxTheta1], s[dip.IdxTheta2]
		m.ISE += (th1*th1 + th2*th2) * dt
	}
	for _, u := range o.Controls {
		m.ControlEnergy += u * u * dt
		if a := math.Abs(u); a > m.PeakControl {
			m.PeakControl = a
		}
	}

	if n := len(o.Controls); n > 1 {
		diffs := make([]float64, 0, n-1)
		for i := 1; i < n; i++ {
			diffs = append(diffs, math.Abs(o.Controls[i]-o.Controls[i-1])/dt)
		}
		m.Chattering = stat.Mean(diffs, nil)
	}

	m.SettlingTime = settlingTime(o.Times, o.Sigma)
	return m
}

// settlingTime returns the time from which |s| stays below the tolerance
// for the rest of the episode, or the final time if it never settles.
func settlingTime(times []float64, sigma []float64) float64 {
	if len(sigma) == 0 || len(times) == 0 {
		return 0
	}
	last := len(sigma)
	for last > 0 && math.Abs(sigma[last-1]) < settleTolerance {
		last--
	}
	if last == len(sigma) {
		// Never settled.
		return times[len(times)-1]
	}
	return times[last]
}

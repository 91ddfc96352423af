package dip

// butcherTableau describes an explicit Runge-Kutta method, see
// https://en.wikipedia.org/wiki/Runge–Kutta_methods.
type butcherTableau struct {
	stages  int
	nodes   []float64
	weights []float64
	matrix  [][]float64
}

// RungeKutta integrates the plant one fixed step at a time. The control
// force is held constant across the step (zero-order hold), matching a
// sampled controller. Step never mutates its input state.
type RungeKutta struct {
	tableau butcherTableau
}

// Step advances the state from t to t+dt under constant control u and
// returns the new state. A model failure or a non-finite result is
// reported as a DivergenceError.
func (rk *RungeKutta) Step(m Model, s State, u, dt float64) (State, error) {
	k := make([]State, rk.tableau.stages)
	for i := 0; i < rk.tableau.stages; i++ {
		probe := s
		for j, a := range rk.tableau.matrix[i] {
			if a == 0 {
				continue
			}
			for c := 0; c < StateDim; c++ {
				probe[c] += dt * a * k[j][c]
			}
		}
		var err error
		k[i], err = Derivative(m, probe, u)
		if err != nil {
			return State{}, err
		}
	}

	next := s
	for i, w := range rk.tableau.weights {
		for c := 0; c < StateDim; c++ {
			next[c] += dt * w * k[i][c]
		}
	}
	if !next.IsFinite() {
		return State{}, &DivergenceError{Reason: "non-finite state after step"}
	}
	return next, nil
}

// Stages returns the number of derivative evaluations per step.
func (rk *RungeKutta) Stages() int { return rk.tableau.stages }

// NewRK4 returns the classical fourth-order Runge-Kutta method.
func NewRK4() *RungeKutta {
	return &RungeKutta{tableau: butcherTableau{
		stages:  4,
		nodes:   []float64{0, 1. / 2., 1. / 2., 1},
		weights: []float64{1. / 6., 1. / 3., 1. / 3., 1. / 6.},
		matrix: [][]float64{
			nil,
			{1. / 2.},
			{0, 1. / 2.},
			{0, 0, 1},
		},
	}}
}

// NewEulerMethod returns the forward Euler method. Mostly useful as a
// cheap baseline in tests.
func NewEulerMethod() *RungeKutta {
	return &RungeKutta{tableau: butcherTableau{
		stages:  1,
		nodes:   []float64{0},
		weights: []float64{1},
		matrix:  [][]float64{nil},
	}}
}

package dip

import "fmt"

// Model computes the generalized accelerations of the plant for a given
// state and cart force. Implementations must not mutate the state and must
// be cheap to construct, since the gain tuner builds a fresh model per
// fitness evaluation.
type Model interface {
	// Accelerations returns [xddot, theta1ddot, theta2ddot].
	Accelerations(s State, u float64) ([3]float64, error)
}

// DivergenceError reports that the dynamics could not be evaluated or
// produced a non-finite result. The simulation runner converts it into an
// early termination with a penalty cost instead of propagating it, so that
// gain tuning continues past destabilizing candidates.
type DivergenceError struct {
	Reason string
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("dip: dynamics diverged: %s", e.Reason)
}

// Derivative assembles the full state derivative from a model's
// accelerations. The input state must be finite.
func Derivative(m Model, s State, u float64) (State, error) {
	if !s.IsFinite() {
		return State{}, &DivergenceError{Reason: "non-finite state"}
	}
	acc, err := m.Accelerations(s, u)
	if err != nil {
		return State{}, err
	}
	return State{
		s[IdxCartVel],
		s[IdxOmega1],
		s[IdxOmega2],
		acc[0],
		acc[1],
		acc[2],
	}, nil
}

// Package dip models a double inverted pendulum on a cart. The plant is
// described in manipulator form
//
//	M(q) q'' + C(q, q') q' + G(q) = B u
//
// with generalized coordinates q = [x, theta1, theta2], where x is the cart
// position and theta1, theta2 are the link angles measured from the upright
// vertical. The package provides the nonlinear dynamics in several fidelity
// variants together with fixed-step Runge-Kutta integration.
package dip

import "math"

// Indices into a State vector.
const (
	IdxCart = iota
	IdxTheta1
	IdxTheta2
	IdxCartVel
	IdxOmega1
	IdxOmega2
)

// StateDim is the dimension of the plant state.
const StateDim = 6

// State is the plant state [x, theta1, theta2, xdot, theta1dot, theta2dot].
// It is a value type; assignment copies, so integrators and the simulation
// runner never alias a caller's state.
type State [StateDim]float64

// IsFinite reports whether every component is a finite number.
func (s State) IsFinite() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Norm returns the Euclidean norm of the full state.
func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

// VelocityNorm returns the Euclidean norm of the velocity sub-vector.
func (s State) VelocityNorm() float64 {
	return math.Sqrt(s[IdxCartVel]*s[IdxCartVel] +
		s[IdxOmega1]*s[IdxOmega1] +
		s[IdxOmega2]*s[IdxOmega2])
}

// Positions returns the generalized coordinates [x, theta1, theta2].
func (s State) Positions() [3]float64 {
	return [3]float64{s[IdxCart], s[IdxTheta1], s[IdxTheta2]}
}

// Velocities returns the generalized velocities [xdot, theta1dot, theta2dot].
func (s State) Velocities() [3]float64 {
	return [3]float64{s[IdxCartVel], s[IdxOmega1], s[IdxOmega2]}
}

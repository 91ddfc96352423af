package smc

import (
	"math"

	"github.com/smclab/dipsim/dip"
)

// clamp bounds x into [lo, hi].
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// sat is the boundary-layer saturation: linear inside |z| < 1, sign(z)
// outside. Continuous across the layer edge.
func sat(z float64) float64 { return clamp(z, -1, 1) }

// sgn returns the sign of z with sgn(0) = 0.
func sgn(z float64) float64 {
	switch {
	case z > 0:
		return 1
	case z < 0:
		return -1
	default:
		return 0
	}
}

// isFinite reports whether v is neither NaN nor infinite.
func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// surface is the shared sliding-surface definition. kc may be zero for
// variants that handle the cart through a separate recentering term.
type surface struct {
	c1, c2 float64
	l1, l2 float64
	kc, lc float64
}

// value computes s for the given plant state.
func (sf surface) value(s dip.State) float64 {
	return sf.c1*(s[dip.IdxOmega1]+sf.l1*s[dip.IdxTheta1]) +
		sf.c2*(s[dip.IdxOmega2]+sf.l2*s[dip.IdxTheta2]) +
		sf.kc*(s[dip.IdxCartVel]+sf.lc*s[dip.IdxCart])
}

// rate computes s' from a state derivative vector: the velocity slots of d
// hold accelerations and the position slots hold velocities.
func (sf surface) rate(d dip.State) float64 {
	return sf.c1*(d[dip.IdxOmega1]+sf.l1*d[dip.IdxTheta1]) +
		sf.c2*(d[dip.IdxOmega2]+sf.l2*d[dip.IdxTheta2]) +
		sf.kc*(d[dip.IdxCartVel]+sf.lc*d[dip.IdxCart])
}

// affineProbe fits s'(u) ~= a*u + b by probing the model at u = 0 and
// u = 1. The surface rate is affine in the force for manipulator dynamics,
// so two evaluations recover it exactly.
func (sf surface) affineProbe(m dip.Model, s dip.State) (a, b float64, err error) {
	d0, err := dip.Derivative(m, s, 0)
	if err != nil {
		return 0, 0, err
	}
	d1, err := dip.Derivative(m, s, 1)
	if err != nil {
		return 0, 0, err
	}
	b = sf.rate(d0)
	a = sf.rate(d1) - b
	return a, b, nil
}

// controlDirection returns the sign of ds/du, used by the super-twisting
// variants to orient the switching action. Falls back to +1 when no model
// is available or the probe degenerates.
func (sf surface) controlDirection(m dip.Model, s dip.State) float64 {
	if m == nil {
		return 1
	}
	a, _, err := sf.affineProbe(m, s)
	if err != nil || !isFinite(a) || math.Abs(a) < 1e-10 {
		return 1
	}
	return sgn(a)
}

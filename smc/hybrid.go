package smc

import (
	"math"

	"github.com/smclab/dipsim/dip"
)

// hybridSMC combines the adaptive gain law with the super-twisting
// structure: both algorithmic gains k1, k2 adapt to the distance to the
// boundary layer while the control itself is the continuous second-order
// law. A proportional-derivative recentering term on the cart is
// superimposed once |x| exceeds a threshold, since the sliding surface
// concerns the pendulums and leaves the cart position free.
//
// When any internal quantity leaves its safety envelope the controller
// performs an emergency reset: internal state returns to small safe
// defaults and the step outputs zero force. Compute builds its Output once
// at the end of the function, after every branch, so there is no path that
// can exit without a populated result.
type hybridSMC struct {
	sf  surface
	lim Limits
	nom feedbackRow

	k1, k2 float64
	uInt   float64
}

// The hybrid surface omits the cart term: the recentering PD and the
// nominal feedback already cover the cart, and keeping sigma a pure
// pendulum quantity keeps the adaptation dead zone meaningful.
func newHybrid(g []float64, lim Limits, nom feedbackRow) *hybridSMC {
	return &hybridSMC{
		sf: surface{
			c1: g[0], c2: g[1],
			l1: g[2], l2: g[3],
		},
		lim: lim,
		nom: nom,
		k1:  lim.GainFloor,
		k2:  lim.GainFloor,
	}
}

// resetInternals restores the safe defaults shared by Reset and the
// emergency path.
func (c *hybridSMC) resetInternals() {
	c.k1 = c.lim.GainFloor
	c.k2 = c.lim.GainFloor
	c.uInt = 0
}

func (c *hybridSMC) Compute(s dip.State, t float64) (Output, error) {
	lim := c.lim
	sval := c.sf.value(s)
	phi := lim.BoundaryLayer

	// Adaptive gain law on the distance to the boundary layer.
	sa := sval - phi*sat(sval/phi)
	if sa != 0 {
		c.k1 += lim.Dt * lim.AdaptRate1 * math.Abs(sa)
		c.k2 += lim.Dt * lim.AdaptRate2 * math.Abs(sa)
	} else {
		c.k1 -= lim.Dt * lim.LeakRate * (c.k1 - lim.GainFloor)
		c.k2 -= lim.Dt * lim.LeakRate * (c.k2 - lim.GainFloor)
	}
	c.k1 = clamp(c.k1, lim.GainFloor, lim.GainCeil)
	c.k2 = clamp(c.k2, lim.GainFloor, lim.GainCeil)

	// Super-twisting structure with the live gains.
	w := -c.k1*math.Sqrt(math.Abs(sval))*sgn(sval) + c.uInt
	c.uInt += lim.Dt * (-c.k2 * sgn(sval))
	c.uInt = clamp(c.uInt, -lim.IntegratorMax, lim.IntegratorMax)

	var u float64
	if c.nom.ok && lim.Model != nil {
		a, _, err := c.sf.affineProbe(lim.Model, s)
		switch {
		case err == nil && math.Abs(a) >= 1e-8:
			u = c.nom.force(s) + w/a
		case err == nil:
			u = c.nom.force(s) + math.Copysign(1, a)*w
		default:
			u = w
		}
	} else {
		u = c.sf.controlDirection(lim.Model, s) * w
	}

	// Cart recentering, active only away from the origin.
	cart, cartVel := s[dip.IdxCart], s[dip.IdxCartVel]
	if math.Abs(cart) > lim.CartThreshold {
		u += -lim.RecenterKp*cart - lim.RecenterKd*cartVel
	}

	saturated := false
	if isFinite(u) && math.Abs(u) > lim.UMax {
		u = math.Copysign(lim.UMax, u)
		saturated = true
	}

	// Emergency reset: anything non-finite or outside the safety
	// envelope zeroes this step and restores safe internals. The episode
	// keeps running so a fitness evaluation always completes.
	clamped := false
	if !isFinite(u) || !isFinite(sval) ||
		math.Abs(sval) > lim.SigmaLimit ||
		s.Norm() > lim.StateNormLimit ||
		s.VelocityNorm() > lim.VelocityNormLimit {
		c.resetInternals()
		u = 0
		saturated = false
		clamped = true
	}

	out := Output{
		Control:             u,
		Sigma:               sval,
		Saturated:           saturated,
		Clamped:             clamped,
		IntegratorSaturated: math.Abs(c.uInt) >= lim.IntegratorMax,
		Gains:               []float64{c.k1, c.k2, c.uInt},
	}
	return out, nil
}

// Reset restores the adaptive gains and integrator to their defaults. It
// is deliberately separate from Compute and never produces control.
func (c *hybridSMC) Reset() { c.resetInternals() }

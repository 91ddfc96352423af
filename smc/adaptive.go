package smc

import (
	"math"

	"github.com/smclab/dipsim/dip"
)

// adaptiveSMC replaces the fixed switching gain of the classical law with
// an online estimate
//
//	K' = gamma |s_a|          outside the boundary layer
//	K' = -leak (K - floor)    inside
//
// where s_a = s - Phi sat(s/Phi) is the distance to the boundary layer.
// The dead zone stops the gain from growing once sliding is achieved, so
// no a priori disturbance bound is needed. K is clamped to
// [GainFloor, GainCeil] at every step.
type adaptiveSMC struct {
	sf    surface
	gamma float64
	lim   Limits
	nom   feedbackRow

	gainK float64
}

func newAdaptive(g []float64, lim Limits, nom feedbackRow) *adaptiveSMC {
	return &adaptiveSMC{
		sf: surface{
			c1: g[0], c2: g[1],
			l1: g[2], l2: g[3],
			kc: lim.CartWeight, lc: lim.LambdaCart,
		},
		gamma: g[4],
		lim:   lim,
		nom:   nom,
		gainK: lim.GainFloor,
	}
}

func (c *adaptiveSMC) Compute(s dip.State, t float64) (Output, error) {
	sval := c.sf.value(s)
	phi := c.lim.BoundaryLayer

	sa := sval - phi*sat(sval/phi)
	if sa != 0 {
		c.gainK += c.lim.Dt * c.gamma * math.Abs(sa)
	} else {
		c.gainK -= c.lim.Dt * c.lim.LeakRate * (c.gainK - c.lim.GainFloor)
	}
	c.gainK = clamp(c.gainK, c.lim.GainFloor, c.lim.GainCeil)

	sw := c.gainK * sat(sval/phi)

	u := -sw
	if c.nom.ok && c.lim.Model != nil {
		if a, _, err := c.sf.affineProbe(c.lim.Model, s); err == nil {
			if math.Abs(a) >= 1e-8 {
				u = c.nom.force(s) - sw/a
			} else {
				u = c.nom.force(s) - math.Copysign(1, a)*sw
			}
		}
	}

	out := Output{
		Sigma: sval,
		Gains: []float64{c.gainK},
	}
	if !isFinite(u) {
		u = 0
		out.Clamped = true
	}
	if math.Abs(u) > c.lim.UMax {
		u = math.Copysign(c.lim.UMax, u)
		out.Saturated = true
	}
	out.Control = u
	return out, nil
}

// Reset returns the gain estimate to its floor.
func (c *adaptiveSMC) Reset() { c.gainK = c.lim.GainFloor }

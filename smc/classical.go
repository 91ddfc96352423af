package smc

import (
	"math"

	"github.com/smclab/dipsim/dip"
)

// classicalSMC is the boundary-layer sliding mode controller. The force is
// the nominal stabilizing feedback plus a switching term normalized by the
// input-to-surface slope a = ds'/du recovered from the affine probe:
//
//	u = u_nom - (K sat(s/Phi) + kd s) / a
//
// so the switching contributes exactly -K sat(s/Phi) - kd s to s'
// regardless of the sign or magnitude of a. Without a model the law
// degrades to direct switching. It keeps no internal state between steps.
type classicalSMC struct {
	sf    surface
	gainK float64
	gainD float64
	lim   Limits
	nom   feedbackRow
}

func newClassical(g []float64, lim Limits, nom feedbackRow) *classicalSMC {
	return &classicalSMC{
		sf: surface{
			c1: g[0], c2: g[1],
			l1: g[2], l2: g[3],
			kc: lim.CartWeight, lc: lim.LambdaCart,
		},
		gainK: g[4],
		gainD: g[5],
		lim:   lim,
		nom:   nom,
	}
}

func (c *classicalSMC) Compute(s dip.State, t float64) (Output, error) {
	sval := c.sf.value(s)
	sw := c.gainK*sat(sval/c.lim.BoundaryLayer) + c.gainD*sval

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

	out := Output{Sigma: sval}
	if !isFinite(u) {
		// Diagnostic condition, not an error: clamp and flag.
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

// Reset is a no-op; the classical controller carries no episode state.
func (c *classicalSMC) Reset() {}

package smc

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/smclab/dipsim/dip"
)

const (
	// probeStep is the finite-difference step of the linearization.
	probeStep = 1e-6

	riccatiTol      = 1e-9
	riccatiMaxIters = 200000
)

// feedbackRow is a synthesized nominal feedback vector with a validity
// flag, zero-valued when no model is available.
type feedbackRow struct {
	f  [6]float64
	ok bool
}

// force evaluates -f·x, the nominal stabilizing force for the state.
func (n feedbackRow) force(s dip.State) float64 {
	if !n.ok {
		return 0
	}
	var u float64
	for i, fi := range n.f {
		u -= fi * s[i]
	}
	return u
}

// linearize recovers x' = A x + B u about the upright equilibrium by
// central differences on the model accelerations. The dynamics are smooth
// there, so the truncation error is O(probeStep^2); for the frozen-matrix
// simplified model the result is exact.
func linearize(m dip.Model) (*mat.Dense, *mat.VecDense, error) {
	const h = probeStep
	a := mat.NewDense(6, 6, nil)
	for j := 0; j < 6; j++ {
		var plus, minus dip.State
		plus[j], minus[j] = h, -h
		dp, err := dip.Derivative(m, plus, 0)
		if err != nil {
			return nil, nil, err
		}
		dm, err := dip.Derivative(m, minus, 0)
		if err != nil {
			return nil, nil, err
		}
		for i := 0; i < 6; i++ {
			a.Set(i, j, (dp[i]-dm[i])/(2*h))
		}
	}

	dp, err := dip.Derivative(m, dip.State{}, h)
	if err != nil {
		return nil, nil, err
	}
	dm, err := dip.Derivative(m, dip.State{}, -h)
	if err != nil {
		return nil, nil, err
	}
	b := mat.NewVecDense(6, nil)
	for i := 0; i < 6; i++ {
		b.SetVec(i, (dp[i]-dm[i])/(2*h))
	}
	return a, b, nil
}

// NominalFeedback synthesizes the stabilizing state-feedback row that the
// control laws use as their model-based nominal term. The plant is
// linearized about the upright equilibrium, discretized under zero-order
// hold at lim.Dt, and the discrete-time Riccati equation for the
// StateWeights/ControlWeight quadratic cost is solved by value iteration.
//
// The result depends only on the plant and the Limits, not on the
// controller gains, so callers evaluating many gain candidates should
// compute it once and hand it to the factory through Limits.Nominal.
func NominalFeedback(m dip.Model, lim Limits) ([6]float64, error) {
	if m == nil {
		return [6]float64{}, errors.New("smc: nominal feedback needs a model")
	}
	if lim.ControlWeight <= 0 {
		return [6]float64{}, errors.New("smc: control weight must be positive")
	}
	for i, w := range lim.StateWeights {
		if w < 0 || !isFinite(w) {
			return [6]float64{}, fmt.Errorf("smc: state weight %d must be finite and non-negative", i)
		}
	}

	a, b, err := linearize(m)
	if err != nil {
		return [6]float64{}, fmt.Errorf("smc: linearization failed: %w", err)
	}

	// Euler discretization under zero-order hold.
	ad := mat.NewDense(6, 6, nil)
	ad.Scale(lim.Dt, a)
	for i := 0; i < 6; i++ {
		ad.Set(i, i, ad.At(i, i)+1)
	}
	bd := mat.NewVecDense(6, nil)
	bd.ScaleVec(lim.Dt, b)

	q := mat.NewDense(6, 6, nil)
	for i, w := range lim.StateWeights {
		q.Set(i, i, w)
	}

	p := mat.DenseCopyOf(q)
	pb := mat.NewVecDense(6, nil)
	bpa := mat.NewVecDense(6, nil)
	var pa, atpa mat.Dense
	var gain [6]float64

	for iter := 0; iter < riccatiMaxIters; iter++ {
		pb.MulVec(p, bd)
		den := lim.ControlWeight + mat.Dot(bd, pb)
		if den <= 0 || !isFinite(den) {
			return [6]float64{}, errors.New("smc: Riccati iteration lost positive definiteness")
		}
		bpa.MulVec(ad.T(), pb)
		for j := 0; j < 6; j++ {
			gain[j] = bpa.AtVec(j) / den
		}

		pa.Mul(p, ad)
		atpa.Mul(ad.T(), &pa)
		next := mat.NewDense(6, 6, nil)
		for i := 0; i < 6; i++ {
			for j := 0; j < 6; j++ {
				next.Set(i, j, q.At(i, j)+atpa.At(i, j)-bpa.AtVec(i)*gain[j])
			}
		}
		// The iteration drifts off the symmetric manifold in floating
		// point and then loses positive definiteness, so resymmetrize
		// every step.
		for i := 0; i < 6; i++ {
			for j := i + 1; j < 6; j++ {
				v := 0.5 * (next.At(i, j) + next.At(j, i))
				next.Set(i, j, v)
				next.Set(j, i, v)
			}
		}

		diff := 0.0
		for i := 0; i < 6; i++ {
			for j := 0; j < 6; j++ {
				if d := math.Abs(next.At(i, j) - p.At(i, j)); d > diff {
					diff = d
				}
			}
		}
		p = next
		if diff < riccatiTol {
			for _, g := range gain {
				if !isFinite(g) {
					return [6]float64{}, errors.New("smc: Riccati iteration produced a non-finite gain")
				}
			}
			return gain, nil
		}
	}
	return [6]float64{}, errors.New("smc: Riccati iteration did not converge")
}

package dip

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// LowRankModel evaluates the same equations as FullModel but reuses a
// cached mass-matrix inverse while the link angles stay within a refresh
// threshold of the last factorization point. This trades a small amount of
// accuracy for roughly one factorization per control interval instead of
// one per integrator stage.
//
// The cache makes LowRankModel unsafe for concurrent use; the tuner
// constructs one instance per fitness evaluation.
type LowRankModel struct {
	full *FullModel

	// Refresh threshold on summed absolute angle drift (rad).
	RefreshThreshold float64

	inv        *mat.Dense
	cachedTh1  float64
	cachedTh2  float64
	haveCached bool
}

// NewLowRankModel returns the cached-inverse dynamics for the given
// parameters with a default refresh threshold.
func NewLowRankModel(p Params) *LowRankModel {
	return &LowRankModel{
		full:             NewFullModel(p),
		RefreshThreshold: 0.02,
		inv:              mat.NewDense(3, 3, nil),
	}
}

func (m *LowRankModel) refresh(th1, th2 float64) error {
	var mm mat.SymDense
	mm.ReuseAsSym(3)
	m.full.massMatrix(&mm, th1, th2)

	var chol mat.Cholesky
	if ok := chol.Factorize(&mm); !ok {
		return &DivergenceError{Reason: "mass matrix not positive definite"}
	}
	if chol.Cond() > maxCond {
		return &DivergenceError{Reason: "mass matrix near-singular"}
	}
	var sym mat.SymDense
	if err := chol.InverseTo(&sym); err != nil {
		return &DivergenceError{Reason: "mass matrix inversion failed"}
	}
	m.inv.Copy(&sym)
	m.cachedTh1, m.cachedTh2 = th1, th2
	m.haveCached = true
	return nil
}

// Accelerations multiplies the cached inverse with the current right-hand
// side, refactorizing only when the angles have drifted.
func (m *LowRankModel) Accelerations(s State, u float64) ([3]float64, error) {
	th1, th2 := s[IdxTheta1], s[IdxTheta2]
	drift := math.Abs(th1-m.cachedTh1) + math.Abs(th2-m.cachedTh2)
	if !m.haveCached || drift > m.RefreshThreshold {
		if err := m.refresh(th1, th2); err != nil {
			return [3]float64{}, err
		}
	}

	rhs := m.full.rightHandSide(s, u)
	var qdd mat.VecDense
	qdd.MulVec(m.inv, mat.NewVecDense(3, rhs[:]))

	out := [3]float64{qdd.AtVec(0), qdd.AtVec(1), qdd.AtVec(2)}
	for _, a := range out {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return [3]float64{}, &DivergenceError{Reason: "non-finite acceleration"}
		}
	}
	return out, nil
}

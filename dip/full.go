package dip

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// maxCond is the condition number above which the mass matrix is treated
// as numerically singular.
const maxCond = 1e12

// FullModel evaluates the complete manipulator-form dynamics. The mass
// matrix is assembled symmetric positive definite and solved with a
// Cholesky factorization each call. FullModel is stateless and safe for
// concurrent use.
type FullModel struct {
	P Params
}

// NewFullModel returns the full-fidelity dynamics for the given parameters.
func NewFullModel(p Params) *FullModel {
	p.ComputeDerived()
	return &FullModel{P: p}
}

// massMatrix fills m with M(q) for link angles th1, th2.
func (f *FullModel) massMatrix(m *mat.SymDense, th1, th2 float64) {
	p := f.P
	h1 := p.Mass1*p.com1 + p.Mass2*p.Length1

	m.SetSym(0, 0, p.CartMass+p.Mass1+p.Mass2)
	m.SetSym(0, 1, h1*math.Cos(th1))
	m.SetSym(0, 2, p.Mass2*p.com2*math.Cos(th2))
	m.SetSym(1, 1, p.Mass1*p.com1*p.com1+p.Mass2*p.Length1*p.Length1+p.inertia1)
	m.SetSym(1, 2, p.Mass2*p.Length1*p.com2*math.Cos(th1-th2))
	m.SetSym(2, 2, p.Mass2*p.com2*p.com2+p.inertia2)
}

// rightHandSide returns B u - C(q, q')q' - G(q).
func (f *FullModel) rightHandSide(s State, u float64) [3]float64 {
	p := f.P
	th1, th2 := s[IdxTheta1], s[IdxTheta2]
	w1, w2 := s[IdxOmega1], s[IdxOmega2]
	h1 := p.Mass1*p.com1 + p.Mass2*p.Length1
	coupling := p.Mass2 * p.Length1 * p.com2 * math.Sin(th1-th2)

	c0 := -h1*math.Sin(th1)*w1*w1 - p.Mass2*p.com2*math.Sin(th2)*w2*w2 +
		p.CartFriction*s[IdxCartVel]
	c1 := coupling*w2*w2 + p.Joint1Friction*w1
	c2 := -coupling*w1*w1 + p.Joint2Friction*w2

	// Angles are measured from the upright vertical, so gravity acts to
	// increase any deflection.
	g1 := -h1 * p.Gravity * math.Sin(th1)
	g2 := -p.Mass2 * p.com2 * p.Gravity * math.Sin(th2)

	return [3]float64{u - c0, -c1 - g1, -c2 - g2}
}

// Accelerations solves M(q) qddot = B u - C q' - G for qddot.
func (f *FullModel) Accelerations(s State, u float64) ([3]float64, error) {
	var m mat.SymDense
	m.ReuseAsSym(3)
	f.massMatrix(&m, s[IdxTheta1], s[IdxTheta2])

	var chol mat.Cholesky
	if ok := chol.Factorize(&m); !ok {
		return [3]float64{}, &DivergenceError{Reason: "mass matrix not positive definite"}
	}
	if chol.Cond() > maxCond {
		return [3]float64{}, &DivergenceError{Reason: "mass matrix near-singular"}
	}

	rhs := f.rightHandSide(s, u)
	var qdd mat.VecDense
	if err := chol.SolveVecTo(&qdd, mat.NewVecDense(3, rhs[:])); err != nil {
		return [3]float64{}, &DivergenceError{Reason: "mass matrix solve failed"}
	}

	out := [3]float64{qdd.AtVec(0), qdd.AtVec(1), qdd.AtVec(2)}
	for _, a := range out {
		if math.IsNaN(a) || math.IsInf(a, 0) {
			return [3]float64{}, &DivergenceError{Reason: "non-finite acceleration"}
		}
	}
	return out, nil
}

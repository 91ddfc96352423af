package dip

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SimplifiedModel linearizes the plant about the upright equilibrium: the
// mass matrix is frozen at q = 0 and inverted once at construction, and
// gravity enters through sin(theta) ~ theta. Evaluation is a single 3x3
// multiply, which makes it the usual choice inside tuning loops. Accuracy
// degrades quadratically with the deflection angles.
type SimplifiedModel struct {
	P Params

	inv *mat.Dense
	ok  bool
}

// NewSimplifiedModel returns the upright-linearized dynamics for the
// given parameters.
func NewSimplifiedModel(p Params) *SimplifiedModel {
	p.ComputeDerived()
	m := &SimplifiedModel{P: p}

	h1 := p.Mass1*p.com1 + p.Mass2*p.Length1
	var mm mat.SymDense
	mm.ReuseAsSym(3)
	mm.SetSym(0, 0, p.CartMass+p.Mass1+p.Mass2)
	mm.SetSym(0, 1, h1)
	mm.SetSym(0, 2, p.Mass2*p.com2)
	mm.SetSym(1, 1, p.Mass1*p.com1*p.com1+p.Mass2*p.Length1*p.Length1+p.inertia1)
	mm.SetSym(1, 2, p.Mass2*p.Length1*p.com2)
	mm.SetSym(2, 2, p.Mass2*p.com2*p.com2+p.inertia2)

	var chol mat.Cholesky
	if !chol.Factorize(&mm) || chol.Cond() > maxCond {
		return m // ok stays false; Accelerations reports divergence
	}
	var sym mat.SymDense
	if err := chol.InverseTo(&sym); err != nil {
		return m
	}
	m.inv = mat.NewDense(3, 3, nil)
	m.inv.Copy(&sym)
	m.ok = true
	return m
}

// Accelerations evaluates the linearized equations. The cached inverse is
// read-only, so the model is safe for concurrent use.
func (m *SimplifiedModel) Accelerations(s State, u float64) ([3]float64, error) {
	if !m.ok {
		return [3]float64{}, &DivergenceError{Reason: "upright mass matrix not invertible"}
	}
	p := m.P
	h1 := p.Mass1*p.com1 + p.Mass2*p.Length1

	rhs := [3]float64{
		u - p.CartFriction*s[IdxCartVel],
		h1*p.Gravity*s[IdxTheta1] - p.Joint1Friction*s[IdxOmega1],
		p.Mass2*p.com2*p.Gravity*s[IdxTheta2] - p.Joint2Friction*s[IdxOmega2],
	}

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

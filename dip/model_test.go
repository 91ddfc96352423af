package dip

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsValidate(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())

	p.Mass1 = 0
	require.Error(t, p.Validate())

	p = DefaultParams()
	p.CartFriction = -1
	require.Error(t, p.Validate())
}

func TestFullModelEquilibrium(t *testing.T) {
	m := NewFullModel(DefaultParams())
	acc, err := m.Accelerations(State{}, 0)
	require.NoError(t, err)
	for i, a := range acc {
		assert.InDelta(t, 0, a, 1e-12, "acceleration %d at upright rest", i)
	}
}

func TestFullModelForceDirections(t *testing.T) {
	m := NewFullModel(DefaultParams())
	acc, err := m.Accelerations(State{}, 10)
	require.NoError(t, err)

	// A rightward force accelerates the cart right and tips the first
	// link backward relative to the cart.
	assert.Greater(t, acc[0], 0.0)
	assert.Less(t, acc[1], 0.0)
}

func TestGravityDestabilizesUpright(t *testing.T) {
	m := NewFullModel(DefaultParams())
	s := State{}
	s[IdxTheta1] = 0.1
	acc, err := m.Accelerations(s, 0)
	require.NoError(t, err)
	assert.Greater(t, acc[1], 0.0, "a deflected link should fall further")
}

// A pathologically light second link makes the mass matrix numerically
// singular. The conditioning guard must report divergence instead of
// returning garbage accelerations, in both the per-call and the
// frozen-matrix models.
func TestIllConditionedMassMatrixDiverges(t *testing.T) {
	p := DefaultParams()
	p.Mass2 = 1e-30

	var divErr *DivergenceError

	full := NewFullModel(p)
	_, err := full.Accelerations(State{}, 0)
	require.ErrorAs(t, err, &divErr)

	simp := NewSimplifiedModel(p)
	_, err = simp.Accelerations(State{}, 0)
	require.ErrorAs(t, err, &divErr)
}

func TestSimplifiedAgreesAtEquilibrium(t *testing.T) {
	p := DefaultParams()
	full := NewFullModel(p)
	simp := NewSimplifiedModel(p)

	// At the linearization point the two models coincide exactly.
	fa, err := full.Accelerations(State{}, 5)
	require.NoError(t, err)
	sa, err := simp.Accelerations(State{}, 5)
	require.NoError(t, err)
	for i := range fa {
		assert.InDelta(t, fa[i], sa[i], 1e-9, "component %d at upright", i)
	}

	// Near the upright the linearization error is quadratic in the
	// deflection.
	near := State{0, 0.02, -0.01, 0.05, 0.03, -0.02}
	fa, err = full.Accelerations(near, 1)
	require.NoError(t, err)
	sa, err = simp.Accelerations(near, 1)
	require.NoError(t, err)
	for i := range fa {
		assert.InDelta(t, fa[i], sa[i], 0.1, "component %d near upright", i)
	}
}

func TestLowRankMatchesFullAtCachePoint(t *testing.T) {
	p := DefaultParams()
	full := NewFullModel(p)
	low := NewLowRankModel(p)

	s := State{0.1, 0.2, -0.1, 0.3, -0.2, 0.1}
	fa, err := full.Accelerations(s, 3)
	require.NoError(t, err)
	la, err := low.Accelerations(s, 3)
	require.NoError(t, err)

	// First call factorizes at exactly this state, so the cached inverse
	// is exact.
	for i := range fa {
		assert.InDelta(t, fa[i], la[i], 1e-9, "component %d", i)
	}
}

func TestLowRankRefreshesAfterDrift(t *testing.T) {
	p := DefaultParams()
	low := NewLowRankModel(p)
	full := NewFullModel(p)

	_, err := low.Accelerations(State{}, 0)
	require.NoError(t, err)

	// Well beyond the refresh threshold: the cache must be rebuilt and
	// agree with the full model again.
	s := State{0, 0.8, -0.6, 0, 0, 0}
	la, err := low.Accelerations(s, 2)
	require.NoError(t, err)
	fa, err := full.Accelerations(s, 2)
	require.NoError(t, err)
	for i := range fa {
		assert.InDelta(t, fa[i], la[i], 1e-9, "component %d", i)
	}
}

func TestDerivativeLayout(t *testing.T) {
	m := NewFullModel(DefaultParams())
	s := State{0, 0.05, 0.02, 1, 2, 3}
	d, err := Derivative(m, s, 0)
	require.NoError(t, err)

	assert.Equal(t, s[IdxCartVel], d[IdxCart])
	assert.Equal(t, s[IdxOmega1], d[IdxTheta1])
	assert.Equal(t, s[IdxOmega2], d[IdxTheta2])
}

func TestDerivativeRejectsNonFiniteState(t *testing.T) {
	m := NewFullModel(DefaultParams())
	var s State
	s[IdxOmega2] = math.Inf(1)
	_, err := Derivative(m, s, 0)
	var divErr *DivergenceError
	require.ErrorAs(t, err, &divErr)
}

func TestStateHelpers(t *testing.T) {
	s := State{1, 2, 3, 4, 5, 6}
	assert.True(t, s.IsFinite())
	assert.InDelta(t, math.Sqrt(1+4+9+16+25+36), s.Norm(), 1e-12)
	assert.InDelta(t, math.Sqrt(16+25+36), s.VelocityNorm(), 1e-12)
	assert.Equal(t, [3]float64{1, 2, 3}, s.Positions())
	assert.Equal(t, [3]float64{4, 5, 6}, s.Velocities())

	s[IdxTheta2] = math.NaN()
	assert.False(t, s.IsFinite())
}

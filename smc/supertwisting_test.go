package smc

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smclab/dipsim/dip"
)

func newSTAForTest(t *testing.T, lim Limits) Controller {
	t.Helper()
	c, err := New(SuperTwisting, []float64{2, 1, 2, 1.5, 3, 3}, lim)
	require.NoError(t, err)
	return c
}

// At s = 0 the square-root term vanishes and sign(0) = 0, so the law
// reduces to the integrator alone.
func TestSuperTwistingAtZeroSigma(t *testing.T) {
	ctrl := newSTAForTest(t, DefaultLimits(nil))
	out, err := ctrl.Compute(dip.State{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Control)
	assert.Equal(t, 0.0, out.Sigma)
	require.Len(t, out.Gains, 1)
	assert.Equal(t, 0.0, out.Gains[0], "integrator untouched at s = 0")
}

// Holding the state on one side of the surface winds the integrator up
// until the clamp engages, and the saturation is reported.
func TestSuperTwistingIntegratorClamp(t *testing.T) {
	lim := DefaultLimits(nil)
	lim.IntegratorMax = 0.5
	ctrl := newSTAForTest(t, lim)

	var s dip.State
	s[dip.IdxTheta1] = 1 // constant positive sigma

	var out Output
	var err error
	for i := 0; i < 200; i++ {
		out, err = ctrl.Compute(s, float64(i)*lim.Dt)
		require.NoError(t, err)
	}
	require.Len(t, out.Gains, 1)
	assert.InDelta(t, -lim.IntegratorMax, out.Gains[0], 1e-12)
	assert.True(t, out.IntegratorSaturated)

	ctrl.Reset()
	out, err = ctrl.Compute(dip.State{}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, out.Gains[0], "reset clears the integrator")
}

// The integrator accumulates -k2 dt per step against the sign of sigma.
func TestSuperTwistingIntegratorRate(t *testing.T) {
	lim := DefaultLimits(nil)
	ctrl := newSTAForTest(t, lim)

	var s dip.State
	s[dip.IdxTheta1] = 0.5

	for i := 0; i < 10; i++ {
		_, err := ctrl.Compute(s, float64(i)*lim.Dt)
		require.NoError(t, err)
	}
	out, err := ctrl.Compute(s, 10*lim.Dt)
	require.NoError(t, err)
	// k2 = 1, so after 11 updates uInt = -11 k2 dt.
	assert.InDelta(t, -11*lim.Dt, out.Gains[0], 1e-12)
}

// With the full plant in the loop, moderate gains keep the surface small
// from a small initial deflection.
func TestSuperTwistingStabilizesSmallDeflection(t *testing.T) {
	model := dip.NewFullModel(dip.DefaultParams())
	lim := DefaultLimits(model)
	ctrl := newSTAForTest(t, lim)

	rk := dip.NewRK4()
	s := dip.State{0, 0.06, 0.03, 0, 0, 0}

	const steps = 400 // 4 s
	maxLateSigma := 0.0
	for i := 0; i < steps; i++ {
		out, err := ctrl.Compute(s, float64(i)*lim.Dt)
		require.NoError(t, err)
		s, err = rk.Step(model, s, out.Control, lim.Dt)
		require.NoError(t, err)
		if i >= steps-100 && math.Abs(out.Sigma) > maxLateSigma {
			maxLateSigma = math.Abs(out.Sigma)
		}
	}
	assert.Less(t, maxLateSigma, 0.2, "surface should stay small in the last second")
}

// Package smc implements a family of sliding mode controllers for the
// double inverted pendulum: classical boundary-layer SMC, super-twisting
// (second order) SMC, adaptive-gain SMC and a hybrid adaptive
// super-twisting variant with cart recentering.
//
// All variants share the sliding surface
//
//	s = c1 (theta1' + lambda1 theta1) + c2 (theta2' + lambda2 theta2)
//	    + kc (x' + lambdaC x)
//
// and the Controller contract below. When a plant model is available the
// laws combine a nominal stabilizing feedback (see NominalFeedback) with
// their switching action normalized by the input-to-surface slope; the
// cart surface weight kc is structural (Limits.CartWeight), since the
// surface zero dynamics turn non-minimum-phase when it competes with the
// pendulum terms. Every Compute path returns a fully populated Output by
// value, so a missing or partial result cannot be expressed.
package smc

import (
	"errors"
	"fmt"
	"math"

	"github.com/smclab/dipsim/dip"
)

// Kind selects a controller variant. The set is closed; the factory and
// GainCount switch over it exhaustively.
type Kind int

const (
	Classical Kind = iota
	SuperTwisting
	Adaptive
	HybridAdaptiveSTA
)

func (k Kind) String() string {
	switch k {
	case Classical:
		return "classical"
	case SuperTwisting:
		return "sta"
	case Adaptive:
		return "adaptive"
	case HybridAdaptiveSTA:
		return "hybrid"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind maps a configuration identifier to a Kind.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "classical":
		return Classical, nil
	case "sta", "supertwisting", "super_twisting":
		return SuperTwisting, nil
	case "adaptive":
		return Adaptive, nil
	case "hybrid", "hybrid_adaptive_sta":
		return HybridAdaptiveSTA, nil
	}
	return 0, fmt.Errorf("smc: unknown controller kind %q", s)
}

// GainCount returns the length of the gain vector for a controller kind.
func GainCount(k Kind) int {
	switch k {
	case Classical:
		return 6 // c1, c2, lambda1, lambda2, K, kd
	case SuperTwisting:
		return 6 // k1, k2, c1, c2, lambda1, lambda2
	case Adaptive:
		return 5 // c1, c2, lambda1, lambda2, gamma
	case HybridAdaptiveSTA:
		return 4 // c1, c2, lambda1, lambda2
	default:
		return 0
	}
}

// Limits carries the structural controller parameters that are fixed
// during gain tuning: actuator and integrator bounds, the boundary layer,
// adaptation floors and ceilings, and the optional plant model used for
// the equivalent-control probe. A Limits value is read-only after
// construction and may be shared across controllers.
type Limits struct {
	UMax          float64 // actuator saturation bound
	BoundaryLayer float64 // Phi > 0
	Dt            float64 // controller sample time
	CartWeight    float64 // kc in the shared sliding surface
	LambdaCart    float64 // lambdaC in the cart surface term

	// Nominal feedback synthesis weights: the quadratic state and control
	// cost behind NominalFeedback.
	StateWeights  [6]float64
	ControlWeight float64

	// Nominal, when it holds six entries, is a precomputed feedback row
	// used as the model-based nominal term. When nil and Model is set,
	// the factory synthesizes it; precomputing it once amortizes the
	// Riccati solve across many candidate constructions.
	Nominal []float64

	IntegratorMax float64 // super-twisting integrator bound
	GainFloor     float64 // adaptive gain lower bound
	GainCeil      float64 // adaptive gain upper bound
	LeakRate      float64 // adaptive gain leak inside the boundary layer
	AdaptRate1    float64 // hybrid k1 adaptation rate
	AdaptRate2    float64 // hybrid k2 adaptation rate

	CartThreshold float64 // hybrid recentering activation |x|
	RecenterKp    float64
	RecenterKd    float64

	// Emergency-reset thresholds for the hybrid controller.
	StateNormLimit    float64
	VelocityNormLimit float64
	SigmaLimit        float64

	// Model, when non-nil, enables the model-based equivalent-control
	// probe. Controllers only read from it.
	Model dip.Model
}

// DefaultLimits returns workable structural parameters for a bench-scale
// plant. The model may be nil, in which case controllers fall back to
// direct switching without the equivalent-control term.
func DefaultLimits(model dip.Model) Limits {
	return Limits{
		UMax:              150,
		BoundaryLayer:     8.0,
		Dt:                0.01,
		CartWeight:        0.1,
		LambdaCart:        0.5,
		StateWeights:      [6]float64{50000, 3000, 3000, 6000, 100, 100},
		ControlWeight:     0.01,
		IntegratorMax:     80,
		GainFloor:         0.5,
		GainCeil:          200,
		LeakRate:          2.0,
		AdaptRate1:        8.0,
		AdaptRate2:        4.0,
		CartThreshold:     0.5,
		RecenterKp:        6.0,
		RecenterKd:        8.0,
		StateNormLimit:    50,
		VelocityNormLimit: 200,
		SigmaLimit:        1e3,
		Model:             model,
	}
}

// Validate reports a configuration error before any episode runs.
func (l Limits) Validate() error {
	if l.UMax <= 0 {
		return errors.New("smc: UMax must be positive")
	}
	if l.BoundaryLayer <= 0 {
		return errors.New("smc: boundary layer must be positive")
	}
	if l.Dt <= 0 {
		return errors.New("smc: sample time must be positive")
	}
	if l.GainFloor < 0 || l.GainCeil <= l.GainFloor {
		return errors.New("smc: adaptive gain bounds must satisfy 0 <= floor < ceil")
	}
	if l.IntegratorMax <= 0 {
		return errors.New("smc: integrator bound must be positive")
	}
	if l.CartWeight < 0 {
		return errors.New("smc: cart surface weight must be non-negative")
	}
	if n := len(l.Nominal); n != 0 && n != 6 {
		return fmt.Errorf("smc: precomputed nominal feedback needs 6 entries, got %d", n)
	}
	return nil
}

// Output is the result of one control computation. It is returned by
// value and therefore always populated; a controller that cannot produce a
// meaningful force clamps Control to zero and sets Clamped instead of
// failing.
type Output struct {
	// Control is the saturated cart force, always finite and within
	// [-UMax, UMax].
	Control float64
	// Sigma is the sliding-variable value used for this step.
	Sigma float64
	// Saturated marks that the raw control hit the actuator limit.
	Saturated bool
	// Clamped marks that a non-finite or unsafe intermediate result was
	// replaced by a safe default. Expected under destabilizing gains.
	Clamped bool
	// IntegratorSaturated marks that a super-twisting integrator is
	// pinned at its bound this step.
	IntegratorSaturated bool
	// Gains carries the live variant-specific internal values: nil for
	// classical, [uInt] for super-twisting, [K] for adaptive and
	// [k1, k2, uInt] for the hybrid controller.
	Gains []float64
}

// Controller is the common contract of all variants. Compute must return
// a fully populated Output on every path; Reset clears the per-episode
// internal state and never computes control. Controllers are not safe for
// concurrent use, but distinct instances share no mutable state.
type Controller interface {
	Compute(s dip.State, t float64) (Output, error)
	Reset()
}

// New constructs a controller of the given kind from its gain vector.
// A wrong gain count or a non-positive gain is a configuration error.
func New(kind Kind, gains []float64, lim Limits) (Controller, error) {
	if err := lim.Validate(); err != nil {
		return nil, err
	}
	if want := GainCount(kind); len(gains) != want {
		return nil, fmt.Errorf("smc: %v controller needs %d gains, got %d", kind, want, len(gains))
	}
	for i, g := range gains {
		if math.IsNaN(g) || math.IsInf(g, 0) || g <= 0 {
			return nil, fmt.Errorf("smc: gain %d must be a positive finite number, got %g", i, g)
		}
	}

	var nom feedbackRow
	switch {
	case len(lim.Nominal) == 6:
		copy(nom.f[:], lim.Nominal)
		nom.ok = true
	case lim.Model != nil:
		f, err := NominalFeedback(lim.Model, lim)
		if err != nil {
			return nil, fmt.Errorf("smc: %v controller: %w", kind, err)
		}
		nom = feedbackRow{f: f, ok: true}
	}

	switch kind {
	case Classical:
		return newClassical(gains, lim, nom), nil
	case SuperTwisting:
		return newSuperTwisting(gains, lim, nom), nil
	case Adaptive:
		return newAdaptive(gains, lim, nom), nil
	case HybridAdaptiveSTA:
		return newHybrid(gains, lim, nom), nil
	default:
		return nil, fmt.Errorf("smc: unknown controller kind %v", kind)
	}
}

package dip

import (
	"errors"
	"fmt"
)

// Params holds the physical parameters of the plant. The links are modeled
// as uniform rods; derived inertial quantities are computed once by
// ComputeDerived and treated as read-only afterwards, so a single Params
// value may be shared across parallel evaluations.
type Params struct {
	CartMass float64 `yaml:"cart_mass"` // kg
	Mass1    float64 `yaml:"mass1"`     // kg, first link
	Mass2    float64 `yaml:"mass2"`     // kg, second link
	Length1  float64 `yaml:"length1"`   // m, first link
	Length2  float64 `yaml:"length2"`   // m, second link
	Gravity  float64 `yaml:"gravity"`   // m/s^2

	// Viscous friction coefficients.
	CartFriction   float64 `yaml:"cart_friction"`
	Joint1Friction float64 `yaml:"joint1_friction"`
	Joint2Friction float64 `yaml:"joint2_friction"`

	// Derived quantities, filled in by ComputeDerived.
	com1     float64 // distance pivot -> center of mass, link 1
	com2     float64
	inertia1 float64 // rotational inertia about center of mass, link 1
	inertia2 float64
}

// DefaultParams returns a light bench-scale plant.
func DefaultParams() Params {
	p := Params{
		CartMass:       0.8,
		Mass1:          0.08,
		Mass2:          0.05,
		Length1:        0.15,
		Length2:        0.1,
		Gravity:        9.81,
		CartFriction:   0.1,
		Joint1Friction: 0.002,
		Joint2Friction: 0.002,
	}
	p.ComputeDerived()
	return p
}

// ComputeDerived fills the center-of-mass distances and rod inertias.
func (p *Params) ComputeDerived() {
	p.com1 = p.Length1 / 2
	p.com2 = p.Length2 / 2
	p.inertia1 = p.Mass1 * p.Length1 * p.Length1 / 12
	p.inertia2 = p.Mass2 * p.Length2 * p.Length2 / 12
}

// Validate reports a configuration error for non-physical parameters.
func (p Params) Validate() error {
	if p.CartMass <= 0 || p.Mass1 <= 0 || p.Mass2 <= 0 {
		return errors.New("dip: masses must be positive")
	}
	if p.Length1 <= 0 || p.Length2 <= 0 {
		return errors.New("dip: link lengths must be positive")
	}
	if p.Gravity <= 0 {
		return fmt.Errorf("dip: gravity must be positive, got %g", p.Gravity)
	}
	if p.CartFriction < 0 || p.Joint1Friction < 0 || p.Joint2Friction < 0 {
		return errors.New("dip: friction coefficients must be non-negative")
	}
	return nil
}

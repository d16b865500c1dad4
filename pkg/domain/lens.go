package domain

import "fmt"

// LensConfiguration is the prescription currently dialed in for a single eye.
//
// Sphere and Cylinder are in diopters, Axis in degrees. The engine guarantees
// that a configuration reachable through the Controller is always inside the
// configured clinical envelope; out-of-range values are rejected before
// mutation, never clamped.
type LensConfiguration struct {
	Sphere   float64 `json:"sphere"`
	Cylinder float64 `json:"cylinder"`
	Axis     int     `json:"axis"`
}

// Value returns the current value of the given parameter.
// Axis is returned as a float64 so callers can treat all parameters uniformly.
func (l LensConfiguration) Value(p Parameter) float64 {
	switch p {
	case ParameterSphere:
		return l.Sphere
	case ParameterCylinder:
		return l.Cylinder
	case ParameterAxis:
		return float64(l.Axis)
	}
	return 0
}

// String renders the configuration in conventional Rx notation,
// e.g. "+1.25 -0.50 x090".
func (l LensConfiguration) String() string {
	return fmt.Sprintf("%+.2f %+.2f x%03d", l.Sphere, l.Cylinder, l.Axis)
}

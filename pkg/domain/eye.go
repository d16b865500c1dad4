package domain

// Eye identifies one of the two eyes in clinical notation.
type Eye string

const (
	// EyeOD is the right eye (oculus dexter).
	EyeOD Eye = "od"
	// EyeOS is the left eye (oculus sinister).
	EyeOS Eye = "os"
)

// IsValid reports whether the eye is a known value.
func (e Eye) IsValid() bool {
	switch e {
	case EyeOD, EyeOS:
		return true
	}
	return false
}

// Other returns the fellow eye.
func (e Eye) Other() Eye {
	if e == EyeOD {
		return EyeOS
	}
	return EyeOD
}

// Occlusion identifies which eye, if any, is currently covered.
type Occlusion string

const (
	OcclusionNone Occlusion = "none"
	OcclusionOD   Occlusion = "od"
	OcclusionOS   Occlusion = "os"
)

// IsValid reports whether the occlusion is a known value.
func (o Occlusion) IsValid() bool {
	switch o {
	case OcclusionNone, OcclusionOD, OcclusionOS:
		return true
	}
	return false
}

// Occluding returns the occlusion value that covers the given eye.
func Occluding(e Eye) Occlusion {
	if e == EyeOD {
		return OcclusionOD
	}
	return OcclusionOS
}

// Parameter names one of the three adjustable lens parameters.
type Parameter string

const (
	ParameterSphere   Parameter = "sphere"
	ParameterCylinder Parameter = "cylinder"
	ParameterAxis     Parameter = "axis"
)

// IsValid reports whether the parameter is a known value.
func (p Parameter) IsValid() bool {
	switch p {
	case ParameterSphere, ParameterCylinder, ParameterAxis:
		return true
	}
	return false
}

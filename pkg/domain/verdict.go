package domain

// VerdictKind classifies the usability of a patient response.
type VerdictKind string

const (
	// VerdictClear means the response is confident, well-formed, and carries
	// the information the current step requires.
	VerdictClear VerdictKind = "clear"
	// VerdictAmbiguous means the response is usable but not trustworthy
	// enough to act on; the step repeats.
	VerdictAmbiguous VerdictKind = "ambiguous"
	// VerdictUnclear means the response could not be understood at all.
	VerdictUnclear VerdictKind = "unclear"
	// VerdictInvalid means the intent itself is invalid or unknown.
	VerdictInvalid VerdictKind = "invalid"
)

// IsValid reports whether the kind is a known value.
func (v VerdictKind) IsValid() bool {
	switch v {
	case VerdictClear, VerdictAmbiguous, VerdictUnclear, VerdictInvalid:
		return true
	}
	return false
}

// ResponseVerdict is the per-turn output of the quality gate: the kind, the
// confidence that triggered it, and whether the step's required slots were
// present with recognized values.
type ResponseVerdict struct {
	Kind         VerdictKind `json:"kind"`
	Confidence   float64     `json:"confidence"`
	SlotsPresent bool        `json:"slots_present"`
	Reason       string      `json:"reason,omitempty"`
}

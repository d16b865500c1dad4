package domain

// CommandKind enumerates the abstract instrument commands the engine can
// emit. Transport-level encoding is the device collaborator's concern.
type CommandKind string

const (
	CommandPresentLensPair    CommandKind = "present_lens_pair"
	CommandPresentJCC         CommandKind = "present_jcc"
	CommandBalanceBinocular   CommandKind = "balance_binocular"
	CommandFinalize           CommandKind = "finalize"
	CommandEscalate           CommandKind = "escalate"
	CommandNoAction           CommandKind = "no_action"
	CommandRepeatPresentation CommandKind = "repeat_presentation"
)

// IsValid reports whether the kind is a known value.
func (c CommandKind) IsValid() bool {
	switch c {
	case CommandPresentLensPair, CommandPresentJCC, CommandBalanceBinocular,
		CommandFinalize, CommandEscalate, CommandNoAction,
		CommandRepeatPresentation:
		return true
	}
	return false
}

// LensOption is one labeled candidate lens in a comparison pair.
type LensOption struct {
	Label  string  `json:"label"`
	Sphere float64 `json:"sphere"`
}

// LensPairParams carries the two candidate spheres for a "which is clearer"
// presentation.
type LensPairParams struct {
	OptionA LensOption `json:"option_a"`
	OptionB LensOption `json:"option_b"`
}

// JCCPhase names one part of the cross-cylinder refinement sequence.
type JCCPhase string

const (
	JCCPhaseAxisHorizontal JCCPhase = "axis_horizontal"
	JCCPhaseAxisVertical   JCCPhase = "axis_vertical"
	JCCPhaseDuochrome      JCCPhase = "duochrome"
)

// JCCParams carries the ordered phases of a JCC presentation.
type JCCParams struct {
	Phases []JCCPhase `json:"phases"`
}

// DeviceCommand is the engine's per-turn instruction to the instrument
// collaborator. QuestionKey is an opaque identifier; the engine never
// generates patient-facing prose.
type DeviceCommand struct {
	Kind        CommandKind     `json:"kind"`
	Eye         Eye             `json:"eye,omitempty"`
	QuestionKey string          `json:"question_key,omitempty"`
	LensPair    *LensPairParams `json:"lens_pair,omitempty"`
	JCC         *JCCParams      `json:"jcc,omitempty"`
	Reason      string          `json:"reason,omitempty"`
}

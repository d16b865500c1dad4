package domain

// StepID identifies a protocol step, conventionally "step.substep" (e.g.
// "6.1"). Two reserved identifiers are terminal for every protocol.
type StepID string

const (
	// StepComplete is the ordinary terminal step of a finished exam.
	StepComplete StepID = "complete"
	// StepEscalate is the terminal step reached through any safety
	// escalation.
	StepEscalate StepID = "escalate_to_professional"
)

// IsTerminal reports whether the step ends the exam.
func (s StepID) IsTerminal() bool {
	return s == StepComplete || s == StepEscalate
}

// StepAction names the instrument interaction a protocol step drives.
// Conversational steps use StepActionNone and only carry a question key.
type StepAction string

const (
	StepActionNone     StepAction = "none"
	StepActionLensPair StepAction = "lens_pair"
	StepActionJCC      StepAction = "jcc"
	StepActionBalance  StepAction = "balance"
)

// IsValid reports whether the action is a known value.
func (a StepAction) IsValid() bool {
	switch a {
	case StepActionNone, StepActionLensPair, StepActionJCC, StepActionBalance:
		return true
	}
	return false
}

// SlotSpec declares one slot a step requires before a clear verdict may
// stand, together with its closed value vocabulary.
type SlotSpec struct {
	Key     string   `json:"key"`
	Allowed []string `json:"allowed"`
}

// Accepts reports whether the value is in the slot's vocabulary.
func (s SlotSpec) Accepts(value string) bool {
	for _, v := range s.Allowed {
		if v == value {
			return true
		}
	}
	return false
}

// ProtocolStep is one immutable entry of the exam script.
//
// Successor is the statically configured next step; the graph over all steps
// is validated once at load time (exactly one successor per non-terminal
// step, no cycles). Eye is meaningful only for device actions.
type ProtocolStep struct {
	ID            StepID     `json:"id"`
	Name          string     `json:"name"`
	Successor     StepID     `json:"successor,omitempty"`
	QuestionKey   string     `json:"question_key"`
	Action        StepAction `json:"action"`
	Eye           Eye        `json:"eye,omitempty"`
	RequiredSlots []SlotSpec `json:"required_slots,omitempty"`
	Options       []string   `json:"options,omitempty"`
}

// Protocol is a validated, immutable step table plus its entry point.
type Protocol struct {
	Start StepID
	Steps map[StepID]*ProtocolStep
}

// Step looks up a step by ID.
func (p *Protocol) Step(id StepID) (*ProtocolStep, bool) {
	s, ok := p.Steps[id]
	return s, ok
}

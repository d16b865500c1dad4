package domain

// TurnResult is everything the engine hands back to the orchestration
// collaborator for one turn: the instrument command, the step transition,
// the quality verdict, the audit trail of attempted adjustments, any
// escalation, and non-binding safety advisories.
type TurnResult struct {
	Command     DeviceCommand       `json:"command"`
	NextStep    StepID              `json:"next_step"`
	Verdict     ResponseVerdict     `json:"verdict"`
	Adjustments []AdjustmentOutcome `json:"adjustments,omitempty"`
	Escalation  *Escalation         `json:"escalation,omitempty"`
	Advisories  []Advisory          `json:"advisories,omitempty"`
}

// Escalated reports whether this turn ended the session through a safety
// escalation.
func (r *TurnResult) Escalated() bool {
	return r.Escalation != nil
}

package domain

// AdjustmentRequest is a transient, per-turn proposal to change one lens
// parameter by a signed magnitude. It is consumed by validation and never
// persisted beyond the turn that produced it.
type AdjustmentRequest struct {
	Eye       Eye       `json:"eye"`
	Parameter Parameter `json:"parameter"`
	Magnitude float64   `json:"magnitude"`
	Step      StepID    `json:"step"`
}

// AdjustmentOutcome reports the fate of one AdjustmentRequest, for audit
// logging by the orchestration collaborator.
type AdjustmentOutcome struct {
	Request  AdjustmentRequest `json:"request"`
	Accepted bool              `json:"accepted"`
	NewValue float64           `json:"new_value,omitempty"`
	Message  string            `json:"message"`
}

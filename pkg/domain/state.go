package domain

import "time"

// ExamStatus defines the Controller's lifecycle state.
type ExamStatus string

const (
	StatusActive    ExamStatus = "active"    // Normal operation
	StatusFinalized ExamStatus = "finalized" // Lenses frozen after binocular balance agreed
	StatusHalted    ExamStatus = "halted"    // Safety escalation or external abort
)

// IsValid reports whether the status is a known value.
func (s ExamStatus) IsValid() bool {
	switch s {
	case StatusActive, StatusFinalized, StatusHalted:
		return true
	}
	return false
}

// ExamState is the complete snapshot of one exam session. It is the only
// mutable shared resource in the engine, and it is mutated strictly in turn
// order by a single writer.
type ExamState struct {
	// SessionID addresses the session in stores and managers.
	SessionID string `json:"session_id"`

	// Status is the Controller lifecycle state. Finalized freezes the
	// lenses but lets conversational steps continue; Halted ends the
	// session outright.
	Status ExamStatus `json:"status"`

	// CurrentStep is the active protocol step.
	CurrentStep StepID `json:"current_step"`

	// Phoropter is the instrument state, mutated only by the Controller.
	Phoropter PhoropterState `json:"phoropter"`

	// Safety is the session's safety bookkeeping.
	Safety SafetySnapshot `json:"safety"`

	// TurnCount is the number of turns consumed so far.
	TurnCount int `json:"turn_count"`

	// Verdicts counts quality-gate outcomes, for the exam quality report.
	Verdicts map[VerdictKind]int `json:"verdicts"`

	// AdjustmentAttempts counts every adjustment request, accepted or not.
	// Accepted ones equal len(Phoropter.History).
	AdjustmentAttempts int `json:"adjustment_attempts"`

	// ConfidenceSum accumulates per-turn confidence for the quality report.
	ConfidenceSum float64 `json:"confidence_sum"`

	// EscalationReason is set when Status is Halted.
	EscalationReason EscalationReason `json:"escalation_reason,omitempty"`

	// Sealed carries the ciphertext when a persistence middleware encrypts
	// the state at rest. A live state never sets it.
	Sealed string `json:"sealed,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewExamState creates a clean session positioned at the protocol start.
func NewExamState(sessionID string, start StepID) *ExamState {
	now := time.Now().UTC()
	return &ExamState{
		SessionID:   sessionID,
		Status:      StatusActive,
		CurrentStep: start,
		Phoropter:   NewPhoropterState(),
		Verdicts:    make(map[VerdictKind]int),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Clone returns a deep copy. Engine turns operate on a clone so a failed
// turn never leaves a half-mutated state behind, and stores copy on both
// save and load so callers cannot reach shared memory through a pointer.
func (s *ExamState) Clone() *ExamState {
	out := *s
	out.Phoropter = s.Phoropter.Clone()
	out.Safety = s.Safety.Clone()
	out.Verdicts = make(map[VerdictKind]int, len(s.Verdicts))
	for k, v := range s.Verdicts {
		out.Verdicts[k] = v
	}
	return &out
}

// Terminal reports whether the session can accept no further turns: it is
// halted, or its current step ends the protocol.
func (s *ExamState) Terminal() bool {
	return s.Status == StatusHalted || s.CurrentStep.IsTerminal()
}

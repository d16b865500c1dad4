package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrPDOutOfRange is returned when a pupillary distance setting falls outside
// the configured bounds.
var ErrPDOutOfRange = errors.New("pupillary distance out of range")

// RejectionReason names why an adjustment was refused.
type RejectionReason string

const (
	// RejectionUnsafeJump: the magnitude exceeds the per-step safety cap.
	RejectionUnsafeJump RejectionReason = "unsafe jump"
	// RejectionOutOfRange: the result would leave the parameter's domain.
	RejectionOutOfRange RejectionReason = "out of range"
)

// RejectedAdjustmentError reports a refused lens change. It is non-fatal:
// state is untouched and the turn proceeds with no_action.
type RejectedAdjustmentError struct {
	Request AdjustmentRequest
	Reason  RejectionReason
	Detail  string
}

func (e *RejectedAdjustmentError) Error() string {
	return fmt.Sprintf("adjustment rejected (%s): %s %s %+.3f: %s",
		e.Reason, e.Request.Eye, e.Request.Parameter, e.Request.Magnitude, e.Detail)
}

// InvalidTransitionError reports a mutating call against a finalized or
// halted session. It signals a caller bug upstream and is never silently
// swallowed.
type InvalidTransitionError struct {
	Op     string
	Status ExamStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition: %s called while session is %s", e.Op, e.Status)
}

// ConfigurationError reports an unusable engine or protocol configuration.
// It is fatal: the engine must not start.
type ConfigurationError struct {
	Detail string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Detail
}

// EscalationReason names why a session was halted.
type EscalationReason string

const (
	EscalationRedFlag          EscalationReason = "red_flag"
	EscalationDurationExceeded EscalationReason = "duration_exceeded"
	// EscalationExternal marks an abort requested by the orchestration
	// layer rather than by a safety rule.
	EscalationExternal EscalationReason = "external_abort"
)

// Escalation is a terminal control-flow event, distinct from ordinary
// rejections: it is always surfaced explicitly on the turn result.
type Escalation struct {
	Reason EscalationReason `json:"reason"`
	Step   StepID           `json:"step"`
	At     time.Time        `json:"at"`
}

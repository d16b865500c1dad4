package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventStepEnter  EventType = "step_enter"
	EventStepLeave  EventType = "step_leave"
	EventTurn       EventType = "turn"
	EventAdjustment EventType = "adjustment"
	EventEscalation EventType = "escalation"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// StepEvent represents entry to or exit from a protocol step.
type StepEvent struct {
	EventBase
	StepID   StepID `json:"step_id"`
	StepName string `json:"step_name,omitempty"`
}

// TurnEvent summarizes one completed turn.
type TurnEvent struct {
	EventBase
	StepID  StepID      `json:"step_id"`
	Verdict VerdictKind `json:"verdict"`
	Command CommandKind `json:"command"`
}

// AdjustmentEvent represents one attempted lens change.
type AdjustmentEvent struct {
	EventBase
	Request  AdjustmentRequest `json:"request"`
	Accepted bool              `json:"accepted"`
	NewValue float64           `json:"new_value,omitempty"`
	Reason   string            `json:"reason,omitempty"`
}

// EscalationEvent represents a safety escalation.
type EscalationEvent struct {
	EventBase
	Reason EscalationReason `json:"reason"`
	StepID StepID           `json:"step_id"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnStepEnter  func(context.Context, *StepEvent)
	OnStepLeave  func(context.Context, *StepEvent)
	OnTurn       func(context.Context, *TurnEvent)
	OnAdjustment func(context.Context, *AdjustmentEvent)
	OnEscalation func(context.Context, *EscalationEvent)
}

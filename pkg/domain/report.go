package domain

import "time"

// QualityTargets are the acceptance thresholds for an exam quality report.
type QualityTargets struct {
	ClearRate      float64 `yaml:"clear_rate" json:"clear_rate"`
	MeanConfidence float64 `yaml:"mean_confidence" json:"mean_confidence"`
	AcceptanceRate float64 `yaml:"acceptance_rate" json:"acceptance_rate"`
}

// DefaultQualityTargets returns the standard acceptance thresholds.
func DefaultQualityTargets() QualityTargets {
	return QualityTargets{
		ClearRate:      0.90,
		MeanConfidence: 0.70,
		AcceptanceRate: 0.95,
	}
}

// QualityReport grades a finished (or aborted) exam against the targets.
type QualityReport struct {
	Turns          int      `json:"turns"`
	ClearRate      float64  `json:"clear_rate"`
	MeanConfidence float64  `json:"mean_confidence"`
	AcceptanceRate float64  `json:"acceptance_rate"`
	Acceptable     bool     `json:"acceptable"`
	Issues         []string `json:"issues,omitempty"`
}

// SafetySummary condenses the safety ledger for the report.
type SafetySummary struct {
	Fatigued       bool                     `json:"fatigued"`
	DurationTier   DurationTier             `json:"duration_tier"`
	ElapsedSeconds float64                  `json:"elapsed_seconds"`
	RedFlagCount   int                      `json:"red_flag_count"`
	IncidentCounts map[IncidentSeverity]int `json:"incident_counts"`
}

// ExamReport is the read-only session snapshot exposed to the persistence
// and reporting collaborators: final per-eye prescriptions, the full
// adjustment history, and the quality/safety summaries. The engine produces
// it; serialization formats are the collaborator's concern.
type ExamReport struct {
	SessionID        string              `json:"session_id"`
	Status           ExamStatus          `json:"status"`
	FinalStep        StepID              `json:"final_step"`
	OD               LensConfiguration   `json:"od"`
	OS               LensConfiguration   `json:"os"`
	PD               PupillaryDistance   `json:"pd"`
	History          []AdjustmentRecord  `json:"history"`
	Verdicts         map[VerdictKind]int `json:"verdicts"`
	Quality          QualityReport       `json:"quality"`
	Safety           SafetySummary       `json:"safety"`
	EscalationReason EscalationReason    `json:"escalation_reason,omitempty"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
}

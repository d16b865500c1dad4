package domain

import "time"

// TurnSample is one turn's contribution to the safety bookkeeping.
// Accuracy is derived from the verdict; hesitation is the reported pause
// before the patient answered.
type TurnSample struct {
	Accuracy   float64   `json:"accuracy"`
	Confidence float64   `json:"confidence"`
	Hesitation float64   `json:"hesitation"`
	Sentiment  Sentiment `json:"sentiment,omitempty"`
	At         time.Time `json:"at"`
}

// DurationTier classifies cumulative session length against the configured
// breakpoints.
type DurationTier string

const (
	DurationOK         DurationTier = "ok"
	DurationOfferBreak DurationTier = "offer_break"
	DurationWarn       DurationTier = "warn_and_complete"
	DurationHardStop   DurationTier = "hard_stop"
)

// Advisory is a non-binding safety recommendation surfaced on a turn result.
// Advisories never alter the verdict or the step transition by themselves.
type Advisory string

const (
	AdvisoryFatigueBreak          Advisory = "fatigue_break_recommended"
	AdvisoryOfferBreak            Advisory = "offer_break"
	AdvisoryWarnAndComplete       Advisory = "warn_and_complete"
	AdvisoryEscalationRecommended Advisory = "escalation_recommended"
)

// IncidentSeverity grades a recorded safety incident.
type IncidentSeverity string

const (
	SeverityLow      IncidentSeverity = "low"
	SeverityMedium   IncidentSeverity = "medium"
	SeverityHigh     IncidentSeverity = "high"
	SeverityCritical IncidentSeverity = "critical"
)

// IncidentKind names the event class behind an incident.
type IncidentKind string

const (
	IncidentRejectedAdjustment IncidentKind = "rejected_adjustment"
	IncidentPersonaOverride    IncidentKind = "persona_override"
	IncidentFatigue            IncidentKind = "fatigue"
	IncidentDurationWarning    IncidentKind = "duration_warning"
	IncidentDurationHardStop   IncidentKind = "duration_hard_stop"
	IncidentRedFlag            IncidentKind = "red_flag"
)

// SeverityFor maps an incident kind to its fixed severity.
func SeverityFor(kind IncidentKind) IncidentSeverity {
	switch kind {
	case IncidentRedFlag:
		return SeverityCritical
	case IncidentDurationHardStop:
		return SeverityHigh
	case IncidentPersonaOverride, IncidentFatigue, IncidentDurationWarning:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// Incident is one entry in the session's safety ledger.
type Incident struct {
	At       time.Time        `json:"at"`
	Kind     IncidentKind     `json:"kind"`
	Severity IncidentSeverity `json:"severity"`
	Detail   string           `json:"detail,omitempty"`
}

// SafetySnapshot is the session-lifetime safety state: a fixed baseline of
// the earliest turns, a rolling window of the most recent ones, the
// externally supplied session clock, a monotonic red-flag counter, and the
// incident ledger. It is read before any adjustment commits and updated
// after every turn.
type SafetySnapshot struct {
	Baseline       []TurnSample `json:"baseline"`
	Window         []TurnSample `json:"window"`
	ElapsedSeconds float64      `json:"elapsed_seconds"`
	RedFlagCount   int          `json:"red_flag_count"`
	Incidents      []Incident   `json:"incidents"`
}

// Clone returns a deep copy; no slices are shared.
func (s *SafetySnapshot) Clone() SafetySnapshot {
	out := *s
	out.Baseline = make([]TurnSample, len(s.Baseline))
	copy(out.Baseline, s.Baseline)
	out.Window = make([]TurnSample, len(s.Window))
	copy(out.Window, s.Window)
	out.Incidents = make([]Incident, len(s.Incidents))
	copy(out.Incidents, s.Incidents)
	return out
}

// IncidentCounts aggregates the ledger by severity.
func (s *SafetySnapshot) IncidentCounts() map[IncidentSeverity]int {
	counts := make(map[IncidentSeverity]int)
	for _, in := range s.Incidents {
		counts[in.Severity]++
	}
	return counts
}

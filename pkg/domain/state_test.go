package domain

import (
	"testing"
	"time"
)

func TestNewExamState(t *testing.T) {
	s := NewExamState("sess-1", StepID("0.1"))

	if s.Status != StatusActive {
		t.Errorf("expected status active, got %s", s.Status)
	}
	if s.CurrentStep != StepID("0.1") {
		t.Errorf("expected current step 0.1, got %s", s.CurrentStep)
	}
	if s.Phoropter.Occlusion != OcclusionNone {
		t.Errorf("expected both eyes open, got %s", s.Phoropter.Occlusion)
	}
	if s.Phoropter.PD.DistanceMM != 63 || s.Phoropter.PD.NearMM != 60 {
		t.Errorf("unexpected default PD: %+v", s.Phoropter.PD)
	}
	if s.Terminal() {
		t.Error("fresh session must not be terminal")
	}
}

func TestExamState_Clone_Isolation(t *testing.T) {
	s := NewExamState("sess-1", StepID("6.1"))
	s.Phoropter.History = append(s.Phoropter.History, AdjustmentRecord{
		Timestamp: time.Now(),
		Eye:       EyeOD,
		Parameter: ParameterSphere,
		Magnitude: 0.25,
		Result:    0.25,
		Step:      "6.1",
	})
	s.Safety.Window = append(s.Safety.Window, TurnSample{Accuracy: 1.0})
	s.Safety.Incidents = append(s.Safety.Incidents, Incident{Kind: IncidentPersonaOverride, Severity: SeverityMedium})
	s.Verdicts[VerdictClear] = 3

	c := s.Clone()

	// Mutate the clone; the original must be untouched.
	c.Phoropter.OD.Sphere = -5
	c.Phoropter.History[0].Magnitude = 99
	c.Phoropter.History = append(c.Phoropter.History, AdjustmentRecord{})
	c.Safety.Window[0].Accuracy = 0
	c.Safety.Incidents[0].Severity = SeverityCritical
	c.Verdicts[VerdictClear] = 99

	if s.Phoropter.OD.Sphere != 0 {
		t.Error("clone shares lens configuration with original")
	}
	if s.Phoropter.History[0].Magnitude != 0.25 || len(s.Phoropter.History) != 1 {
		t.Error("clone shares adjustment history with original")
	}
	if s.Safety.Window[0].Accuracy != 1.0 {
		t.Error("clone shares safety window with original")
	}
	if s.Safety.Incidents[0].Severity != SeverityMedium {
		t.Error("clone shares incident ledger with original")
	}
	if s.Verdicts[VerdictClear] != 3 {
		t.Error("clone shares verdict counts with original")
	}
}

func TestExamState_Terminal(t *testing.T) {
	tests := []struct {
		name   string
		status ExamStatus
		step   StepID
		want   bool
	}{
		{"active mid-exam", StatusActive, "6.1", false},
		{"finalized but steps remain", StatusFinalized, "7.1", false},
		{"halted", StatusHalted, "6.1", true},
		{"complete step", StatusFinalized, StepComplete, true},
		{"escalation step", StatusHalted, StepEscalate, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewExamState("s", tt.step)
			s.Status = tt.status
			s.CurrentStep = tt.step
			if got := s.Terminal(); got != tt.want {
				t.Errorf("Terminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEye_Other(t *testing.T) {
	if EyeOD.Other() != EyeOS || EyeOS.Other() != EyeOD {
		t.Error("Other() must swap eyes")
	}
}

func TestLensConfiguration_String(t *testing.T) {
	l := LensConfiguration{Sphere: 1.25, Cylinder: -0.5, Axis: 90}
	if got := l.String(); got != "+1.25 -0.50 x090" {
		t.Errorf("unexpected Rx notation: %q", got)
	}
}

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		kind IncidentKind
		want IncidentSeverity
	}{
		{IncidentRedFlag, SeverityCritical},
		{IncidentDurationHardStop, SeverityHigh},
		{IncidentPersonaOverride, SeverityMedium},
		{IncidentFatigue, SeverityMedium},
		{IncidentDurationWarning, SeverityMedium},
		{IncidentRejectedAdjustment, SeverityLow},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.kind); got != tt.want {
			t.Errorf("SeverityFor(%s) = %s, want %s", tt.kind, got, tt.want)
		}
	}
}

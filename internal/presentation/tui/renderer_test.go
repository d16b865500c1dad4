package tui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kharven/refract/pkg/domain"
)

func TestReportMarkdown(t *testing.T) {
	report := &domain.ExamReport{
		SessionID: "exam-1",
		Status:    domain.StatusFinalized,
		FinalStep: domain.StepComplete,
		OD:        domain.LensConfiguration{Sphere: -1.25, Cylinder: -0.5, Axis: 90},
		OS:        domain.LensConfiguration{Sphere: -1.0},
		PD:        domain.PupillaryDistance{DistanceMM: 63, NearMM: 60},
		History: []domain.AdjustmentRecord{
			{Step: "6.1", Eye: domain.EyeOD, Parameter: domain.ParameterSphere, Magnitude: -0.25, Result: -1.25},
		},
		Quality: domain.QualityReport{Turns: 12, ClearRate: 0.95, MeanConfidence: 0.88, AcceptanceRate: 1.0, Acceptable: true},
		Safety:  domain.SafetySummary{ElapsedSeconds: 540},
	}

	md := ReportMarkdown(report)
	assert.Contains(t, md, "# Exam report: exam-1")
	assert.Contains(t, md, "| OD | -1.25 | -0.50 | 090 |")
	assert.Contains(t, md, "PD 63.0 mm distance / 60.0 mm near")
	assert.Contains(t, md, "graded **acceptable**")
	assert.Contains(t, md, "step 6.1: od sphere -0.25 -> -1.25")
	assert.NotContains(t, md, "## Safety", "no incidents should omit the safety section")
}

func TestReportMarkdown_Halted(t *testing.T) {
	report := &domain.ExamReport{
		SessionID:        "exam-2",
		Status:           domain.StatusHalted,
		FinalStep:        domain.StepEscalate,
		EscalationReason: domain.EscalationRedFlag,
		Safety: domain.SafetySummary{
			RedFlagCount:   1,
			IncidentCounts: map[domain.IncidentSeverity]int{domain.SeverityCritical: 1},
		},
	}

	md := ReportMarkdown(report)
	assert.Contains(t, md, "**Escalation**: red_flag")
	assert.Contains(t, md, "red flags reported: 1")
	assert.Contains(t, md, "critical incidents: 1")
}

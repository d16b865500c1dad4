package tui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/kharven/refract/pkg/domain"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, _ := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
	)

	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// ReportMarkdown lays out an exam report as a markdown document suitable for
// the glamour renderer or for plain terminal output.
func ReportMarkdown(report *domain.ExamReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Exam report: %s\n\n", report.SessionID)
	fmt.Fprintf(&b, "- **Status**: %s\n", report.Status)
	fmt.Fprintf(&b, "- **Final step**: %s\n", report.FinalStep)
	if report.EscalationReason != "" {
		fmt.Fprintf(&b, "- **Escalation**: %s\n", report.EscalationReason)
	}
	fmt.Fprintf(&b, "- **Duration**: %.0fs over %d turns\n\n",
		report.Safety.ElapsedSeconds, report.Quality.Turns)

	b.WriteString("## Prescription\n\n")
	b.WriteString("| Eye | Sphere | Cylinder | Axis |\n")
	b.WriteString("|-----|--------|----------|------|\n")
	fmt.Fprintf(&b, "| OD | %+.2f | %+.2f | %03d |\n",
		report.OD.Sphere, report.OD.Cylinder, report.OD.Axis)
	fmt.Fprintf(&b, "| OS | %+.2f | %+.2f | %03d |\n\n",
		report.OS.Sphere, report.OS.Cylinder, report.OS.Axis)
	if report.PD.DistanceMM > 0 {
		fmt.Fprintf(&b, "PD %.1f mm distance / %.1f mm near\n\n",
			report.PD.DistanceMM, report.PD.NearMM)
	}

	b.WriteString("## Quality\n\n")
	grade := "acceptable"
	if !report.Quality.Acceptable {
		grade = "below target"
	}
	fmt.Fprintf(&b, "Responses graded **%s**: %.0f%% clear, mean confidence %.2f, %.0f%% of adjustments accepted.\n",
		grade,
		report.Quality.ClearRate*100,
		report.Quality.MeanConfidence,
		report.Quality.AcceptanceRate*100)
	for _, issue := range report.Quality.Issues {
		fmt.Fprintf(&b, "- %s\n", issue)
	}
	b.WriteString("\n")

	if n := len(report.Safety.IncidentCounts); n > 0 || report.Safety.RedFlagCount > 0 {
		b.WriteString("## Safety\n\n")
		if report.Safety.RedFlagCount > 0 {
			fmt.Fprintf(&b, "- red flags reported: %d\n", report.Safety.RedFlagCount)
		}
		for _, sev := range sortedSeverities(report.Safety.IncidentCounts) {
			fmt.Fprintf(&b, "- %s incidents: %d\n", sev, report.Safety.IncidentCounts[sev])
		}
		b.WriteString("\n")
	}

	if len(report.History) > 0 {
		b.WriteString("## Adjustment history\n\n")
		for _, rec := range report.History {
			fmt.Fprintf(&b, "- step %s: %s %s %+.2f -> %+.2f\n",
				rec.Step, rec.Eye, rec.Parameter, rec.Magnitude, rec.Result)
		}
	}

	return b.String()
}

func sortedSeverities(counts map[domain.IncidentSeverity]int) []domain.IncidentSeverity {
	out := make([]domain.IncidentSeverity, 0, len(counts))
	for sev := range counts {
		out = append(out, sev)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

package graph

import (
	"fmt"
	"strings"

	"github.com/kharven/refract/pkg/domain"
)

// Overlay contains session state to visualize on top of the protocol graph.
type Overlay struct {
	VisitedSteps []domain.StepID
	CurrentStep  domain.StepID
}

// GenerateMermaid produces a Mermaid flowchart for a protocol by walking the
// successor chain from the start step. Semantic styling:
//   - Start step: ((Circle))
//   - Device steps (lens pair, cross cylinder, balance): [[Subroutine]]
//   - Conversational steps: [/Parallelogram/]
//   - Terminal steps: ((Circle))
//
// Device steps are annotated with the eye they act on. Overlay styles
// (Visited/Current) are applied if provided.
func GenerateMermaid(proto *domain.Protocol, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	seen := make(map[domain.StepID]bool)
	cur := proto.Start
	for !cur.IsTerminal() {
		step, ok := proto.Step(cur)
		if !ok || seen[cur] {
			break
		}
		seen[cur] = true

		safeID := sanitizeMermaidID(string(step.ID))
		opener, closer := "[/", "/]"
		switch {
		case step.ID == proto.Start:
			opener, closer = "((", "))"
		case step.Action == domain.StepActionLensPair,
			step.Action == domain.StepActionJCC,
			step.Action == domain.StepActionBalance:
			opener, closer = "[[", "]]"
		}

		label := fmt.Sprintf("%s %s", step.ID, escapeMermaidLabel(step.Name))
		if step.Eye.IsValid() {
			label = fmt.Sprintf("%s <br/> 👁 %s", label, step.Eye)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		safeTo := sanitizeMermaidID(string(step.Successor))
		sb.WriteString(fmt.Sprintf("    %s --> %s\n", safeID, safeTo))

		cur = step.Successor
	}

	// Terminal node the chain ends in.
	if cur.IsTerminal() {
		sb.WriteString(fmt.Sprintf("    %s((\"%s\"))\n", sanitizeMermaidID(string(cur)), cur))
	}

	if overlay != nil {
		sb.WriteString("\n    %% session overlay\n")
		// Black text keeps labels legible on both light and dark themes.
		sb.WriteString("    classDef visited fill:#d7f0dc,stroke:#1b5e20,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffe0b2,stroke:#e65100,stroke-width:4px,color:#000;\n")

		visitedSet := make(map[string]bool)
		for _, id := range overlay.VisitedSteps {
			safeID := sanitizeMermaidID(string(id))
			if !visitedSet[safeID] && safeID != "" {
				visitedSet[safeID] = true
				sb.WriteString(fmt.Sprintf("    class %s visited;\n", safeID))
			}
		}

		if overlay.CurrentStep != "" {
			safeCurrent := sanitizeMermaidID(string(overlay.CurrentStep))
			sb.WriteString(fmt.Sprintf("    class %s current;\n", safeCurrent))
		}
	}

	return sb.String()
}

func escapeMermaidLabel(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

// idSanitizer rewrites characters Mermaid treats as syntax into underscores.
var idSanitizer = strings.NewReplacer(".", "_", "-", "_", "/", "_", "\\", "_")

func sanitizeMermaidID(id string) string {
	return idSanitizer.Replace(id)
}

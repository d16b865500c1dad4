package engine

import "github.com/kharven/refract/pkg/domain"

// nextStep computes the protocol transition for one turn. A red flag wins
// over everything and jumps to the escalation terminal; anything short of a
// clear verdict repeats the current step; a clear verdict follows the static
// successor table.
func nextStep(p *domain.Protocol, current domain.StepID, verdict domain.VerdictKind, redFlag bool) domain.StepID {
	if redFlag {
		return domain.StepEscalate
	}
	if verdict != domain.VerdictClear {
		return current
	}
	step, ok := p.Step(current)
	if !ok {
		// Unknown steps cannot exist behind a validated table; repeating is
		// the safe answer if one ever appears.
		return current
	}
	return step.Successor
}

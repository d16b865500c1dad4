package protocol

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kharven/refract/pkg/domain"
)

// Validate checks the structural invariants of a step table: a known start,
// well-formed steps, exactly one existing successor per non-terminal step,
// full reachability from the start, and no cycles. All violations found are
// reported together in one *domain.ConfigurationError.
func Validate(p *domain.Protocol) error {
	var faults []string

	if p.Start == "" {
		faults = append(faults, "no start step declared")
	} else if _, ok := p.Steps[p.Start]; !ok {
		faults = append(faults, fmt.Sprintf("start step %q is not in the table", p.Start))
	}

	// Deterministic order for error output.
	ids := make([]domain.StepID, 0, len(p.Steps))
	for id := range p.Steps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		faults = append(faults, stepFaults(p, p.Steps[id])...)
	}

	faults = append(faults, cycleFaults(p)...)
	faults = append(faults, reachabilityFaults(p)...)

	if len(faults) > 0 {
		return &domain.ConfigurationError{
			Detail: fmt.Sprintf("protocol has %d fault(s):\n- %s", len(faults), strings.Join(faults, "\n- ")),
		}
	}
	return nil
}

func stepFaults(p *domain.Protocol, step *domain.ProtocolStep) []string {
	var faults []string

	if step.ID == "" {
		faults = append(faults, "step with empty id")
		return faults
	}
	if step.ID.IsTerminal() {
		faults = append(faults, fmt.Sprintf("step %q shadows a reserved terminal id", step.ID))
		return faults
	}
	if step.QuestionKey == "" {
		faults = append(faults, fmt.Sprintf("step %q has no question key", step.ID))
	}
	if !step.Action.IsValid() {
		faults = append(faults, fmt.Sprintf("step %q has unknown action %q", step.ID, step.Action))
	}

	switch step.Action {
	case domain.StepActionLensPair, domain.StepActionJCC:
		if !step.Eye.IsValid() {
			faults = append(faults, fmt.Sprintf("step %q action %s needs a valid eye", step.ID, step.Action))
		}
	case domain.StepActionBalance, domain.StepActionNone:
		if step.Eye != "" {
			faults = append(faults, fmt.Sprintf("step %q action %s must not name an eye", step.ID, step.Action))
		}
	}

	for _, slot := range step.RequiredSlots {
		if slot.Key == "" {
			faults = append(faults, fmt.Sprintf("step %q has a required slot with an empty key", step.ID))
		}
		if len(slot.Allowed) == 0 {
			faults = append(faults, fmt.Sprintf("step %q slot %q has an empty vocabulary", step.ID, slot.Key))
		}
	}

	// Exactly one successor, and it must exist (or be a reserved terminal).
	if step.Successor == "" {
		faults = append(faults, fmt.Sprintf("step %q has no successor", step.ID))
	} else if !step.Successor.IsTerminal() {
		if _, ok := p.Steps[step.Successor]; !ok {
			faults = append(faults, fmt.Sprintf("step %q names missing successor %q", step.ID, step.Successor))
		}
	}

	return faults
}

// cycleFaults walks the successor chain from every step. Out-degree is at
// most one, so a cycle shows up as revisiting a step within a single walk.
func cycleFaults(p *domain.Protocol) []string {
	var faults []string

	ids := make([]domain.StepID, 0, len(p.Steps))
	for id := range p.Steps {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	reported := make(map[domain.StepID]bool)
	for _, id := range ids {
		seen := make(map[domain.StepID]bool)
		cur := id
		for {
			if cur.IsTerminal() {
				break
			}
			step, ok := p.Steps[cur]
			if !ok {
				break // missing successor already reported
			}
			if seen[cur] {
				if !reported[cur] {
					reported[cur] = true
					faults = append(faults, fmt.Sprintf("cycle through step %q", cur))
				}
				break
			}
			seen[cur] = true
			cur = step.Successor
		}
	}
	return faults
}

func reachabilityFaults(p *domain.Protocol) []string {
	if _, ok := p.Steps[p.Start]; !ok {
		return nil // start fault already reported
	}

	visited := make(map[domain.StepID]bool)
	cur := p.Start
	for {
		if cur.IsTerminal() || visited[cur] {
			break
		}
		step, ok := p.Steps[cur]
		if !ok {
			break
		}
		visited[cur] = true
		cur = step.Successor
	}

	var unreachable []string
	for id := range p.Steps {
		if !visited[id] {
			unreachable = append(unreachable, string(id))
		}
	}
	sort.Strings(unreachable)

	var faults []string
	for _, id := range unreachable {
		faults = append(faults, fmt.Sprintf("step %q is unreachable from start", id))
	}
	return faults
}

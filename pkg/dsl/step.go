package dsl

import "github.com/kharven/refract/pkg/domain"

// StepBuilder provides a fluent API for configuring a protocol step.
type StepBuilder struct {
	step    domain.ProtocolStep
	builder *Builder
}

// Name sets the display name of the step.
func (s *StepBuilder) Name(name string) *StepBuilder {
	s.step.Name = name
	return s
}

// Ask sets the narration question key. Every step needs one; steps that
// never call a device verb stay conversational.
func (s *StepBuilder) Ask(key string) *StepBuilder {
	s.step.QuestionKey = key
	return s
}

// LensPair marks the step as a two-lens comparison on the given eye.
func (s *StepBuilder) LensPair(eye domain.Eye) *StepBuilder {
	s.step.Action = domain.StepActionLensPair
	s.step.Eye = eye
	return s
}

// JCC marks the step as a cross-cylinder refinement on the given eye.
func (s *StepBuilder) JCC(eye domain.Eye) *StepBuilder {
	s.step.Action = domain.StepActionJCC
	s.step.Eye = eye
	return s
}

// Balance marks the step as the binocular balance check. Both eyes stay
// open, so no eye is named.
func (s *StepBuilder) Balance() *StepBuilder {
	s.step.Action = domain.StepActionBalance
	s.step.Eye = ""
	return s
}

// Slot requires a structured answer slot, with its closed vocabulary,
// before a clear verdict may stand on this step.
func (s *StepBuilder) Slot(key string, allowed ...string) *StepBuilder {
	s.step.RequiredSlots = append(s.step.RequiredSlots, domain.SlotSpec{
		Key:     key,
		Allowed: allowed,
	})
	return s
}

// Options lists the expected patient answers the classifier listens for.
func (s *StepBuilder) Options(options ...string) *StepBuilder {
	s.step.Options = append(s.step.Options, options...)
	return s
}

// Go sets the successor step.
func (s *StepBuilder) Go(target string) *StepBuilder {
	s.step.Successor = domain.StepID(target)
	return s
}

// Then sets the successor and moves on to building it, creating the step
// if it does not exist yet.
func (s *StepBuilder) Then(target string) *StepBuilder {
	s.step.Successor = domain.StepID(target)
	return s.builder.Add(target)
}

// End routes the step to the ordinary completion terminal.
func (s *StepBuilder) End() *StepBuilder {
	s.step.Successor = domain.StepComplete
	return s
}

// Build returns the underlying domain.ProtocolStep.
// This is primarily used by the Builder, but exposed for advanced usage.
func (s *StepBuilder) Build() domain.ProtocolStep {
	return s.step
}

package dsl

import (
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/protocol"
)

// Builder manages the step table construction.
type Builder struct {
	start domain.StepID
	steps map[domain.StepID]*StepBuilder
}

// New creates a new protocol builder.
func New() *Builder {
	return &Builder{
		steps: make(map[domain.StepID]*StepBuilder),
	}
}

// Start declares the entry step. The first step added is the default.
func (b *Builder) Start(id string) *Builder {
	b.start = domain.StepID(id)
	return b
}

// Add creates a new step in the table.
// If the step already exists, it returns the existing builder.
func (b *Builder) Add(id string) *StepBuilder {
	sid := domain.StepID(id)
	if sb, ok := b.steps[sid]; ok {
		return sb
	}
	sb := &StepBuilder{
		step: domain.ProtocolStep{
			ID:     sid,
			Action: domain.StepActionNone,
		},
		builder: b,
	}
	if b.start == "" {
		b.start = sid
	}
	b.steps[sid] = sb
	return sb
}

// Build compiles the table into a validated protocol.
func (b *Builder) Build() (*domain.Protocol, error) {
	p := &domain.Protocol{
		Start: b.start,
		Steps: make(map[domain.StepID]*domain.ProtocolStep, len(b.steps)),
	}
	for id, sb := range b.steps {
		step := sb.step
		p.Steps[id] = &step
	}

	if err := protocol.Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

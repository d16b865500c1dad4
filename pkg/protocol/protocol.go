package protocol

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/kharven/refract/pkg/domain"
)

//go:embed default.yaml
var defaultTable []byte

// document is the raw YAML shape. Steps stay generic here and are decoded
// into typed specs with mapstructure, so unknown keys can be reported by
// name instead of being silently dropped.
type document struct {
	Start string           `yaml:"start"`
	Steps []map[string]any `yaml:"steps"`
}

type stepSpec struct {
	ID            string     `mapstructure:"id"`
	Name          string     `mapstructure:"name"`
	Successor     string     `mapstructure:"successor"`
	QuestionKey   string     `mapstructure:"question_key"`
	Action        string     `mapstructure:"action"`
	Eye           string     `mapstructure:"eye"`
	RequiredSlots []slotSpec `mapstructure:"required_slots"`
	Options       []string   `mapstructure:"options"`
}

type slotSpec struct {
	Key     string   `mapstructure:"key"`
	Allowed []string `mapstructure:"allowed"`
}

// Parse decodes a YAML step table and validates its graph. The returned
// protocol is ready for the engine; any structural fault is a
// *domain.ConfigurationError.
func Parse(data []byte) (*domain.Protocol, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &domain.ConfigurationError{Detail: fmt.Sprintf("protocol yaml: %v", err)}
	}

	p := &domain.Protocol{
		Start: domain.StepID(doc.Start),
		Steps: make(map[domain.StepID]*domain.ProtocolStep, len(doc.Steps)),
	}

	for i, raw := range doc.Steps {
		var spec stepSpec
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			Result:      &spec,
			ErrorUnused: true,
		})
		if err != nil {
			return nil, fmt.Errorf("building step decoder: %w", err)
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, &domain.ConfigurationError{Detail: fmt.Sprintf("step %d: %v", i, err)}
		}

		step := specToStep(spec)
		if _, dup := p.Steps[step.ID]; dup {
			return nil, &domain.ConfigurationError{Detail: fmt.Sprintf("duplicate step id %q", step.ID)}
		}
		p.Steps[step.ID] = step
	}

	if err := Validate(p); err != nil {
		return nil, err
	}
	return p, nil
}

// Load reads and parses a step table from disk.
func Load(path string) (*domain.Protocol, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading protocol file: %w", err)
	}
	return Parse(data)
}

// Default returns the embedded full-exam table.
func Default() (*domain.Protocol, error) {
	return Parse(defaultTable)
}

func specToStep(spec stepSpec) *domain.ProtocolStep {
	action := domain.StepAction(spec.Action)
	if spec.Action == "" {
		action = domain.StepActionNone
	}

	step := &domain.ProtocolStep{
		ID:          domain.StepID(spec.ID),
		Name:        spec.Name,
		Successor:   domain.StepID(spec.Successor),
		QuestionKey: spec.QuestionKey,
		Action:      action,
		Eye:         domain.Eye(spec.Eye),
		Options:     spec.Options,
	}
	for _, s := range spec.RequiredSlots {
		step.RequiredSlots = append(step.RequiredSlots, domain.SlotSpec{
			Key:     s.Key,
			Allowed: s.Allowed,
		})
	}
	return step
}

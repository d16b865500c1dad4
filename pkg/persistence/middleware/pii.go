package middleware

import (
	"context"
	"regexp"

	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/ports"
)

// Default patterns scrub contact details a patient might volunteer mid-exam,
// which adapters can end up threading into incident details.
var defaultPIIPatterns = []string{
	`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`, // email
	`\+?\d[\d\s\-()]{7,}\d`,                            // phone
}

type piiMiddleware struct {
	next     ports.StateStore
	patterns []*regexp.Regexp
}

// NewPIIMiddleware creates a middleware that masks pattern matches in the
// free-text fields of persisted states (the incident ledger details). With
// no patterns given, the defaults cover emails and phone numbers. Patterns
// must be valid regular expressions; invalid ones panic at construction.
func NewPIIMiddleware(patternStrings ...string) Middleware {
	if len(patternStrings) == 0 {
		patternStrings = defaultPIIPatterns
	}
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return func(next ports.StateStore) ports.StateStore {
		return &piiMiddleware{next: next, patterns: patterns}
	}
}

func (m *piiMiddleware) Save(ctx context.Context, sessionID string, state *domain.ExamState) error {
	// Clone so the in-memory state used by the engine keeps the original
	// text; only the persisted copy is masked.
	cloned := state.Clone()
	for i := range cloned.Safety.Incidents {
		cloned.Safety.Incidents[i].Detail = m.mask(cloned.Safety.Incidents[i].Detail)
	}
	return m.next.Save(ctx, sessionID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	return m.next.Load(ctx, sessionID)
}

func (m *piiMiddleware) Delete(ctx context.Context, sessionID string) error {
	return m.next.Delete(ctx, sessionID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) mask(text string) string {
	for _, p := range m.patterns {
		text = p.ReplaceAllString(text, "***")
	}
	return text
}

package ports

import (
	"context"

	"github.com/kharven/refract/pkg/domain"
)

// StateStore defines the interface for persisting exam session state.
// This allows a session to outlive a process, enabling "Stop & Resume"
// exams and horizontally scaled servers.
//
// Implementations must not share memory with callers: Save copies the
// state in, Load copies it out. A caller mutating a loaded state must not
// affect the stored copy until it saves again.
type StateStore interface {
	// Save writes the full state under the session ID, replacing any
	// previous version.
	Save(ctx context.Context, sessionID string, state *domain.ExamState) error

	// Load returns the stored state, or domain.ErrSessionNotFound.
	Load(ctx context.Context, sessionID string) (*domain.ExamState, error)

	// Delete forgets the session. Unknown IDs are not an error.
	Delete(ctx context.Context, sessionID string) error

	// List returns the IDs of all stored sessions.
	List(ctx context.Context) ([]string, error)
}

package memory

import (
	"context"
	"sync"

	"github.com/kharven/refract/pkg/domain"
)

// Store keeps exam state in process memory. It is the default backend for
// single-process runs and for tests; everything is gone on restart.
type Store struct {
	data map[string]*domain.ExamState
	mu   sync.RWMutex
}

// NewStore returns an empty in-memory store, safe for concurrent use.
func NewStore() *Store {
	return &Store{
		data: make(map[string]*domain.ExamState),
	}
}

// Save stores a clone of the state under the session ID.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.ExamState) error {
	// Clone on the way in so the caller and the store never share a
	// mutable pointer. A file or redis backend gets this from encoding.
	copied := state.Clone()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[sessionID] = copied
	return nil
}

// Load returns a clone of the stored state.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state.Clone(), nil
}

// Delete forgets the session. Deleting an unknown ID is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, sessionID)
	return nil
}

// List returns the stored session IDs in no particular order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sessions := make([]string, 0, len(s.data))
	for id := range s.data {
		sessions = append(sessions, id)
	}
	return sessions, nil
}

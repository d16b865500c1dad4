package middleware_test

import (
	"context"

	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/ports"
)

// mapStore is the terminal store the middleware chains wrap in tests. It
// keeps values as handed over, so assertions can inspect exactly what a
// middleware wrote through.
type mapStore struct {
	data map[string]*domain.ExamState
}

var _ ports.StateStore = (*mapStore)(nil)

func newMapStore() *mapStore {
	return &mapStore{data: make(map[string]*domain.ExamState)}
}

func (s *mapStore) Save(ctx context.Context, sessionID string, state *domain.ExamState) error {
	s.data[sessionID] = state
	return nil
}

func (s *mapStore) Load(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	state, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return state, nil
}

func (s *mapStore) Delete(ctx context.Context, sessionID string) error {
	delete(s.data, sessionID)
	return nil
}

func (s *mapStore) List(ctx context.Context) ([]string, error) {
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	return ids, nil
}

package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/kharven/refract/pkg/domain"
)

// Store persists exam sessions as one JSON document per session under
// BasePath. It implements ports.StateStore for single-host deployments
// where sessions must survive a process restart.
type Store struct {
	BasePath string
}

// New returns a store rooted at basePath, or at ".refract/sessions" when
// basePath is empty.
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".refract", "sessions")
	}
	return &Store{BasePath: basePath}
}

func (s *Store) path(sessionID string) string {
	return filepath.Join(s.BasePath, sessionID+".json")
}

// Save writes the state through a temp file in the same directory, fsyncs,
// and renames into place. A crash mid-save leaves the previous file intact.
func (s *Store) Save(ctx context.Context, sessionID string, state *domain.ExamState) error {
	if sessionID == "" {
		return fmt.Errorf("empty session id")
	}
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("create session directory: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	// Same directory keeps the rename on one filesystem.
	tmp, err := os.CreateTemp(s.BasePath, "tmp-"+sessionID+"-*.json")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	// Windows cannot rename an open file.
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Windows also refuses to rename over an existing file, so the
	// destination goes first.
	dest := s.path(sessionID)
	if _, err := os.Stat(dest); err == nil {
		if err := os.Remove(dest); err != nil {
			return fmt.Errorf("replace session file: %w", err)
		}
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("commit session file: %w", err)
	}
	return nil
}

// Load reads and decodes one session document.
func (s *Store) Load(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("empty session id")
	}

	data, err := os.ReadFile(s.path(sessionID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("read session file: %w", err)
	}

	var state domain.ExamState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	// The engine increments into Verdicts without a nil check.
	if state.Verdicts == nil {
		state.Verdicts = make(map[domain.VerdictKind]int)
	}
	return &state, nil
}

// Delete removes the session document. Unknown sessions are not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("empty session id")
	}
	if err := os.Remove(s.path(sessionID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete session file: %w", err)
	}
	return nil
}

// List returns the session IDs with a document on disk. A missing base
// directory reads as no sessions.
func (s *Store) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var sessions []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".json" {
			continue
		}
		sessions = append(sessions, name[:len(name)-len(".json")])
	}
	return sessions, nil
}

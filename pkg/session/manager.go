package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/kharven/refract/internal/logging"
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/ports"
)

// defaultLockTTL bounds how long a crashed replica can hold a distributed
// lock before it expires.
const defaultLockTTL = 30 * time.Second

// lockEntry pairs a session mutex with the count of goroutines holding or
// waiting on it.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// Manager mediates all store access for a session behind a per-session lock.
// A turn is a read-modify-write of the full exam state, so every store call
// runs under that lock. Unused locks are garbage collected by reference
// counting.
type Manager struct {
	store ports.StateStore

	mu    sync.Mutex // guards locks
	locks map[string]*lockEntry

	locker  ports.DistributedLocker // nil outside multi-replica setups
	lockTTL time.Duration
	logger  *slog.Logger
}

// Option customizes a Manager at construction.
type Option func(*Manager)

// WithLocker enables distributed locking, serializing turns for one session
// across replicas that share a store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(m *Manager) {
		m.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry. Ignored without a locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// WithLogger routes lock-release warnings to the given logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager creates a session Manager over the given persistence store.
func NewManager(store ports.StateStore, opts ...Option) *Manager {
	m := &Manager{
		store:   store,
		locks:   make(map[string]*lockEntry),
		lockTTL: defaultLockTTL,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// acquire fetches or creates the session's lock entry and bumps its count.
// Callers must Lock entry.mu themselves and pair with release(sessionID)
// after unlocking.
func (m *Manager) acquire(sessionID string) *lockEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		entry = &lockEntry{}
		m.locks[sessionID] = entry
	}
	entry.refs++
	return entry
}

// release undoes one acquire, dropping the entry once nobody holds it.
func (m *Manager) release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.locks[sessionID]
	if !exists {
		return // unmatched release
	}

	entry.refs--
	if entry.refs <= 0 {
		delete(m.locks, sessionID)
	}
}

// Load fetches an existing session under its lock.
func (m *Manager) Load(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	var state *domain.ExamState
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		return err
	})
	return state, err
}

// LoadOrStart tries to load a session. If not found, it creates one with the
// start callback (typically the engine's NewSession) and persists it
// immediately to reserve the ID. Creation is atomic per session ID.
func (m *Manager) LoadOrStart(ctx context.Context, sessionID string, start func(sessionID string) *domain.ExamState) (*domain.ExamState, error) {
	var state *domain.ExamState
	err := m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		var err error
		state, err = m.store.Load(ctx, sessionID)
		if err == nil {
			return nil
		}

		if err != domain.ErrSessionNotFound {
			return fmt.Errorf("check session existence: %w", err)
		}

		state = start(sessionID)
		if err := m.store.Save(ctx, sessionID, state); err != nil {
			return fmt.Errorf("initialize session: %w", err)
		}
		return nil
	})
	return state, err
}

// Save writes the session state under its lock.
func (m *Manager) Save(ctx context.Context, sessionID string, state *domain.ExamState) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Save(ctx, sessionID, state)
	})
}

// Delete removes the session under its lock.
func (m *Manager) Delete(ctx context.Context, sessionID string) error {
	return m.WithLock(ctx, sessionID, func(ctx context.Context) error {
		return m.store.Delete(ctx, sessionID)
	})
}

// List passes straight through; listing does not touch any one session.
func (m *Manager) List(ctx context.Context) ([]string, error) {
	return m.store.List(ctx)
}

// Store returns the wrapped store, for use inside WithLock callbacks.
func (m *Manager) Store() ports.StateStore {
	return m.store
}

// WithLock executes a function while holding the lock for the session. Use it
// to make a load-turn-save sequence atomic against concurrent submissions for
// the same session.
func (m *Manager) WithLock(ctx context.Context, sessionID string, fn func(context.Context) error) error {
	entry := m.acquire(sessionID)
	entry.mu.Lock()
	defer func() {
		entry.mu.Unlock()
		m.release(sessionID)
	}()

	// The local mutex is held first so one process never contends with
	// itself over the distributed lock.
	if m.locker != nil {
		unlock, err := m.locker.Lock(ctx, sessionID, m.lockTTL)
		if err != nil {
			return fmt.Errorf("acquire distributed lock: %w", err)
		}
		defer func() {
			if err := unlock(ctx); err != nil {
				m.logger.Warn("distributed lock not released, TTL will expire it",
					"session_id", sessionID,
					"err", err,
				)
			}
		}()
	}

	return fn(ctx)
}

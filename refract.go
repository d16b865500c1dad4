package refract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/kharven/refract/internal/engine"
	"github.com/kharven/refract/internal/logging"
	"github.com/kharven/refract/pkg/adapters/memory"
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/ports"
	"github.com/kharven/refract/pkg/protocol"
	"github.com/kharven/refract/pkg/session"
)

// Engine is the high-level entry point for the refract library. It wraps the
// internal decision engine together with a session manager, so callers get
// both the pure turn API (state in, state out) and a persistent,
// concurrency-safe session API suitable for servers.
type Engine struct {
	core    *engine.Engine
	manager *session.Manager

	cfg     domain.Config
	proto   *domain.Protocol
	store   ports.StateStore
	locker  ports.DistributedLocker
	lockTTL time.Duration
	hooks   domain.LifecycleHooks
	logger  *slog.Logger
	clock   func() time.Time
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithConfig overrides the default safety envelope and thresholds.
func WithConfig(cfg domain.Config) Option {
	return func(e *Engine) {
		e.cfg = cfg
	}
}

// WithProtocol injects a custom step table, bypassing the embedded default.
// The table is validated during New.
func WithProtocol(p *domain.Protocol) Option {
	return func(e *Engine) {
		e.proto = p
	}
}

// WithStore injects a session store. Defaults to an in-memory store.
func WithStore(store ports.StateStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker enables distributed locking for multi-replica deployments
// sharing one store.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets the distributed lock expiry. Ignored without a locker.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithClock overrides the time source. Intended for tests that need
// deterministic durations.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// New initializes a refract Engine. With no options it runs the embedded
// default protocol with the default configuration and an in-memory store.
func New(opts ...Option) (*Engine, error) {
	eng := &Engine{}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}

	if eng.proto == nil {
		p, err := protocol.Default()
		if err != nil {
			return nil, fmt.Errorf("failed to load default protocol: %w", err)
		}
		eng.proto = p
	}

	if (eng.cfg == domain.Config{}) {
		eng.cfg = domain.DefaultConfig()
	}

	coreOpts := []engine.Option{
		engine.WithHooks(eng.hooks),
		engine.WithLogger(eng.logger),
	}
	if eng.clock != nil {
		coreOpts = append(coreOpts, engine.WithClock(eng.clock))
	}

	core, err := engine.New(eng.cfg, eng.proto, coreOpts...)
	if err != nil {
		return nil, err
	}
	eng.core = core

	if eng.store == nil {
		eng.store = memory.NewStore()
	}

	managerOpts := []session.Option{
		session.WithLogger(eng.logger),
	}
	if eng.locker != nil {
		managerOpts = append(managerOpts, session.WithLocker(eng.locker))
		if eng.lockTTL > 0 {
			managerOpts = append(managerOpts, session.WithLockTTL(eng.lockTTL))
		}
	}
	eng.manager = session.NewManager(eng.store, managerOpts...)

	return eng, nil
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() domain.Config { return e.core.Config() }

// Protocol returns the validated step table the engine runs.
func (e *Engine) Protocol() *domain.Protocol { return e.core.Protocol() }

// Manager exposes the session manager for hosts that need lower-level
// control, such as custom lock scopes.
func (e *Engine) Manager() *session.Manager { return e.manager }

// --- Pure API (caller owns the state) ---

// NewSession creates a fresh exam state positioned at the protocol start.
// The state is not persisted; use Begin for managed sessions.
func (e *Engine) NewSession(sessionID string) *domain.ExamState {
	return e.core.NewSession(sessionID)
}

// Turn consumes one classified patient response and returns the successor
// state plus the turn outcome. The input state is never mutated.
func (e *Engine) Turn(ctx context.Context, state *domain.ExamState, resp *domain.ClassifiedResponse) (*domain.ExamState, *domain.TurnResult, error) {
	return e.core.Turn(ctx, state, resp)
}

// Escalate halts the given state, such as on an external abort. Idempotent.
func (e *Engine) Escalate(ctx context.Context, state *domain.ExamState, reason domain.EscalationReason) (*domain.ExamState, *domain.Escalation, error) {
	return e.core.Escalate(ctx, state, reason)
}

// Prompt returns the presentation command for the state's current step
// without consuming a turn.
func (e *Engine) Prompt(state *domain.ExamState) (domain.DeviceCommand, error) {
	return e.core.Prompt(state)
}

// Snapshot produces the read-only exam report for a state.
func (e *Engine) Snapshot(state *domain.ExamState) *domain.ExamReport {
	return e.core.Snapshot(state)
}

// --- Managed API (engine owns persistence and locking) ---

// Begin loads the session if it exists or starts a new one, and returns the
// state along with the presentation command for its current step. An empty
// sessionID generates a fresh UUID.
func (e *Engine) Begin(ctx context.Context, sessionID string) (*domain.ExamState, domain.DeviceCommand, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	state, err := e.manager.LoadOrStart(ctx, sessionID, e.core.NewSession)
	if err != nil {
		return nil, domain.DeviceCommand{}, err
	}

	cmd, err := e.core.Prompt(state)
	if err != nil {
		return nil, domain.DeviceCommand{}, err
	}
	return state, cmd, nil
}

// Submit runs one turn against a managed session. The load-turn-save
// sequence holds the session lock, so concurrent submissions for the same
// session serialize instead of racing.
func (e *Engine) Submit(ctx context.Context, sessionID string, resp *domain.ClassifiedResponse) (*domain.TurnResult, error) {
	var result *domain.TurnResult
	err := e.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := e.manager.Store().Load(ctx, sessionID)
		if err != nil {
			return err
		}

		next, res, err := e.core.Turn(ctx, state, resp)
		if err != nil {
			return err
		}

		if err := e.manager.Store().Save(ctx, sessionID, next); err != nil {
			return fmt.Errorf("failed to persist turn: %w", err)
		}
		result = res
		return nil
	})
	return result, err
}

// Halt escalates a managed session, typically with EscalationExternal when
// the operator interrupts the exam. Idempotent like Escalate.
func (e *Engine) Halt(ctx context.Context, sessionID string, reason domain.EscalationReason) (*domain.Escalation, error) {
	var esc *domain.Escalation
	err := e.manager.WithLock(ctx, sessionID, func(ctx context.Context) error {
		state, err := e.manager.Store().Load(ctx, sessionID)
		if err != nil {
			return err
		}

		next, escalation, err := e.core.Escalate(ctx, state, reason)
		if err != nil {
			return err
		}

		if err := e.manager.Store().Save(ctx, sessionID, next); err != nil {
			return fmt.Errorf("failed to persist escalation: %w", err)
		}
		esc = escalation
		return nil
	})
	return esc, err
}

// State returns a copy of a managed session's current state.
func (e *Engine) State(ctx context.Context, sessionID string) (*domain.ExamState, error) {
	return e.manager.Load(ctx, sessionID)
}

// Report produces the exam report for a managed session.
func (e *Engine) Report(ctx context.Context, sessionID string) (*domain.ExamReport, error) {
	state, err := e.manager.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return e.core.Snapshot(state), nil
}

// End deletes a managed session from the store.
func (e *Engine) End(ctx context.Context, sessionID string) error {
	return e.manager.Delete(ctx, sessionID)
}

// Sessions lists the IDs of all stored sessions.
func (e *Engine) Sessions(ctx context.Context) ([]string, error) {
	return e.manager.List(ctx)
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/kharven/refract"
	"github.com/kharven/refract/pkg/domain"
)

// Runner drives one exam session over an IOHandler. It owns the session
// clock (elapsed and hesitation seconds), translates OS signals into an
// external-abort escalation, and leaves persistence to the engine's managed
// session API. The IOHandler strategy abstracts the interaction mode
// (Text vs JSON), which keeps the loop testable with scripted readers.
type Runner struct {
	// Handler is the strategy for IO. If nil, a TextHandler over
	// Input/Output is constructed on first use.
	Handler IOHandler

	// Logger is used for internal debug logging. If nil, a no-op logger
	// is used.
	Logger *slog.Logger

	// Input/Output back the default TextHandler when no Handler is set.
	Input  io.Reader
	Output io.Writer

	// Headless suppresses the interactive banner.
	Headless bool

	// Renderer transforms presentation markdown (e.g. to ANSI for a TUI).
	Renderer ContentRenderer

	engine    *refract.Engine
	sessionID string
	now       func() time.Time
}

// NewRunner creates a Runner bound to an engine, defaulting to Stdin/Stdout.
func NewRunner(engine *refract.Engine, opts ...Option) *Runner {
	r := &Runner{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		engine: engine,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SessionID returns the session this runner is driving. Populated after Run
// begins when no explicit ID was configured.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Run executes the exam loop until the session reaches a terminal state,
// input ends, or an unrecoverable error occurs. A clean EOF leaves the
// session active in the store so it can be resumed later.
func (r *Runner) Run(ctx context.Context) error {
	if r.engine == nil {
		return errors.New("runner: engine is required")
	}
	handler := r.resolveHandler()

	signals := NewSignalManager()
	defer signals.Stop()

	state, cmd, err := r.engine.Begin(ctx, r.sessionID)
	if err != nil {
		return fmt.Errorf("failed to begin session: %w", err)
	}
	r.sessionID = state.SessionID
	r.Logger.Debug("session started",
		"session_id", state.SessionID, "step", state.CurrentStep, "turns", state.TurnCount)

	// The session clock continues across resumes: new wall time is added
	// on top of whatever the stored state had already accumulated.
	elapsedBase := state.Safety.ElapsedSeconds
	startedAt := r.now()

	for {
		currentCtx := signals.Context()
		step, _ := r.engine.Protocol().Step(state.CurrentStep)

		if err := handler.Present(currentCtx, step, state, cmd); err != nil {
			return fmt.Errorf("output error: %w", err)
		}
		if state.Terminal() {
			return nil
		}

		promptAt := r.now()
		resp, err := handler.Read(currentCtx, step)
		if err != nil {
			halted, herr := r.handleReadError(handler, signals, err)
			if herr != nil {
				return herr
			}
			if !halted {
				return nil
			}
			state, err = r.engine.State(context.Background(), r.sessionID)
			if err != nil {
				return err
			}
			cmd = domain.DeviceCommand{Kind: domain.CommandEscalate}
			signals.Reset()
			continue
		}

		answeredAt := r.now()
		resp.ElapsedSeconds = elapsedBase + answeredAt.Sub(startedAt).Seconds()
		resp.HesitationSeconds = answeredAt.Sub(promptAt).Seconds()

		result, err := r.engine.Submit(currentCtx, r.sessionID, resp)
		if err != nil {
			var invalid *domain.InvalidTransitionError
			if errors.As(err, &invalid) {
				return err
			}
			// Rejected payloads re-prompt instead of ending the exam.
			r.Logger.Debug("response rejected", "session_id", r.sessionID, "err", err)
			if serr := handler.System(currentCtx, fmt.Sprintf("response rejected: %v", err)); serr != nil {
				return serr
			}
			continue
		}

		if err := handler.Result(currentCtx, result); err != nil {
			return fmt.Errorf("output error: %w", err)
		}

		state, err = r.engine.State(currentCtx, r.sessionID)
		if err != nil {
			return err
		}
		cmd = result.Command
	}
}

// handleReadError sorts an input failure into interrupt, clean EOF, or a
// genuine error. On interrupt the session is halted with an external-abort
// escalation; halted=true tells the loop to re-present the terminal state.
func (r *Runner) handleReadError(handler IOHandler, signals *SignalManager, readErr error) (halted bool, err error) {
	signals.CheckRace()

	if signals.Context().Err() != nil {
		r.Logger.Debug("input interrupted", "session_id", r.sessionID)
		esc, herr := r.engine.Halt(context.Background(), r.sessionID, domain.EscalationExternal)
		if herr != nil {
			return false, fmt.Errorf("interrupted, and halting the session failed: %w", herr)
		}
		_ = handler.System(context.Background(),
			fmt.Sprintf("exam interrupted on step %s, session halted (%s)", esc.Step, esc.Reason))
		return true, nil
	}

	if errors.Is(readErr, io.EOF) {
		r.Logger.Debug("input ended", "session_id", r.sessionID)
		return false, nil
	}
	return false, fmt.Errorf("input error: %w", readErr)
}

// resolveHandler ensures a valid IOHandler is set.
func (r *Runner) resolveHandler() IOHandler {
	if r.Handler != nil {
		return r.Handler
	}
	th := NewTextHandler(r.Input, r.Output)
	th.Renderer = r.Renderer
	if !r.Headless && r.Output != nil {
		fmt.Fprintln(r.Output, "--- Refract Exam Runner ---")
	}
	// Memoize to prevent creating new pumps on subsequent Run() calls
	r.Handler = th
	return th
}

package runner

import (
	"io"
	"log/slog"
	"time"
)

// Option configures a Runner at construction time.
type Option func(*Runner)

// WithSessionID pins the session the runner drives. Without it, Run starts a
// fresh session with a generated ID.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.sessionID = id
	}
}

// WithInputHandler swaps in a custom IOHandler, replacing the text or JSON
// handler the runner would otherwise pick.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.Handler = handler
	}
}

// WithLogger routes the runner's debug logging.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.Logger = logger
	}
}

// WithIO overrides the reader/writer backing the default TextHandler.
func WithIO(in io.Reader, out io.Writer) Option {
	return func(r *Runner) {
		r.Input = in
		r.Output = out
	}
}

// WithHeadless selects the line-oriented JSON protocol instead of the
// interactive text UI.
func WithHeadless(headless bool) Option {
	return func(r *Runner) {
		r.Headless = headless
	}
}

// WithRenderer overrides how prompts are drawn, e.g. plain text instead of
// the glamour TUI.
func WithRenderer(renderer ContentRenderer) Option {
	return func(r *Runner) {
		r.Renderer = renderer
	}
}

// WithClock overrides the session clock. Intended for tests that need
// deterministic elapsed and hesitation values.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		r.now = now
	}
}

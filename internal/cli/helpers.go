package cli

import (
	"log/slog"
	"os"

	"github.com/kharven/refract/internal/logging"
	"github.com/kharven/refract/internal/presentation/tui"
	"github.com/kharven/refract/pkg/runner"
)

// CreateLogger configures the application logger. In debug mode it writes to
// stderr so log lines stay out of the exam transcript on stdout.
func CreateLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.NewNop()
}

// RunnerOptions prepares the functional options for the exam runner from the
// shared command flags.
func RunnerOptions(logger *slog.Logger, sessionID string, headless, jsonMode bool) []runner.Option {
	opts := []runner.Option{
		runner.WithLogger(logger),
		runner.WithHeadless(headless),
	}
	if sessionID != "" {
		opts = append(opts, runner.WithSessionID(sessionID))
	}

	if jsonMode {
		opts = append(opts, runner.WithInputHandler(runner.NewJSONHandler(os.Stdin, os.Stdout)))
	} else if !headless {
		opts = append(opts, runner.WithRenderer(tui.NewRenderer()))
	}
	return opts
}

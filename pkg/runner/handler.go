package runner

import (
	"context"

	"github.com/kharven/refract/pkg/domain"
)

// IOHandler defines the strategy for interacting with the patient. This
// allows switching between Text (CLI/TUI) and JSON (structured) modes.
type IOHandler interface {
	// Present shows the current step and its instrument command. On
	// terminal states step is nil and only the status is presented.
	Present(ctx context.Context, step *domain.ProtocolStep, state *domain.ExamState, cmd domain.DeviceCommand) error

	// Read collects the next classified response. The step supplies the
	// scripted answer options to the classifier; it may be nil.
	Read(ctx context.Context, step *domain.ProtocolStep) (*domain.ClassifiedResponse, error)

	// Result reports the outcome of one turn: adjustments made, verdict,
	// and any safety advisories.
	Result(ctx context.Context, result *domain.TurnResult) error

	// System presents a meta-message to the operator (status updates,
	// warnings). This is distinct from exam content rendering.
	System(ctx context.Context, msg string) error
}

// ContentRenderer transforms presentation markdown before it is written.
// This allows TUI rendering (markdown to ANSI) without coupling the runner
// to a terminal library.
type ContentRenderer func(string) (string, error)

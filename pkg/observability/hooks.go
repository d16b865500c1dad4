package observability

import (
	"context"
	"log/slog"

	"github.com/kharven/refract/pkg/domain"
)

// Chain fans every lifecycle event out to each hook set in order. Nil
// callbacks are skipped, so partial hook sets compose cleanly.
func Chain(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range hooks {
				if h.OnStepEnter != nil {
					h.OnStepEnter(ctx, e)
				}
			}
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			for _, h := range hooks {
				if h.OnStepLeave != nil {
					h.OnStepLeave(ctx, e)
				}
			}
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			for _, h := range hooks {
				if h.OnTurn != nil {
					h.OnTurn(ctx, e)
				}
			}
		},
		OnAdjustment: func(ctx context.Context, e *domain.AdjustmentEvent) {
			for _, h := range hooks {
				if h.OnAdjustment != nil {
					h.OnAdjustment(ctx, e)
				}
			}
		},
		OnEscalation: func(ctx context.Context, e *domain.EscalationEvent) {
			for _, h := range hooks {
				if h.OnEscalation != nil {
					h.OnEscalation(ctx, e)
				}
			}
		},
	}
}

// LoggingHooks emits one structured log line per lifecycle event. Step
// transitions log at debug, turns and adjustments at info, escalations at
// warn. A nil logger uses slog.Default.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	if logger == nil {
		logger = slog.Default()
	}
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step entered",
				"session_id", e.SessionID, "step_id", e.StepID, "step_name", e.StepName)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step left",
				"session_id", e.SessionID, "step_id", e.StepID)
		},
		OnTurn: func(ctx context.Context, e *domain.TurnEvent) {
			logger.InfoContext(ctx, "turn processed",
				"session_id", e.SessionID, "step_id", e.StepID,
				"verdict", e.Verdict, "command", e.Command)
		},
		OnAdjustment: func(ctx context.Context, e *domain.AdjustmentEvent) {
			logger.InfoContext(ctx, "adjustment attempted",
				"session_id", e.SessionID, "eye", e.Request.Eye,
				"parameter", e.Request.Parameter, "magnitude", e.Request.Magnitude,
				"accepted", e.Accepted, "new_value", e.NewValue)
		},
		OnEscalation: func(ctx context.Context, e *domain.EscalationEvent) {
			logger.WarnContext(ctx, "session escalated",
				"session_id", e.SessionID, "reason", e.Reason, "step_id", e.StepID)
		},
	}
}

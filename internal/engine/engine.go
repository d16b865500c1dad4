package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kharven/refract/internal/logging"
	"github.com/kharven/refract/pkg/domain"
	"github.com/kharven/refract/pkg/protocol"
)

// Engine drives exam sessions through a validated protocol: it gates
// classified responses, applies safety policy, mutates phoropter state
// through the controller, and emits instrument commands. The engine holds
// no session state of its own; every call takes the session's ExamState and
// returns a new one, leaving the input untouched.
type Engine struct {
	cfg      domain.Config
	protocol *domain.Protocol
	hooks    domain.LifecycleHooks
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures the Engine.
type Option func(*Engine)

// WithLogger sets the structured logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHooks registers observability hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New builds an engine over a clinical envelope and a protocol. Both are
// re-validated here: a hand-built or mutated protocol fails fast with a
// *domain.ConfigurationError rather than misbehaving mid-exam.
func New(cfg domain.Config, p *domain.Protocol, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if p == nil {
		return nil, &domain.ConfigurationError{Detail: "nil protocol"}
	}
	if err := protocol.Validate(p); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		protocol: p,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Config returns the engine's clinical envelope.
func (e *Engine) Config() domain.Config { return e.cfg }

// Protocol returns the engine's validated protocol.
func (e *Engine) Protocol() *domain.Protocol { return e.protocol }

// NewSession creates a fresh session positioned at the protocol start, with
// the occlusion rule already applied for the entry step.
func (e *Engine) NewSession(sessionID string) *domain.ExamState {
	state := domain.NewExamState(sessionID, e.protocol.Start)
	state.CreatedAt = e.now().UTC()
	state.UpdatedAt = state.CreatedAt
	e.applyOcclusion(state)
	e.logger.Debug("session created", "session_id", sessionID, "step", state.CurrentStep)
	return state
}

// Prompt returns the presentation command for the session's current step
// without consuming a turn: conversational steps yield no_action with the
// step's question key, device steps yield their full presentation payload.
func (e *Engine) Prompt(state *domain.ExamState) (domain.DeviceCommand, error) {
	if state.Status == domain.StatusHalted || state.CurrentStep == domain.StepEscalate {
		return domain.DeviceCommand{
			Kind:   domain.CommandEscalate,
			Reason: string(state.EscalationReason),
		}, nil
	}
	if state.CurrentStep == domain.StepComplete {
		return domain.DeviceCommand{Kind: domain.CommandNoAction}, nil
	}

	step, ok := e.protocol.Step(state.CurrentStep)
	if !ok {
		return domain.DeviceCommand{}, &domain.ConfigurationError{
			Detail: fmt.Sprintf("session %s references unknown step %q", state.SessionID, state.CurrentStep),
		}
	}
	return e.presentStep(state, step)
}

// Escalate halts the session on behalf of the orchestration layer. It is
// idempotent: a second call returns the already-halted state unchanged.
func (e *Engine) Escalate(ctx context.Context, state *domain.ExamState, reason domain.EscalationReason) (*domain.ExamState, *domain.Escalation, error) {
	next := state.Clone()
	alreadyHalted := next.Status == domain.StatusHalted

	ctl := &controller{cfg: &e.cfg, state: next, now: e.now}
	_, esc := ctl.Escalate(reason)
	if alreadyHalted {
		return next, esc, nil
	}

	next.UpdatedAt = e.now().UTC()
	e.logger.Info("session escalated", "session_id", next.SessionID, "reason", esc.Reason, "step", esc.Step)
	e.emitEscalation(ctx, next.SessionID, esc)
	return next, esc, nil
}

// Snapshot derives the exam report from a session state: the frozen or
// in-progress lens configurations, the gate statistics against the quality
// targets, and the safety summary.
func (e *Engine) Snapshot(state *domain.ExamState) *domain.ExamReport {
	monitor := e.monitor()
	fatigued, _ := monitor.fatigued(&state.Safety)
	if !fatigued {
		fatigued = monitor.sentimentFatigued(&state.Safety)
	}

	verdicts := make(map[domain.VerdictKind]int, len(state.Verdicts))
	for k, v := range state.Verdicts {
		verdicts[k] = v
	}

	return &domain.ExamReport{
		SessionID: state.SessionID,
		Status:    state.Status,
		FinalStep: state.CurrentStep,
		OD:        state.Phoropter.OD,
		OS:        state.Phoropter.OS,
		PD:        state.Phoropter.PD,
		History:   append([]domain.AdjustmentRecord(nil), state.Phoropter.History...),
		Verdicts:  verdicts,
		Quality:   e.qualityReport(state),
		Safety: domain.SafetySummary{
			Fatigued:       fatigued,
			DurationTier:   monitor.tier(state.Safety.ElapsedSeconds),
			ElapsedSeconds: state.Safety.ElapsedSeconds,
			RedFlagCount:   state.Safety.RedFlagCount,
			IncidentCounts: state.Safety.IncidentCounts(),
		},
		EscalationReason: state.EscalationReason,
		CreatedAt:        state.CreatedAt,
		UpdatedAt:        state.UpdatedAt,
	}
}

// qualityReport scores the session against the configured targets.
func (e *Engine) qualityReport(state *domain.ExamState) domain.QualityReport {
	report := domain.QualityReport{Turns: state.TurnCount}

	if state.TurnCount > 0 {
		turns := float64(state.TurnCount)
		report.ClearRate = float64(state.Verdicts[domain.VerdictClear]) / turns
		report.MeanConfidence = state.ConfidenceSum / turns
	}
	if state.AdjustmentAttempts > 0 {
		report.AcceptanceRate = float64(len(state.Phoropter.History)) / float64(state.AdjustmentAttempts)
	} else {
		report.AcceptanceRate = 1.0
	}

	targets := e.cfg.Quality
	if state.TurnCount == 0 {
		report.Issues = append(report.Issues, "no turns recorded")
	}
	if report.ClearRate < targets.ClearRate {
		report.Issues = append(report.Issues,
			fmt.Sprintf("clear rate %.2f below target %.2f", report.ClearRate, targets.ClearRate))
	}
	if report.MeanConfidence < targets.MeanConfidence {
		report.Issues = append(report.Issues,
			fmt.Sprintf("mean confidence %.2f below target %.2f", report.MeanConfidence, targets.MeanConfidence))
	}
	if report.AcceptanceRate < targets.AcceptanceRate {
		report.Issues = append(report.Issues,
			fmt.Sprintf("acceptance rate %.2f below target %.2f", report.AcceptanceRate, targets.AcceptanceRate))
	}
	report.Acceptable = len(report.Issues) == 0
	return report
}

// presentStep builds the instrument command that presents one step.
func (e *Engine) presentStep(state *domain.ExamState, step *domain.ProtocolStep) (domain.DeviceCommand, error) {
	ctl := &controller{cfg: &e.cfg, state: state, now: e.now}
	switch step.Action {
	case domain.StepActionLensPair:
		return ctl.PresentLensPair(step)
	case domain.StepActionJCC:
		return ctl.PresentJCC(step)
	case domain.StepActionBalance:
		return ctl.PresentBalance(step)
	default:
		return domain.DeviceCommand{Kind: domain.CommandNoAction, QuestionKey: step.QuestionKey}, nil
	}
}

// applyOcclusion enforces the occlusion rule for the session's current step:
// monocular device steps cover the fellow eye, balance opens both, and
// conversational steps leave the cover where it is.
func (e *Engine) applyOcclusion(state *domain.ExamState) {
	step, ok := e.protocol.Step(state.CurrentStep)
	if !ok {
		return
	}
	switch step.Action {
	case domain.StepActionLensPair, domain.StepActionJCC:
		state.Phoropter.Occlusion = domain.Occluding(step.Eye.Other())
	case domain.StepActionBalance:
		state.Phoropter.Occlusion = domain.OcclusionNone
	}
}

func (e *Engine) monitor() *safetyMonitor {
	return &safetyMonitor{cfg: &e.cfg, now: e.now}
}

func (e *Engine) base(typ domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.now().UTC(), Type: typ, SessionID: sessionID}
}

func (e *Engine) emitStepEnter(ctx context.Context, sessionID string, id domain.StepID, name string) {
	if e.hooks.OnStepEnter == nil {
		return
	}
	e.hooks.OnStepEnter(ctx, &domain.StepEvent{
		EventBase: e.base(domain.EventStepEnter, sessionID),
		StepID:    id,
		StepName:  name,
	})
}

func (e *Engine) emitStepLeave(ctx context.Context, sessionID string, id domain.StepID, name string) {
	if e.hooks.OnStepLeave == nil {
		return
	}
	e.hooks.OnStepLeave(ctx, &domain.StepEvent{
		EventBase: e.base(domain.EventStepLeave, sessionID),
		StepID:    id,
		StepName:  name,
	})
}

func (e *Engine) emitTurn(ctx context.Context, sessionID string, stepID domain.StepID, verdict domain.VerdictKind, cmd domain.CommandKind) {
	if e.hooks.OnTurn == nil {
		return
	}
	e.hooks.OnTurn(ctx, &domain.TurnEvent{
		EventBase: e.base(domain.EventTurn, sessionID),
		StepID:    stepID,
		Verdict:   verdict,
		Command:   cmd,
	})
}

func (e *Engine) emitAdjustment(ctx context.Context, sessionID string, outcome domain.AdjustmentOutcome) {
	if e.hooks.OnAdjustment == nil {
		return
	}
	event := &domain.AdjustmentEvent{
		EventBase: e.base(domain.EventAdjustment, sessionID),
		Request:   outcome.Request,
		Accepted:  outcome.Accepted,
		NewValue:  outcome.NewValue,
	}
	if !outcome.Accepted {
		event.Reason = outcome.Message
	}
	e.hooks.OnAdjustment(ctx, event)
}

func (e *Engine) emitEscalation(ctx context.Context, sessionID string, esc *domain.Escalation) {
	if e.hooks.OnEscalation == nil {
		return
	}
	e.hooks.OnEscalation(ctx, &domain.EscalationEvent{
		EventBase: e.base(domain.EventEscalation, sessionID),
		Reason:    esc.Reason,
		StepID:    esc.Step,
	})
}

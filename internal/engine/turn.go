package engine

import (
	"context"
	"fmt"

	"github.com/kharven/refract/pkg/domain"
)

// Canonical slot keys and values for the device steps of a protocol. The
// refinement rules key off these; a protocol that wants slot-driven lens
// changes declares them on its lens_pair, jcc, and balance steps.
const (
	SlotClarity = "clarity_feedback"
	SlotColor   = "color_preference"
	SlotBalance = "balance_choice"

	ChoiceFirstBetter  = "first_better"
	ChoiceSecondBetter = "second_better"
	ChoiceBothSame     = "both_same"

	ChoiceRed   = "red"
	ChoiceGreen = "green"
	ChoiceBoth  = "both"

	ChoiceODClearer = "od_clearer"
	ChoiceOSClearer = "os_clearer"
	ChoiceEqual     = "equal"
)

// Turn consumes one classified patient response against the session's
// current step and returns the successor state plus the turn result. The
// input state is never mutated; callers persist the returned state.
//
// Safety precedence is fixed: a red flag halts before the duration hard
// stop is considered, the hard stop before a persona override, and the
// override before the verdict is allowed to drive the step machine.
func (e *Engine) Turn(ctx context.Context, state *domain.ExamState, resp *domain.ClassifiedResponse) (*domain.ExamState, *domain.TurnResult, error) {
	if state.Terminal() {
		return nil, nil, &domain.InvalidTransitionError{Op: "turn", Status: state.Status}
	}
	if err := resp.Validate(); err != nil {
		return nil, nil, fmt.Errorf("classified response: %w", err)
	}

	next := state.Clone()
	step, ok := e.protocol.Step(next.CurrentStep)
	if !ok {
		return nil, nil, &domain.ConfigurationError{
			Detail: fmt.Sprintf("session %s references unknown step %q", next.SessionID, next.CurrentStep),
		}
	}

	verdict := assess(e.cfg.Thresholds, resp, step)
	monitor := e.monitor()
	monitor.observe(&next.Safety, verdict.Kind, resp)
	next.TurnCount++
	next.Verdicts[verdict.Kind]++
	next.ConfidenceSum += resp.Confidence

	result := &domain.TurnResult{Verdict: verdict}

	if resp.RedFlag {
		monitor.record(&next.Safety, domain.IncidentRedFlag,
			fmt.Sprintf("red flag reported on step %s", step.ID))
		return e.haltTurn(ctx, next, step, result, domain.EscalationRedFlag)
	}
	if monitor.tier(next.Safety.ElapsedSeconds) == domain.DurationHardStop {
		monitor.record(&next.Safety, domain.IncidentDurationHardStop,
			fmt.Sprintf("session length %.0fs reached hard stop", next.Safety.ElapsedSeconds))
		return e.haltTurn(ctx, next, step, result, domain.EscalationDurationExceeded)
	}
	if resp.PersonaOverride {
		monitor.record(&next.Safety, domain.IncidentPersonaOverride,
			fmt.Sprintf("persona override attempt on step %s", step.ID))
		return e.repeatTurn(ctx, next, step, result, monitor, "persona override suppressed")
	}

	if verdict.Kind != domain.VerdictClear {
		return e.repeatTurn(ctx, next, step, result, monitor, verdict.Reason)
	}
	return e.clearTurn(ctx, next, step, resp, result, monitor)
}

// haltTurn ends the session through the controller and reports the
// escalation on the turn result.
func (e *Engine) haltTurn(ctx context.Context, next *domain.ExamState, step *domain.ProtocolStep, result *domain.TurnResult, reason domain.EscalationReason) (*domain.ExamState, *domain.TurnResult, error) {
	ctl := &controller{cfg: &e.cfg, state: next, now: e.now}
	cmd, esc := ctl.Escalate(reason)
	result.Command = cmd
	result.Escalation = esc
	result.NextStep = next.CurrentStep

	next.UpdatedAt = e.now().UTC()
	e.logger.Info("session escalated",
		"session_id", next.SessionID, "reason", reason, "step", esc.Step)
	e.emitStepLeave(ctx, next.SessionID, step.ID, step.Name)
	e.emitStepEnter(ctx, next.SessionID, domain.StepEscalate, "")
	e.emitEscalation(ctx, next.SessionID, esc)
	e.emitTurn(ctx, next.SessionID, step.ID, result.Verdict.Kind, cmd.Kind)
	return next, result, nil
}

// repeatTurn keeps the session on its current step and re-presents it.
func (e *Engine) repeatTurn(ctx context.Context, next *domain.ExamState, step *domain.ProtocolStep, result *domain.TurnResult, monitor *safetyMonitor, reason string) (*domain.ExamState, *domain.TurnResult, error) {
	cmd, err := e.presentStep(next, step)
	if err != nil {
		return nil, nil, err
	}
	cmd.Kind = domain.CommandRepeatPresentation
	cmd.Reason = reason

	result.Command = cmd
	result.NextStep = next.CurrentStep
	e.finishTurn(ctx, next, step.ID, result, monitor)
	return next, result, nil
}

// clearTurn acts on a clear verdict: it derives and applies the step's lens
// change, handles the binocular balance outcome, and advances the step
// machine. A rejected adjustment does not block the transition; the turn
// proceeds with no_action and the rejection reason.
func (e *Engine) clearTurn(ctx context.Context, next *domain.ExamState, step *domain.ProtocolStep, resp *domain.ClassifiedResponse, result *domain.TurnResult, monitor *safetyMonitor) (*domain.ExamState, *domain.TurnResult, error) {
	ctl := &controller{cfg: &e.cfg, state: next, now: e.now}

	var (
		rejected  *domain.AdjustmentOutcome
		finalized bool
		err       error
	)

	switch step.Action {
	case domain.StepActionLensPair:
		if req, ok := lensPairAdjustment(e.cfg.Nudges, step, resp); ok {
			rejected, err = e.applyAdjustment(ctx, ctl, monitor, next, result, req)
			if err != nil {
				return nil, nil, err
			}
		}

	case domain.StepActionJCC:
		if req, ok := duochromeAdjustment(e.cfg.Nudges, step, resp); ok {
			rejected, err = e.applyAdjustment(ctx, ctl, monitor, next, result, req)
			if err != nil {
				return nil, nil, err
			}
		}

	case domain.StepActionBalance:
		choice, _ := resp.Slot(SlotBalance)
		switch choice {
		case ChoiceEqual:
			cmd, ferr := ctl.Finalize()
			if ferr != nil {
				return nil, nil, ferr
			}
			result.Command = cmd
			finalized = true
			e.logger.Info("lenses finalized",
				"session_id", next.SessionID, "od", next.Phoropter.OD.String(), "os", next.Phoropter.OS.String())

		case ChoiceODClearer, ChoiceOSClearer:
			clearer := domain.EyeOD
			if choice == ChoiceOSClearer {
				clearer = domain.EyeOS
			}
			req := domain.AdjustmentRequest{
				Eye:       clearer.Other(),
				Parameter: domain.ParameterSphere,
				Magnitude: -e.cfg.Nudges.Balance,
				Step:      step.ID,
			}
			rejected, err = e.applyAdjustment(ctx, ctl, monitor, next, result, req)
			if err != nil {
				return nil, nil, err
			}
			// Balance repeats until both eyes agree or the patient says equal.
			return e.balanceRetest(ctx, next, step, result, monitor, rejected)

		default:
			return e.balanceRetest(ctx, next, step, result, monitor, nil)
		}
	}

	// Advance to the statically configured successor.
	nextID := nextStep(e.protocol, step.ID, result.Verdict.Kind, false)
	e.emitStepLeave(ctx, next.SessionID, step.ID, step.Name)
	next.CurrentStep = nextID
	result.NextStep = nextID

	entered, enteredKnown := e.protocol.Step(nextID)
	if enteredKnown {
		e.applyOcclusion(next)
		e.emitStepEnter(ctx, next.SessionID, entered.ID, entered.Name)
	} else {
		next.Phoropter.Occlusion = domain.OcclusionNone
		e.emitStepEnter(ctx, next.SessionID, nextID, "")
	}

	switch {
	case finalized:
		// Finalize command already set; the successor is presented on the
		// next Prompt.
	case rejected != nil:
		result.Command = domain.DeviceCommand{Kind: domain.CommandNoAction, Reason: rejected.Message}
	case enteredKnown:
		cmd, perr := e.presentStep(next, entered)
		if perr != nil {
			return nil, nil, perr
		}
		result.Command = cmd
	default:
		result.Command = domain.DeviceCommand{Kind: domain.CommandNoAction}
	}

	e.finishTurn(ctx, next, step.ID, result, monitor)
	return next, result, nil
}

// balanceRetest keeps the session on the balance step for another pass.
func (e *Engine) balanceRetest(ctx context.Context, next *domain.ExamState, step *domain.ProtocolStep, result *domain.TurnResult, monitor *safetyMonitor, rejected *domain.AdjustmentOutcome) (*domain.ExamState, *domain.TurnResult, error) {
	if rejected != nil {
		result.Command = domain.DeviceCommand{Kind: domain.CommandNoAction, Reason: rejected.Message}
	} else {
		cmd, err := e.presentStep(next, step)
		if err != nil {
			return nil, nil, err
		}
		result.Command = cmd
	}
	result.NextStep = next.CurrentStep
	e.finishTurn(ctx, next, step.ID, result, monitor)
	return next, result, nil
}

// applyAdjustment pushes one request through the controller and records the
// outcome. It returns the outcome only when the request was rejected.
func (e *Engine) applyAdjustment(ctx context.Context, ctl *controller, monitor *safetyMonitor, next *domain.ExamState, result *domain.TurnResult, req domain.AdjustmentRequest) (*domain.AdjustmentOutcome, error) {
	outcome, err := ctl.AdjustParameter(req)
	if err != nil {
		return nil, err
	}
	result.Adjustments = append(result.Adjustments, outcome)
	e.emitAdjustment(ctx, next.SessionID, outcome)

	if !outcome.Accepted {
		monitor.record(&next.Safety, domain.IncidentRejectedAdjustment, outcome.Message)
		e.logger.Debug("adjustment rejected",
			"session_id", next.SessionID, "step", req.Step, "reason", outcome.Message)
		return &outcome, nil
	}
	return nil, nil
}

// finishTurn attaches advisories, stamps the state, and emits the turn hook.
func (e *Engine) finishTurn(ctx context.Context, next *domain.ExamState, turnStep domain.StepID, result *domain.TurnResult, monitor *safetyMonitor) {
	result.Advisories = e.advisories(next, monitor)
	next.UpdatedAt = e.now().UTC()
	e.logger.Debug("turn completed",
		"session_id", next.SessionID, "step", turnStep,
		"verdict", result.Verdict.Kind, "command", result.Command.Kind,
		"next_step", result.NextStep)
	e.emitTurn(ctx, next.SessionID, turnStep, result.Verdict.Kind, result.Command.Kind)
}

// advisories evaluates the non-binding safety recommendations for the turn
// and records their incidents.
func (e *Engine) advisories(next *domain.ExamState, monitor *safetyMonitor) []domain.Advisory {
	var out []domain.Advisory

	fatigued, detail := monitor.fatigued(&next.Safety)
	if !fatigued && monitor.sentimentFatigued(&next.Safety) {
		fatigued = true
		detail = "fatigued sentiment reported across recent turns"
	}
	if fatigued {
		monitor.record(&next.Safety, domain.IncidentFatigue, detail)
		out = append(out, domain.AdvisoryFatigueBreak)
	}

	switch monitor.tier(next.Safety.ElapsedSeconds) {
	case domain.DurationOfferBreak:
		out = append(out, domain.AdvisoryOfferBreak)
	case domain.DurationWarn:
		monitor.record(&next.Safety, domain.IncidentDurationWarning,
			fmt.Sprintf("session length %.0fs", next.Safety.ElapsedSeconds))
		out = append(out, domain.AdvisoryWarnAndComplete)
	}

	if monitor.escalationRecommended(&next.Safety) {
		out = append(out, domain.AdvisoryEscalationRecommended)
	}
	return out
}

// lensPairAdjustment derives the sphere change from a comparison choice:
// the first presented lens is the stronger one.
func lensPairAdjustment(n domain.Nudges, step *domain.ProtocolStep, resp *domain.ClassifiedResponse) (domain.AdjustmentRequest, bool) {
	choice, ok := resp.Slot(SlotClarity)
	if !ok {
		return domain.AdjustmentRequest{}, false
	}

	var magnitude float64
	switch choice {
	case ChoiceFirstBetter:
		magnitude = n.LensPair
	case ChoiceSecondBetter:
		magnitude = -n.LensPair
	default:
		return domain.AdjustmentRequest{}, false
	}

	return domain.AdjustmentRequest{
		Eye:       step.Eye,
		Parameter: domain.ParameterSphere,
		Magnitude: magnitude,
		Step:      step.ID,
	}, true
}

// duochromeAdjustment derives the sphere change from the duochrome phase of
// a JCC step: red clearer means over-plussed, green clearer under-plussed.
func duochromeAdjustment(n domain.Nudges, step *domain.ProtocolStep, resp *domain.ClassifiedResponse) (domain.AdjustmentRequest, bool) {
	choice, ok := resp.Slot(SlotColor)
	if !ok {
		return domain.AdjustmentRequest{}, false
	}

	var magnitude float64
	switch choice {
	case ChoiceRed:
		magnitude = -n.Duochrome
	case ChoiceGreen:
		magnitude = n.Duochrome
	default:
		return domain.AdjustmentRequest{}, false
	}

	return domain.AdjustmentRequest{
		Eye:       step.Eye,
		Parameter: domain.ParameterSphere,
		Magnitude: magnitude,
		Step:      step.ID,
	}, true
}

package engine

import (
	"fmt"
	"math"
	"time"

	"github.com/kharven/refract/pkg/domain"
)

// controller owns all mutation of one session's phoropter state. Every lens
// change passes through validateAdjustment first; on acceptance the matching
// configuration is updated and the change appended to the history. In a
// finalized or halted session every mutating call fails with
// *domain.InvalidTransitionError — never a silent no-op.
type controller struct {
	cfg   *domain.Config
	state *domain.ExamState
	now   func() time.Time
}

// guard rejects mutations once the session left the active state.
func (c *controller) guard(op string) error {
	if c.state.Status != domain.StatusActive {
		return &domain.InvalidTransitionError{Op: op, Status: c.state.Status}
	}
	return nil
}

// AdjustParameter validates and applies one lens change. Rejections are
// carried in the outcome and leave the state untouched; the returned error
// is reserved for calls against a non-active session.
func (c *controller) AdjustParameter(req domain.AdjustmentRequest) (domain.AdjustmentOutcome, error) {
	if err := c.guard("adjustParameter"); err != nil {
		return domain.AdjustmentOutcome{}, err
	}

	c.state.AdjustmentAttempts++

	next, rej := validateAdjustment(c.cfg.Limits, &c.state.Phoropter, req)
	if rej != nil {
		return domain.AdjustmentOutcome{
			Request:  req,
			Accepted: false,
			Message:  rej.Error(),
		}, nil
	}

	lens := c.state.Phoropter.Lens(req.Eye)
	switch req.Parameter {
	case domain.ParameterSphere:
		lens.Sphere = next
	case domain.ParameterCylinder:
		lens.Cylinder = next
	case domain.ParameterAxis:
		// Axis detents are whole degrees on the instrument.
		lens.Axis = int(math.Round(next))
	}

	c.state.Phoropter.History = append(c.state.Phoropter.History, domain.AdjustmentRecord{
		Timestamp: c.now(),
		Eye:       req.Eye,
		Parameter: req.Parameter,
		Magnitude: req.Magnitude,
		Result:    next,
		Step:      req.Step,
	})

	return domain.AdjustmentOutcome{
		Request:  req,
		Accepted: true,
		NewValue: next,
		Message:  fmt.Sprintf("applied %s %s %+.3f -> %.3f", req.Eye, req.Parameter, req.Magnitude, next),
	}, nil
}

// PresentLensPair builds the comparison command for a lens-pair step: the
// current sphere raised and lowered by the configured pair step. Pure
// command construction, no mutation.
func (c *controller) PresentLensPair(step *domain.ProtocolStep) (domain.DeviceCommand, error) {
	if err := c.guard("presentLensPair"); err != nil {
		return domain.DeviceCommand{}, err
	}

	sphere := c.state.Phoropter.Lens(step.Eye).Sphere
	return domain.DeviceCommand{
		Kind:        domain.CommandPresentLensPair,
		Eye:         step.Eye,
		QuestionKey: step.QuestionKey,
		LensPair: &domain.LensPairParams{
			OptionA: domain.LensOption{Label: "lens_1", Sphere: sphere + c.cfg.Nudges.LensPair},
			OptionB: domain.LensOption{Label: "lens_2", Sphere: sphere - c.cfg.Nudges.LensPair},
		},
	}, nil
}

// PresentJCC builds the three-part cross-cylinder sequence for one eye:
// horizontal axis, vertical axis, then the duochrome comparison.
func (c *controller) PresentJCC(step *domain.ProtocolStep) (domain.DeviceCommand, error) {
	if err := c.guard("presentJCC"); err != nil {
		return domain.DeviceCommand{}, err
	}

	return domain.DeviceCommand{
		Kind:        domain.CommandPresentJCC,
		Eye:         step.Eye,
		QuestionKey: step.QuestionKey,
		JCC: &domain.JCCParams{
			Phases: []domain.JCCPhase{
				domain.JCCPhaseAxisHorizontal,
				domain.JCCPhaseAxisVertical,
				domain.JCCPhaseDuochrome,
			},
		},
	}, nil
}

// PresentBalance builds the binocular balance command with both eyes open.
func (c *controller) PresentBalance(step *domain.ProtocolStep) (domain.DeviceCommand, error) {
	if err := c.guard("balanceBinocular"); err != nil {
		return domain.DeviceCommand{}, err
	}

	return domain.DeviceCommand{
		Kind:        domain.CommandBalanceBinocular,
		QuestionKey: step.QuestionKey,
	}, nil
}

// SetOcclusion covers one eye or opens both.
func (c *controller) SetOcclusion(occ domain.Occlusion) error {
	if err := c.guard("setOcclusion"); err != nil {
		return err
	}
	if !occ.IsValid() {
		return fmt.Errorf("unknown occlusion %q", occ)
	}
	c.state.Phoropter.Occlusion = occ
	return nil
}

// SetPupillaryDistance sets the distance PD and, when near is zero, derives
// the near PD from the configured offset. Values outside the bounds are
// rejected with domain.ErrPDOutOfRange.
func (c *controller) SetPupillaryDistance(distanceMM, nearMM float64) error {
	if err := c.guard("setPupillaryDistance"); err != nil {
		return err
	}

	if nearMM == 0 {
		nearMM = distanceMM - c.cfg.Limits.NearPDOffset
	}
	min, max := c.cfg.Limits.PDMin, c.cfg.Limits.PDMax
	if distanceMM < min || distanceMM > max || nearMM < min || nearMM > max {
		return fmt.Errorf("distance %.1f / near %.1f outside [%.0f, %.0f]: %w",
			distanceMM, nearMM, min, max, domain.ErrPDOutOfRange)
	}

	c.state.Phoropter.PD = domain.PupillaryDistance{DistanceMM: distanceMM, NearMM: nearMM}
	return nil
}

// Finalize freezes both lens configurations. Only reachable while active;
// a second call is an invalid transition, not a no-op.
func (c *controller) Finalize() (domain.DeviceCommand, error) {
	if err := c.guard("finalize"); err != nil {
		return domain.DeviceCommand{}, err
	}

	c.state.Status = domain.StatusFinalized
	c.state.Phoropter.Occlusion = domain.OcclusionNone
	return domain.DeviceCommand{Kind: domain.CommandFinalize}, nil
}

// Escalate moves the session to the terminal halted state and emits the
// shutdown command. It is idempotent: escalating an already-halted session
// returns the existing halted state with its original reason.
func (c *controller) Escalate(reason domain.EscalationReason) (domain.DeviceCommand, *domain.Escalation) {
	if c.state.Status == domain.StatusHalted {
		return domain.DeviceCommand{
				Kind:   domain.CommandEscalate,
				Reason: string(c.state.EscalationReason),
			}, &domain.Escalation{
				Reason: c.state.EscalationReason,
				Step:   c.state.CurrentStep,
				At:     c.now(),
			}
	}

	from := c.state.CurrentStep
	c.state.Status = domain.StatusHalted
	c.state.EscalationReason = reason
	c.state.CurrentStep = domain.StepEscalate
	c.state.Phoropter.Occlusion = domain.OcclusionNone

	return domain.DeviceCommand{
			Kind:   domain.CommandEscalate,
			Reason: string(reason),
		}, &domain.Escalation{
			Reason: reason,
			Step:   from,
			At:     c.now(),
		}
}

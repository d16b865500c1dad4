package engine

import (
	"fmt"
	"math"

	"github.com/kharven/refract/pkg/domain"
)

// validateAdjustment is the pure safety check for a proposed lens change.
// It returns the value the parameter would take, or a rejection. It never
// mutates anything; the controller performs the mutation on acceptance.
//
// Magnitudes are not assumed to be quantized: any real magnitude inside the
// per-step cap is acceptable as long as the result stays in the parameter's
// domain.
func validateAdjustment(limits domain.Limits, phoropter *domain.PhoropterState, req domain.AdjustmentRequest) (float64, *domain.RejectedAdjustmentError) {
	if !req.Eye.IsValid() {
		return 0, &domain.RejectedAdjustmentError{
			Request: req,
			Reason:  domain.RejectionOutOfRange,
			Detail:  fmt.Sprintf("unknown eye %q", req.Eye),
		}
	}

	var (
		maxStep  float64
		min, max float64
	)

	switch req.Parameter {
	case domain.ParameterSphere:
		maxStep = limits.MaxSphereStep
		min, max = limits.SphereMin, limits.SphereMax
	case domain.ParameterCylinder:
		maxStep = limits.MaxCylinderStep
		min, max = limits.CylinderMin, limits.CylinderMax
	case domain.ParameterAxis:
		maxStep = float64(limits.MaxAxisStep)
		min, max = float64(limits.AxisMin), float64(limits.AxisMax)
	default:
		return 0, &domain.RejectedAdjustmentError{
			Request: req,
			Reason:  domain.RejectionOutOfRange,
			Detail:  fmt.Sprintf("unknown parameter %q", req.Parameter),
		}
	}

	if math.Abs(req.Magnitude) > maxStep {
		return 0, &domain.RejectedAdjustmentError{
			Request: req,
			Reason:  domain.RejectionUnsafeJump,
			Detail:  fmt.Sprintf("|%.3f| exceeds max step %.3f", req.Magnitude, maxStep),
		}
	}

	next := phoropter.Lens(req.Eye).Value(req.Parameter) + req.Magnitude
	if next < min || next > max {
		return 0, &domain.RejectedAdjustmentError{
			Request: req,
			Reason:  domain.RejectionOutOfRange,
			Detail:  fmt.Sprintf("%.3f outside [%.2f, %.2f]", next, min, max),
		}
	}

	return next, nil
}

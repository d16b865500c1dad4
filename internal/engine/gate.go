package engine

import (
	"fmt"

	"github.com/kharven/refract/pkg/domain"
)

// assess is the pure response quality gate. It classifies a response into
// clear/ambiguous/unclear/invalid from confidence and intent, then — only
// when the verdict would otherwise be clear — downgrades to ambiguous if the
// step's required slots are absent or hold unrecognized values.
func assess(th domain.Thresholds, resp *domain.ClassifiedResponse, step *domain.ProtocolStep) domain.ResponseVerdict {
	slotsPresent, missing := requiredSlots(resp, step)

	verdict := domain.ResponseVerdict{
		Confidence:   resp.Confidence,
		SlotsPresent: slotsPresent,
	}

	switch {
	case resp.Intent.Unusable():
		verdict.Kind = domain.VerdictInvalid
		verdict.Reason = fmt.Sprintf("intent %q is unusable", resp.Intent)
	case resp.Confidence < th.Ambiguous:
		verdict.Kind = domain.VerdictUnclear
		verdict.Reason = fmt.Sprintf("confidence %.2f below %.2f", resp.Confidence, th.Ambiguous)
	case resp.Confidence < th.Clear:
		verdict.Kind = domain.VerdictAmbiguous
		verdict.Reason = fmt.Sprintf("confidence %.2f below %.2f", resp.Confidence, th.Clear)
	case !slotsPresent:
		// Confident but missing the information this step needs: not safe
		// to act on, so it is downgraded rather than advanced.
		verdict.Kind = domain.VerdictAmbiguous
		verdict.Reason = "missing required information: " + missing
	default:
		verdict.Kind = domain.VerdictClear
	}

	return verdict
}

// requiredSlots reports whether every slot the step declares is present with
// a value from its vocabulary, naming the first offender otherwise.
func requiredSlots(resp *domain.ClassifiedResponse, step *domain.ProtocolStep) (bool, string) {
	for _, spec := range step.RequiredSlots {
		value, ok := resp.Slot(spec.Key)
		if !ok {
			return false, fmt.Sprintf("slot %q absent", spec.Key)
		}
		if !spec.Accepts(value) {
			return false, fmt.Sprintf("slot %q has unrecognized value %q", spec.Key, value)
		}
	}
	return true, ""
}

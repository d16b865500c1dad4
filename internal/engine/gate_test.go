package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kharven/refract/pkg/domain"
)

func TestAssess_ConfidenceBands(t *testing.T) {
	th := domain.DefaultConfig().Thresholds
	step := &domain.ProtocolStep{ID: "1.1", QuestionKey: "q.vision"}

	cases := []struct {
		name       string
		confidence float64
		want       domain.VerdictKind
	}{
		{"well below floor", 0.10, domain.VerdictUnclear},
		{"just below floor", 0.29, domain.VerdictUnclear},
		{"at floor", 0.30, domain.VerdictAmbiguous},
		{"mid band", 0.45, domain.VerdictAmbiguous},
		{"just below clear", 0.59, domain.VerdictAmbiguous},
		{"at clear", 0.60, domain.VerdictClear},
		{"high", 0.95, domain.VerdictClear},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := &domain.ClassifiedResponse{Intent: domain.IntentVisionReported, Confidence: tc.confidence}
			verdict := assess(th, resp, step)
			assert.Equal(t, tc.want, verdict.Kind)
			assert.Equal(t, tc.confidence, verdict.Confidence)
		})
	}
}

func TestAssess_UnusableIntentBeatsConfidence(t *testing.T) {
	th := domain.DefaultConfig().Thresholds
	step := &domain.ProtocolStep{ID: "1.1", QuestionKey: "q.vision"}

	for _, intent := range []domain.Intent{domain.IntentUnknown, domain.IntentInvalid} {
		resp := &domain.ClassifiedResponse{Intent: intent, Confidence: 0.99}
		verdict := assess(th, resp, step)
		assert.Equal(t, domain.VerdictInvalid, verdict.Kind, "intent %s", intent)
	}
}

func TestAssess_RequiredSlots(t *testing.T) {
	th := domain.DefaultConfig().Thresholds
	step := &domain.ProtocolStep{
		ID:          "6.1",
		QuestionKey: "q.od_lens_pair",
		RequiredSlots: []domain.SlotSpec{
			{Key: "clarity_feedback", Allowed: []string{"first_better", "second_better", "both_same"}},
		},
	}

	t.Run("absent slot downgrades clear", func(t *testing.T) {
		resp := &domain.ClassifiedResponse{Intent: domain.IntentRefractionFeedback, Confidence: 0.95}
		verdict := assess(th, resp, step)
		assert.Equal(t, domain.VerdictAmbiguous, verdict.Kind)
		assert.False(t, verdict.SlotsPresent)
		assert.Contains(t, verdict.Reason, "clarity_feedback")
	})

	t.Run("unrecognized value downgrades clear", func(t *testing.T) {
		resp := &domain.ClassifiedResponse{
			Intent:     domain.IntentRefractionFeedback,
			Confidence: 0.95,
			Slots:      map[string]string{"clarity_feedback": "sharper"},
		}
		verdict := assess(th, resp, step)
		assert.Equal(t, domain.VerdictAmbiguous, verdict.Kind)
		assert.False(t, verdict.SlotsPresent)
	})

	t.Run("valid slot keeps clear", func(t *testing.T) {
		resp := &domain.ClassifiedResponse{
			Intent:     domain.IntentRefractionFeedback,
			Confidence: 0.95,
			Slots:      map[string]string{"clarity_feedback": "first_better"},
		}
		verdict := assess(th, resp, step)
		assert.Equal(t, domain.VerdictClear, verdict.Kind)
		assert.True(t, verdict.SlotsPresent)
	})

	t.Run("slot check does not rescue low confidence", func(t *testing.T) {
		resp := &domain.ClassifiedResponse{
			Intent:     domain.IntentRefractionFeedback,
			Confidence: 0.45,
			Slots:      map[string]string{"clarity_feedback": "first_better"},
		}
		verdict := assess(th, resp, step)
		assert.Equal(t, domain.VerdictAmbiguous, verdict.Kind)
		assert.True(t, verdict.SlotsPresent)
	})
}

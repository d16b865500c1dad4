package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kharven/refract/pkg/domain"
)

func testMonitor() *safetyMonitor {
	cfg := domain.DefaultConfig()
	return &safetyMonitor{cfg: &cfg, now: func() time.Time { return time.Unix(1700000000, 0).UTC() }}
}

func respAt(elapsed, confidence float64) *domain.ClassifiedResponse {
	return &domain.ClassifiedResponse{
		Intent:         domain.IntentVisionReported,
		Confidence:     confidence,
		ElapsedSeconds: elapsed,
	}
}

func TestObserve_BaselineAndWindow(t *testing.T) {
	m := testMonitor()
	snap := &domain.SafetySnapshot{}

	for i := 0; i < 8; i++ {
		resp := respAt(float64(i*10), 0.9)
		resp.HesitationSeconds = float64(i)
		m.observe(snap, domain.VerdictClear, resp)
	}

	assert.Len(t, snap.Baseline, 5, "baseline freezes after the first window")
	assert.Len(t, snap.Window, 5, "window rolls")
	assert.Equal(t, 70.0, snap.ElapsedSeconds)
	// The rolled window starts at the fourth sample.
	assert.Equal(t, 3.0, snap.Window[0].Hesitation)
	assert.Equal(t, 0.0, snap.Baseline[0].Hesitation)
}

func TestObserve_ClockOnlyMovesForward(t *testing.T) {
	m := testMonitor()
	snap := &domain.SafetySnapshot{}

	m.observe(snap, domain.VerdictClear, respAt(10, 0.9))
	assert.Equal(t, 10.0, snap.ElapsedSeconds)

	m.observe(snap, domain.VerdictClear, respAt(7, 0.9))
	assert.Equal(t, 10.0, snap.ElapsedSeconds, "out-of-order report cannot rewind the clock")

	m.observe(snap, domain.VerdictClear, respAt(25, 0.9))
	assert.Equal(t, 25.0, snap.ElapsedSeconds)
}

func TestObserve_AccuracyWeights(t *testing.T) {
	assert.Equal(t, 1.0, accuracyFor(domain.VerdictClear))
	assert.Equal(t, 0.5, accuracyFor(domain.VerdictAmbiguous))
	assert.Equal(t, 0.25, accuracyFor(domain.VerdictUnclear))
	assert.Equal(t, 0.0, accuracyFor(domain.VerdictInvalid))
}

func TestObserve_RedFlagCounter(t *testing.T) {
	m := testMonitor()
	snap := &domain.SafetySnapshot{}

	resp := respAt(5, 0.9)
	resp.RedFlag = true
	m.observe(snap, domain.VerdictClear, resp)
	m.observe(snap, domain.VerdictClear, respAt(10, 0.9))

	assert.Equal(t, 1, snap.RedFlagCount)
}

func TestTier_Ladder(t *testing.T) {
	m := testMonitor()

	cases := []struct {
		elapsed float64
		want    domain.DurationTier
	}{
		{0, domain.DurationOK},
		{719, domain.DurationOK},
		{720, domain.DurationOfferBreak},
		{1199, domain.DurationOfferBreak},
		{1200, domain.DurationWarn},
		{1499, domain.DurationWarn},
		{1500, domain.DurationHardStop},
		{4000, domain.DurationHardStop},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, m.tier(tc.elapsed), "elapsed %.0f", tc.elapsed)
	}
}

func TestFatigued_RequiresFullWindow(t *testing.T) {
	m := testMonitor()
	snap := &domain.SafetySnapshot{}

	for i := 0; i < 4; i++ {
		m.observe(snap, domain.VerdictInvalid, respAt(float64(i), 0.0))
	}
	got, _ := m.fatigued(snap)
	assert.False(t, got, "short sessions never read as fatigued")
}

func TestFatigued_Signals(t *testing.T) {
	t.Run("accuracy drop", func(t *testing.T) {
		m := testMonitor()
		snap := &domain.SafetySnapshot{}
		for i := 0; i < 5; i++ {
			m.observe(snap, domain.VerdictClear, respAt(float64(i), 0.9))
		}
		for i := 5; i < 10; i++ {
			m.observe(snap, domain.VerdictAmbiguous, respAt(float64(i), 0.9))
		}
		got, detail := m.fatigued(snap)
		require.True(t, got)
		assert.Contains(t, detail, "accuracy")
	})

	t.Run("confidence drop", func(t *testing.T) {
		m := testMonitor()
		snap := &domain.SafetySnapshot{}
		for i := 0; i < 5; i++ {
			m.observe(snap, domain.VerdictClear, respAt(float64(i), 0.95))
		}
		for i := 5; i < 10; i++ {
			m.observe(snap, domain.VerdictClear, respAt(float64(i), 0.60))
		}
		got, detail := m.fatigued(snap)
		require.True(t, got)
		assert.Contains(t, detail, "confidence")
	})

	t.Run("hesitation", func(t *testing.T) {
		m := testMonitor()
		snap := &domain.SafetySnapshot{}
		for i := 0; i < 5; i++ {
			resp := respAt(float64(i*10), 0.9)
			resp.HesitationSeconds = 0.5
			m.observe(snap, domain.VerdictClear, resp)
		}
		for i := 5; i < 10; i++ {
			resp := respAt(float64(i*10), 0.9)
			resp.HesitationSeconds = 4.0
			m.observe(snap, domain.VerdictClear, resp)
		}
		got, detail := m.fatigued(snap)
		require.True(t, got)
		assert.Contains(t, detail, "hesitation")
	})

	t.Run("steady session stays fresh", func(t *testing.T) {
		m := testMonitor()
		snap := &domain.SafetySnapshot{}
		for i := 0; i < 12; i++ {
			resp := respAt(float64(i*10), 0.9)
			resp.HesitationSeconds = 1.0
			m.observe(snap, domain.VerdictClear, resp)
		}
		got, _ := m.fatigued(snap)
		assert.False(t, got)
	})
}

func TestSentimentFatigued(t *testing.T) {
	m := testMonitor()
	snap := &domain.SafetySnapshot{}

	tired := respAt(1, 0.9)
	tired.Sentiment = domain.SentimentFatigued

	m.observe(snap, domain.VerdictClear, respAt(0, 0.9))
	m.observe(snap, domain.VerdictClear, tired)
	assert.False(t, m.sentimentFatigued(snap), "one fatigued turn is not enough")

	tired2 := respAt(2, 0.9)
	tired2.Sentiment = domain.SentimentFatigued
	m.observe(snap, domain.VerdictClear, tired2)
	assert.True(t, m.sentimentFatigued(snap))
}

func TestRecord_OncePerSessionKinds(t *testing.T) {
	m := testMonitor()
	snap := &domain.SafetySnapshot{}

	m.record(snap, domain.IncidentFatigue, "first")
	m.record(snap, domain.IncidentFatigue, "second")
	m.record(snap, domain.IncidentDurationWarning, "first")
	m.record(snap, domain.IncidentDurationWarning, "second")
	m.record(snap, domain.IncidentRejectedAdjustment, "first")
	m.record(snap, domain.IncidentRejectedAdjustment, "second")

	counts := map[domain.IncidentKind]int{}
	for _, inc := range snap.Incidents {
		counts[inc.Kind]++
	}
	assert.Equal(t, 1, counts[domain.IncidentFatigue])
	assert.Equal(t, 1, counts[domain.IncidentDurationWarning])
	assert.Equal(t, 2, counts[domain.IncidentRejectedAdjustment])
}

func TestEscalationRecommended(t *testing.T) {
	m := testMonitor()

	t.Run("empty ledger", func(t *testing.T) {
		assert.False(t, m.escalationRecommended(&domain.SafetySnapshot{}))
	})

	t.Run("one critical", func(t *testing.T) {
		snap := &domain.SafetySnapshot{}
		m.record(snap, domain.IncidentRedFlag, "")
		assert.True(t, m.escalationRecommended(snap))
	})

	t.Run("two high", func(t *testing.T) {
		snap := &domain.SafetySnapshot{
			Incidents: []domain.Incident{
				{Kind: domain.IncidentDurationHardStop, Severity: domain.SeverityHigh},
				{Kind: domain.IncidentDurationHardStop, Severity: domain.SeverityHigh},
			},
		}
		assert.True(t, m.escalationRecommended(snap))
	})

	t.Run("mediums do not add up", func(t *testing.T) {
		snap := &domain.SafetySnapshot{}
		m.record(snap, domain.IncidentPersonaOverride, "")
		m.record(snap, domain.IncidentFatigue, "")
		m.record(snap, domain.IncidentDurationWarning, "")
		assert.False(t, m.escalationRecommended(snap))
	})
}

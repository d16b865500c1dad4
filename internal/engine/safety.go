package engine

import (
	"fmt"
	"time"

	"github.com/kharven/refract/pkg/domain"
)

// Accuracy weights per verdict. The weights feed the fatigue baseline and
// rolling window as a proxy for how well the patient is tracking questions.
func accuracyFor(kind domain.VerdictKind) float64 {
	switch kind {
	case domain.VerdictClear:
		return 1.0
	case domain.VerdictAmbiguous:
		return 0.5
	case domain.VerdictUnclear:
		return 0.25
	default:
		return 0.0
	}
}

// safetyMonitor maintains the per-session safety snapshot: the baseline
// captured over the first turns, the rolling window over the latest ones,
// session duration and the incident ledger. It never reads a wall clock for
// elapsed time; callers report elapsed seconds with each response.
type safetyMonitor struct {
	cfg *domain.Config
	now func() time.Time
}

// observe folds one turn into the snapshot and returns the recorded sample.
// The session clock only moves forward; an out-of-order elapsed report is
// kept in the sample history but cannot rewind the snapshot.
func (m *safetyMonitor) observe(snap *domain.SafetySnapshot, kind domain.VerdictKind, resp *domain.ClassifiedResponse) domain.TurnSample {
	if resp.ElapsedSeconds > snap.ElapsedSeconds {
		snap.ElapsedSeconds = resp.ElapsedSeconds
	}

	sample := domain.TurnSample{
		Accuracy:   accuracyFor(kind),
		Confidence: resp.Confidence,
		Hesitation: resp.HesitationSeconds,
		Sentiment:  resp.Sentiment,
		At:         m.now(),
	}

	window := m.cfg.Fatigue.Window
	if len(snap.Baseline) < window {
		snap.Baseline = append(snap.Baseline, sample)
	}
	snap.Window = append(snap.Window, sample)
	if len(snap.Window) > window {
		snap.Window = snap.Window[len(snap.Window)-window:]
	}

	if resp.RedFlag {
		snap.RedFlagCount++
	}
	return sample
}

// tier maps the session's elapsed seconds onto the duration ladder.
func (m *safetyMonitor) tier(elapsedSeconds float64) domain.DurationTier {
	d := m.cfg.Durations
	switch {
	case elapsedSeconds >= d.HardStopSeconds:
		return domain.DurationHardStop
	case elapsedSeconds >= d.WarnSeconds:
		return domain.DurationWarn
	case elapsedSeconds >= d.OfferBreakSeconds:
		return domain.DurationOfferBreak
	default:
		return domain.DurationOK
	}
}

// fatigued compares the rolling window against the baseline. It stays quiet
// until both hold a full window of samples; a short session never trips it.
func (m *safetyMonitor) fatigued(snap *domain.SafetySnapshot) (bool, string) {
	window := m.cfg.Fatigue.Window
	if len(snap.Baseline) < window || len(snap.Window) < window {
		return false, ""
	}

	baseAcc, baseConf, _ := sampleMeans(snap.Baseline)
	winAcc, winConf, winHes := sampleMeans(snap.Window)

	f := m.cfg.Fatigue
	switch {
	case baseAcc-winAcc > f.AccuracyDrop:
		return true, fmt.Sprintf("accuracy dropped %.2f from baseline %.2f", baseAcc-winAcc, baseAcc)
	case baseConf-winConf > f.ConfidenceDrop:
		return true, fmt.Sprintf("confidence dropped %.2f from baseline %.2f", baseConf-winConf, baseConf)
	case winHes > f.MaxHesitationSeconds:
		return true, fmt.Sprintf("mean hesitation %.1fs over last %d turns", winHes, window)
	}
	return false, ""
}

// sentimentFatigued reports whether enough recent turns carried a fatigued
// sentiment to recommend a break regardless of the physiological signals.
func (m *safetyMonitor) sentimentFatigued(snap *domain.SafetySnapshot) bool {
	count := 0
	for _, s := range snap.Window {
		if s.Sentiment == domain.SentimentFatigued {
			count++
		}
	}
	return count >= m.cfg.Fatigue.SentimentCount
}

// record appends an incident to the ledger. Kinds marked once-per-session
// are skipped after their first occurrence so an ongoing condition does not
// flood the ledger turn after turn.
func (m *safetyMonitor) record(snap *domain.SafetySnapshot, kind domain.IncidentKind, detail string) {
	switch kind {
	case domain.IncidentFatigue, domain.IncidentDurationWarning, domain.IncidentDurationHardStop:
		for _, inc := range snap.Incidents {
			if inc.Kind == kind {
				return
			}
		}
	}
	snap.Incidents = append(snap.Incidents, domain.Incident{
		At:       m.now(),
		Kind:     kind,
		Severity: domain.SeverityFor(kind),
		Detail:   detail,
	})
}

// escalationRecommended reports whether the incident ledger has accumulated
// enough weight that a professional handoff should be suggested: any
// critical incident, or two of high severity.
func (m *safetyMonitor) escalationRecommended(snap *domain.SafetySnapshot) bool {
	high, critical := 0, 0
	for _, inc := range snap.Incidents {
		switch inc.Severity {
		case domain.SeverityHigh:
			high++
		case domain.SeverityCritical:
			critical++
		}
	}
	return critical >= 1 || high >= 2
}

func sampleMeans(samples []domain.TurnSample) (accuracy, confidence, hesitation float64) {
	if len(samples) == 0 {
		return 0, 0, 0
	}
	for _, s := range samples {
		accuracy += s.Accuracy
		confidence += s.Confidence
		hesitation += s.Hesitation
	}
	n := float64(len(samples))
	return accuracy / n, confidence / n, hesitation / n
}

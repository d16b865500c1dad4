package observability

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kharven/refract/pkg/domain"
)

// Metrics exposes the engine lifecycle as Prometheus collectors. Create one
// per process, register it, and wire its Hooks into the engine:
//
//	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)
//	eng, err := refract.New(refract.WithLifecycleHooks(metrics.Hooks()))
//
// Sessions count as active from the first step they enter until they reach a
// terminal step. Step durations are measured from the event timestamps, so
// they stay correct even when hooks are invoked asynchronously.
type Metrics struct {
	stepVisits   *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	turns        *prometheus.CounterVec
	adjustments  *prometheus.CounterVec
	escalations  *prometheus.CounterVec
	active       prometheus.Gauge

	mu       sync.Mutex
	entered  map[string]time.Time
	sessions map[string]struct{}
}

// NewMetrics builds the collector set and registers it with reg. A nil reg
// falls back to the default registerer. Registering the same metric names
// twice panics, so create at most one Metrics per registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		stepVisits: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refract_step_visits_total",
				Help: "Total number of entries into each protocol step",
			},
			[]string{"step_id"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "refract_step_duration_seconds",
				Help:    "Time spent on a protocol step before leaving it",
				Buckets: prometheus.ExponentialBuckets(1, 2, 10),
			},
			[]string{"step_id"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refract_turns_total",
				Help: "Total turns processed, by step and quality verdict",
			},
			[]string{"step_id", "verdict"},
		),
		adjustments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refract_adjustments_total",
				Help: "Lens adjustment attempts, by eye, parameter and acceptance",
			},
			[]string{"eye", "parameter", "accepted"},
		),
		escalations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "refract_escalations_total",
				Help: "Sessions escalated to a professional, by reason",
			},
			[]string{"reason"},
		),
		active: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "refract_active_sessions",
				Help: "Sessions that entered the protocol and have not reached a terminal step",
			},
		),
		entered:  make(map[string]time.Time),
		sessions: make(map[string]struct{}),
	}

	reg.MustRegister(m.stepVisits, m.stepDuration, m.turns, m.adjustments, m.escalations, m.active)
	return m
}

// Hooks returns the lifecycle callbacks that feed the collectors. Combine
// them with other hook sets via Chain.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter:  m.stepEnter,
		OnStepLeave:  m.stepLeave,
		OnTurn:       m.turn,
		OnAdjustment: m.adjustment,
		OnEscalation: m.escalation,
	}
}

func (m *Metrics) stepEnter(_ context.Context, e *domain.StepEvent) {
	m.stepVisits.WithLabelValues(string(e.StepID)).Inc()

	m.mu.Lock()
	defer m.mu.Unlock()
	if e.StepID.IsTerminal() {
		delete(m.sessions, e.SessionID)
		delete(m.entered, e.SessionID)
	} else {
		m.sessions[e.SessionID] = struct{}{}
		m.entered[e.SessionID] = e.Timestamp
	}
	m.active.Set(float64(len(m.sessions)))
}

func (m *Metrics) stepLeave(_ context.Context, e *domain.StepEvent) {
	m.mu.Lock()
	start, ok := m.entered[e.SessionID]
	delete(m.entered, e.SessionID)
	m.mu.Unlock()

	if ok && !e.Timestamp.Before(start) {
		m.stepDuration.WithLabelValues(string(e.StepID)).Observe(e.Timestamp.Sub(start).Seconds())
	}
}

func (m *Metrics) turn(_ context.Context, e *domain.TurnEvent) {
	m.turns.WithLabelValues(string(e.StepID), string(e.Verdict)).Inc()
}

func (m *Metrics) adjustment(_ context.Context, e *domain.AdjustmentEvent) {
	m.adjustments.WithLabelValues(
		string(e.Request.Eye),
		string(e.Request.Parameter),
		strconv.FormatBool(e.Accepted),
	).Inc()
}

func (m *Metrics) escalation(_ context.Context, e *domain.EscalationEvent) {
	m.escalations.WithLabelValues(string(e.Reason)).Inc()
}

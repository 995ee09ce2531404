package service

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/janpow77/flowinvoice-sub001/model"
	"github.com/janpow77/flowinvoice-sub001/review"
)

// Metrics holds the prometheus collectors of the review desk. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	transitions     *prometheus.CounterVec
	submissions     *prometheus.CounterVec
	upstream        *prometheus.CounterVec
	analyzeTriggers *prometheus.CounterVec
	activeSessions  prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowaudit",
			Name:      "review_transitions_total",
			Help:      "Review state transitions by source and target state.",
		}, []string{"from", "to"}),
		submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowaudit",
			Name:      "feedback_submissions_total",
			Help:      "Successful feedback submissions by rating.",
		}, []string{"rating"}),
		upstream: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowaudit",
			Name:      "upstream_requests_total",
			Help:      "Requests to the FlowAudit API by method and status.",
		}, []string{"method", "status"}),
		analyzeTriggers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "flowaudit",
			Name:      "analyze_triggers_total",
			Help:      "Analyze triggers by outcome.",
		}, []string{"outcome"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "flowaudit",
			Name:      "review_sessions_active",
			Help:      "Review sessions currently held in memory.",
		}),
	}

	for _, c := range []prometheus.Collector{m.transitions, m.submissions, m.upstream, m.analyzeTriggers, m.activeSessions} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveTransition matches review.Options.OnTransition
func (m *Metrics) ObserveTransition(from, to review.State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(from.String(), to.String()).Inc()
}

// FeedbackSubmitted implements review.Observer
func (m *Metrics) FeedbackSubmitted(_ context.Context, _ *model.Document, sub *model.FeedbackSubmission) error {
	if m == nil {
		return nil
	}
	m.submissions.WithLabelValues(string(sub.Rating)).Inc()
	return nil
}

func (m *Metrics) ObserveUpstream(method, status string) {
	if m == nil {
		return
	}
	m.upstream.WithLabelValues(method, status).Inc()
}

func (m *Metrics) ObserveAnalyze(outcome string) {
	if m == nil {
		return
	}
	m.analyzeTriggers.WithLabelValues(outcome).Inc()
}

func (m *Metrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

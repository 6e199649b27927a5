// Package metrics exposes the gateway's Prometheus instruments. A nil
// *Metrics is valid and records nothing, so components can be built without
// a registry in tests.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics groups every counter and gauge the gateway records.
type Metrics struct {
	tokenRequests    *prometheus.CounterVec
	summaries        *prometheus.CounterVec
	transcriptWrites *prometheus.CounterVec
	notifications    *prometheus.CounterVec
	pending          prometheus.Gauge
	intakes          *prometheus.CounterVec
}

// New registers the gateway instruments on registry. It returns nil when
// registry is nil.
func New(registry *prometheus.Registry) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		tokenRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chabot_token_requests_total",
				Help: "Conversation token requests by outcome (cache_hit, fetched, failed)",
			},
			[]string{"outcome"},
		),
		summaries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chabot_summaries_total",
				Help: "Blueprints generated by source (gemini, fallback)",
			},
			[]string{"source"},
		),
		transcriptWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chabot_transcript_writes_total",
				Help: "Transcript side-channel writes by outcome",
			},
			[]string{"outcome"},
		),
		notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chabot_notifications_total",
				Help: "Delayed notifications by outcome (sent, failed, dropped)",
			},
			[]string{"outcome"},
		),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "chabot_notifications_pending",
			Help: "Notifications waiting for their delay or a worker",
		}),
		intakes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chabot_session_intakes_total",
				Help: "Session intake requests by outcome",
			},
			[]string{"outcome"},
		),
	}

	registry.MustRegister(
		m.tokenRequests,
		m.summaries,
		m.transcriptWrites,
		m.notifications,
		m.pending,
		m.intakes,
	)
	return m
}

func (m *Metrics) TokenRequest(outcome string) {
	if m != nil {
		m.tokenRequests.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Summary(source string) {
	if m != nil {
		m.summaries.WithLabelValues(source).Inc()
	}
}

func (m *Metrics) TranscriptWrite(outcome string) {
	if m != nil {
		m.transcriptWrites.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) Notification(outcome string) {
	if m != nil {
		m.notifications.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) PendingAdd(delta float64) {
	if m != nil {
		m.pending.Add(delta)
	}
}

func (m *Metrics) Intake(outcome string) {
	if m != nil {
		m.intakes.WithLabelValues(outcome).Inc()
	}
}

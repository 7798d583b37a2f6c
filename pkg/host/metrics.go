package host

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/safehost-dev/safehost/pkg/protocol"
)

// Metrics instruments the router and size negotiation. All methods are safe
// on a nil receiver, so instrumentation is optional.
type Metrics struct {
	envelopesDispatched *prometheus.CounterVec
	envelopesSent       *prometheus.CounterVec
	dropsTotal          *prometheus.CounterVec
	activeSessions      prometheus.Gauge
	resizeOutcomes      *prometheus.CounterVec
}

// Drop reasons.
const (
	DropReasonOrigin      = "origin"
	DropReasonDecode      = "decode"
	DropReasonUnknownSlot = "unknown_slot"
)

// Resize outcomes.
const (
	ResizeOutcomeApplied  = "applied"
	ResizeOutcomeMismatch = "mismatch"
	ResizeOutcomeRejected = "rejected"
)

// NewMetrics creates and registers the host metrics. A nil registerer uses
// the default Prometheus registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		envelopesDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safehost",
			Name:      "envelopes_dispatched_total",
			Help:      "Inbound envelopes dispatched to a session, by service",
		}, []string{"service"}),

		envelopesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safehost",
			Name:      "envelopes_sent_total",
			Help:      "Outbound envelopes posted to creatives, by service",
		}, []string{"service"}),

		dropsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safehost",
			Name:      "drops_total",
			Help:      "Inbound events dropped before reaching a session, by reason",
		}, []string{"reason"}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "safehost",
			Name:      "active_sessions",
			Help:      "Registered slot sessions (registry entries are never removed)",
		}),

		resizeOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "safehost",
			Name:      "resize_outcomes_total",
			Help:      "Resize negotiation outcomes, by result",
		}, []string{"outcome"}),
	}
}

// Dispatched records an inbound envelope forwarded to a session.
func (m *Metrics) Dispatched(svc protocol.Service) {
	if m == nil {
		return
	}
	m.envelopesDispatched.WithLabelValues(svc.String()).Inc()
}

// Sent records an outbound envelope posted to a creative.
func (m *Metrics) Sent(svc protocol.Service) {
	if m == nil {
		return
	}
	m.envelopesSent.WithLabelValues(svc.String()).Inc()
}

// Drop records an inbound event dropped before session dispatch.
func (m *Metrics) Drop(reason string) {
	if m == nil {
		return
	}
	m.dropsTotal.WithLabelValues(reason).Inc()
}

// SessionRegistered records a new registry entry.
func (m *Metrics) SessionRegistered() {
	if m == nil {
		return
	}
	m.activeSessions.Inc()
}

// ResizeOutcome records the result of one resize negotiation.
func (m *Metrics) ResizeOutcome(outcome string) {
	if m == nil {
		return
	}
	m.resizeOutcomes.WithLabelValues(outcome).Inc()
}

// Package metrics holds the Prometheus instruments for the match and
// conversation core.
//
// All methods are safe on a nil *Metrics so components can run without
// instrumentation in tests.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "muzz"

// Delivery outcomes.
const (
	OutcomeDelivered = "delivered"
	OutcomeOffline   = "offline"
	OutcomeDropped   = "dropped"
)

// AI reply outcomes.
const (
	ReplySent      = "sent"
	ReplyFailed    = "generation_failed"
	ReplyTimeout   = "generation_timeout"
	ReplyDiscarded = "discarded"
	ReplyCancelled = "cancelled"
)

type Metrics struct {
	// SwipesTotal counts swipes by decision (like, dislike) and result
	// (recorded, matched, limited).
	SwipesTotal *prometheus.CounterVec

	// MatchesCreatedTotal counts Match rows created.
	MatchesCreatedTotal prometheus.Counter

	// MessagesTotal counts persisted messages by origin (human, ai).
	MessagesTotal *prometheus.CounterVec

	// DeliveriesTotal counts live pushes by event and outcome.
	DeliveriesTotal *prometheus.CounterVec

	// ConnectionsActive tracks registered live connections.
	ConnectionsActive prometheus.Gauge

	// MalformedEventsTotal counts rejected inbound live events.
	MalformedEventsTotal *prometheus.CounterVec

	// AIRepliesTotal counts AI pipeline runs by outcome.
	AIRepliesTotal *prometheus.CounterVec

	// AIGenerationSeconds measures calls to the text generator.
	AIGenerationSeconds prometheus.Histogram
}

// New creates and registers all instruments on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SwipesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "match", Name: "swipes_total",
			Help: "Swipes by decision and result",
		}, []string{"decision", "result"}),
		MatchesCreatedTotal: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "match", Name: "created_total",
			Help: "Matches created on mutual like",
		}),
		MessagesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "chat", Name: "messages_total",
			Help: "Persisted messages by origin",
		}, []string{"origin"}),
		DeliveriesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "deliveries_total",
			Help: "Live event pushes by event and outcome",
		}, []string{"event", "outcome"}),
		ConnectionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "relay", Name: "connections_active",
			Help: "Registered live connections",
		}),
		MalformedEventsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "relay", Name: "malformed_events_total",
			Help: "Inbound live events rejected as malformed",
		}, []string{"event"}),
		AIRepliesTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ai", Name: "replies_total",
			Help: "AI reply pipeline runs by outcome",
		}, []string{"outcome"}),
		AIGenerationSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ai", Name: "generation_seconds",
			Help:    "Latency of reply generation calls",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
	}
}

func (m *Metrics) Swipe(decision, result string) {
	if m == nil {
		return
	}
	m.SwipesTotal.WithLabelValues(decision, result).Inc()
}

func (m *Metrics) MatchCreated() {
	if m == nil {
		return
	}
	m.MatchesCreatedTotal.Inc()
}

func (m *Metrics) MessageStored(aiGenerated bool) {
	if m == nil {
		return
	}
	origin := "human"
	if aiGenerated {
		origin = "ai"
	}
	m.MessagesTotal.WithLabelValues(origin).Inc()
}

func (m *Metrics) Delivery(event, outcome string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) SetConnections(n int) {
	if m == nil {
		return
	}
	m.ConnectionsActive.Set(float64(n))
}

func (m *Metrics) MalformedEvent(event string) {
	if m == nil {
		return
	}
	m.MalformedEventsTotal.WithLabelValues(event).Inc()
}

func (m *Metrics) AIReply(outcome string) {
	if m == nil {
		return
	}
	m.AIRepliesTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveGeneration(seconds float64) {
	if m == nil {
		return
	}
	m.AIGenerationSeconds.Observe(seconds)
}

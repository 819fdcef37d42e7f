// ABOUTME: Prometheus instrumentation for the delivery pipeline
// ABOUTME: Counters for routing outcomes, histogram for fan-out latency

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the instruments shared by the interceptor and connector.
// Construct one per process with a dedicated registry so tests can build
// as many as they need without duplicate-registration panics.
type Metrics struct {
	// EventsReceived counts external events accepted by the interceptor,
	// labeled by event type.
	EventsReceived *prometheus.CounterVec

	// RoutingMisses counts events for conversations with no current owner.
	RoutingMisses prometheus.Counter

	// DuplicatesSuppressed counts upstream redeliveries dropped by the
	// dedupe cache before routing.
	DuplicatesSuppressed prometheus.Counter

	// MessagesPublished counts envelopes published on the routing channel.
	MessagesPublished prometheus.Counter

	// MessagesDelivered counts envelopes fanned out to local rooms,
	// labeled by event type.
	MessagesDelivered *prometheus.CounterVec

	// DeliveryLatency measures seconds from the interceptor's ack stamp to
	// local fan-out.
	DeliveryLatency prometheus.Histogram
}

// New creates the metric set registered against reg. Pass a fresh
// prometheus.NewRegistry() unless sharing the default registerer is
// intended.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		EventsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convo_relay",
			Name:      "events_received_total",
			Help:      "External events accepted by the interceptor.",
		}, []string{"event_type"}),
		RoutingMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "convo_relay",
			Name:      "routing_misses_total",
			Help:      "Events for conversations with no registered owner.",
		}),
		DuplicatesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "convo_relay",
			Name:      "duplicates_suppressed_total",
			Help:      "Upstream redeliveries dropped by the dedupe cache.",
		}),
		MessagesPublished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "convo_relay",
			Name:      "messages_published_total",
			Help:      "Envelopes published on the routing channel.",
		}),
		MessagesDelivered: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convo_relay",
			Name:      "messages_delivered_total",
			Help:      "Envelopes fanned out to local conversation rooms.",
		}, []string{"event_type"}),
		DeliveryLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "convo_relay",
			Name:      "delivery_latency_seconds",
			Help:      "Seconds between interceptor acknowledgment and local fan-out.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

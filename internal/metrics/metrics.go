// Package metrics exposes Prometheus metrics for the fanout path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chorecycle"

// Custom registry to avoid the default Go collectors.
var registry = prometheus.NewRegistry()

var (
	// EventsPublished counts domain events published to the store channel.
	EventsPublished = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_published_total",
		Help:      "Domain events published to the update channel.",
	})

	// EventsDelivered counts per-connection deliveries by the relay.
	EventsDelivered = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_delivered_total",
		Help:      "Events delivered to individual live connections.",
	})

	// EventsDropped counts events dropped because their audience could not
	// be resolved.
	EventsDropped = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_dropped_total",
		Help:      "Events dropped without delivery.",
	})

	// DeliveryErrors counts connection writes that failed and caused the
	// connection to be pruned.
	DeliveryErrors = promauto.With(registry).NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "delivery_errors_total",
		Help:      "Failed event writes that pruned a connection.",
	})

	// ConnectionsActive tracks authenticated live connections.
	ConnectionsActive = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_active",
		Help:      "Authenticated websocket connections currently registered.",
	})

	// ConnectionsPending tracks connections awaiting the auth handshake.
	ConnectionsPending = promauto.With(registry).NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "connections_pending",
		Help:      "Websocket connections that have not authenticated yet.",
	})
)

// Handler serves the metrics endpoint for this registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

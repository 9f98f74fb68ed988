// Capturehub - Messaging Media Capture and Catalog
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/capturehub

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Ingest outcomes used as the "outcome" label of IngestEventsTotal.
const (
	OutcomeStored          = "stored"
	OutcomeSkipped         = "skipped"
	OutcomeRetrievalFailed = "retrieval_failed"
	OutcomeStoreFailed     = "store_failed"
	OutcomeCatalogFailed   = "catalog_failed"
)

var (
	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Catalog Metrics
	CatalogMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_mutations_total",
			Help: "Total number of catalog mutations by operation and result",
		},
		[]string{"operation", "result"}, // result: "ok", "rejected", "persist_failed"
	)

	CatalogPersistDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "catalog_persist_duration_seconds",
			Help:    "Duration of full catalog snapshot writes in seconds",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		},
		[]string{"backend"},
	)

	CatalogEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_entries",
			Help: "Current number of media entries in the catalog",
		},
	)

	CatalogAlbums = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_albums",
			Help: "Current number of albums in the catalog",
		},
	)

	CatalogInconsistencies = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_inconsistencies_total",
			Help: "Total number of catalog/binary store inconsistencies detected",
		},
		[]string{"kind"}, // "missing_binary", "orphan_binary", "dangling_album_ref"
	)

	CatalogPendingDeletes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "catalog_pending_binary_deletes",
			Help: "Binaries of deleted entries waiting for a delete retry",
		},
	)

	// Ingest Metrics
	IngestEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_events_total",
			Help: "Total number of inbound message events by outcome",
		},
		[]string{"outcome"},
	)

	IngestFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_fetch_duration_seconds",
			Help:    "Duration of payload retrieval from the messaging session",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	IngestBytesStored = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ingest_bytes_stored_total",
			Help: "Total payload bytes written to the binary store by media kind",
		},
		[]string{"kind"},
	)

	IngestQueueDepth = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ingest_queue_depth",
			Help: "Current number of inbound events waiting to be processed",
		},
	)

	SessionState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "session_state",
			Help: "Messaging session connection state (1 for the current state)",
		},
		[]string{"state"},
	)

	// Session Bridge Metrics
	BridgeMessagesConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_bridge_messages_total",
			Help: "Total number of messages consumed from the session transport",
		},
		[]string{"topic", "result"}, // result: "enqueued", "malformed", "rejected"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSBroadcastsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_broadcasts_dropped_total",
			Help: "Total number of broadcasts dropped because a buffer was full",
		},
		[]string{"reason"}, // "hub_full", "client_full"
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordCatalogMutation records the result of one catalog mutation.
func RecordCatalogMutation(operation, result string) {
	CatalogMutations.WithLabelValues(operation, result).Inc()
}

// RecordCatalogPersist records how long a snapshot write took.
func RecordCatalogPersist(backend string, duration time.Duration) {
	CatalogPersistDuration.WithLabelValues(backend).Observe(duration.Seconds())
}

// UpdateCatalogGauges sets the entry and album gauges.
func UpdateCatalogGauges(entries, albums int) {
	CatalogEntries.Set(float64(entries))
	CatalogAlbums.Set(float64(albums))
}

// RecordInconsistency counts a detected catalog/binary store mismatch.
func RecordInconsistency(kind string) {
	CatalogInconsistencies.WithLabelValues(kind).Inc()
}

// RecordIngestOutcome counts one processed inbound event.
func RecordIngestOutcome(outcome string) {
	IngestEventsTotal.WithLabelValues(outcome).Inc()
}

// RecordIngestFetch records payload retrieval latency.
func RecordIngestFetch(duration time.Duration) {
	IngestFetchDuration.Observe(duration.Seconds())
}

// RecordIngestBytes counts bytes stored for a media kind.
func RecordIngestBytes(kind string, n int) {
	IngestBytesStored.WithLabelValues(kind).Add(float64(n))
}

// UpdateSessionState marks state as the only active session state.
func UpdateSessionState(state string, known []string) {
	for _, s := range known {
		v := 0.0
		if s == state {
			v = 1
		}
		SessionState.WithLabelValues(s).Set(v)
	}
}

// RecordBridgeMessage counts one message consumed from the session transport.
func RecordBridgeMessage(topic, result string) {
	BridgeMessagesConsumed.WithLabelValues(topic, result).Inc()
}

// RecordBroadcastDropped counts a dropped real-time event.
func RecordBroadcastDropped(reason string) {
	WSBroadcastsDropped.WithLabelValues(reason).Inc()
}

// RecordCircuitBreakerTransition records a breaker state change and updates
// the current-state gauge.
func RecordCircuitBreakerTransition(name, from, to string, toValue float64) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(toValue)
}

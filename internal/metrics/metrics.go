// GeoClover - Live Pin Synchronization Bridge
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/geoclover

// Package metrics registers the Prometheus collectors for GeoClover and the
// small helpers components use to update them. Collectors live on the default
// registry and are served at /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Entry points and outcomes used as label values.
const (
	EntrypointSocket = "socket"
	EntrypointHTTP   = "http"
	EntrypointRelay  = "relay"
	EntrypointManual = "resubmit"

	OutcomeSuccess              = "success"
	OutcomeCredentialFailure    = "credential_acquisition"
	OutcomeReplicationFailure   = "replication"
	OutcomeUnknownFailure       = "unknown"
	TokenOutcomeFetched         = "fetched"
	TokenOutcomeCached          = "cached"
	TokenOutcomeFailed          = "failed"
	CircuitBreakerResultOK      = "success"
	CircuitBreakerResultFailed  = "failure"
	CircuitBreakerResultBlocked = "rejected"
)

var (
	// Ingest

	PinsReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoclover_pins_received_total",
			Help: "Pins accepted by an ingest entry point",
		},
		[]string{"entrypoint"},
	)

	// Hub

	BroadcastsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoclover_broadcasts_total",
			Help: "Events dispatched to connected clients",
		},
		[]string{"event"},
	)

	BroadcastDroppedClients = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geoclover_broadcast_dropped_clients_total",
			Help: "Clients removed because their send buffer was full during a broadcast",
		},
	)

	WSClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoclover_ws_clients",
			Help: "Currently connected realtime clients",
		},
	)

	WSMessagesRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "geoclover_ws_messages_rate_limited_total",
			Help: "Inbound realtime messages dropped by the per-connection limiter",
		},
	)

	// Replication

	ReplicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoclover_replications_total",
			Help: "Replication attempts by outcome",
		},
		[]string{"entrypoint", "outcome"},
	)

	ReplicationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "geoclover_replication_duration_seconds",
			Help:    "Wall time of a replication attempt including token acquisition",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	ReplicationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoclover_replications_in_flight",
			Help: "Background replications currently running",
		},
	)

	ReplicationJournalEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "geoclover_replication_journal_entries",
			Help: "Failed replications awaiting operator action",
		},
	)

	TokenRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoclover_token_requests_total",
			Help: "Access token acquisitions by outcome",
		},
		[]string{"outcome"},
	)

	// Relay

	RelayMessages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "geoclover_relay_messages_total",
			Help: "Cross-instance relay traffic",
		},
		[]string{"direction"}, // published, received, skipped, rejected
	)

	// Circuit breaker

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Requests through the circuit breaker",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// HTTP

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)
)

// RecordPinReceived counts a pin at its entry point.
func RecordPinReceived(entrypoint string) {
	PinsReceived.WithLabelValues(entrypoint).Inc()
}

// RecordBroadcast counts a dispatched event and any clients it dropped.
func RecordBroadcast(event string, dropped int) {
	BroadcastsTotal.WithLabelValues(event).Inc()
	if dropped > 0 {
		BroadcastDroppedClients.Add(float64(dropped))
	}
}

// RecordReplication records the outcome and duration of one attempt.
func RecordReplication(entrypoint, outcome string, duration time.Duration) {
	ReplicationsTotal.WithLabelValues(entrypoint, outcome).Inc()
	ReplicationDuration.Observe(duration.Seconds())
}

// TrackReplicationInFlight moves the in-flight gauge.
func TrackReplicationInFlight(inc bool) {
	if inc {
		ReplicationsInFlight.Inc()
	} else {
		ReplicationsInFlight.Dec()
	}
}

// RecordTokenRequest counts a token acquisition outcome.
func RecordTokenRequest(outcome string) {
	TokenRequests.WithLabelValues(outcome).Inc()
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest moves the active request gauge.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

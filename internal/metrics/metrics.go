// Package metrics defines the Prometheus collectors for the Helix request
// pipeline. Collectors register into the default registry; consumers expose
// them with promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request pipeline metrics
var (
	// RequestsTotal tracks dispatched API requests by method and response status.
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_requests_total",
			Help: "Total Helix API requests by method and status",
		},
		[]string{"method", "status"},
	)

	// RateLimitWaitSeconds tracks time spent waiting for rate-limit quota.
	RateLimitWaitSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "helix_rate_limit_wait_seconds",
			Help:    "Time spent waiting for rate-limit quota before dispatch",
			Buckets: []float64{.001, .01, .05, .1, .5, 1, 5, 15, 30},
		},
	)

	// TransportFailuresTotal tracks requests that never produced an HTTP response.
	TransportFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "helix_transport_failures_total",
			Help: "Total transport-level failures converted to status-0 envelopes",
		},
	)
)

// Token lifecycle metrics
var (
	// TokenRefreshesTotal tracks token refresh attempts by outcome.
	TokenRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "helix_token_refreshes_total",
			Help: "Total token refresh attempts by outcome",
		},
		[]string{"outcome"},
	)
)

// Circuit breaker metrics
var (
	// CircuitBreakerStateChanges tracks breaker state transitions.
	CircuitBreakerStateChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_changes_total",
			Help: "Circuit breaker state transitions by component and new state",
		},
		[]string{"component", "state"},
	)

	// CircuitBreakerState tracks current breaker state (0=closed, 1=half-open, 2=open).
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Current circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"component"},
	)
)

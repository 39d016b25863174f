package helix

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/gmt2001/StreamActions/internal/metrics"
)

// breakerTransport wraps a RoundTripper with a circuit breaker so a dead or
// slow upstream fails fast instead of tying up callers. Only transport-level
// failures count against the breaker; an HTTP response of any status is a
// success from the transport's point of view.
type breakerTransport struct {
	inner http.RoundTripper
	cb    *gobreaker.CircuitBreaker
}

func newBreakerTransport(inner http.RoundTripper, logger *slog.Logger) *breakerTransport {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "helix-transport",
		MaxRequests: 1,
		Interval:    10 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				"component", name,
				"from", from.String(),
				"to", to.String(),
			)
			metrics.CircuitBreakerStateChanges.WithLabelValues(name, to.String()).Inc()
			metrics.CircuitBreakerState.WithLabelValues(name).Set(breakerStateToFloat(to))
		},
	})

	return &breakerTransport{inner: inner, cb: cb}
}

func breakerStateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	v, err := t.cb.Execute(func() (any, error) {
		return t.inner.RoundTrip(req)
	})
	if err != nil {
		return nil, err
	}
	return v.(*http.Response), nil
}

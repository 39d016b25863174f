package helix

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"
)

// Rate limit headers reported by the API. The server's values are always
// authoritative and overwrite the local estimate.
const (
	headerRatelimitLimit     = "Ratelimit-Limit"
	headerRatelimitRemaining = "Ratelimit-Remaining"
	headerRatelimitReset     = "Ratelimit-Reset"
)

const (
	// DefaultBucket is the quota assumed before the first authoritative
	// header update.
	DefaultBucket = 800

	// defaultResetWindow is the assumed bucket window until the server
	// reports a reset timestamp.
	defaultResetWindow = time.Minute
)

// Limiter tracks one session's request quota. Acquire gates request
// issuance; Update overwrites the local estimate with the server-reported
// values after every response. A single mutex serializes the two against
// each other, so concurrent callers never both consume the same unit of
// quota.
//
// Limiters are per-session and never shared: different actors have
// independent quotas.
type Limiter struct {
	mu    sync.Mutex
	clock clockwork.Clock
	pacer *rate.Limiter

	remaining  int
	bucket     int
	resetAt    time.Time
	observedAt time.Time
}

// NewLimiter creates a limiter that assumes a full bucket until the first
// header update. Pacing is disabled by default; see SetPace.
func NewLimiter(clock clockwork.Clock, bucket int) *Limiter {
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	now := clock.Now()
	return &Limiter{
		clock:      clock,
		pacer:      rate.NewLimiter(rate.Inf, 0),
		remaining:  bucket,
		bucket:     bucket,
		resetAt:    now.Add(defaultResetWindow),
		observedAt: now,
	}
}

// SetPace enables steady pacing on top of the quota bucket, smoothing bursts
// that would otherwise drain the bucket at once.
func (l *Limiter) SetPace(r rate.Limit, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pacer = rate.NewLimiter(r, burst)
}

// Acquire blocks until a unit of quota is available or timeout elapses, in
// which case it fails with ErrQuotaTimeout. An exhausted bucket refills when
// the reset time passes; a reset time already in the past refills without
// waiting.
func (l *Limiter) Acquire(ctx context.Context, timeout time.Duration) error {
	deadline := l.clock.Now().Add(timeout)

	for {
		l.mu.Lock()
		now := l.clock.Now()
		if !now.Before(l.resetAt) {
			l.remaining = l.bucket
			l.resetAt = now.Add(defaultResetWindow)
		}
		if l.remaining > 0 {
			l.remaining--
			pacer := l.pacer
			l.mu.Unlock()
			return pacer.Wait(ctx)
		}
		wait := l.resetAt.Sub(now)
		l.mu.Unlock()

		budget := deadline.Sub(now)
		if budget <= 0 {
			return ErrQuotaTimeout
		}
		if wait > budget {
			wait = budget
		}

		select {
		case <-l.clock.After(wait):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Update overwrites the local quota estimate with the server-reported
// values. Missing headers leave the corresponding field untouched. Called
// after every response, success or error.
func (l *Limiter) Update(h http.Header) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.observedAt = l.clock.Now()

	if v := h.Get(headerRatelimitLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			l.bucket = n
		}
	}
	if v := h.Get(headerRatelimitRemaining); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			if n < 0 {
				n = 0
			}
			l.remaining = n
		}
	}
	if v := h.Get(headerRatelimitReset); v != "" {
		if sec, err := strconv.ParseInt(v, 10, 64); err == nil {
			l.resetAt = time.Unix(sec, 0)
		}
	}
}

// Snapshot returns the current quota estimate.
func (l *Limiter) Snapshot() (remaining, bucket int, resetAt time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.remaining, l.bucket, l.resetAt
}

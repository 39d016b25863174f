package helix

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiterAcquire_DecrementsQuota(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 5)

	require.NoError(t, l.Acquire(context.Background(), time.Second))

	remaining, bucket, _ := l.Snapshot()
	assert.Equal(t, 4, remaining)
	assert.Equal(t, 5, bucket)
}

func TestLimiterAcquire_RefillsWhenResetPassed(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 1)

	require.NoError(t, l.Acquire(context.Background(), time.Second))

	// Bucket is empty but the reset time is already behind us, so the
	// next acquire refills without waiting.
	fc.Advance(defaultResetWindow + time.Second)
	require.NoError(t, l.Acquire(context.Background(), time.Second))

	remaining, _, _ := l.Snapshot()
	assert.Equal(t, 0, remaining)
}

func TestLimiterAcquire_WaitsUntilReset(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 1)

	require.NoError(t, l.Acquire(context.Background(), 5*time.Minute))

	done := make(chan error, 1)
	go func() {
		done <- l.Acquire(context.Background(), 5*time.Minute)
	}()

	fc.BlockUntil(1)
	select {
	case err := <-done:
		t.Fatalf("acquire returned before reset: %v", err)
	default:
	}

	fc.Advance(defaultResetWindow)
	require.NoError(t, <-done)
}

func TestLimiterAcquire_TimeoutExceeded(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 1)

	require.NoError(t, l.Acquire(context.Background(), time.Second))

	done := make(chan error, 1)
	go func() {
		done <- l.Acquire(context.Background(), 10*time.Second)
	}()

	fc.BlockUntil(1)
	fc.Advance(10 * time.Second)

	assert.ErrorIs(t, <-done, ErrQuotaTimeout)
}

func TestLimiterAcquire_ContextCanceled(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 1)

	require.NoError(t, l.Acquire(context.Background(), time.Second))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- l.Acquire(ctx, time.Minute)
	}()

	fc.BlockUntil(1)
	cancel()

	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestLimiterUpdate_ServerIsAuthoritative(t *testing.T) {
	fc := clockwork.NewFakeClockAt(time.Unix(1000, 0))
	l := NewLimiter(fc, 100)

	for i := 0; i < 10; i++ {
		require.NoError(t, l.Acquire(context.Background(), time.Second))
	}
	remaining, _, _ := l.Snapshot()
	require.Equal(t, 90, remaining)

	h := http.Header{}
	h.Set("Ratelimit-Limit", "800")
	h.Set("Ratelimit-Remaining", "794")
	h.Set("Ratelimit-Reset", "1060")
	l.Update(h)

	remaining, bucket, resetAt := l.Snapshot()
	assert.Equal(t, 794, remaining)
	assert.Equal(t, 800, bucket)
	assert.Equal(t, time.Unix(1060, 0), resetAt)
}

func TestLimiterUpdate_MissingHeadersKeepEstimate(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 100)

	require.NoError(t, l.Acquire(context.Background(), time.Second))
	l.Update(http.Header{})

	remaining, bucket, _ := l.Snapshot()
	assert.Equal(t, 99, remaining)
	assert.Equal(t, 100, bucket)
}

func TestLimiterUpdate_GarbageHeadersIgnored(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 100)

	h := http.Header{}
	h.Set("Ratelimit-Limit", "not-a-number")
	h.Set("Ratelimit-Remaining", "also-not")
	h.Set("Ratelimit-Reset", "nope")
	l.Update(h)

	remaining, bucket, _ := l.Snapshot()
	assert.Equal(t, 100, remaining)
	assert.Equal(t, 100, bucket)
}

func TestLimiterUpdate_NegativeRemainingClampedToZero(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 100)

	h := http.Header{}
	h.Set("Ratelimit-Remaining", "-3")
	l.Update(h)

	remaining, _, _ := l.Snapshot()
	assert.Equal(t, 0, remaining)
}

func TestLimiter_ConcurrentCallersSingleUnit(t *testing.T) {
	fc := clockwork.NewFakeClock()
	l := NewLimiter(fc, 1)

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			results <- l.Acquire(context.Background(), 2*time.Minute)
		}()
	}

	// Exactly one caller consumed the single unit; the other is parked
	// on the reset timer.
	fc.BlockUntil(1)
	require.NoError(t, <-results)
	select {
	case err := <-results:
		t.Fatalf("second caller should still be waiting, got %v", err)
	default:
	}

	fc.Advance(defaultResetWindow)
	require.NoError(t, <-results)
}

func TestLimiter_PaceSmoothsBursts(t *testing.T) {
	l := NewLimiter(clockwork.NewRealClock(), 100)
	l.SetPace(100, 1)

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, l.Acquire(context.Background(), time.Second))
	}

	// 3 acquires at 100/s with burst 1 needs at least ~20ms.
	assert.GreaterOrEqual(t, time.Since(start), 15*time.Millisecond)
}

package breaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deepsearchstack/deepsearch/internal/core/domain"
)

var errBoom = errors.New("boom")

func failing(ctx context.Context) error  { return errBoom }
func succeeding(ctx context.Context) error { return nil }

func newTestBreaker(threshold int, recovery time.Duration, halfOpenMax int) *Breaker {
	return New("test", Config{
		FailureThreshold: threshold,
		RecoveryTimeout:  recovery,
		HalfOpenMaxCalls: halfOpenMax,
	})
}

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b := newTestBreaker(3, time.Second, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		err := b.Call(ctx, failing)
		require.ErrorIs(t, err, errBoom)
	}
	assert.Equal(t, StateOpen, b.State())

	// 4th call must be rejected without invoking the wrapped function
	invoked := false
	err := b.Call(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
	assert.False(t, invoked)
}

func TestBreaker_HalfOpenProbeAfterRecovery(t *testing.T) {
	b := newTestBreaker(3, 100*time.Millisecond, 2)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = b.Call(ctx, failing)
	}
	require.Equal(t, StateOpen, b.State())

	time.Sleep(110 * time.Millisecond)

	invocations := 0
	err := b.Call(ctx, func(ctx context.Context) error {
		invocations++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, invocations)
	assert.Equal(t, StateHalfOpen, b.State())
}

func TestBreaker_ClosesAfterHalfOpenSuccesses(t *testing.T) {
	b := newTestBreaker(2, 50*time.Millisecond, 2)
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, failing)
	require.Equal(t, StateOpen, b.State())

	time.Sleep(60 * time.Millisecond)

	require.NoError(t, b.Call(ctx, succeeding))
	require.NoError(t, b.Call(ctx, succeeding))
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_HalfOpenFailureReopens(t *testing.T) {
	b := newTestBreaker(2, 50*time.Millisecond, 3)
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, failing)
	time.Sleep(60 * time.Millisecond)

	_ = b.Call(ctx, failing)
	assert.Equal(t, StateOpen, b.State())

	err := b.Call(ctx, succeeding)
	assert.ErrorIs(t, err, domain.ErrCircuitOpen)
}

func TestBreaker_HalfOpenCallLimit(t *testing.T) {
	b := newTestBreaker(1, 10*time.Millisecond, 1)
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	time.Sleep(20 * time.Millisecond)

	// first probe admitted but held in half-open until enough successes
	require.Equal(t, StateOpen, b.State())
	require.NoError(t, b.Call(ctx, succeeding))
	// single success with HalfOpenMaxCalls=1 closes immediately
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_SuccessResetsFailureCount(t *testing.T) {
	b := newTestBreaker(3, time.Second, 2)
	ctx := context.Background()

	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, failing)
	require.NoError(t, b.Call(ctx, succeeding))
	_ = b.Call(ctx, failing)
	_ = b.Call(ctx, failing)

	// only two consecutive failures since the success, still closed
	assert.Equal(t, StateClosed, b.State())
}

func TestBreaker_UntrackedErrorsDoNotCount(t *testing.T) {
	b := newTestBreaker(2, time.Second, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		err := b.Call(ctx, func(ctx context.Context) error {
			return Untracked(errBoom)
		})
		require.ErrorIs(t, err, errBoom)
	}

	assert.Equal(t, StateClosed, b.State())
	snap := b.Snapshot()
	assert.Equal(t, int64(5), snap.TotalCalls)
	assert.Equal(t, int64(0), snap.TotalFailures)
}

func TestBreaker_Snapshot(t *testing.T) {
	b := newTestBreaker(5, time.Second, 2)
	ctx := context.Background()

	_ = b.Call(ctx, succeeding)
	_ = b.Call(ctx, failing)

	snap := b.Snapshot()
	assert.Equal(t, StateClosed, snap.State)
	assert.Equal(t, int64(2), snap.TotalCalls)
	assert.Equal(t, int64(1), snap.TotalSuccesses)
	assert.Equal(t, int64(1), snap.TotalFailures)
	assert.InDelta(t, 0.5, snap.FailureRate, 1e-9)
}

func TestSet_GetCreatesOnce(t *testing.T) {
	s := NewSet(DefaultConfig())

	a := s.Get("wikipedia")
	b := s.Get("wikipedia")
	assert.Same(t, a, b)

	_, ok := s.Lookup("arxiv")
	assert.False(t, ok)

	s.Get("arxiv")
	assert.ElementsMatch(t, []string{"wikipedia", "arxiv"}, s.Names())
}

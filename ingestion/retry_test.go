package ingestion

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/poiesic/newswire/provider"
	"github.com/poiesic/newswire/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  3,
		AttemptDelay: time.Millisecond,
		RetryDelay:   time.Millisecond,
	}
}

func newTestRetrier(t *testing.T, policy RetryPolicy, shutdown *Shutdown) *Retrier {
	t.Helper()
	r, err := NewRetrier(policy, shutdown, nil)
	require.NoError(t, err)
	return r
}

func TestNewRetrier_Validation(t *testing.T) {
	_, err := NewRetrier(RetryPolicy{MaxAttempts: 0}, NewShutdown(), nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = NewRetrier(RetryPolicy{MaxAttempts: -1}, NewShutdown(), nil)
	assert.ErrorIs(t, err, ErrInvalidMaxAttempts)

	_, err = NewRetrier(RetryPolicy{MaxAttempts: 1, RetryDelay: -time.Second}, NewShutdown(), nil)
	assert.Error(t, err)

	_, err = NewRetrier(fastPolicy(), nil, nil)
	assert.ErrorIs(t, err, ErrShutdownRequired)
}

func TestDefaultRetryPolicy(t *testing.T) {
	p := DefaultRetryPolicy()
	assert.Equal(t, 3, p.MaxAttempts)
	assert.Equal(t, 5*time.Second, p.AttemptDelay)
	assert.Equal(t, 5*time.Second, p.RetryDelay)
	assert.NoError(t, p.Validate())
}

func TestRetrier_SuccessFirstTry(t *testing.T) {
	r := newTestRetrier(t, fastPolicy(), NewShutdown())
	attempts := 0
	ok := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, 1, attempts, "should succeed on first try")
}

func TestRetrier_EventualSuccess(t *testing.T) {
	r := newTestRetrier(t, fastPolicy(), NewShutdown())
	attempts := 0
	ok := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	})
	assert.True(t, ok)
	assert.Equal(t, 3, attempts, "should succeed on third attempt")
}

func TestRetrier_Exhaustion(t *testing.T) {
	r := newTestRetrier(t, fastPolicy(), NewShutdown())
	attempts := 0
	ok := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		return &provider.ProviderError{Kind: provider.KindNetwork, Op: "top-headlines"}
	})
	assert.False(t, ok)
	assert.Equal(t, 3, attempts, "should attempt exactly MaxAttempts times")
}

func TestRetrier_DelayPrecedesFirstAttempt(t *testing.T) {
	policy := fastPolicy()
	policy.AttemptDelay = 30 * time.Millisecond
	r := newTestRetrier(t, policy, NewShutdown())

	start := time.Now()
	var firstAt time.Duration
	r.Run(context.Background(), func(ctx context.Context) error {
		firstAt = time.Since(start)
		return nil
	})
	assert.GreaterOrEqual(t, firstAt, 30*time.Millisecond)
}

func TestRetrier_StopDuringRetryWait(t *testing.T) {
	policy := fastPolicy()
	policy.RetryDelay = time.Minute
	shutdown := NewShutdown()
	r := newTestRetrier(t, policy, shutdown)

	var attempts atomic.Int32
	start := time.Now()
	ok := r.Run(context.Background(), func(ctx context.Context) error {
		attempts.Add(1)
		go func() {
			time.Sleep(20 * time.Millisecond)
			shutdown.Request()
		}()
		return errors.New("fail")
	})

	assert.False(t, ok)
	assert.Equal(t, int32(1), attempts.Load(), "no attempt may start after the stop")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetrier_StopDuringAttemptDelay(t *testing.T) {
	policy := fastPolicy()
	policy.AttemptDelay = time.Minute
	shutdown := NewShutdown()
	r := newTestRetrier(t, policy, shutdown)

	go func() {
		time.Sleep(20 * time.Millisecond)
		shutdown.Request()
	}()

	attempts := 0
	start := time.Now()
	ok := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	assert.False(t, ok)
	assert.Equal(t, 0, attempts)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestRetrier_StopBeforeStart(t *testing.T) {
	shutdown := NewShutdown()
	shutdown.Request()
	r := newTestRetrier(t, fastPolicy(), shutdown)

	attempts := 0
	ok := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		return nil
	})
	assert.False(t, ok)
	assert.Equal(t, 0, attempts)
}

func TestRetrier_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	r := newTestRetrier(t, fastPolicy(), NewShutdown())

	attempts := 0
	ok := r.Run(ctx, func(ctx context.Context) error {
		attempts++
		cancel()
		return errors.New("error")
	})
	assert.False(t, ok)
	assert.Equal(t, 1, attempts, "should stop when context is canceled")
}

func TestRetrier_RecoversPanic(t *testing.T) {
	r := newTestRetrier(t, fastPolicy(), NewShutdown())
	attempts := 0
	ok := r.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		panic("boom")
	})
	assert.False(t, ok)
	assert.Equal(t, 3, attempts)
}

func TestSafeCall_WrapsPanic(t *testing.T) {
	err := safeCall(context.Background(), func(ctx context.Context) error { panic("boom") })
	assert.ErrorIs(t, err, ErrCyclePanicked)
	assert.Contains(t, err.Error(), "boom")
}

func TestFailureCause(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"network", &provider.ProviderError{Kind: provider.KindNetwork}, CauseNetwork},
		{"timeout", &provider.ProviderError{Kind: provider.KindTimeout}, CauseTimeout},
		{"rejected", fmt.Errorf("fetch: %w", &provider.ProviderError{Kind: provider.KindRejected, StatusCode: 401}), CauseRejected},
		{"http", &provider.ProviderError{Kind: provider.KindHTTP, StatusCode: 500}, CauseHTTP},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), CauseTimeout},
		{"transaction", fmt.Errorf("%w: %w", storage.ErrTransactionFailed, errors.New("disk full")), CausePersistence},
		{"closed", storage.ErrStorageClosed, CausePersistence},
		{"other", errors.New("something"), CauseUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FailureCause(tt.err))
		})
	}
}

package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxAttempts int) *Config {
	return &Config{
		MaxAttempts:     maxAttempts,
		InitialDelay:    time.Millisecond,
		MaxDelay:        5 * time.Millisecond,
		Multiplier:      2.0,
		RandomizeFactor: 0,
		RetryIf:         DefaultRetryIf,
	}
}

func TestRetrier_SucceedsFirstAttempt(t *testing.T) {
	r := New(fastConfig(3))

	calls := 0
	result := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, 1, calls)
}

func TestRetrier_RetriesUntilSuccess(t *testing.T) {
	r := New(fastConfig(5))

	calls := 0
	result := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return &TemporaryError{Err: errors.New("flaky")}
		}
		return nil
	})

	require.NoError(t, result.Err)
	assert.Equal(t, 3, result.Attempts)
}

func TestRetrier_ExhaustsAttempts(t *testing.T) {
	r := New(fastConfig(3))

	boom := errors.New("still failing")
	result := r.Do(context.Background(), func(ctx context.Context) error {
		return boom
	})

	assert.Equal(t, 3, result.Attempts)
	assert.ErrorIs(t, result.Err, boom)
}

func TestRetrier_PermanentErrorStopsImmediately(t *testing.T) {
	r := New(fastConfig(5))

	calls := 0
	result := r.Do(context.Background(), func(ctx context.Context) error {
		calls++
		return &PermanentError{Err: errors.New("bad request")}
	})

	assert.Equal(t, 1, calls)
	assert.Error(t, result.Err)
}

func TestRetrier_ContextCancellation(t *testing.T) {
	r := New(&Config{
		MaxAttempts:  10,
		InitialDelay: time.Second,
		MaxDelay:     time.Second,
		Multiplier:   1,
		RetryIf:      DefaultRetryIf,
	})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	result := r.Do(ctx, func(ctx context.Context) error {
		return errors.New("keep retrying")
	})

	assert.Error(t, result.Err)
	assert.Contains(t, result.Err.Error(), "context cancelled")
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.True(t, DefaultRetryIf(errors.New("unclassified")))
	assert.True(t, DefaultRetryIf(&TemporaryError{Err: errors.New("x")}))
	assert.False(t, DefaultRetryIf(&PermanentError{Err: errors.New("x")}))
	// Wrapped classification still honored.
	wrapped := errors.Join(errors.New("outer"), &PermanentError{Err: errors.New("x")})
	assert.False(t, DefaultRetryIf(wrapped))
}

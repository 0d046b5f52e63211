package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	errs "postscraper/pkg/errors"
	"postscraper/pkg/logger"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{9, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestUniformJitterStaysInWindow(t *testing.T) {
	uj := &UniformJitter{Min: 2 * time.Second, Max: 5 * time.Second}
	seen := make(map[time.Duration]bool)
	for i := 0; i < 200; i++ {
		d := uj.NextDelay(i)
		if d < uj.Min || d > uj.Max {
			t.Fatalf("delay %v outside [%v, %v]", d, uj.Min, uj.Max)
		}
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1, "expected varied delays")

	fixed := &UniformJitter{Min: time.Second, Max: time.Second}
	assert.Equal(t, time.Second, fixed.NextDelay(1))
}

func TestRetryWithSuccess(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errors.New("temporary error")
		}
		return nil
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryWithMaxAttemptsExceeded(t *testing.T) {
	attempts := 0
	cause := errors.New("chrome did not start")
	err := Do(func() error {
		attempts++
		return cause
	}, &Config{
		MaxAttempts: 2,
		Backoff:     &ConstantBackoff{},
		Logger:      logger.NewNopLogger(),
	})

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 2, attempts)
}

func TestRetryWithNonRetryableError(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		return errs.Validation("searchTerm is required")
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{},
	})

	assert.True(t, errs.IsValidation(err))
	assert.Equal(t, 1, attempts)
}

func TestRetrySessionErrorIsRetried(t *testing.T) {
	assert.True(t, DefaultRetryIf(errs.Session("launch failed", errors.New("exit 1"))))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(nil))
}

func TestRetryWithContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Do(func() error {
		attempts++
		cancel()
		return errors.New("transient")
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		Context:     ctx,
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, attempts)
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(func() (string, error) {
		calls++
		if calls == 1 {
			return "", errors.New("first launch failed")
		}
		return "session-2", nil
	}, &Config{MaxAttempts: 2, Backoff: &ConstantBackoff{}})

	assert.NoError(t, err)
	assert.Equal(t, "session-2", got)
}

func TestFixedAttempts(t *testing.T) {
	p := FixedAttempts{Max: 10}
	assert.True(t, p.Allow(0, 0))
	assert.True(t, p.Allow(9, 9))
	assert.False(t, p.Allow(10, 0))
}

func TestProgressAttempts(t *testing.T) {
	p := ProgressAttempts{Base: 3, HardMax: 6}

	// productive cycles extend past Base
	assert.True(t, p.Allow(4, 0))
	// three unproductive cycles in a row stop the worker
	assert.False(t, p.Allow(4, 3))
	// hard cap holds even while productive
	assert.False(t, p.Allow(6, 0))

	assert.Equal(t, FixedAttempts{Max: 10}, PolicyFor(10, false, 30))
	assert.Equal(t, ProgressAttempts{Base: 10, HardMax: 30}, PolicyFor(10, true, 30))
}

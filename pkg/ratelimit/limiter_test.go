package ratelimit

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucket(t *testing.T) {
	tb := NewTokenBucket(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, tb.Allow(), "token %d should be available", i+1)
	}
	assert.False(t, tb.Allow(), "bucket should be exhausted")

	tb.Reset()
	assert.True(t, tb.Allow(), "reset should refill the bucket")
}

func TestTokenBucketWaitHonoursContext(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	require.True(t, tb.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.Error(t, tb.Wait(ctx))
}

func TestTokenBucketUnpaced(t *testing.T) {
	tb := NewTokenBucket(1, 0)
	for i := 0; i < 100; i++ {
		require.True(t, tb.Allow())
	}
}

func TestQueueCapsConcurrency(t *testing.T) {
	q := NewQueue(QueueConfig{Concurrency: 2})

	var running, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Do(context.Background(), func(ctx context.Context) error {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				running.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	assert.Equal(t, 0, q.Active())
	assert.Equal(t, 0, q.Waiting())
}

func TestQueueUnlimited(t *testing.T) {
	q := NewQueue(QueueConfig{})
	release := make(chan struct{})
	started := make(chan struct{}, 5)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Do(context.Background(), func(ctx context.Context) error {
				started <- struct{}{}
				<-release
				return nil
			})
		}()
	}
	for i := 0; i < 5; i++ {
		<-started
	}
	assert.Equal(t, 5, q.Active())
	close(release)
	wg.Wait()
}

func TestQueuePacesStarts(t *testing.T) {
	q := NewQueue(QueueConfig{Concurrency: 10, Interval: 50 * time.Millisecond, IntervalCap: 1})

	start := time.Now()
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Do(context.Background(), func(ctx context.Context) error { return nil }))
	}
	// first start is immediate, the next two wait roughly one interval each
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func TestQueueCancelledWhileWaiting(t *testing.T) {
	q := NewQueue(QueueConfig{Concurrency: 1})
	hold := make(chan struct{})
	go func() {
		_ = q.Do(context.Background(), func(ctx context.Context) error {
			<-hold
			return nil
		})
	}()
	require.Eventually(t, func() bool { return q.Active() == 1 }, time.Second, time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	ran := false
	err := q.Do(ctx, func(ctx context.Context) error {
		ran = true
		return nil
	})
	close(hold)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

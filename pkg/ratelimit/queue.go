package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// QueueConfig configures a Queue
type QueueConfig struct {
	// Concurrency caps jobs running at once; 0 means unlimited
	Concurrency int
	// Interval and IntervalCap pace job starts to IntervalCap per Interval;
	// a zero Interval disables pacing
	Interval    time.Duration
	IntervalCap int
}

// Queue admits jobs under a concurrency cap and an optional start rate
type Queue struct {
	cfg     QueueConfig
	sem     *semaphore.Weighted
	pacer   Limiter
	active  atomic.Int64
	waiting atomic.Int64
}

// NewQueue creates a queue from cfg
func NewQueue(cfg QueueConfig) *Queue {
	q := &Queue{cfg: cfg}
	if cfg.Concurrency > 0 {
		q.sem = semaphore.NewWeighted(int64(cfg.Concurrency))
	}
	if cfg.Interval > 0 {
		q.pacer = NewTokenBucket(cfg.IntervalCap, cfg.Interval)
	}
	return q
}

// Do waits for a slot and a start token, then runs fn. It returns ctx's error
// without running fn if ctx ends first.
func (q *Queue) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	q.waiting.Add(1)
	if q.sem != nil {
		if err := q.sem.Acquire(ctx, 1); err != nil {
			q.waiting.Add(-1)
			return err
		}
		defer q.sem.Release(1)
	}
	if q.pacer != nil {
		if err := q.pacer.Wait(ctx); err != nil {
			q.waiting.Add(-1)
			return err
		}
	}
	q.waiting.Add(-1)

	q.active.Add(1)
	defer q.active.Add(-1)
	return fn(ctx)
}

// Active reports jobs currently running
func (q *Queue) Active() int {
	return int(q.active.Load())
}

// Waiting reports jobs blocked on a slot or a start token
func (q *Queue) Waiting() int {
	return int(q.waiting.Load())
}

// Concurrency returns the configured cap (0 when unlimited)
func (q *Queue) Concurrency() int {
	return q.cfg.Concurrency
}

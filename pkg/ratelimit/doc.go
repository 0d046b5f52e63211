// Package ratelimit bounds how much work runs at once and how fast new work
// starts.
//
// Limiter paces individual starts with a token bucket:
//
//	limiter := ratelimit.NewTokenBucket(1, time.Second) // 1 start per second
//	if err := limiter.Wait(ctx); err != nil {
//	    return err
//	}
//
// Queue combines a concurrency cap with optional pacing and is how both the
// HTTP layer admits scrape requests and the orchestrator admits workers:
//
//	q := ratelimit.NewQueue(ratelimit.QueueConfig{Concurrency: 10, Interval: time.Second, IntervalCap: 1})
//	err := q.Do(ctx, func(ctx context.Context) error {
//	    return run(ctx)
//	})
//
// A Queue caps concurrent jobs only. It never limits how many browser
// sessions exist; that is the browser pool's job.
package ratelimit

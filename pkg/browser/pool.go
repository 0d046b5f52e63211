package browser

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	errs "postscraper/pkg/errors"
	"postscraper/pkg/logger"
	"postscraper/pkg/retry"
)

// PoolOptions tunes launch behaviour
type PoolOptions struct {
	// LaunchAttempts is how many times a failed launch is tried (min 1)
	LaunchAttempts int
	LaunchBackoff  retry.BackoffStrategy
	// ResetTimeout bounds the page reset done on Release
	ResetTimeout time.Duration
}

// PoolStats is a point-in-time snapshot of pool counters
type PoolStats struct {
	Launched  int64
	Acquired  int64
	Released  int64
	Discarded int64
	InUse     int
	Idle      int
	Ceiling   int
}

// Pool hands out at most ceiling sessions at once and keeps released ones
// for reuse. Sessions that faulted must be returned with Discard.
type Pool struct {
	launcher Launcher
	ceiling  int
	opts     PoolOptions
	log      logger.Logger

	// one token per session handed out
	slots chan struct{}

	mu     sync.Mutex
	idle   []Session
	closed atomic.Bool

	launched  atomic.Int64
	acquired  atomic.Int64
	released  atomic.Int64
	discarded atomic.Int64
}

// NewPool creates a pool. A non-positive ceiling is treated as 1.
func NewPool(launcher Launcher, ceiling int, log logger.Logger) *Pool {
	return NewPoolWithOptions(launcher, ceiling, PoolOptions{}, log)
}

// NewPoolWithOptions creates a pool with explicit launch options
func NewPoolWithOptions(launcher Launcher, ceiling int, opts PoolOptions, log logger.Logger) *Pool {
	if ceiling <= 0 {
		ceiling = 1
	}
	if opts.LaunchAttempts <= 0 {
		opts.LaunchAttempts = 2
	}
	if opts.LaunchBackoff == nil {
		opts.LaunchBackoff = &retry.ExponentialBackoff{
			BaseDelay:  500 * time.Millisecond,
			MaxDelay:   5 * time.Second,
			Multiplier: 2.0,
		}
	}
	if opts.ResetTimeout <= 0 {
		opts.ResetTimeout = 10 * time.Second
	}
	if log == nil {
		log = logger.GetLogger()
	}

	return &Pool{
		launcher: launcher,
		ceiling:  ceiling,
		opts:     opts,
		log:      log.WithField("component", "browser_pool"),
		slots:    make(chan struct{}, ceiling),
	}
}

// Acquire blocks until a slot is free, then returns an idle session or a
// freshly launched one.
func (p *Pool) Acquire(ctx context.Context) (Session, error) {
	if p.closed.Load() {
		return nil, ErrPoolClosed
	}

	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if p.closed.Load() {
		<-p.slots
		return nil, ErrPoolClosed
	}

	if s := p.popIdle(); s != nil {
		p.acquired.Add(1)
		p.log.DebugWithFields("Reusing idle session", map[string]interface{}{
			"session_id": s.ID(),
		})
		return s, nil
	}

	s, err := retry.DoWithResult(func() (Session, error) {
		return p.launcher.Launch(ctx)
	}, &retry.Config{
		MaxAttempts: p.opts.LaunchAttempts,
		Backoff:     p.opts.LaunchBackoff,
		Context:     ctx,
		Logger:      p.log,
	})
	if err != nil {
		<-p.slots
		return nil, errs.Session("browser launch failed", err)
	}

	p.launched.Add(1)
	p.acquired.Add(1)
	p.log.InfoWithFields("Session launched", map[string]interface{}{
		"session_id": s.ID(),
		"in_use":     len(p.slots),
		"ceiling":    p.ceiling,
	})
	return s, nil
}

func (p *Pool) popIdle() Session {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.idle)
	if n == 0 {
		return nil
	}
	s := p.idle[n-1]
	p.idle = p.idle[:n-1]
	return s
}

// Release returns a healthy session for reuse. If the page cannot be reset
// or the pool is closed the session is closed instead.
func (p *Pool) Release(s Session) {
	if s == nil {
		return
	}
	defer func() { <-p.slots }()
	p.released.Add(1)

	if p.closed.Load() {
		_ = s.Close()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.opts.ResetTimeout)
	defer cancel()
	if err := s.Reset(ctx); err != nil {
		p.log.WithError(err).WarnWithFields("Session reset failed, closing", map[string]interface{}{
			"session_id": s.ID(),
		})
		p.discarded.Add(1)
		_ = s.Close()
		return
	}

	p.mu.Lock()
	if p.closed.Load() {
		p.mu.Unlock()
		_ = s.Close()
		return
	}
	p.idle = append(p.idle, s)
	p.mu.Unlock()
}

// Discard closes a faulted session and frees its slot
func (p *Pool) Discard(s Session) {
	if s == nil {
		return
	}
	defer func() { <-p.slots }()
	p.discarded.Add(1)
	p.log.DebugWithFields("Discarding session", map[string]interface{}{
		"session_id": s.ID(),
	})
	_ = s.Close()
}

// With acquires a session, runs fn and returns the session. Session faults
// reported by fn cause the session to be discarded.
func (p *Pool) With(ctx context.Context, fn func(Session) error) error {
	s, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	err = fn(s)
	if errs.TypeOf(err) == errs.ErrorTypeSession {
		p.Discard(s)
	} else {
		p.Release(s)
	}
	return err
}

// Close shuts every idle session and rejects further Acquire calls.
// Sessions still in use are closed when they come back.
func (p *Pool) Close() error {
	if p.closed.Swap(true) {
		return nil
	}

	p.mu.Lock()
	idle := p.idle
	p.idle = nil
	p.mu.Unlock()

	for _, s := range idle {
		_ = s.Close()
	}
	logger.LogComponentStop(p.log, "browser_pool", "closed")
	return nil
}

// Stats returns a snapshot of pool counters
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	idle := len(p.idle)
	p.mu.Unlock()

	return PoolStats{
		Launched:  p.launched.Load(),
		Acquired:  p.acquired.Load(),
		Released:  p.released.Load(),
		Discarded: p.discarded.Load(),
		InUse:     len(p.slots),
		Idle:      idle,
		Ceiling:   p.ceiling,
	}
}

// Ceiling returns the maximum number of sessions handed out at once
func (p *Pool) Ceiling() int {
	return p.ceiling
}

package browser_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postscraper/pkg/browser"
	"postscraper/pkg/browser/browsertest"
	errs "postscraper/pkg/errors"
	"postscraper/pkg/logger"
	"postscraper/pkg/retry"
)

func newPool(l browser.Launcher, ceiling int) *browser.Pool {
	return browser.NewPoolWithOptions(l, ceiling, browser.PoolOptions{
		LaunchBackoff: &retry.ConstantBackoff{},
	}, logger.NewNopLogger())
}

func TestPoolNeverExceedsCeiling(t *testing.T) {
	launcher := &browsertest.Launcher{}
	pool := newPool(launcher, 3)
	defer pool.Close()

	var wg sync.WaitGroup
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := pool.With(context.Background(), func(s browser.Session) error {
				assert.LessOrEqual(t, pool.Stats().InUse, 3)
				time.Sleep(2 * time.Millisecond)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, launcher.Peak(), 3)
	stats := pool.Stats()
	assert.Equal(t, int64(12), stats.Acquired)
	assert.Equal(t, 0, stats.InUse)
	assert.LessOrEqual(t, stats.Launched, int64(3))
}

func TestPoolReusesReleasedSession(t *testing.T) {
	launcher := &browsertest.Launcher{}
	pool := newPool(launcher, 2)
	defer pool.Close()

	first, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(first)

	second, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.ID(), second.ID())
	assert.Equal(t, 1, launcher.Attempts())
	pool.Release(second)
}

func TestPoolAcquireBlocksUntilRelease(t *testing.T) {
	pool := newPool(&browsertest.Launcher{}, 1)
	defer pool.Close()

	held, err := pool.Acquire(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = pool.Acquire(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	got := make(chan browser.Session, 1)
	go func() {
		s, err := pool.Acquire(context.Background())
		assert.NoError(t, err)
		got <- s
	}()
	pool.Release(held)

	select {
	case s := <-got:
		pool.Release(s)
	case <-time.After(time.Second):
		t.Fatal("Acquire did not unblock after Release")
	}
}

func TestPoolDiscardClosesSession(t *testing.T) {
	launcher := &browsertest.Launcher{}
	pool := newPool(launcher, 1)
	defer pool.Close()

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Discard(s)

	assert.True(t, launcher.Sessions()[0].Closed())
	assert.Equal(t, 0, launcher.Live())

	next, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.NotEqual(t, s.ID(), next.ID())
	pool.Release(next)
}

func TestPoolWithDiscardsOnSessionFault(t *testing.T) {
	launcher := &browsertest.Launcher{}
	pool := newPool(launcher, 1)
	defer pool.Close()

	err := pool.With(context.Background(), func(s browser.Session) error {
		return errs.Session("scroll failed", errors.New("target crashed"))
	})
	require.Error(t, err)
	assert.Equal(t, int64(1), pool.Stats().Discarded)
	assert.Equal(t, 0, pool.Stats().Idle)
}

func TestPoolResetFailureClosesSession(t *testing.T) {
	launcher := &browsertest.Launcher{Scripts: []browsertest.Script{{ResetErr: errors.New("tab gone")}}}
	pool := newPool(launcher, 1)
	defer pool.Close()

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(s)

	assert.Equal(t, 0, pool.Stats().Idle)
	assert.Equal(t, 0, launcher.Live())
}

func TestPoolRetriesLaunch(t *testing.T) {
	launcher := &browsertest.Launcher{FailFirst: 1}
	pool := newPool(launcher, 1)
	defer pool.Close()

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, launcher.Attempts())
	pool.Release(s)
}

func TestPoolLaunchFailureFreesSlot(t *testing.T) {
	launcher := &browsertest.Launcher{FailFirst: 2}
	pool := newPool(launcher, 1)
	defer pool.Close()

	_, err := pool.Acquire(context.Background())
	require.Error(t, err)
	assert.Equal(t, errs.ErrorTypeSession, errs.TypeOf(err))
	assert.Equal(t, 0, pool.Stats().InUse)

	s, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(s)
}

func TestPoolClose(t *testing.T) {
	launcher := &browsertest.Launcher{}
	pool := newPool(launcher, 2)

	idle, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	busy, err := pool.Acquire(context.Background())
	require.NoError(t, err)
	pool.Release(idle)

	require.NoError(t, pool.Close())
	assert.Equal(t, 1, launcher.Live(), "idle session should be closed")

	_, err = pool.Acquire(context.Background())
	assert.ErrorIs(t, err, browser.ErrPoolClosed)

	pool.Release(busy)
	assert.Equal(t, 0, launcher.Live(), "sessions returned after close are closed")
}

func TestNewPoolClampsCeiling(t *testing.T) {
	pool := browser.NewPool(&browsertest.Launcher{}, 0, logger.NewNopLogger())
	assert.Equal(t, 1, pool.Ceiling())
}

// Package browsertest provides scripted in-memory browser sessions for tests.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"postscraper/pkg/browser"
)

// ErrClosed is returned by every call on a closed FakeSession
var ErrClosed = errors.New("fake session closed")

// Script describes what a FakeSession serves. Pages[i] is the document after
// i scrolls; once scrolls run past the end the last page keeps being served.
type Script struct {
	Pages       []string
	NavigateErr error
	// ContentErrAfter fails Content once this many scrolls have happened (0 disables)
	ContentErrAfter int
	ContentErr      error
	ScrollErr       error
	ResetErr        error
}

// FakeSession implements browser.Session from a Script
type FakeSession struct {
	id     string
	script Script

	mu       sync.Mutex
	cookies  []browser.Cookie
	visited  []string
	scrolls  int
	captures int
	closed   bool
	resets   int
}

// NewSession creates a session serving script
func NewSession(id string, script Script) *FakeSession {
	return &FakeSession{id: id, script: script}
}

func (s *FakeSession) ID() string { return s.id }

func (s *FakeSession) SetCookie(ctx context.Context, c browser.Cookie) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.cookies = append(s.cookies, c)
	return nil
}

func (s *FakeSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.visited = append(s.visited, url)
	s.scrolls = 0
	return s.script.NavigateErr
}

func (s *FakeSession) Content(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	s.captures++
	if s.script.ContentErrAfter > 0 && s.scrolls >= s.script.ContentErrAfter {
		return "", s.script.ContentErr
	}
	if len(s.script.Pages) == 0 {
		return "<html><body></body></html>", nil
	}
	i := s.scrolls
	if i >= len(s.script.Pages) {
		i = len(s.script.Pages) - 1
	}
	return s.script.Pages[i], nil
}

func (s *FakeSession) ScrollToBottom(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.script.ScrollErr != nil {
		return s.script.ScrollErr
	}
	s.scrolls++
	return nil
}

func (s *FakeSession) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
	return s.script.ResetErr
}

func (s *FakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Cookies returns the cookies set so far
func (s *FakeSession) Cookies() []browser.Cookie {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]browser.Cookie(nil), s.cookies...)
}

// Visited returns every URL navigated to
func (s *FakeSession) Visited() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.visited...)
}

// Captures returns how many times Content was called
func (s *FakeSession) Captures() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.captures
}

// Scrolls returns how many scrolls happened since the last navigation
func (s *FakeSession) Scrolls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scrolls
}

// Closed reports whether Close was called
func (s *FakeSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Launcher hands out FakeSessions. Scripts are assigned in launch order;
// once exhausted the last script is reused.
type Launcher struct {
	Scripts []Script
	// FailFirst makes the first N launches fail
	FailFirst int
	LaunchErr error

	mu       sync.Mutex
	sessions []*FakeSession
	attempts atomic.Int64
	live     atomic.Int64
	peak     atomic.Int64
}

// Launch implements browser.Launcher
func (l *Launcher) Launch(ctx context.Context) (browser.Session, error) {
	n := l.attempts.Add(1)
	if int(n) <= l.FailFirst {
		err := l.LaunchErr
		if err == nil {
			err = fmt.Errorf("launch %d failed", n)
		}
		return nil, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	var script Script
	if len(l.Scripts) > 0 {
		i := len(l.sessions)
		if i >= len(l.Scripts) {
			i = len(l.Scripts) - 1
		}
		script = l.Scripts[i]
	}
	s := NewSession(fmt.Sprintf("fake-%d", len(l.sessions)+1), script)
	l.sessions = append(l.sessions, s)

	live := l.live.Add(1)
	for {
		p := l.peak.Load()
		if live <= p || l.peak.CompareAndSwap(p, live) {
			break
		}
	}
	return &trackedSession{FakeSession: s, launcher: l}, nil
}

// Sessions returns every session launched so far
func (l *Launcher) Sessions() []*FakeSession {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]*FakeSession(nil), l.sessions...)
}

// Attempts returns how many launches were attempted
func (l *Launcher) Attempts() int { return int(l.attempts.Load()) }

// Live returns sessions launched and not yet closed
func (l *Launcher) Live() int { return int(l.live.Load()) }

// Peak returns the highest number of simultaneously live sessions
func (l *Launcher) Peak() int { return int(l.peak.Load()) }

type trackedSession struct {
	*FakeSession
	launcher *Launcher
	once     sync.Once
}

func (t *trackedSession) Close() error {
	t.once.Do(func() { t.launcher.live.Add(-1) })
	return t.FakeSession.Close()
}

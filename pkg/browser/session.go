// Package browser owns headless browser sessions: the Session abstraction the
// scraper drives, a chromedp-backed Launcher, and a Pool that bounds how many
// sessions exist at once and reuses them across runs.
package browser

import (
	"context"
	"errors"
)

// ErrPoolClosed is returned by Acquire after Close
var ErrPoolClosed = errors.New("browser pool is closed")

// Cookie is installed into a session before navigation
type Cookie struct {
	Name     string
	Value    string
	Domain   string
	Path     string
	Secure   bool
	HTTPOnly bool
}

// Session is one controllable page in a headless browser.
// A Session is used by a single goroutine at a time.
type Session interface {
	ID() string
	SetCookie(ctx context.Context, c Cookie) error
	// Navigate loads url and returns once network activity has settled or
	// ctx ends, whichever comes first.
	Navigate(ctx context.Context, url string) error
	// Content returns the current rendered document HTML
	Content(ctx context.Context) (string, error)
	// ScrollToBottom scrolls to the end of the document body
	ScrollToBottom(ctx context.Context) error
	// Reset clears page state so the session can be handed to another caller
	Reset(ctx context.Context) error
	Close() error
}

// Launcher starts new sessions
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// LauncherFunc adapts a function to the Launcher interface
type LauncherFunc func(ctx context.Context) (Session, error)

func (f LauncherFunc) Launch(ctx context.Context) (Session, error) {
	return f(ctx)
}

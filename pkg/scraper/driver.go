package scraper

import (
	"context"
	"net/url"
	"strings"
	"time"

	"postscraper/pkg/browser"
	errs "postscraper/pkg/errors"
	"postscraper/pkg/logger"
	"postscraper/pkg/models"
	"postscraper/pkg/retry"
)

// DriverOptions controls how a Driver reaches and paces the search page
type DriverOptions struct {
	BaseURL           string
	CookieName        string
	CookieDomain      string
	NavigationTimeout time.Duration
	// ScrollDelay supplies the pause after each scroll
	ScrollDelay retry.BackoffStrategy
}

// DefaultDriverOptions mirror the configuration defaults
func DefaultDriverOptions() DriverOptions {
	return DriverOptions{
		BaseURL:           "https://twitter.com",
		CookieName:        "auth_token",
		CookieDomain:      ".twitter.com",
		NavigationTimeout: 30 * time.Second,
		ScrollDelay:       retry.DefaultScrollDelay(),
	}
}

// SearchURL builds the live search results URL for term
func SearchURL(baseURL, term string) string {
	return strings.TrimRight(baseURL, "/") + "/search?q=" + url.QueryEscape(term) + "&src=typed_query&f=live"
}

// Driver owns one browser session for the lifetime of a worker
type Driver struct {
	pool      SessionPool
	extractor RecordExtractor
	opts      DriverOptions
	log       logger.Logger
	rec       Recorder

	session browser.Session
	faulted bool
	scrolls int
}

// NewDriver creates a driver; no session is held until Open
func NewDriver(pool SessionPool, extractor RecordExtractor, opts DriverOptions, log logger.Logger, rec Recorder) *Driver {
	if opts.ScrollDelay == nil {
		opts.ScrollDelay = retry.DefaultScrollDelay()
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Driver{pool: pool, extractor: extractor, opts: opts, log: log, rec: rec}
}

// Open acquires a session, installs the auth cookie unmodified and loads the
// live search page for searchTerm. Every failure is a navigation error.
func (d *Driver) Open(ctx context.Context, authToken, searchTerm string) error {
	s, err := d.pool.Acquire(ctx)
	if err != nil {
		return errs.Navigation("no browser session available", err)
	}
	d.session = s

	err = s.SetCookie(ctx, browser.Cookie{
		Name:     d.opts.CookieName,
		Value:    authToken,
		Domain:   d.opts.CookieDomain,
		Path:     "/",
		Secure:   true,
		HTTPOnly: true,
	})
	if err != nil {
		d.faulted = true
		return errs.Navigation("set auth cookie", err)
	}

	target := SearchURL(d.opts.BaseURL, searchTerm)
	d.log.DebugWithFields("Navigating", map[string]interface{}{
		"session_id": s.ID(),
		"url":        target,
	})

	navCtx, cancel := context.WithTimeout(ctx, d.opts.NavigationTimeout)
	defer cancel()
	if err := s.Navigate(navCtx, target); err != nil {
		return errs.Navigation("search page did not settle", err)
	}
	return nil
}

// Capture reads the current page and returns every complete record on it
func (d *Driver) Capture(ctx context.Context) ([]models.PostRecord, error) {
	if d.session == nil {
		return nil, errs.Session("capture before open", nil)
	}
	html, err := d.session.Content(ctx)
	if err != nil {
		d.faulted = true
		return nil, errs.Session("read page content", err)
	}

	records, skipped := d.extractor.Parse(html)
	if skipped > 0 {
		d.rec.RecordsSkipped(skipped)
		d.log.DebugWithFields("Skipped incomplete posts", map[string]interface{}{
			"skipped": skipped,
		})
	}
	return records, nil
}

// ScrollAndWait scrolls to the end of the page and pauses for the next
// delay. It returns early with ctx's error if ctx ends during the pause.
func (d *Driver) ScrollAndWait(ctx context.Context) error {
	if d.session == nil {
		return errs.Session("scroll before open", nil)
	}
	if err := d.session.ScrollToBottom(ctx); err != nil {
		d.faulted = true
		return errs.Session("scroll page", err)
	}
	d.scrolls++
	return retry.Wait(ctx, d.opts.ScrollDelay.NextDelay(d.scrolls))
}

// Close hands the session back to the pool, discarding it if it faulted
func (d *Driver) Close() {
	if d.session == nil {
		return
	}
	if d.faulted {
		d.pool.Discard(d.session)
	} else {
		d.pool.Release(d.session)
	}
	d.session = nil
}

package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"postscraper/pkg/config"
)

// Lifecycle events Chrome emits once network traffic settles.
// networkAlmostIdle fires after 500ms with at most two open connections.
const (
	IdleEventAlmost = "networkAlmostIdle"
	IdleEventFull   = "networkIdle"
)

// LaunchOptions configures ChromeLauncher
type LaunchOptions struct {
	Headless  bool
	ExecPath  string
	UserAgent string
	// IdleEvent is the lifecycle event Navigate waits for
	IdleEvent string
}

// OptionsFromConfig maps browser configuration onto launch options
func OptionsFromConfig(cfg config.BrowserConfig) LaunchOptions {
	return LaunchOptions{
		Headless:  cfg.Headless,
		ExecPath:  cfg.ExecPath,
		UserAgent: cfg.UserAgent,
		IdleEvent: IdleEventAlmost,
	}
}

// ChromeLauncher starts one Chrome process per session
type ChromeLauncher struct {
	opts LaunchOptions
	seq  atomic.Int64
}

// NewChromeLauncher creates a launcher
func NewChromeLauncher(opts LaunchOptions) *ChromeLauncher {
	if opts.IdleEvent == "" {
		opts.IdleEvent = IdleEventAlmost
	}
	return &ChromeLauncher{opts: opts}
}

func (l *ChromeLauncher) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.Flag("headless", l.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
	)
	if ua := strings.TrimSpace(l.opts.UserAgent); ua != "" {
		opts = append(opts, chromedp.UserAgent(ua))
	}
	if l.opts.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(l.opts.ExecPath))
	}
	return opts
}

// Launch starts Chrome and opens a blank tab. The session outlives ctx;
// ctx only bounds the launch itself.
func (l *ChromeLauncher) Launch(ctx context.Context) (Session, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), l.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	s := &chromeSession{
		id:        fmt.Sprintf("chrome-%d", l.seq.Add(1)),
		tabCtx:    tabCtx,
		idleEvent: l.opts.IdleEvent,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
	}

	// The first Run allocates the browser and binds its lifetime to the
	// context it is given, so it must run on tabCtx rather than ctx.
	started := make(chan error, 1)
	go func() {
		started <- chromedp.Run(tabCtx, page.SetLifecycleEventsEnabled(true))
	}()

	select {
	case err := <-started:
		if err != nil {
			s.cancel()
			return nil, fmt.Errorf("start chrome: %w", err)
		}
		return s, nil
	case <-ctx.Done():
		s.cancel()
		return nil, fmt.Errorf("start chrome: %w", ctx.Err())
	}
}

type chromeSession struct {
	id        string
	tabCtx    context.Context
	idleEvent string
	cancel    func()
	closeOnce sync.Once
}

func (s *chromeSession) ID() string { return s.id }

// bind derives a context from the tab that also ends when ctx ends
func (s *chromeSession) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if deadline, ok := ctx.Deadline(); ok {
		runCtx, cancel = context.WithDeadline(s.tabCtx, deadline)
	} else {
		runCtx, cancel = context.WithCancel(s.tabCtx)
	}
	stop := context.AfterFunc(ctx, cancel)
	return runCtx, func() {
		stop()
		cancel()
	}
}

func (s *chromeSession) SetCookie(ctx context.Context, c Cookie) error {
	runCtx, stop := s.bind(ctx)
	defer stop()

	path := c.Path
	if path == "" {
		path = "/"
	}
	return chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		return network.SetCookie(c.Name, c.Value).
			WithDomain(c.Domain).
			WithPath(path).
			WithSecure(c.Secure).
			WithHTTPOnly(c.HTTPOnly).
			Do(ctx)
	}))
}

// Navigate loads url and waits for the idle lifecycle event of that
// navigation in the main frame. Events from iframes or from an earlier
// document are ignored.
func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	runCtx, stop := s.bind(ctx)
	defer stop()

	w := newIdleWaiter(s.idleEvent)
	chromedp.ListenTarget(runCtx, func(ev interface{}) {
		if e, ok := ev.(*page.EventLifecycleEvent); ok {
			w.observe(e)
		}
	})

	var (
		frameID  cdp.FrameID
		loaderID cdp.LoaderID
	)
	err := chromedp.Run(runCtx, chromedp.ActionFunc(func(ctx context.Context) error {
		var (
			errText string
			err     error
		)
		frameID, loaderID, errText, err = page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errText != "" {
			return fmt.Errorf("navigate %s: %s", url, errText)
		}
		return nil
	}))
	if err != nil {
		return err
	}
	// same-document navigations have no loader and emit no lifecycle events
	if loaderID == "" {
		return nil
	}
	w.expect(frameID, loaderID)

	select {
	case <-w.done:
		return nil
	case <-runCtx.Done():
		return fmt.Errorf("waiting for %s: %w", s.idleEvent, runCtx.Err())
	}
}

type frameLoader struct {
	frame  cdp.FrameID
	loader cdp.LoaderID
}

// idleWaiter closes done once the named lifecycle event fires for the
// expected frame and loader. Events can arrive before Navigate returns the
// loader id, so matching ones are remembered until expect is called.
type idleWaiter struct {
	event string
	done  chan struct{}

	mu     sync.Mutex
	want   *frameLoader
	seen   map[frameLoader]struct{}
	closed bool
}

func newIdleWaiter(event string) *idleWaiter {
	return &idleWaiter{
		event: event,
		done:  make(chan struct{}),
		seen:  make(map[frameLoader]struct{}),
	}
}

func (w *idleWaiter) observe(e *page.EventLifecycleEvent) {
	if e.Name != w.event {
		return
	}
	key := frameLoader{frame: e.FrameID, loader: e.LoaderID}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.want == nil {
		w.seen[key] = struct{}{}
		return
	}
	if key == *w.want {
		w.fire()
	}
}

func (w *idleWaiter) expect(frame cdp.FrameID, loader cdp.LoaderID) {
	key := frameLoader{frame: frame, loader: loader}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.want = &key
	if _, ok := w.seen[key]; ok {
		w.fire()
	}
	w.seen = nil
}

// fire must be called with mu held
func (w *idleWaiter) fire() {
	if !w.closed {
		w.closed = true
		close(w.done)
	}
}

func (s *chromeSession) Content(ctx context.Context) (string, error) {
	runCtx, stop := s.bind(ctx)
	defer stop()

	var html string
	if err := chromedp.Run(runCtx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", err
	}
	return html, nil
}

func (s *chromeSession) ScrollToBottom(ctx context.Context) error {
	runCtx, stop := s.bind(ctx)
	defer stop()
	return chromedp.Run(runCtx, chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight)`, nil))
}

func (s *chromeSession) Reset(ctx context.Context) error {
	runCtx, stop := s.bind(ctx)
	defer stop()

	runCtx, cancel := context.WithTimeout(runCtx, 10*time.Second)
	defer cancel()
	return chromedp.Run(runCtx, chromedp.Navigate("about:blank"))
}

func (s *chromeSession) Close() error {
	s.closeOnce.Do(s.cancel)
	return nil
}

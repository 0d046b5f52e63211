package scraper

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"postscraper/pkg/browser"
	"postscraper/pkg/browser/browsertest"
	"postscraper/pkg/extractor"
	"postscraper/pkg/logger"
	"postscraper/pkg/retry"
)

// pageOf renders an article per id in the live timeline markup
func pageOf(ids ...string) string {
	var b strings.Builder
	b.WriteString("<html><body>")
	for _, id := range ids {
		fmt.Fprintf(&b, `<article>
<div data-testid="User-Name"><a href="/user%s">u</a></div>
<a href="/user%s/status/%s"><time datetime="2024-05-01T10:00:00.000Z">May 1</time></a>
<div lang="en">post %s</div>
</article>`, id, id, id, id)
	}
	b.WriteString("</body></html>")
	return b.String()
}

func ids(prefix string, from, to int) []string {
	var out []string
	for i := from; i <= to; i++ {
		out = append(out, fmt.Sprintf("%s%d", prefix, i))
	}
	return out
}

func statusURL(id string) string {
	return "https://twitter.com/user" + id + "/status/" + id
}

// scriptedPool hands out one fresh FakeSession per Acquire, scripts in order
type scriptedPool struct {
	mu         sync.Mutex
	scripts    []browsertest.Script
	acquireErr error
	sessions   []*browsertest.FakeSession
	released   []string
	discarded  []string
}

func (p *scriptedPool) Acquire(ctx context.Context) (browser.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	var script browsertest.Script
	if len(p.scripts) > 0 {
		i := len(p.sessions)
		if i >= len(p.scripts) {
			i = len(p.scripts) - 1
		}
		script = p.scripts[i]
	}
	s := browsertest.NewSession(fmt.Sprintf("s%d", len(p.sessions)+1), script)
	p.sessions = append(p.sessions, s)
	return s, nil
}

func (p *scriptedPool) Release(s browser.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = append(p.released, s.ID())
}

func (p *scriptedPool) Discard(s browser.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.discarded = append(p.discarded, s.ID())
}

func testExtractor() *extractor.Extractor {
	e, err := extractor.New("https://twitter.com", extractor.DefaultSelectors())
	if err != nil {
		panic(err)
	}
	return e
}

func testDriverOptions() DriverOptions {
	opts := DefaultDriverOptions()
	opts.ScrollDelay = &retry.ConstantBackoff{}
	return opts
}

func testDriver(pool SessionPool) *Driver {
	return NewDriver(pool, testExtractor(), testDriverOptions(), logger.NewNopLogger(), nil)
}

func testOptions(parallelism, attempts int) Options {
	return Options{
		Parallelism: parallelism,
		Policy:      retry.FixedAttempts{Max: attempts},
		Driver:      testDriverOptions(),
	}
}

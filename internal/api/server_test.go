package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postscraper/pkg/config"
	errs "postscraper/pkg/errors"
	"postscraper/pkg/logger"
	"postscraper/pkg/metrics"
	"postscraper/pkg/models"
	"postscraper/pkg/scraper"
)

type fakeScraper struct {
	mu       sync.Mutex
	requests []models.ScrapeRequest
	posts    []models.PostRecord
	err      error
	block    chan struct{}
	panicMsg string
}

func (f *fakeScraper) RunWithReport(ctx context.Context, req models.ScrapeRequest) (*scraper.RunReport, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()

	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return &scraper.RunReport{RunID: "run-1", SearchTerm: req.SearchTerm, Requested: req.TotalCount, Posts: f.posts}, nil
}

func (f *fakeScraper) calls() []models.ScrapeRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.ScrapeRequest(nil), f.requests...)
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Server.Mode = gin.TestMode
	cfg.Queue.Interval = 0
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, s Scraper, m *metrics.Collector) *Server {
	t.Helper()
	return NewServer(cfg, s, m, logger.NewNopLogger())
}

func post(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/scrape", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body models.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestScrapeSuccess(t *testing.T) {
	posts := []models.PostRecord{
		{Content: "a", Profile: "https://twitter.com/a", URL: "https://twitter.com/a/status/1", Date: "2024-01-01T00:00:00Z"},
		{Content: "b", Profile: "https://twitter.com/b", URL: "https://twitter.com/b/status/2", Date: "2024-01-01T00:00:01Z"},
	}
	fake := &fakeScraper{posts: posts}
	srv := newTestServer(t, testConfig(), fake, nil)

	rec := post(t, srv.Handler(), `{"authToken":"tok","searchTerm":"#golang","totalCount":2}`)

	require.Equal(t, http.StatusOK, rec.Code)
	var body models.ScrapeResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, posts, body.Posts)
	assert.Equal(t, "run-1", rec.Header().Get("X-Run-ID"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Equal(t, []models.ScrapeRequest{{AuthToken: "tok", SearchTerm: "#golang", TotalCount: 2}}, fake.calls())
}

func TestScrapeAcceptsLegacyFieldNames(t *testing.T) {
	fake := &fakeScraper{}
	srv := newTestServer(t, testConfig(), fake, nil)

	rec := post(t, srv.Handler(), `{"cookie":"tok","hashtag":"golang","tweetCount":7}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.ScrapeRequest{{AuthToken: "tok", SearchTerm: "golang", TotalCount: 7}}, fake.calls())
}

func TestScrapeEmptyResultIsEmptyList(t *testing.T) {
	srv := newTestServer(t, testConfig(), &fakeScraper{}, nil)

	rec := post(t, srv.Handler(), `{"authToken":"tok","searchTerm":"nothing","totalCount":3}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"posts":[]}`, rec.Body.String())
}

func TestScrapeValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing token", `{"searchTerm":"x","totalCount":1}`, "authToken"},
		{"missing term", `{"authToken":"t","totalCount":1}`, "searchTerm"},
		{"zero count", `{"authToken":"t","searchTerm":"x","totalCount":0}`, "totalCount"},
		{"negative count", `{"authToken":"t","searchTerm":"x","totalCount":-4}`, "totalCount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := &fakeScraper{}
			srv := newTestServer(t, testConfig(), fake, nil)

			rec := post(t, srv.Handler(), tt.body)

			require.Equal(t, http.StatusBadRequest, rec.Code)
			msg := decodeError(t, rec)
			assert.True(t, strings.HasPrefix(msg, msgFieldsRequired), msg)
			assert.Contains(t, msg, tt.want)
			assert.Empty(t, fake.calls())
		})
	}
}

func TestScrapeMalformedBody(t *testing.T) {
	fake := &fakeScraper{}
	srv := newTestServer(t, testConfig(), fake, nil)

	rec := post(t, srv.Handler(), `{"authToken":`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, msgFieldsRequired, decodeError(t, rec))
	assert.Empty(t, fake.calls())
}

func TestScrapeOrchestrationFailure(t *testing.T) {
	fake := &fakeScraper{err: errs.Orchestration("all workers aborted", context.DeadlineExceeded)}
	srv := newTestServer(t, testConfig(), fake, nil)

	rec := post(t, srv.Handler(), `{"authToken":"t","searchTerm":"x","totalCount":5}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgScrapeFailed, decodeError(t, rec))
}

func TestScrapePanicRecovered(t *testing.T) {
	srv := newTestServer(t, testConfig(), &fakeScraper{panicMsg: "boom"}, nil)

	rec := post(t, srv.Handler(), `{"authToken":"t","searchTerm":"x","totalCount":5}`)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, msgScrapeFailed, decodeError(t, rec))
	assert.Equal(t, 0, srv.Queue().Active())
}

func TestRequestIDEchoed(t *testing.T) {
	srv := newTestServer(t, testConfig(), &fakeScraper{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, testConfig(), &fakeScraper{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status string `json:"status"`
		Queue  struct {
			Concurrency int `json:"concurrency"`
		} `json:"queue"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 10, body.Queue.Concurrency)
}

func TestMetricsEndpoint(t *testing.T) {
	m := metrics.New("postscraper")
	srv := newTestServer(t, testConfig(), &fakeScraper{}, m)

	post(t, srv.Handler(), `{"authToken":"t","searchTerm":"x","totalCount":1}`)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `postscraper_http_requests_total{endpoint="/api/scrape",method="POST",status="200"} 1`)
	assert.Contains(t, body, "postscraper_request_queue_active 0")
}

func TestMetricsDisabled(t *testing.T) {
	srv := newTestServer(t, testConfig(), &fakeScraper{}, nil)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestQueueLimitsConcurrentScrapes(t *testing.T) {
	cfg := testConfig()
	cfg.Queue.MaxConcurrentRequests = 1
	fake := &fakeScraper{block: make(chan struct{})}
	srv := newTestServer(t, cfg, fake, nil)

	var wg sync.WaitGroup
	codes := make([]int, 2)
	for i := range codes {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			codes[i] = post(t, srv.Handler(), `{"authToken":"t","searchTerm":"x","totalCount":1}`).Code
		}(i)
	}

	require.Eventually(t, func() bool {
		return srv.Queue().Active() == 1 && srv.Queue().Waiting() == 1
	}, time.Second, 5*time.Millisecond)
	assert.Len(t, fake.calls(), 1)

	close(fake.block)
	wg.Wait()

	assert.Equal(t, []int{http.StatusOK, http.StatusOK}, codes)
	assert.Len(t, fake.calls(), 2)
}

func TestListenAndServeStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Server.Port = "0"
	srv := newTestServer(t, cfg, &fakeScraper{}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

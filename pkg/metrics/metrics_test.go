package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postscraper/pkg/browser"
)

func TestRunAndWorkerCounters(t *testing.T) {
	c := New("postscraper")

	c.RunFinished("partial", 10, 4, 3*time.Second)
	c.RunFinished("complete", 5, 5, time.Second)
	c.WorkerFinished("aborted", 0, time.Second)
	c.RecordsAdmitted(7)
	c.RecordsSkipped(2)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.runsTotal.WithLabelValues("partial")))
	assert.Equal(t, 9.0, testutil.ToFloat64(c.postsReturned))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.workersTotal.WithLabelValues("aborted")))
	assert.Equal(t, 7.0, testutil.ToFloat64(c.recordsAdmitted))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.recordsSkipped))
}

func TestWatchPoolExportsStats(t *testing.T) {
	c := New("postscraper")
	c.WatchPool("postscraper", func() browser.PoolStats {
		return browser.PoolStats{InUse: 3, Idle: 1, Ceiling: 10, Launched: 4}
	})

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	assert.Contains(t, body, "postscraper_browser_pool_in_use 3")
	assert.Contains(t, body, "postscraper_browser_pool_ceiling 10")
	assert.Contains(t, body, "postscraper_browser_pool_launched_total 4")
}

func TestMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := New("test-svc")

	r := gin.New()
	r.Use(c.Middleware())
	r.GET("/health", func(ctx *gin.Context) { ctx.Status(http.StatusOK) })

	for i := 0; i < 2; i++ {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	}

	require.Equal(t, 2.0, testutil.ToFloat64(c.httpRequestsTotal.WithLabelValues("GET", "/health", "200")))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.True(t, strings.Contains(rec.Body.String(), "test_svc_http_requests_total"))
}

// Package metrics exposes scrape, worker, pool and HTTP measurements to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"postscraper/pkg/browser"
)

// Collector owns a registry and every metric the service exports
type Collector struct {
	registry *prometheus.Registry

	runsTotal       *prometheus.CounterVec
	runDuration     prometheus.Histogram
	postsReturned   prometheus.Counter
	workersTotal    *prometheus.CounterVec
	workerAttempts  prometheus.Histogram
	workerDuration  prometheus.Histogram
	recordsAdmitted prometheus.Counter
	recordsSkipped  prometheus.Counter

	httpRequestsTotal   *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	httpInFlight        prometheus.Gauge
}

// New creates a collector registering under namespace
func New(namespace string) *Collector {
	namespace = strings.ReplaceAll(namespace, "-", "_")
	c := &Collector{registry: prometheus.NewRegistry()}

	c.runsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "scrape_runs_total",
		Help:      "Scrape runs by outcome (complete, partial, failed)",
	}, []string{"outcome"})

	c.runDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "scrape_run_duration_seconds",
		Help:      "Wall time of scrape runs",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
	})

	c.postsReturned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "posts_returned_total",
		Help:      "Posts returned to callers",
	})

	c.workersTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "workers_total",
		Help:      "Workers by final state",
	}, []string{"state"})

	c.workerAttempts = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "worker_capture_cycles",
		Help:      "Capture cycles run per worker",
		Buckets:   prometheus.LinearBuckets(1, 2, 10),
	})

	c.workerDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "worker_duration_seconds",
		Help:      "Wall time per worker",
		Buckets:   prometheus.ExponentialBuckets(1, 2, 9),
	})

	c.recordsAdmitted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_admitted_total",
		Help:      "Novel records admitted by the collector",
	})

	c.recordsSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_skipped_total",
		Help:      "Post containers dropped for missing fields",
	})

	c.httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests",
	}, []string{"method", "endpoint", "status"})

	c.httpRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 14),
	}, []string{"method", "endpoint"})

	c.httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "http_requests_in_flight",
		Help:      "HTTP requests currently being served",
	})

	c.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		c.runsTotal, c.runDuration, c.postsReturned,
		c.workersTotal, c.workerAttempts, c.workerDuration,
		c.recordsAdmitted, c.recordsSkipped,
		c.httpRequestsTotal, c.httpRequestDuration, c.httpInFlight,
	)
	return c
}

// Registry returns the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RunFinished records a completed run
func (c *Collector) RunFinished(outcome string, requested, returned int, elapsed time.Duration) {
	c.runsTotal.WithLabelValues(outcome).Inc()
	c.runDuration.Observe(elapsed.Seconds())
	c.postsReturned.Add(float64(returned))
}

// WorkerFinished records a worker's final state
func (c *Collector) WorkerFinished(state string, attempts int, elapsed time.Duration) {
	c.workersTotal.WithLabelValues(state).Inc()
	c.workerAttempts.Observe(float64(attempts))
	c.workerDuration.Observe(elapsed.Seconds())
}

func (c *Collector) RecordsAdmitted(n int) {
	c.recordsAdmitted.Add(float64(n))
}

func (c *Collector) RecordsSkipped(n int) {
	c.recordsSkipped.Add(float64(n))
}

// WatchPool exports pool occupancy, read on every scrape
func (c *Collector) WatchPool(namespace string, stats func() browser.PoolStats) {
	namespace = strings.ReplaceAll(namespace, "-", "_")
	gauge := func(name, help string, read func(browser.PoolStats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "browser_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(stats()) })
	}
	counter := func(name, help string, read func(browser.PoolStats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "browser_pool",
			Name:      name,
			Help:      help,
		}, func() float64 { return read(stats()) })
	}

	c.registry.MustRegister(
		gauge("in_use", "Sessions handed out", func(s browser.PoolStats) float64 { return float64(s.InUse) }),
		gauge("idle", "Sessions waiting for reuse", func(s browser.PoolStats) float64 { return float64(s.Idle) }),
		gauge("ceiling", "Maximum sessions handed out at once", func(s browser.PoolStats) float64 { return float64(s.Ceiling) }),
		counter("launched_total", "Sessions launched", func(s browser.PoolStats) float64 { return float64(s.Launched) }),
		counter("discarded_total", "Sessions discarded after a fault", func(s browser.PoolStats) float64 { return float64(s.Discarded) }),
	)
}

// WatchQueue exports request queue occupancy
func (c *Collector) WatchQueue(namespace string, active, waiting func() int) {
	namespace = strings.ReplaceAll(namespace, "-", "_")
	c.registry.MustRegister(
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "request_queue",
			Name:      "active",
			Help:      "Scrape requests running",
		}, func() float64 { return float64(active()) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "request_queue",
			Name:      "waiting",
			Help:      "Scrape requests waiting for admission",
		}, func() float64 { return float64(waiting()) }),
	)
}

// Middleware collects HTTP metrics
func (c *Collector) Middleware() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		c.httpInFlight.Inc()
		defer c.httpInFlight.Dec()

		ctx.Next()

		endpoint := ctx.FullPath()
		if endpoint == "" {
			endpoint = "unknown"
		}
		method := ctx.Request.Method
		c.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(ctx.Writer.Status())).Inc()
		c.httpRequestDuration.WithLabelValues(method, endpoint).Observe(time.Since(start).Seconds())
	}
}

// Handler serves the registry in the Prometheus exposition format
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

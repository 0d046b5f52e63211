// Package api serves scrape runs over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"postscraper/pkg/config"
	"postscraper/pkg/logger"
	"postscraper/pkg/metrics"
	"postscraper/pkg/models"
	"postscraper/pkg/ratelimit"
	"postscraper/pkg/scraper"
)

// Scraper runs one scrape request to completion
type Scraper interface {
	RunWithReport(ctx context.Context, req models.ScrapeRequest) (*scraper.RunReport, error)
}

// Server is the HTTP boundary in front of the orchestrator
type Server struct {
	cfg     config.ServerConfig
	scraper Scraper
	queue   *ratelimit.Queue
	metrics *metrics.Collector
	log     logger.Logger
	engine  *gin.Engine
}

// NewServer wires routes and middleware. m may be nil to disable /metrics.
func NewServer(cfg *config.Config, s Scraper, m *metrics.Collector, log logger.Logger) *Server {
	if log == nil {
		log = logger.GetLogger()
	}
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	srv := &Server{
		cfg:     cfg.Server,
		scraper: s,
		queue: ratelimit.NewQueue(ratelimit.QueueConfig{
			Concurrency: cfg.Queue.MaxConcurrentRequests,
			Interval:    cfg.Queue.Interval,
			IntervalCap: cfg.Queue.IntervalCap,
		}),
		metrics: m,
		log:     log.WithField("component", "api"),
	}
	srv.engine = srv.routes()

	if m != nil {
		m.WatchQueue(cfg.Metrics.Namespace, srv.queue.Active, srv.queue.Waiting)
	}
	return srv
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(RequestID())
	r.Use(RequestLogger(s.log))
	r.Use(Recovery(s.log))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	r.GET("/health", s.handleHealth)
	r.POST("/api/scrape", s.handleScrape)
	return r
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Queue returns the request admission queue
func (s *Server) Queue() *ratelimit.Queue {
	return s.queue
}

// ListenAndServe serves until ctx is cancelled, then drains in-flight requests
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpSrv := &http.Server{
		Addr:         ":" + s.cfg.Port,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.LogComponentStart(s.log, "http server", map[string]interface{}{"port": s.cfg.Port})
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.LogComponentStop(s.log, "http server", "shutdown requested")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

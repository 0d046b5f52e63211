package main

import (
	"postscraper/pkg/browser"
	"postscraper/pkg/config"
	"postscraper/pkg/extractor"
	"postscraper/pkg/logger"
	"postscraper/pkg/metrics"
	"postscraper/pkg/scraper"
)

// stack is everything one process needs to run scrapes
type stack struct {
	pool         *browser.Pool
	orchestrator *scraper.Orchestrator
	metrics      *metrics.Collector
}

func buildStack(cfg *config.Config, log logger.Logger) (*stack, error) {
	ext, err := extractor.New(cfg.Scrape.BaseURL, extractor.DefaultSelectors())
	if err != nil {
		return nil, err
	}

	launcher := browser.NewChromeLauncher(browser.OptionsFromConfig(cfg.Browser))
	pool := browser.NewPoolWithOptions(launcher, cfg.Browser.PoolSize, browser.PoolOptions{
		LaunchAttempts: cfg.Browser.LaunchRetries + 1,
	}, log)

	s := &stack{pool: pool}
	var rec scraper.Recorder
	if cfg.Metrics.Enabled {
		s.metrics = metrics.New(cfg.Metrics.Namespace)
		s.metrics.WatchPool(cfg.Metrics.Namespace, pool.Stats)
		rec = s.metrics
	}

	s.orchestrator = scraper.New(pool, ext, scraper.OptionsFromConfig(cfg), log, rec)
	return s, nil
}

func (s *stack) Close() error {
	return s.pool.Close()
}

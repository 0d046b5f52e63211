package scraper

import (
	"context"
	stderrors "errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"postscraper/pkg/config"
	errs "postscraper/pkg/errors"
	"postscraper/pkg/logger"
	"postscraper/pkg/models"
	"postscraper/pkg/ratelimit"
	"postscraper/pkg/retry"
)

// Options configures an Orchestrator
type Options struct {
	// Parallelism is the number of workers per run
	Parallelism int
	Policy      retry.AttemptPolicy
	// WorkerQueue caps how many workers run at once across all runs;
	// nil means every worker starts immediately
	WorkerQueue *ratelimit.Queue
	Driver      DriverOptions
}

// DefaultOptions returns five workers with ten capture cycles each
func DefaultOptions() Options {
	return Options{
		Parallelism: 5,
		Policy:      retry.FixedAttempts{Max: 10},
		Driver:      DefaultDriverOptions(),
	}
}

// OptionsFromConfig maps configuration onto orchestrator options
func OptionsFromConfig(cfg *config.Config) Options {
	opts := Options{
		Parallelism: cfg.Scrape.Parallelism,
		Policy:      retry.PolicyFor(cfg.Scrape.MaxAttempts, cfg.Scrape.ExtendOnProgress, cfg.Scrape.HardMaxAttempts),
		Driver: DriverOptions{
			BaseURL:           cfg.Scrape.BaseURL,
			CookieName:        cfg.Auth.CookieName,
			CookieDomain:      cfg.Auth.CookieDomain,
			NavigationTimeout: cfg.Browser.NavigationTimeout,
			ScrollDelay:       &retry.UniformJitter{Min: cfg.Scrape.ScrollDelayMin, Max: cfg.Scrape.ScrollDelayMax},
		},
	}
	if cfg.Scrape.MaxActiveWorkers > 0 {
		opts.WorkerQueue = ratelimit.NewQueue(ratelimit.QueueConfig{Concurrency: cfg.Scrape.MaxActiveWorkers})
	}
	return opts
}

// RunReport describes a finished run
type RunReport struct {
	RunID      string
	SearchTerm string
	Requested  int
	Quota      int
	Posts      []models.PostRecord
	Workers    []WorkerResult
	Elapsed    time.Duration
}

// FailedWorkers counts workers that aborted before producing anything
func (r *RunReport) FailedWorkers() int {
	n := 0
	for _, w := range r.Workers {
		if w.Aborted() {
			n++
		}
	}
	return n
}

// Orchestrator fans a scrape request out over parallel workers
type Orchestrator struct {
	pool      SessionPool
	extractor RecordExtractor
	opts      Options
	log       logger.Logger
	rec       Recorder
}

// New creates an orchestrator. log and rec may be nil.
func New(pool SessionPool, extractor RecordExtractor, opts Options, log logger.Logger, rec Recorder) *Orchestrator {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 1
	}
	if opts.Policy == nil {
		opts.Policy = retry.FixedAttempts{Max: 10}
	}
	if log == nil {
		log = logger.GetLogger()
	}
	if rec == nil {
		rec = nopRecorder{}
	}
	return &Orchestrator{
		pool:      pool,
		extractor: extractor,
		opts:      opts,
		log:       log.WithField("component", "orchestrator"),
		rec:       rec,
	}
}

// Validate checks a request before any browser work starts
func Validate(req models.ScrapeRequest) error {
	var missing []string
	if strings.TrimSpace(req.AuthToken) == "" {
		missing = append(missing, "authToken")
	}
	if strings.TrimSpace(req.SearchTerm) == "" {
		missing = append(missing, "searchTerm")
	}
	if req.TotalCount <= 0 {
		missing = append(missing, "totalCount")
	}
	if len(missing) > 0 {
		return errs.Validation(fmt.Sprintf("All fields are required. Missing or invalid: %s", strings.Join(missing, ", ")))
	}
	return nil
}

// Run scrapes up to req.TotalCount distinct posts
func (o *Orchestrator) Run(ctx context.Context, req models.ScrapeRequest) ([]models.PostRecord, error) {
	report, err := o.RunWithReport(ctx, req)
	if err != nil {
		return nil, err
	}
	return report.Posts, nil
}

// RunWithReport is Run that also returns per-worker outcomes. On
// orchestration failure the report is still returned alongside the error.
func (o *Orchestrator) RunWithReport(ctx context.Context, req models.ScrapeRequest) (*RunReport, error) {
	if err := Validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	report := &RunReport{
		RunID:      uuid.NewString(),
		SearchTerm: req.SearchTerm,
		Requested:  req.TotalCount,
		Quota:      models.Quota(req.TotalCount, o.opts.Parallelism),
		Workers:    make([]WorkerResult, o.opts.Parallelism),
	}
	log := o.log.WithFields(map[string]interface{}{
		"run_id":      report.RunID,
		"search_term": req.SearchTerm,
	})
	log.InfoWithFields("Scrape run started", map[string]interface{}{
		"requested":   req.TotalCount,
		"parallelism": o.opts.Parallelism,
		"quota":       report.Quota,
	})

	collector := NewCollector()
	var wg sync.WaitGroup
	for i := 0; i < o.opts.Parallelism; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			report.Workers[idx] = o.runWorker(ctx, idx+1, req, report.Quota, collector, log)
		}(i)
	}
	wg.Wait()

	var (
		merged  []models.PostRecord
		failed  []error
		aborted int
	)
	for _, w := range report.Workers {
		merged = append(merged, w.Records...)
		if w.Aborted() {
			aborted++
			failed = append(failed, fmt.Errorf("worker %d: %w", w.WorkerID, w.Err))
		}
	}
	if len(merged) > req.TotalCount {
		merged = merged[:req.TotalCount]
	}
	report.Posts = merged
	report.Elapsed = time.Since(start)

	if aborted == len(report.Workers) && len(merged) == 0 {
		o.rec.RunFinished("failed", req.TotalCount, 0, report.Elapsed)
		err := errs.Orchestration("every worker aborted", stderrors.Join(failed...))
		log.WithError(err).Error("Scrape run failed")
		return report, err
	}

	outcome := "complete"
	if len(merged) < req.TotalCount {
		outcome = "partial"
	}
	o.rec.RunFinished(outcome, req.TotalCount, len(merged), report.Elapsed)
	logger.LogRunSummary(log, req.SearchTerm, req.TotalCount, len(merged), aborted, report.Elapsed)
	return report, nil
}

func (o *Orchestrator) runWorker(ctx context.Context, id int, req models.ScrapeRequest, quota int, collector *Collector, log logger.Logger) WorkerResult {
	w := &Worker{
		ID:        id,
		Quota:     quota,
		Request:   req,
		Driver:    NewDriver(o.pool, o.extractor, o.opts.Driver, log.WithField("worker", id), o.rec),
		Collector: collector,
		Policy:    o.opts.Policy,
		Log:       log,
		Recorder:  o.rec,
	}

	if o.opts.WorkerQueue == nil {
		return w.Execute(ctx)
	}

	var result WorkerResult
	err := o.opts.WorkerQueue.Do(ctx, func(ctx context.Context) error {
		result = w.Execute(ctx)
		return nil
	})
	if err != nil {
		// never admitted
		o.rec.WorkerFinished(StateAborted.String(), 0, 0)
		return WorkerResult{WorkerID: id, State: StateAborted, Err: errs.Navigation("worker not admitted", err)}
	}
	return result
}

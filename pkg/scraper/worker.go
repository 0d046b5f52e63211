package scraper

import (
	"context"
	"time"

	"postscraper/pkg/logger"
	"postscraper/pkg/models"
	"postscraper/pkg/retry"
)

// WorkerState is a step of the worker loop
type WorkerState int

const (
	StateInit WorkerState = iota
	StateNavigating
	StateCapturing
	StateFiltering
	StateScrolling
	StateDone
	StateAborted
)

func (s WorkerState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateNavigating:
		return "navigating"
	case StateCapturing:
		return "capturing"
	case StateFiltering:
		return "filtering"
	case StateScrolling:
		return "scrolling"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// WorkerResult is what one worker produced
type WorkerResult struct {
	WorkerID int
	Records  []models.PostRecord
	// Attempts counts capture cycles run
	Attempts int
	State    WorkerState
	// Err is the abort cause, or the fault that ended the loop early
	Err     error
	Elapsed time.Duration
}

// Aborted reports whether the worker never reached the search page
func (r WorkerResult) Aborted() bool {
	return r.State == StateAborted
}

// Worker collects up to Quota novel records from one browser session
type Worker struct {
	ID        int
	Quota     int
	Request   models.ScrapeRequest
	Driver    *Driver
	Collector *Collector
	Policy    retry.AttemptPolicy
	Log       logger.Logger
	Recorder  Recorder

	state WorkerState
}

// Run executes the worker and returns its records
func (w *Worker) Run(ctx context.Context) []models.PostRecord {
	return w.Execute(ctx).Records
}

// Execute runs the worker loop to completion and reports how it ended.
// It never returns an error; failures are carried in the result.
func (w *Worker) Execute(ctx context.Context) WorkerResult {
	start := time.Now()
	log := w.Log
	if log == nil {
		log = logger.GetLogger()
	}
	log = log.WithField("worker", w.ID)
	rec := w.Recorder
	if rec == nil {
		rec = nopRecorder{}
	}
	policy := w.Policy
	if policy == nil {
		policy = retry.FixedAttempts{Max: 10}
	}

	result := WorkerResult{WorkerID: w.ID}
	finish := func(state WorkerState) WorkerResult {
		w.state = state
		w.Driver.Close()
		if w.Quota >= 0 && len(result.Records) > w.Quota {
			result.Records = result.Records[:w.Quota]
		}
		result.State = state
		result.Elapsed = time.Since(start)
		rec.WorkerFinished(state.String(), result.Attempts, result.Elapsed)

		fields := map[string]interface{}{
			"state":    state.String(),
			"records":  len(result.Records),
			"attempts": result.Attempts,
			"elapsed":  result.Elapsed,
		}
		if result.Err != nil {
			log.WithError(result.Err).WarnWithFields("Worker finished", fields)
		} else {
			log.InfoWithFields("Worker finished", fields)
		}
		return result
	}

	w.state = StateInit
	if w.Quota <= 0 {
		return finish(StateDone)
	}

	w.state = StateNavigating
	log.DebugWithFields("Worker navigating", map[string]interface{}{
		"search_term": w.Request.SearchTerm,
		"quota":       w.Quota,
	})
	if err := w.Driver.Open(ctx, w.Request.AuthToken, w.Request.SearchTerm); err != nil {
		result.Err = err
		return finish(StateAborted)
	}

	stalled := 0
	for policy.Allow(result.Attempts, stalled) {
		if err := ctx.Err(); err != nil {
			result.Err = err
			break
		}

		w.state = StateCapturing
		batch, err := w.Driver.Capture(ctx)
		result.Attempts++
		if err != nil {
			result.Err = err
			break
		}

		w.state = StateFiltering
		novel := w.Collector.Admit(batch)
		result.Records = append(result.Records, novel...)
		rec.RecordsAdmitted(len(novel))
		if len(novel) == 0 {
			stalled++
		} else {
			stalled = 0
		}
		logger.LogWorkerProgress(log, w.ID, result.Attempts, len(result.Records), w.Quota)

		if len(result.Records) >= w.Quota {
			break
		}
		if !policy.Allow(result.Attempts, stalled) {
			break
		}

		w.state = StateScrolling
		if err := w.Driver.ScrollAndWait(ctx); err != nil {
			result.Err = err
			break
		}
	}

	return finish(StateDone)
}

// State returns the worker's current state
func (w *Worker) State() WorkerState {
	return w.state
}

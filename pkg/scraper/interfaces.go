package scraper

import (
	"context"
	"time"

	"postscraper/pkg/browser"
	"postscraper/pkg/models"
)

// SessionPool hands out browser sessions
type SessionPool interface {
	Acquire(ctx context.Context) (browser.Session, error)
	Release(s browser.Session)
	Discard(s browser.Session)
}

// RecordExtractor turns page HTML into records and reports skipped containers
type RecordExtractor interface {
	Parse(html string) ([]models.PostRecord, int)
}

// Recorder receives run and worker measurements
type Recorder interface {
	RunFinished(outcome string, requested, returned int, elapsed time.Duration)
	WorkerFinished(state string, attempts int, elapsed time.Duration)
	RecordsAdmitted(n int)
	RecordsSkipped(n int)
}

type nopRecorder struct{}

func (nopRecorder) RunFinished(string, int, int, time.Duration) {}
func (nopRecorder) WorkerFinished(string, int, time.Duration)   {}
func (nopRecorder) RecordsAdmitted(int)                         {}
func (nopRecorder) RecordsSkipped(int)                          {}

package scraper

import (
	"sync"

	"postscraper/pkg/models"
)

// Collector admits each post URL at most once per run
type Collector struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewCollector returns an empty collector
func NewCollector() *Collector {
	return &Collector{seen: make(map[string]struct{})}
}

// Admit returns the records in batch whose URL has not been seen before and
// marks them seen, preserving batch order. The check and the insert happen
// under one lock, so concurrent callers never both receive the same URL.
func (c *Collector) Admit(batch []models.PostRecord) []models.PostRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var novel []models.PostRecord
	for _, rec := range batch {
		if _, ok := c.seen[rec.URL]; ok {
			continue
		}
		c.seen[rec.URL] = struct{}{}
		novel = append(novel, rec)
	}
	return novel
}

// Len returns how many distinct URLs have been admitted
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.seen)
}

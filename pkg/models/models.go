package models

import (
	"encoding/json"
	"strings"
)

// PostRecord is a single post extracted from a rendered search page.
// URL uniquely identifies a post for the lifetime of a run.
type PostRecord struct {
	Content string `json:"content"`
	Profile string `json:"profile"`
	URL     string `json:"url"`
	Date    string `json:"date"`
}

// Valid reports whether every field was extracted.
func (p PostRecord) Valid() bool {
	return p.Content != "" && p.Profile != "" && p.URL != "" && p.Date != ""
}

// ScrapeRequest is the caller-supplied input for one scrape run.
type ScrapeRequest struct {
	AuthToken  string `json:"authToken"`
	SearchTerm string `json:"searchTerm"`
	TotalCount int    `json:"totalCount"`
}

// UnmarshalJSON also accepts the cookie/hashtag/tweetCount field names
// used by older form clients when the primary names are absent.
func (r *ScrapeRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		AuthToken  string `json:"authToken"`
		SearchTerm string `json:"searchTerm"`
		TotalCount int    `json:"totalCount"`
		Cookie     string `json:"cookie"`
		Hashtag    string `json:"hashtag"`
		TweetCount int    `json:"tweetCount"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.AuthToken = firstNonEmpty(raw.AuthToken, raw.Cookie)
	r.SearchTerm = firstNonEmpty(raw.SearchTerm, raw.Hashtag)
	r.TotalCount = raw.TotalCount
	if r.TotalCount == 0 {
		r.TotalCount = raw.TweetCount
	}
	return nil
}

// ScrapeResponse is the success payload returned to callers.
type ScrapeResponse struct {
	Posts []PostRecord `json:"posts"`
}

// ErrorResponse is the failure payload returned to callers.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Quota returns ceil(total/parallelism), the per-worker target. It does
// not overflow for totals near math.MaxInt.
func Quota(total, parallelism int) int {
	if parallelism <= 0 {
		parallelism = 1
	}
	if total <= 0 {
		return 0
	}
	q := total / parallelism
	if total%parallelism != 0 {
		q++
	}
	return q
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

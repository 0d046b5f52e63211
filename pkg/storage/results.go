// Package storage writes scrape results to disk.
//
// Files are written to a temporary sibling first and renamed into place,
// so a reader never sees a half-written result set.
package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"postscraper/pkg/models"
)

// Encode writes posts as an indented {"posts": [...]} document. URLs are
// left unescaped.
func Encode(w io.Writer, posts []models.PostRecord) error {
	if posts == nil {
		posts = []models.PostRecord{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(models.ScrapeResponse{Posts: posts})
}

// Save atomically writes posts to path, creating parent directories
func Save(path string, posts []models.PostRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	out, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}

	err = Encode(out, posts)
	closeErr := out.Close()
	if err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write posts: %w", err)
	}
	if closeErr != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close file: %w", closeErr)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temporary file: %w", err)
	}
	return nil
}

// Load reads a file written by Save
func Load(path string) ([]models.PostRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var resp models.ScrapeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return resp.Posts, nil
}

// PathFor names a result file for term inside dir, e.g.
// dir/golang-20240501-100000.json
func PathFor(dir, term string, at time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("%s-%s.json", slug(term), at.Format("20060102-150405")))
}

func slug(term string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(term) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		return "search"
	}
	return s
}

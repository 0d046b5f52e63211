// Package extractor turns a rendered search results page into post records.
package extractor

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"postscraper/pkg/models"
)

// Selectors locate each field inside a post container. They describe the
// semantic role of an element; the page markup is expected to drift.
type Selectors struct {
	Container string
	Content   string
	Profile   string
	Link      string
	Date      string
	// DateAttr is read from the Date element
	DateAttr string
}

// DefaultSelectors match the live search timeline markup
func DefaultSelectors() Selectors {
	return Selectors{
		Container: "article",
		Content:   "div[lang]",
		Profile:   `div[data-testid="User-Name"] a`,
		Link:      `a[href*="/status/"]`,
		Date:      "time[datetime]",
		DateAttr:  "datetime",
	}
}

// Extractor pulls PostRecords out of page HTML
type Extractor struct {
	sel  Selectors
	base *url.URL
}

// New returns an Extractor that resolves relative links against baseURL
func New(baseURL string, sel Selectors) (*Extractor, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, err
	}
	return &Extractor{sel: sel, base: base}, nil
}

// Extract returns every complete record on the page in document order.
// Containers missing any field are dropped. Unparseable input yields nil.
func (e *Extractor) Extract(html string) []models.PostRecord {
	records, _ := e.Parse(html)
	return records
}

// Parse is Extract that also reports how many containers were skipped
func (e *Extractor) Parse(html string) ([]models.PostRecord, int) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, 0
	}

	var (
		records []models.PostRecord
		skipped int
	)
	doc.Find(e.sel.Container).Each(func(_ int, s *goquery.Selection) {
		rec := models.PostRecord{
			Content: strings.TrimSpace(s.Find(e.sel.Content).First().Text()),
			Profile: e.resolve(s.Find(e.sel.Profile).First().AttrOr("href", "")),
			URL:     e.resolve(s.Find(e.sel.Link).First().AttrOr("href", "")),
			Date:    strings.TrimSpace(s.Find(e.sel.Date).First().AttrOr(e.sel.DateAttr, "")),
		}
		if !rec.Valid() {
			skipped++
			return
		}
		records = append(records, rec)
	})
	return records, skipped
}

func (e *Extractor) resolve(href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(ref).String()
}

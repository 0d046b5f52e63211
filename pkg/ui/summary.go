package ui

import (
	"fmt"
	"time"

	"postscraper/pkg/scraper"
)

// PrintRunSummary prints a header, one line per worker and the run totals
func PrintRunSummary(report *scraper.RunReport) {
	if report == nil {
		return
	}

	PrintHighlight("Scrape summary")
	PrintInfo("Run", report.RunID)
	PrintInfo("Search term", report.SearchTerm)
	for _, w := range report.Workers {
		line := fmt.Sprintf("  worker %d  %-8s  %3d posts  %2d cycles  %s",
			w.WorkerID, w.State, len(w.Records), w.Attempts, w.Elapsed.Round(time.Millisecond))
		switch {
		case w.Aborted():
			PrintWarning(line, w.Err)
		case w.Err != nil:
			Println(line + Dim("  ("+w.Err.Error()+")"))
		default:
			Println(line)
		}
	}

	total := fmt.Sprintf("%d of %d posts in %s", len(report.Posts), report.Requested, report.Elapsed.Round(time.Millisecond))
	switch {
	case len(report.Posts) >= report.Requested:
		PrintSuccess(total)
	case len(report.Posts) == 0:
		PrintWarning(total)
	default:
		PrintWarning(total + " (the search ran out of new posts)")
	}
}

// Package scraper runs a search-term scrape across several browser sessions.
//
// A run is owned by an Orchestrator. It validates the request, splits the
// requested count into per-worker quotas and starts one Worker per unit of
// parallelism. Each Worker drives a single browser session through a Driver:
// open the live search page, capture the rendered posts, hand them to the
// run's shared Collector and scroll for more until its quota is met or its
// attempt budget runs out.
//
// The Collector is the only shared mutable state in a run. Admit is atomic,
// so a post URL is returned to exactly one worker even when several pages
// show it at the same time.
//
//	orch := scraper.New(pool, ext, scraper.DefaultOptions(), log, nil)
//	posts, err := orch.Run(ctx, models.ScrapeRequest{
//	    AuthToken:  token,
//	    SearchTerm: "#golang",
//	    TotalCount: 50,
//	})
//
// Worker failures are isolated: a run only fails when every worker aborted
// before producing anything.
package scraper

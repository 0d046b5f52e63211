package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"postscraper/pkg/auth"
	"postscraper/pkg/config"
	"postscraper/pkg/logger"
	"postscraper/pkg/models"
	"postscraper/pkg/storage"
	"postscraper/pkg/ui"
)

var (
	scrapeCount       int
	scrapeToken       string
	scrapeAccount     string
	scrapeOutput      string
	scrapeParallelism int
	scrapeMaxAttempts int
	scrapeExtend      bool
	scrapePoolSize    int
	scrapeHeadless    bool
	scrapeTimeout     time.Duration
	scrapeBaseURL     string
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape <search term>",
	Short: "Collect posts for a search term and print them as JSON",
	Long: `Open the live search results for a term in several browser sessions,
scroll each one and collect distinct posts until --count is reached.

The auth token is taken from, in order:
  - the --token flag
  - POSTSCRAPER_AUTH_TOKEN or auth.token in the config file
  - the stored account named by --account (see 'postscraper auth login')`,
	Example: `  # Fifty posts for a hashtag, written to stdout
  postscraper scrape "#golang" --count 50

  # Use a stored account and write to a file
  postscraper scrape golang --count 20 --account work --output posts.json

  # Watch the browsers work
  postscraper scrape golang --count 10 --headless=false --parallelism 2`,
	Args: cobra.MinimumNArgs(1),
	RunE: runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)

	f := scrapeCmd.Flags()
	f.IntVarP(&scrapeCount, "count", "n", 20, "number of posts to collect")
	f.StringVar(&scrapeToken, "token", "", "auth token (prefer 'auth login' or POSTSCRAPER_AUTH_TOKEN)")
	f.StringVarP(&scrapeAccount, "account", "a", "", "use a stored account")
	f.StringVarP(&scrapeOutput, "output", "o", "", "write JSON to this file (or a generated name in this directory) instead of stdout")
	f.IntVarP(&scrapeParallelism, "parallelism", "p", 0, "number of concurrent workers")
	f.IntVar(&scrapeMaxAttempts, "max-attempts", 0, "capture cycles per worker")
	f.BoolVar(&scrapeExtend, "extend-on-progress", false, "keep scrolling past --max-attempts while new posts appear")
	f.IntVar(&scrapePoolSize, "pool-size", 0, "maximum browser sessions at once")
	f.BoolVar(&scrapeHeadless, "headless", true, "run browsers headless")
	f.DurationVar(&scrapeTimeout, "navigation-timeout", 0, "how long to wait for the search page to settle")
	f.StringVar(&scrapeBaseURL, "base-url", "", "site root the search URL is built on")
}

func scrapeFlags(cmd *cobra.Command) map[string]interface{} {
	flags := map[string]interface{}{
		"auth-token":         scrapeToken,
		"base-url":           scrapeBaseURL,
		"parallelism":        scrapeParallelism,
		"max-attempts":       scrapeMaxAttempts,
		"pool-size":          scrapePoolSize,
		"navigation-timeout": scrapeTimeout,
	}
	if cmd.Flags().Changed("extend-on-progress") {
		flags["extend-on-progress"] = scrapeExtend
	}
	if cmd.Flags().Changed("headless") {
		flags["headless"] = scrapeHeadless
	}
	return flags
}

func runScrape(cmd *cobra.Command, args []string) error {
	term := strings.TrimSpace(strings.Join(args, " "))

	cfg, err := loadConfig(scrapeFlags(cmd))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.GetLogger().WithField("command", "scrape")

	token, err := resolveToken(cfg, scrapeAccount)
	if err != nil {
		ui.PrintError("No auth token found")
		ui.Println("\nStore one with:\n  postscraper auth login\n\nor export it:\n  export " + auth.TokenEnv + "=<token>")
		return err
	}

	ui.PrintBanner()
	ui.PrintInfo("Search term", term)
	ui.PrintInfo("Posts requested", fmt.Sprint(scrapeCount))
	ui.PrintInfo("Workers", fmt.Sprint(cfg.Scrape.Parallelism))

	st, err := buildStack(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := st.orchestrator.RunWithReport(ctx, models.ScrapeRequest{
		AuthToken:  token,
		SearchTerm: term,
		TotalCount: scrapeCount,
	})
	if report != nil {
		ui.PrintRunSummary(report)
	}
	if err != nil {
		return err
	}

	path, err := writePosts(report.Posts, scrapeOutput, term)
	if err != nil {
		return err
	}
	if path != "" {
		ui.PrintSuccess(fmt.Sprintf("Saved %d posts to %s", len(report.Posts), path))
	}
	return nil
}

// resolveToken prefers configured tokens, then the credential store
func resolveToken(cfg *config.Config, account string) (string, error) {
	if account == "" && strings.TrimSpace(cfg.Auth.Token) != "" {
		return cfg.Auth.Token, nil
	}
	manager, err := auth.NewManager()
	if err != nil {
		return "", err
	}
	return manager.Token(account)
}

// writePosts prints to stdout, or saves to path. A directory path gets a
// generated file name. It returns where the posts went.
func writePosts(posts []models.PostRecord, path, term string) (string, error) {
	if path == "" {
		return "", storage.Encode(os.Stdout, posts)
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = storage.PathFor(path, term, time.Now())
	}
	return path, storage.Save(path, posts)
}

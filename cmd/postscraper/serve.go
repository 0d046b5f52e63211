package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"postscraper/internal/api"
	"postscraper/pkg/logger"
	"postscraper/pkg/ui"
)

var servePort string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scrape runs over HTTP",
	Long: `Start an HTTP server with:

  POST /api/scrape   {"authToken": "...", "searchTerm": "...", "totalCount": 20}
  GET  /health
  GET  /metrics      (when metrics are enabled)

Requests are admitted through a bounded queue; browser sessions are shared
between requests through one pool.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&servePort, "port", "", "port to listen on (default 8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(map[string]interface{}{"port": servePort})
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.GetLogger().WithField("command", "serve")

	st, err := buildStack(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			log.WithError(err).Warn("Browser pool did not close cleanly")
		}
	}()

	srv := api.NewServer(cfg, st.orchestrator, st.metrics, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.PrintBanner()
	ui.PrintInfo("Listening", ":"+cfg.Server.Port)
	return srv.ListenAndServe(ctx)
}

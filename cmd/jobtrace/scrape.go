package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobtrace/jobtrace/internal/model"
)

var scrapeCmd = &cobra.Command{
	Use:   "scrape",
	Short: "Scrape the regional listing once and print it",
	Long:  "Runs the regional scraper with its rate limit, retries and cache, and prints the same {\"jobs\": [...]} payload the API serves.",
	RunE:  runScrape,
}

func init() {
	rootCmd.AddCommand(scrapeCmd)
}

func runScrape(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// stdout carries the payload, so logs go to stderr.
	logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel(debug)}))
	src, err := buildSources(ctx, cfg, newHTTPClient(cfg), logger)
	if err != nil {
		logger.Error("failed to wire sources", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	jobs, err := src.scraper.Scrape(ctx)
	if err != nil {
		logger.Error("scrape failed", "target", cfg.Scraper.TargetURL, "error", err)
		os.Exit(1)
	}
	if jobs == nil {
		jobs = []model.ScrapedJob{}
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(map[string][]model.ScrapedJob{"jobs": jobs})
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobtrace/jobtrace/internal/browse"
	"github.com/jobtrace/jobtrace/internal/saved"
)

var exploreUser string

var exploreCmd = &cobra.Command{
	Use:   "explore",
	Short: "Browse jobs interactively (TUI)",
	Long:  "Opens the infinite-scroll job list. Scrolling to the end loads the next page; b bookmarks the highlighted job when a user is set.",
	RunE:  runExplore,
}

func init() {
	addQueryFlags(exploreCmd)
	exploreCmd.Flags().StringVar(&exploreUser, "user", "", "user id for bookmarks (default: user_id from config)")
	rootCmd.AddCommand(exploreCmd)
}

func runExplore(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	q, err := queryFromFlags()
	if err != nil {
		logger.Error("invalid flags", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Any log output while the alt screen is up corrupts the display.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))

	httpClient := newHTTPClient(cfg)
	src, err := buildSources(ctx, cfg, httpClient, silentLogger)
	if err != nil {
		logger.Error("failed to wire sources", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	opts := browse.Options{Query: q, Logger: silentLogger}

	userID := exploreUser
	if userID == "" {
		userID = cfg.UserID
	}
	if userID != "" {
		st, err := openStore(ctx, cfg)
		if err != nil {
			logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
			os.Exit(1)
		}
		defer st.Close()
		opts.Saved = saved.NewService(st, st, setupNotifier(cfg, httpClient, silentLogger), silentLogger)
		opts.UserID = userID
	}

	ctrl := src.feedFactory(cfg, silentLogger)()
	defer ctrl.Close()

	if err := browse.RunExplore(ctx, ctrl, opts); err != nil {
		fmt.Fprintf(os.Stderr, "explore: %v\n", err)
		os.Exit(1)
	}
	return nil
}

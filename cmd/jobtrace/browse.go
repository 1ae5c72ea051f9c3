package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jobtrace/jobtrace/internal/browse"
	"github.com/jobtrace/jobtrace/internal/feed"
	"github.com/jobtrace/jobtrace/internal/filter"
)

var (
	browseSource   string
	browseKeyword  string
	browseLocation string
	browseTags     []string
	browseSort     string
	browsePages    int
	browseJSON     bool
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Load pages once, print the visible jobs, exit",
	Long:  "One-shot browse: loads up to --pages pages from the chosen source, applies the filters and prints the visible jobs.",
	RunE:  runBrowse,
}

func init() {
	addQueryFlags(browseCmd)
	browseCmd.Flags().IntVar(&browsePages, "pages", 1, "number of pages to load")
	browseCmd.Flags().BoolVar(&browseJSON, "json", false, "print the snapshot as JSON")
	rootCmd.AddCommand(browseCmd)
}

// addQueryFlags registers the flags shared by browse and explore.
func addQueryFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&browseSource, "source", "primary", "job source: primary or regional")
	cmd.Flags().StringVarP(&browseKeyword, "keyword", "k", "", "keyword matched against title, description, company and tags")
	cmd.Flags().StringVarP(&browseLocation, "location", "l", "", "location substring")
	cmd.Flags().StringSliceVarP(&browseTags, "tag", "t", nil, "tag filter (Remote, Full-time, Advanced, ...); repeatable")
	cmd.Flags().StringVar(&browseSort, "sort", "", "sort: newest, salary-high, salary-low or relevance")
}

func queryFromFlags() (feed.Query, error) {
	sort, err := filter.ParseSort(browseSort)
	if err != nil {
		return feed.Query{}, err
	}
	return feed.Query{
		Context: feed.Context{
			Source:   browseSource,
			Keyword:  browseKeyword,
			Location: browseLocation,
		},
		Selected: browseTags,
		Sort:     sort,
	}, nil
}

// quietLogger keeps library logs off the terminal unless --debug is set.
func quietLogger(logger *slog.Logger) *slog.Logger {
	if debug {
		return logger
	}
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runBrowse(cmd *cobra.Command, args []string) error {
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

	feedLogger := quietLogger(logger)
	src, err := buildSources(ctx, cfg, newHTTPClient(cfg), feedLogger)
	if err != nil {
		logger.Error("failed to wire sources", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	ctrl := src.feedFactory(cfg, feedLogger)()
	defer ctrl.Close()

	load := func(ctx context.Context) (feed.Snapshot, error) {
		if err := ctrl.Apply(ctx, q); err != nil {
			return ctrl.Snapshot(), err
		}
		for page := 1; page < browsePages; page++ {
			issued, err := ctrl.Advance(ctx)
			if err != nil {
				return ctrl.Snapshot(), err
			}
			if !issued {
				break
			}
		}
		return ctrl.Snapshot(), nil
	}

	var snap feed.Snapshot
	if browseJSON {
		snap, err = load(ctx)
	} else {
		snap, err = browse.RunLoader(q.Source+" jobs", cfg.Sources.Timeout, load)
	}
	if err != nil {
		logger.Debug("browse failed", "error", err)
		if snap.Error != "" {
			fmt.Fprintln(os.Stderr, snap.Error)
		} else {
			fmt.Fprintf(os.Stderr, "browse failed: %v\n", err)
		}
		os.Exit(1)
	}

	if browseJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	printSnapshot(snap)
	return nil
}

func printSnapshot(snap feed.Snapshot) {
	if len(snap.Visible) == 0 {
		fmt.Println("No jobs match.")
		return
	}

	fmt.Printf("%-40s %-24s %-18s %-10s %s\n", "Title", "Company", "Location", "Type", "Posted")
	fmt.Println(strings.Repeat("─", 110))
	for _, j := range snap.Visible {
		fmt.Printf("%-40s %-24s %-18s %-10s %s\n",
			truncate(j.Title, 40), truncate(j.Company, 24), truncate(j.Location, 18), j.Type, j.PostedTime)
	}

	more := "no more pages"
	if snap.HasMore {
		more = "more pages available"
	}
	fmt.Printf("\nShowing %d of %d loaded jobs (page %d, %s)\n", len(snap.Visible), len(snap.Jobs), snap.Page, more)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

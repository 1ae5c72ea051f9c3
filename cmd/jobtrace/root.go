package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/jobtrace/jobtrace/internal/adapter"
	"github.com/jobtrace/jobtrace/internal/cache"
	"github.com/jobtrace/jobtrace/internal/config"
	"github.com/jobtrace/jobtrace/internal/feed"
	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/notifier"
	"github.com/jobtrace/jobtrace/internal/ratelimit"
	"github.com/jobtrace/jobtrace/internal/retry"
	"github.com/jobtrace/jobtrace/internal/scraper"
	"github.com/jobtrace/jobtrace/internal/store"
)

const cachePrefix = "jobtrace"

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "jobtrace",
	Short: "Job listing aggregator",
	Long:  "jobtrace aggregates a paginated job API and a scraped regional listing, with filtering, infinite scroll and saved jobs.",
	// With no subcommand, serve the HTTP API.
	RunE: runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: JOBTRACE_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > JOBTRACE_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("JOBTRACE_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func logLevel(dbg bool) slog.Level {
	if dbg {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func setupLogger(dbg bool) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel(dbg)}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	logNotifier := notifier.NewLogNotifier(logger)
	switch cfg.Notification.Type {
	case "slack":
		logger.Info("using slack notifier")
		return notifier.Multi{logNotifier, notifier.NewSlackNotifier(cfg.Notification.WebhookURL, httpClient, logger)}
	default:
		return logNotifier
	}
}

// savedStore is what the saved-jobs service needs from a backend.
type savedStore interface {
	model.SavedJobStore
	model.ProfileStore
	Close() error
}

func openStore(ctx context.Context, cfg *config.Config) (savedStore, error) {
	if cfg.Store.Driver == "postgres" {
		pg, err := store.NewPostgresStore(ctx, cfg.Store.DSN)
		if err != nil {
			return nil, err
		}
		return pg, nil
	}
	sq, err := store.NewSQLiteStore(cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	return sq, nil
}

// sources holds the wired job sources and their caches.
type sources struct {
	primary     model.PageFetcher
	regional    model.JobFetcher
	scraper     model.ListingScraper
	pageCache   *cache.PageCache   // nil without redis
	scrapeCache *cache.ScrapeCache // nil without redis
	rdb         *redis.Client
}

func (s *sources) Close() {
	if s.rdb != nil {
		s.rdb.Close()
	}
}

// buildSources wires the primary API, the decorated regional scraper and,
// when configured, the Redis caches in front of both.
func buildSources(ctx context.Context, cfg *config.Config, httpClient *http.Client, logger *slog.Logger) (*sources, error) {
	s := &sources{}

	if cfg.Cache.RedisURL != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Cache.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		s.rdb = rdb
		logger.Info("redis cache enabled", "ttl", cfg.Cache.TTL.String())
	}

	var primary model.PageFetcher = adapter.NewJobsAPIAdapter(cfg.Sources.JobsAPIURL, httpClient).WithLogger(logger)
	if s.rdb != nil {
		s.pageCache = cache.NewPageCache(primary, s.rdb, cachePrefix, cfg.Cache.TTL, logger)
		primary = s.pageCache
	}
	s.primary = primary

	limiter := ratelimit.NewHostLimiter(cfg.Scraper.MinDelay)
	var sc model.ListingScraper = scraper.NewHotJobsScraper(cfg.Scraper.TargetURL, cfg.Scraper.MaxJobs, cfg.Scraper.UserAgent, httpClient)
	sc = ratelimit.NewRateLimitedScraper(sc, limiter, ratelimit.HostOf(cfg.Scraper.TargetURL))
	sc = retry.NewRetryScraper(sc, retry.Policy{MaxRetries: cfg.Scraper.MaxRetries, BaseDelay: cfg.Scraper.RetryDelay}, logger)
	if s.rdb != nil {
		s.scrapeCache = cache.NewScrapeCache(sc, s.rdb, cachePrefix, cfg.Cache.TTL, logger)
		sc = s.scrapeCache
	}
	s.scraper = sc

	if cfg.Sources.RegionalURL != "" {
		s.regional = adapter.NewRegionalAdapter(cfg.Sources.RegionalURL, httpClient)
	} else {
		s.regional = adapter.NewLocalRegionalSource(sc)
	}

	logger.Debug("sources wired",
		"jobs_api", cfg.Sources.JobsAPIURL,
		"regional", cfg.Sources.RegionalURL,
		"scrape_target", cfg.Scraper.TargetURL,
		"page_size", cfg.Sources.PageSize,
	)
	return s, nil
}

// feedFactory returns a constructor for controllers sharing s.
func (s *sources) feedFactory(cfg *config.Config, logger *slog.Logger) func() *feed.Controller {
	return func() *feed.Controller {
		return feed.NewController(s.primary, s.regional, logger,
			feed.WithPageSize(cfg.Sources.PageSize),
			feed.WithDedupe(cfg.Feed.Dedupe),
		)
	}
}

func newHTTPClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.Sources.Timeout}
}

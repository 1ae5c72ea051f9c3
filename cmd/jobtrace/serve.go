package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jobtrace/jobtrace/internal/config"
	"github.com/jobtrace/jobtrace/internal/feed"
	"github.com/jobtrace/jobtrace/internal/saved"
	"github.com/jobtrace/jobtrace/internal/scheduler"
	"github.com/jobtrace/jobtrace/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  "Serves feeds, the regional scrape endpoint and saved jobs; blocks until SIGINT/SIGTERM. With redis configured, a cron warmer keeps the caches hot.",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"addr", cfg.Server.Addr,
		"store", cfg.Store.Driver,
		"page_size", cfg.Sources.PageSize,
		"cache", cfg.Cache.RedisURL != "",
	)

	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	httpClient := newHTTPClient(cfg)
	src, err := buildSources(ctx, cfg, httpClient, logger)
	if err != nil {
		logger.Error("failed to wire sources", "error", err)
		os.Exit(1)
	}
	defer src.Close()

	st, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	svc := saved.NewService(st, st, setupNotifier(cfg, httpClient, logger), logger)
	feeds := server.NewRegistry(src.feedFactory(cfg, logger), func(c *feed.Controller) *feed.ScrollTrigger {
		return feed.NewScrollTrigger(c, logger)
	})
	feeds.SetIdleTimeout(cfg.Server.SessionIdle)
	srv := server.New(src.scraper, feeds, svc, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Addr)
	})
	if tasks := warmTasks(cfg, src); len(tasks) > 0 {
		sched := scheduler.NewScheduler(tasks, cfg.Cache.WarmSchedule, logger)
		g.Go(func() error {
			return sched.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("goodbye")
	return nil
}

// warmTasks returns the cache refreshes to schedule. Without redis there is
// nothing to warm.
func warmTasks(cfg *config.Config, src *sources) []scheduler.Task {
	var tasks []scheduler.Task
	if src.scrapeCache != nil {
		tasks = append(tasks, scheduler.Task{Name: "scrape-refresh", Refresher: src.scrapeCache})
	}
	if src.pageCache != nil {
		pages, limit := cfg.Cache.WarmPages, cfg.Sources.PageSize
		warm := scheduler.RefreshFunc(func(ctx context.Context) error {
			return src.pageCache.Warm(ctx, pages, limit)
		})
		tasks = append(tasks, scheduler.Task{Name: "page-warm", Refresher: warm})
	}
	return tasks
}

// Package cache puts Redis in front of the job sources. Cache failures are
// logged and bypassed; they never fail a fetch.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jobtrace/jobtrace/internal/model"
)

// DefaultTTL is used when a cache is created with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// NewRedisClient connects to the Redis server at url and pings it.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging redis: %w", err)
	}
	return client, nil
}

var (
	_ model.PageFetcher    = (*PageCache)(nil)
	_ model.ListingScraper = (*ScrapeCache)(nil)
)

// PageCache caches primary-source pages by page number and limit.
type PageCache struct {
	inner  model.PageFetcher
	rdb    *redis.Client
	prefix string
	ttl    time.Duration
	logger *slog.Logger
}

// NewPageCache wraps inner. Keys are namespaced under prefix.
func NewPageCache(inner model.PageFetcher, rdb *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *PageCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &PageCache{inner: inner, rdb: rdb, prefix: prefix, ttl: ttl, logger: logger}
}

// FetchPage serves from Redis when possible. Only successful pages are
// stored.
func (c *PageCache) FetchPage(ctx context.Context, page, limit int) ([]model.Job, error) {
	key := c.key(page, limit)

	var jobs []model.Job
	if get(ctx, c.rdb, c.logger, key, &jobs) {
		c.logger.Debug("page cache hit", "page", page, "limit", limit)
		return jobs, nil
	}

	jobs, err := c.inner.FetchPage(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	set(ctx, c.rdb, c.logger, key, jobs, c.ttl)
	return jobs, nil
}

// Warm refetches the first pages from the source and overwrites their
// entries. It stops early at a short page.
func (c *PageCache) Warm(ctx context.Context, pages, limit int) error {
	for page := 1; page <= pages; page++ {
		jobs, err := c.inner.FetchPage(ctx, page, limit)
		if err != nil {
			return fmt.Errorf("warming page %d: %w", page, err)
		}
		set(ctx, c.rdb, c.logger, c.key(page, limit), jobs, c.ttl)
		if len(jobs) < limit {
			return nil
		}
	}
	return nil
}

func (c *PageCache) key(page, limit int) string {
	return fmt.Sprintf("%s:page:%d:%d", c.prefix, page, limit)
}

// ScrapeCache holds the last successful regional scrape.
type ScrapeCache struct {
	inner  model.ListingScraper
	rdb    *redis.Client
	key    string
	ttl    time.Duration
	logger *slog.Logger
}

// NewScrapeCache wraps inner, storing its result under prefix.
func NewScrapeCache(inner model.ListingScraper, rdb *redis.Client, prefix string, ttl time.Duration, logger *slog.Logger) *ScrapeCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &ScrapeCache{inner: inner, rdb: rdb, key: prefix + ":scrape", ttl: ttl, logger: logger}
}

// Scrape returns the cached snapshot, scraping on a miss.
func (c *ScrapeCache) Scrape(ctx context.Context) ([]model.ScrapedJob, error) {
	var jobs []model.ScrapedJob
	if get(ctx, c.rdb, c.logger, c.key, &jobs) {
		c.logger.Debug("scrape cache hit", "jobs", len(jobs))
		return jobs, nil
	}
	return c.refresh(ctx)
}

// Refresh scrapes and replaces the snapshot regardless of its age.
func (c *ScrapeCache) Refresh(ctx context.Context) error {
	_, err := c.refresh(ctx)
	return err
}

func (c *ScrapeCache) refresh(ctx context.Context) ([]model.ScrapedJob, error) {
	jobs, err := c.inner.Scrape(ctx)
	if err != nil {
		return nil, err
	}
	set(ctx, c.rdb, c.logger, c.key, jobs, c.ttl)
	return jobs, nil
}

func get(ctx context.Context, rdb *redis.Client, logger *slog.Logger, key string, dst any) bool {
	raw, err := rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		logger.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		logger.Warn("cache entry corrupt", "key", key, "error", err)
		return false
	}
	return true
}

func set(ctx context.Context, rdb *redis.Client, logger *slog.Logger, key string, v any, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		logger.Warn("cache encode failed", "key", key, "error", err)
		return
	}
	if err := rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		logger.Warn("cache write failed", "key", key, "error", err)
	}
}

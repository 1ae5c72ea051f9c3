package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for jobtrace.
type Config struct {
	Server       ServerConfig
	Sources      SourcesConfig
	Scraper      ScraperConfig
	Cache        CacheConfig
	Store        StoreConfig
	Feed         FeedConfig
	Notification NotificationConfig
	UserID       string // user the CLI acts as for saved-job commands
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr        string
	SessionIdle time.Duration // feed sessions unused this long are closed; zero keeps them
}

// SourcesConfig points at the two job sources.
type SourcesConfig struct {
	JobsAPIURL  string        // primary paginated API
	RegionalURL string        // scrape endpoint; empty means scrape in-process
	PageSize    int
	Timeout     time.Duration // zero means no client timeout
}

// ScraperConfig controls the regional HTML scrape.
type ScraperConfig struct {
	TargetURL  string
	MaxJobs    int
	UserAgent  string
	MinDelay   time.Duration // minimum gap between hits on the target host
	MaxRetries int
	RetryDelay time.Duration
}

// CacheConfig enables the Redis cache and its warmer. Empty RedisURL
// disables both.
type CacheConfig struct {
	RedisURL     string
	TTL          time.Duration
	WarmSchedule string // cron spec
	WarmPages    int
}

// StoreConfig selects the saved-jobs backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`
}

// FeedConfig tunes the pagination controller.
type FeedConfig struct {
	Dedupe bool `yaml:"dedupe"`
}

// NotificationConfig controls where saved-job notices go besides the log.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log" or "slack"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
}

// Defaults.
const (
	DefaultAddr         = ":8080"
	DefaultSessionIdle  = 30 * time.Minute
	DefaultPageSize     = 6
	DefaultTargetURL    = "https://www.hotnigerianjobs.com/"
	DefaultMaxJobs      = 20
	DefaultUserAgent    = "Mozilla/5.0 (compatible; jobtrace/1.0)"
	DefaultScrapeDelay  = 2 * time.Second
	DefaultMaxRetries   = 2
	DefaultRetryDelay   = 2 * time.Second
	DefaultCacheTTL     = 5 * time.Minute
	DefaultWarmSchedule = "@every 10m"
	DefaultWarmPages    = 3
	DefaultStoreDriver  = "sqlite"
	DefaultSQLiteDSN    = "jobtrace.db"
	slackWebhookPrefix  = "https://hooks.slack.com/"
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Server       rawServerConfig    `yaml:"server"`
	Sources      rawSourcesConfig   `yaml:"sources"`
	Scraper      rawScraperConfig   `yaml:"scraper"`
	Cache        rawCacheConfig     `yaml:"cache"`
	Store        StoreConfig        `yaml:"store"`
	Feed         FeedConfig         `yaml:"feed"`
	Notification NotificationConfig `yaml:"notification"`
	UserID       string             `yaml:"user_id"`
}

type rawServerConfig struct {
	Addr        string `yaml:"addr"`
	SessionIdle string `yaml:"session_idle"`
}

type rawSourcesConfig struct {
	JobsAPIURL  string `yaml:"jobs_api_url"`
	RegionalURL string `yaml:"regional_url"`
	PageSize    int    `yaml:"page_size"`
	Timeout     string `yaml:"timeout"`
}

type rawScraperConfig struct {
	TargetURL  string `yaml:"target_url"`
	MaxJobs    int    `yaml:"max_jobs"`
	UserAgent  string `yaml:"user_agent"`
	MinDelay   string `yaml:"min_delay"`
	MaxRetries *int   `yaml:"max_retries"`
	RetryDelay string `yaml:"retry_delay"`
}

type rawCacheConfig struct {
	RedisURL     string `yaml:"redis_url"`
	TTL          string `yaml:"ttl"`
	WarmSchedule string `yaml:"warm_schedule"`
	WarmPages    int    `yaml:"warm_pages"`
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	timeout, err := parseDuration("sources.timeout", raw.Sources.Timeout, 0)
	if err != nil {
		return nil, err
	}
	minDelay, err := parseDuration("scraper.min_delay", raw.Scraper.MinDelay, DefaultScrapeDelay)
	if err != nil {
		return nil, err
	}
	retryDelay, err := parseDuration("scraper.retry_delay", raw.Scraper.RetryDelay, DefaultRetryDelay)
	if err != nil {
		return nil, err
	}
	ttl, err := parseDuration("cache.ttl", raw.Cache.TTL, DefaultCacheTTL)
	if err != nil {
		return nil, err
	}

	sessionIdle, err := parseDuration("server.session_idle", raw.Server.SessionIdle, DefaultSessionIdle)
	if err != nil {
		return nil, err
	}

	maxRetries := DefaultMaxRetries
	if raw.Scraper.MaxRetries != nil {
		maxRetries = *raw.Scraper.MaxRetries
	}

	cfg := &Config{
		Server: ServerConfig{
			Addr:        orDefault(raw.Server.Addr, DefaultAddr),
			SessionIdle: sessionIdle,
		},
		Sources: SourcesConfig{
			JobsAPIURL:  raw.Sources.JobsAPIURL,
			RegionalURL: raw.Sources.RegionalURL,
			PageSize:    orDefaultInt(raw.Sources.PageSize, DefaultPageSize),
			Timeout:     timeout,
		},
		Scraper: ScraperConfig{
			TargetURL:  orDefault(raw.Scraper.TargetURL, DefaultTargetURL),
			MaxJobs:    orDefaultInt(raw.Scraper.MaxJobs, DefaultMaxJobs),
			UserAgent:  orDefault(raw.Scraper.UserAgent, DefaultUserAgent),
			MinDelay:   minDelay,
			MaxRetries: maxRetries,
			RetryDelay: retryDelay,
		},
		Cache: CacheConfig{
			RedisURL:     raw.Cache.RedisURL,
			TTL:          ttl,
			WarmSchedule: orDefault(raw.Cache.WarmSchedule, DefaultWarmSchedule),
			WarmPages:    orDefaultInt(raw.Cache.WarmPages, DefaultWarmPages),
		},
		Store: StoreConfig{
			Driver: orDefault(raw.Store.Driver, DefaultStoreDriver),
			DSN:    raw.Store.DSN,
		},
		Feed:         raw.Feed,
		Notification: raw.Notification,
		UserID:       raw.UserID,
	}
	if cfg.Store.Driver == "sqlite" && cfg.Store.DSN == "" {
		cfg.Store.DSN = DefaultSQLiteDSN
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func validate(cfg *Config) error {
	if cfg.Sources.JobsAPIURL == "" {
		return fmt.Errorf("sources.jobs_api_url is required")
	}
	if err := checkHTTPURL("sources.jobs_api_url", cfg.Sources.JobsAPIURL); err != nil {
		return err
	}
	if cfg.Sources.RegionalURL != "" {
		if err := checkHTTPURL("sources.regional_url", cfg.Sources.RegionalURL); err != nil {
			return err
		}
	}
	if err := checkHTTPURL("scraper.target_url", cfg.Scraper.TargetURL); err != nil {
		return err
	}
	if cfg.Server.SessionIdle < 0 {
		return fmt.Errorf("server.session_idle must not be negative, got %v", cfg.Server.SessionIdle)
	}
	if cfg.Sources.PageSize <= 0 {
		return fmt.Errorf("sources.page_size must be positive, got %d", cfg.Sources.PageSize)
	}
	if cfg.Sources.Timeout < 0 {
		return fmt.Errorf("sources.timeout must not be negative, got %v", cfg.Sources.Timeout)
	}
	if cfg.Scraper.MaxJobs <= 0 {
		return fmt.Errorf("scraper.max_jobs must be positive, got %d", cfg.Scraper.MaxJobs)
	}
	if cfg.Scraper.MaxRetries < 0 {
		return fmt.Errorf("scraper.max_retries must not be negative, got %d", cfg.Scraper.MaxRetries)
	}

	switch cfg.Store.Driver {
	case "sqlite":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.driver must be \"sqlite\" or \"postgres\", got %q", cfg.Store.Driver)
	}

	if cfg.Notification.Type == "slack" {
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, slackWebhookPrefix) {
			return fmt.Errorf("notification.webhook_url must start with %s", slackWebhookPrefix)
		}
	}

	return nil
}

func parseDuration(field, value string, def time.Duration) (time.Duration, error) {
	if value == "" {
		return def, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", field, value, err)
	}
	return d, nil
}

func checkHTTPURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an http(s) URL, got %q", field, raw)
	}
	return nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func orDefaultInt(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

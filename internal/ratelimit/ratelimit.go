// Package ratelimit spaces out requests to the same upstream host.
package ratelimit

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/jobtrace/jobtrace/internal/model"
)

// HostLimiter enforces a minimum delay between requests to the same host.
type HostLimiter struct {
	mu       sync.Mutex
	lastCall map[string]time.Time
	minDelay time.Duration
}

// NewHostLimiter creates a limiter that keeps minDelay between consecutive
// requests to one host.
func NewHostLimiter(minDelay time.Duration) *HostLimiter {
	return &HostLimiter{
		lastCall: make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until host may be contacted again. It returns an error if ctx
// ends first.
func (l *HostLimiter) Wait(ctx context.Context, host string) error {
	l.mu.Lock()
	last, ok := l.lastCall[host]
	now := time.Now()

	if !ok || now.Sub(last) >= l.minDelay {
		l.lastCall[host] = now
		l.mu.Unlock()
		return nil
	}

	// Reserve the next slot before sleeping so concurrent callers queue up
	// behind it instead of all waking at once.
	next := last.Add(l.minDelay)
	l.lastCall[host] = next
	l.mu.Unlock()

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", host, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// HostOf returns the host part of rawURL, or rawURL itself if it does not
// parse.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL
	}
	return u.Host
}

var _ model.ListingScraper = (*RateLimitedScraper)(nil)

// RateLimitedScraper waits on a shared HostLimiter before each scrape.
type RateLimitedScraper struct {
	inner   model.ListingScraper
	limiter *HostLimiter
	host    string
}

// NewRateLimitedScraper wraps inner. Scrapers hitting the same host should
// share one limiter.
func NewRateLimitedScraper(inner model.ListingScraper, limiter *HostLimiter, host string) *RateLimitedScraper {
	return &RateLimitedScraper{
		inner:   inner,
		limiter: limiter,
		host:    host,
	}
}

// Scrape waits for the limiter, then delegates.
func (s *RateLimitedScraper) Scrape(ctx context.Context) ([]model.ScrapedJob, error) {
	if err := s.limiter.Wait(ctx, s.host); err != nil {
		return nil, err
	}
	return s.inner.Scrape(ctx)
}

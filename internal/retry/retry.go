// Package retry retries transient scrape failures with exponential backoff.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/jobtrace/jobtrace/internal/model"
)

// Policy controls how many extra attempts are made and how long to wait
// between them.
type Policy struct {
	// MaxRetries is the number of attempts after the first failure.
	MaxRetries int
	// BaseDelay is the wait before the first retry, doubled on each
	// subsequent one.
	BaseDelay time.Duration
}

// Do runs fn and retries it under p while the returned error is transient.
func Do[T any](ctx context.Context, p Policy, logger *slog.Logger, op string, fn func(context.Context) (T, error)) (T, error) {
	var zero T

	out, err := fn(ctx)
	if err == nil {
		return out, nil
	}
	if !isRetryable(err) {
		return zero, err
	}

	lastErr := err
	for attempt := 1; attempt <= p.MaxRetries; attempt++ {
		delay := p.backoffDelay(attempt, lastErr)

		logger.Warn("retrying after transient error",
			"op", op,
			"attempt", attempt,
			"max_retries", p.MaxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			return zero, fmt.Errorf("%s retry cancelled: %w", op, ctx.Err())
		case <-time.After(delay):
		}

		out, err = fn(ctx)
		if err == nil {
			return out, nil
		}
		if !isRetryable(err) {
			return zero, err
		}
		lastErr = err
	}

	return zero, lastErr
}

// backoffDelay computes the delay for attempt with ±30% jitter. A Retry-After
// hint on the error wins.
func (p Policy) backoffDelay(attempt int, err error) time.Duration {
	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) && httpErr.RetryAfter > 0 {
		return httpErr.RetryAfter
	}

	delay := p.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var httpErr *model.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == http.StatusTooManyRequests || httpErr.StatusCode >= 500
	}

	// network, DNS
	return true
}

var _ model.ListingScraper = (*RetryScraper)(nil)

// RetryScraper retries a flaky listing scrape before giving up.
type RetryScraper struct {
	inner  model.ListingScraper
	policy Policy
	logger *slog.Logger
}

// NewRetryScraper wraps inner with p.
func NewRetryScraper(inner model.ListingScraper, p Policy, logger *slog.Logger) *RetryScraper {
	return &RetryScraper{inner: inner, policy: p, logger: logger}
}

// Scrape delegates to the wrapped scraper, retrying transient errors.
func (s *RetryScraper) Scrape(ctx context.Context) ([]model.ScrapedJob, error) {
	return Do(ctx, s.policy, s.logger, "scrape", s.inner.Scrape)
}

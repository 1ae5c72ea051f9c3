package model

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrAlreadySaved is returned when a (user, job) bookmark already exists.
	ErrAlreadySaved = errors.New("job already saved")
	// ErrUnauthenticated is returned when an operation needs a user id and got none.
	ErrUnauthenticated = errors.New("not authenticated")
)

// HTTPError is a non-2xx upstream response. Retry logic inspects StatusCode
// and honours RetryAfter.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // zero if the upstream sent none
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// StatusError returns nil for a 2xx response and an *HTTPError naming op
// otherwise.
func StatusError(resp *http.Response, op string) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}
	return &HTTPError{
		StatusCode: resp.StatusCode,
		RetryAfter: ParseRetryAfter(resp.Header.Get("Retry-After"), time.Now()),
		Err:        fmt.Errorf("%s: unexpected status %d", op, resp.StatusCode),
	}
}

// ParseRetryAfter reads a Retry-After value in delta-seconds ("120") or
// HTTP-date form. Absent, malformed and past values give zero.
func ParseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0
		}
		return time.Duration(seconds) * time.Second
	}
	at, err := http.ParseTime(value)
	if err != nil || !at.After(now) {
		return 0
	}
	return at.Sub(now)
}

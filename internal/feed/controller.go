// Package feed accumulates job pages from the primary or regional source and
// exposes the filtered visible set. A Controller is one browsing session.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/jobtrace/jobtrace/internal/filter"
	"github.com/jobtrace/jobtrace/internal/model"
)

// DefaultPageSize is the number of records requested per primary page.
const DefaultPageSize = 6

// LoadErrorMessage is the user-facing message for any failed fetch.
const LoadErrorMessage = "Failed to load jobs. Please try again later."

var (
	// ErrUnknownSource is returned for a Context naming neither source.
	ErrUnknownSource = errors.New("unknown job source")
	errNoSource      = errors.New("source not configured")
)

// Status is the controller's position in its fetch state machine.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusExhausted Status = "exhausted"
	StatusErrored   Status = "errored"
)

// Context identifies what is being browsed. Changing any field starts a new
// accumulation.
type Context struct {
	Source   string `json:"source"`
	Keyword  string `json:"keyword"`
	Location string `json:"location"`
}

func (fc Context) normalized() (Context, error) {
	switch fc.Source {
	case "":
		fc.Source = model.SourcePrimary
	case model.SourcePrimary, model.SourceRegional:
	default:
		return fc, fmt.Errorf("%w: %q", ErrUnknownSource, fc.Source)
	}
	return fc, nil
}

// Query is a Context plus the client-side narrowing applied to it.
type Query struct {
	Context
	Selected []string    `json:"selected"`
	Sort     filter.Sort `json:"sort"`
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Jobs       []model.Job     `json:"jobs"`
	Visible    []model.Job     `json:"visible"`
	Page       int             `json:"page"`
	Status     Status          `json:"status"`
	HasMore    bool            `json:"hasMore"`
	Loading    bool            `json:"loading"`
	Error      string          `json:"error,omitempty"`
	Context    Context         `json:"context"`
	Criteria   filter.Criteria `json:"criteria"`
	Generation uint64          `json:"generation"`
}

// Option configures a Controller.
type Option func(*Controller)

// WithPageSize overrides DefaultPageSize. Non-positive values are ignored.
func WithPageSize(n int) Option {
	return func(c *Controller) {
		if n > 0 {
			c.pageSize = n
		}
	}
}

// WithDedupe drops records whose id was already accumulated.
func WithDedupe(on bool) Option {
	return func(c *Controller) {
		c.dedupe = on
	}
}

// Controller drives paginated loading for one session. It is safe for
// concurrent use; at most one fetch runs at a time.
type Controller struct {
	primary  model.PageFetcher
	regional model.JobFetcher
	logger   *slog.Logger
	pageSize int
	dedupe   bool

	mu       sync.Mutex
	gen      uint64
	cancel   context.CancelFunc
	fetched  bool
	active   Context
	selected []string
	sort     filter.Sort
	jobs     []model.Job
	seen     map[string]struct{}
	page     int
	status   Status
	hasMore  bool
	errMsg   string
}

// NewController creates an idle controller on the primary source. Either
// source may be nil if it is never selected.
func NewController(primary model.PageFetcher, regional model.JobFetcher, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{
		primary:  primary,
		regional: regional,
		logger:   logger,
		pageSize: DefaultPageSize,
		active:   Context{Source: model.SourcePrimary},
		seen:     make(map[string]struct{}),
		status:   StatusIdle,
		hasMore:  true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// fetch is one in-flight request, tagged with the generation it belongs to.
type fetch struct {
	ctx    context.Context
	cancel context.CancelFunc
	gen    uint64
	page   int
	scope  Context
}

// Reset discards all accumulated state, switches to fc and loads page 1.
// Any in-flight fetch is cancelled and its result will be dropped.
func (c *Controller) Reset(ctx context.Context, fc Context) error {
	fc, err := fc.normalized()
	if err != nil {
		return err
	}

	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	c.active = fc
	c.jobs = nil
	c.seen = make(map[string]struct{})
	c.page = 0
	c.hasMore = true
	c.status = StatusIdle
	c.errMsg = ""
	f := c.beginLocked(ctx)
	c.mu.Unlock()

	c.logger.Debug("feed reset", "source", fc.Source, "keyword", fc.Keyword, "location", fc.Location, "generation", f.gen)
	return c.run(f)
}

// Advance loads the next page when the controller is idle and more pages
// remain. It reports whether a fetch was issued.
func (c *Controller) Advance(ctx context.Context) (bool, error) {
	c.mu.Lock()
	if c.status != StatusIdle || !c.hasMore {
		c.mu.Unlock()
		return false, nil
	}
	f := c.beginLocked(ctx)
	c.mu.Unlock()

	return true, c.run(f)
}

// Apply sets the selection and sort from q. It resets when q names a
// different context or nothing has been loaded yet.
func (c *Controller) Apply(ctx context.Context, q Query) error {
	fc, err := q.Context.normalized()
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.selected = slices.Clone(q.Selected)
	c.sort = q.Sort
	changed := !c.fetched || fc != c.active
	c.mu.Unlock()

	if !changed {
		return nil
	}
	return c.Reset(ctx, fc)
}

// SetCriteria replaces the selected tags and sort without fetching.
func (c *Controller) SetCriteria(selected []string, sort filter.Sort) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selected = slices.Clone(selected)
	c.sort = sort
}

// Close cancels any in-flight fetch. A late result is discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.gen++
	if c.status == StatusLoading {
		c.status = StatusIdle
	}
}

// Snapshot returns a copy of the current state with the visible set
// recomputed.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	criteria := c.criteriaLocked()
	return Snapshot{
		Jobs:       append([]model.Job{}, c.jobs...),
		Visible:    filter.Apply(c.jobs, criteria),
		Page:       c.page,
		Status:     c.status,
		HasMore:    c.hasMore,
		Loading:    c.status == StatusLoading,
		Error:      c.errMsg,
		Context:    c.active,
		Criteria:   criteria,
		Generation: c.gen,
	}
}

// Visible returns the accumulated records that pass the current criteria.
func (c *Controller) Visible() []model.Job {
	c.mu.Lock()
	defer c.mu.Unlock()
	return filter.Apply(c.jobs, c.criteriaLocked())
}

// Companies returns the distinct company names seen so far, in first-seen
// order.
func (c *Controller) Companies() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	seen := make(map[string]struct{}, len(c.jobs))
	var out []string
	for _, j := range c.jobs {
		if j.Company == "" {
			continue
		}
		if _, ok := seen[j.Company]; ok {
			continue
		}
		seen[j.Company] = struct{}{}
		out = append(out, j.Company)
	}
	return out
}

func (c *Controller) criteriaLocked() filter.Criteria {
	return filter.Criteria{
		Keyword:  c.active.Keyword,
		Location: c.active.Location,
		Selected: slices.Clone(c.selected),
		Sort:     c.sort,
	}
}

// beginLocked moves to Loading and prepares the next fetch. c.mu must be
// held.
func (c *Controller) beginLocked(ctx context.Context) fetch {
	fctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.status = StatusLoading
	c.fetched = true
	return fetch{
		ctx:    fctx,
		cancel: cancel,
		gen:    c.gen,
		page:   c.page + 1,
		scope:  c.active,
	}
}

// run performs f without holding the lock, then commits the result if f is
// still current.
func (c *Controller) run(f fetch) error {
	defer f.cancel()

	jobs, err := c.load(f)

	c.mu.Lock()
	defer c.mu.Unlock()

	if f.gen != c.gen {
		c.logger.Debug("discarding stale page", "generation", f.gen, "current", c.gen, "page", f.page)
		return nil
	}
	c.cancel = nil

	// The caller went away before the page arrived. Nothing is committed, so
	// the same page is requested again on the next Advance.
	if err != nil && f.ctx.Err() != nil {
		c.status = StatusIdle
		c.logger.Debug("page load cancelled", "source", f.scope.Source, "page", f.page, "error", err)
		return fmt.Errorf("fetching %s jobs page %d: %w", f.scope.Source, f.page, f.ctx.Err())
	}

	if err != nil {
		c.status = StatusErrored
		c.hasMore = false
		c.errMsg = LoadErrorMessage
		c.logger.Error("failed to load jobs", "source", f.scope.Source, "page", f.page, "error", err)
		return fmt.Errorf("fetching %s jobs page %d: %w", f.scope.Source, f.page, err)
	}

	if f.scope.Source == model.SourceRegional {
		c.jobs = nil
		c.seen = make(map[string]struct{})
		c.appendLocked(jobs)
		c.page = 1
		c.hasMore = false
		c.status = StatusExhausted
	} else {
		c.appendLocked(jobs)
		c.page = f.page
		if len(jobs) < c.pageSize {
			c.hasMore = false
			c.status = StatusExhausted
		} else {
			c.status = StatusIdle
		}
	}

	c.logger.Debug("page loaded",
		"source", f.scope.Source,
		"page", f.page,
		"received", len(jobs),
		"total", len(c.jobs),
		"has_more", c.hasMore,
	)
	return nil
}

func (c *Controller) load(f fetch) ([]model.Job, error) {
	if f.scope.Source == model.SourceRegional {
		if c.regional == nil {
			return nil, fmt.Errorf("regional: %w", errNoSource)
		}
		return c.regional.FetchJobs(f.ctx)
	}
	if c.primary == nil {
		return nil, fmt.Errorf("primary: %w", errNoSource)
	}
	return c.primary.FetchPage(f.ctx, f.page, c.pageSize)
}

func (c *Controller) appendLocked(jobs []model.Job) {
	for _, j := range jobs {
		if c.dedupe {
			if _, ok := c.seen[j.ID]; ok {
				continue
			}
			c.seen[j.ID] = struct{}{}
		}
		c.jobs = append(c.jobs, j)
	}
}

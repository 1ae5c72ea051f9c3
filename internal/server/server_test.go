package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobtrace/jobtrace/internal/feed"
	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/saved"
	"github.com/jobtrace/jobtrace/internal/store"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubScraper struct {
	jobs []model.ScrapedJob
	err  error
}

func (s *stubScraper) Scrape(context.Context) ([]model.ScrapedJob, error) {
	return s.jobs, s.err
}

// pages serves full pages for page 1 and 2 and a short page after.
type pages struct{}

func (pages) FetchPage(_ context.Context, page, limit int) ([]model.Job, error) {
	n := limit
	if page > 2 {
		n = 2
	}
	jobs := make([]model.Job, n)
	for i := range jobs {
		jobs[i] = model.Job{
			ID:      fmt.Sprintf("p%d-%d", page, i),
			Title:   "Engineer",
			Company: fmt.Sprintf("Company %d", i%3),
		}
	}
	return jobs, nil
}

type regionalStub struct{}

func (regionalStub) FetchJobs(context.Context) ([]model.Job, error) {
	return []model.Job{{ID: "ng-1", Title: "Driver", Company: "Nigerian Company"}}, nil
}

func newTestServer(t *testing.T, scraper model.ListingScraper) (*Server, *Registry) {
	t.Helper()
	logger := discardLogger()

	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	reg := NewRegistry(
		func() *feed.Controller { return feed.NewController(pages{}, regionalStub{}, logger) },
		func(c *feed.Controller) *feed.ScrollTrigger { return feed.NewScrollTrigger(c, logger) },
	)
	svc := saved.NewService(st, st, nil, logger)
	return New(scraper, reg, svc, logger), reg
}

func do(t *testing.T, h http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})
	rec := do(t, s.Handler(), http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestScrapeEndpoint(t *testing.T) {
	scraper := &stubScraper{jobs: []model.ScrapedJob{{Title: "Nurse", Company: "N/A", Location: "Nigeria", URL: "https://hot.example/1", Posted: "today"}}}
	s, _ := newTestServer(t, scraper)

	rec := do(t, s.Handler(), http.MethodGet, "/api/nigeria-jobs", nil, map[string]string{"Origin": "https://app.example"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	body := decode[struct {
		Jobs []model.ScrapedJob `json:"jobs"`
	}](t, rec)
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, "Nurse", body.Jobs[0].Title)
}

func TestScrapeEndpoint_EmptyIsArray(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})
	rec := do(t, s.Handler(), http.MethodGet, "/api/nigeria-jobs", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"jobs": []}`, rec.Body.String())
}

func TestScrapeEndpoint_Failure(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{err: errors.New("upstream changed")})
	rec := do(t, s.Handler(), http.MethodGet, "/api/nigeria-jobs", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Failed to scrape job data."}`, rec.Body.String())
}

func TestScrapeEndpoint_Options(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})

	rec := do(t, s.Handler(), http.MethodOptions, "/api/nigeria-jobs", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, s.Handler(), http.MethodOptions, "/api/nigeria-jobs", nil, map[string]string{
		"Origin":                        "https://app.example",
		"Access-Control-Request-Method": "GET",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestFeedLifecycle(t *testing.T) {
	s, reg := newTestServer(t, &stubScraper{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/feeds", map[string]any{"keyword": "engineer"}, nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	id := rec.Header().Get(HeaderFeedID)
	require.NotEmpty(t, id)

	snap := decode[feed.Snapshot](t, rec)
	assert.Len(t, snap.Jobs, feed.DefaultPageSize)
	assert.True(t, snap.HasMore)
	assert.Equal(t, "engineer", snap.Context.Keyword)

	// Partially visible sentinel does nothing.
	rec = do(t, h, http.MethodPost, "/api/feeds/"+id+"/advance", map[string]any{"ratio": 0.4}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[feed.Snapshot](t, rec).Page)

	rec = do(t, h, http.MethodPost, "/api/feeds/"+id+"/advance", map[string]any{"ratio": 1}, nil)
	assert.Equal(t, 2, decode[feed.Snapshot](t, rec).Page)

	// Empty body counts as fully visible.
	rec = do(t, h, http.MethodPost, "/api/feeds/"+id+"/advance", nil, nil)
	snap = decode[feed.Snapshot](t, rec)
	assert.Equal(t, 3, snap.Page)
	assert.False(t, snap.HasMore)
	assert.Len(t, snap.Jobs, 14)

	rec = do(t, h, http.MethodGet, "/api/feeds/"+id+"/companies", nil, nil)
	assert.JSONEq(t, `{"companies": ["Company 0", "Company 1", "Company 2"]}`, rec.Body.String())

	rec = do(t, h, http.MethodPut, "/api/feeds/"+id, map[string]any{"source": "regional"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap = decode[feed.Snapshot](t, rec)
	assert.Len(t, snap.Jobs, 1)
	assert.Equal(t, feed.StatusExhausted, snap.Status)

	rec = do(t, h, http.MethodDelete, "/api/feeds/"+id, nil, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, reg.Len())

	rec = do(t, h, http.MethodGet, "/api/feeds/"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeed_CriteriaOnlyUpdate(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/feeds", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	id := rec.Header().Get(HeaderFeedID)
	gen := decode[feed.Snapshot](t, rec).Generation

	rec = do(t, h, http.MethodPut, "/api/feeds/"+id, map[string]any{"selected": []string{"Remote"}, "sort": "newest"}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	snap := decode[feed.Snapshot](t, rec)
	assert.Equal(t, gen, snap.Generation, "criteria change must not reset")
	assert.Equal(t, []string{"Remote"}, snap.Criteria.Selected)
	assert.Empty(t, snap.Visible, "stub jobs have no work arrangement")
}

func TestFeed_BadRequests(t *testing.T) {
	s, reg := newTestServer(t, &stubScraper{})
	h := s.Handler()

	rec := do(t, h, http.MethodPost, "/api/feeds", map[string]any{"source": "mars"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, reg.Len())

	rec = do(t, h, http.MethodPost, "/api/feeds", map[string]any{"sort": "oldest"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/feeds/nope/advance", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodDelete, "/api/feeds/nope", nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFeed_IdleSessionsExpire(t *testing.T) {
	s, reg := newTestServer(t, &stubScraper{})
	h := s.Handler()

	clock := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return clock }
	reg.SetIdleTimeout(10 * time.Minute)

	rec := do(t, h, http.MethodPost, "/api/feeds", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	stale := rec.Header().Get(HeaderFeedID)

	clock = clock.Add(6 * time.Minute)
	rec = do(t, h, http.MethodPost, "/api/feeds", nil, nil)
	require.Equal(t, http.StatusCreated, rec.Code)
	fresh := rec.Header().Get(HeaderFeedID)

	clock = clock.Add(5 * time.Minute)
	assert.Equal(t, 1, reg.Sweep())
	assert.Equal(t, 1, reg.Len())

	rec = do(t, h, http.MethodGet, "/api/feeds/"+stale, nil, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// A read keeps the session alive.
	rec = do(t, h, http.MethodGet, "/api/feeds/"+fresh, nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	clock = clock.Add(9 * time.Minute)
	assert.Equal(t, 0, reg.Sweep())

	reg.SetIdleTimeout(0)
	clock = clock.Add(time.Hour)
	assert.Equal(t, 0, reg.Sweep())
	assert.Equal(t, 1, reg.Len())
}

func TestSaved_RequiresUser(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/saved"},
		{http.MethodPost, "/api/saved"},
		{http.MethodDelete, "/api/saved/job-1"},
		{http.MethodGet, "/api/profile"},
	} {
		rec := do(t, s.Handler(), tc.method, tc.path, nil, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestSaved_Flow(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})
	h := s.Handler()
	user := map[string]string{HeaderUserID: "u1"}
	job := model.Job{ID: "job-1", Title: "Backend Engineer", Company: "Paystack"}

	rec := do(t, h, http.MethodPost, "/api/saved", job, user)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Job saved!", decode[struct{ Notice model.Notice }](t, rec).Notice.Title)

	rec = do(t, h, http.MethodPost, "/api/saved", job, user)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Job already saved", decode[struct{ Notice model.Notice }](t, rec).Notice.Title)

	rec = do(t, h, http.MethodGet, "/api/saved", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Saved []model.SavedJob `json:"saved"`
	}](t, rec)
	require.Len(t, list.Saved, 1)
	assert.Equal(t, "Paystack", list.Saved[0].JobCompany)

	rec = do(t, h, http.MethodDelete, "/api/saved/job-1", nil, user)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Job removed", decode[struct{ Notice model.Notice }](t, rec).Notice.Title)

	rec = do(t, h, http.MethodGet, "/api/saved", nil, user)
	assert.JSONEq(t, `{"saved": []}`, rec.Body.String())
}

func TestSaved_RejectsJobWithoutID(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})
	rec := do(t, s.Handler(), http.MethodPost, "/api/saved", model.Job{Title: "x"}, map[string]string{HeaderUserID: "u1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfile(t *testing.T) {
	s, _ := newTestServer(t, &stubScraper{})
	h := s.Handler()
	hdr := map[string]string{HeaderUserID: "u1", HeaderUserEmail: "ada@example.com"}

	rec := do(t, h, http.MethodGet, "/api/profile", nil, hdr)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", decode[model.Profile](t, rec).DisplayName)

	rec = do(t, h, http.MethodPut, "/api/profile", map[string]string{"display_name": "Ada"}, hdr)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/api/profile", nil, hdr)
	assert.Equal(t, "Ada", decode[model.Profile](t, rec).DisplayName)
}

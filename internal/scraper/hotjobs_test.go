package scraper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jobtrace/jobtrace/internal/model"
)

const listingHTML = `<html><body>
<div class="mycase">
  <h1><a href="https://hot.example/jobs/1">  Graduate Trainee at Access Bank </a></h1>
  <span class="semibio">Posted on Tue 14th Oct, 2026</span>
  <span class="semibio">second line ignored</span>
</div>
<div class="mycase">
  <h1><a href="https://hot.example/jobs/2">Missing posted line</a></h1>
</div>
<div class="mycase">
  <h1><a>No link</a></h1>
  <span class="semibio">Posted on Tue 14th Oct, 2026</span>
</div>
<div class="mycase">
  <h1><a href="https://hot.example/jobs/3">Accountant</a></h1>
  <span class="semibio">Posted on Mon 13th Oct, 2026</span>
</div>
</body></html>`

func TestScrape_ExtractsCompleteEntries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); ua != "jobtrace-test" {
			t.Errorf("User-Agent = %q", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(listingHTML))
	}))
	defer srv.Close()

	s := NewHotJobsScraper(srv.URL, 0, "jobtrace-test", srv.Client())
	jobs, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("expected 2 jobs, got %d: %+v", len(jobs), jobs)
	}

	want := model.ScrapedJob{
		Title:    "Graduate Trainee at Access Bank",
		Company:  "N/A",
		Location: "Nigeria",
		URL:      "https://hot.example/jobs/1",
		Posted:   "Posted on Tue 14th Oct, 2026",
	}
	if jobs[0] != want {
		t.Errorf("jobs[0] = %+v\nwant %+v", jobs[0], want)
	}
	if jobs[1].Title != "Accountant" {
		t.Errorf("jobs[1].Title = %q", jobs[1].Title)
	}
}

func TestScrape_CapsAtMaxJobs(t *testing.T) {
	var b strings.Builder
	b.WriteString("<html><body>")
	for i := 0; i < 30; i++ {
		fmt.Fprintf(&b, `<div class="mycase"><h1><a href="/j/%d">Job %d</a></h1><span class="semibio">today</span></div>`, i, i)
	}
	b.WriteString("</body></html>")
	page := b.String()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(page))
	}))
	defer srv.Close()

	s := NewHotJobsScraper(srv.URL, 0, "", srv.Client())
	jobs, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != DefaultMaxJobs {
		t.Fatalf("expected %d jobs, got %d", DefaultMaxJobs, len(jobs))
	}
	if jobs[19].Title != "Job 19" {
		t.Errorf("expected source order to be kept, last = %q", jobs[19].Title)
	}
}

func TestScrape_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	s := NewHotJobsScraper(srv.URL, 5, "", srv.Client())
	_, err := s.Scrape(context.Background())
	var httpErr *model.HTTPError
	if !errors.As(err, &httpErr) || httpErr.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected HTTPError 502, got %v", err)
	}
}

func TestScrape_EmptyPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body><p>maintenance</p></body></html>"))
	}))
	defer srv.Close()

	s := NewHotJobsScraper(srv.URL, 5, "", srv.Client())
	jobs, err := s.Scrape(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(jobs) != 0 {
		t.Fatalf("expected 0 jobs, got %d", len(jobs))
	}
}

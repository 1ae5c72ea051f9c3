package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/normalize"
)

var (
	_ model.JobFetcher = (*RegionalAdapter)(nil)
	_ model.JobFetcher = (*LocalRegionalSource)(nil)
)

type regionalResponse struct {
	Jobs json.RawMessage `json:"jobs"`
}

// RegionalAdapter fetches the single-page regional listing from a scrape
// endpoint serving {"jobs": [...]}.
type RegionalAdapter struct {
	endpoint string
	client   *http.Client
}

// NewRegionalAdapter creates an adapter for the scrape endpoint at endpoint.
func NewRegionalAdapter(endpoint string, client *http.Client) *RegionalAdapter {
	return &RegionalAdapter{
		endpoint: endpoint,
		client:   client,
	}
}

// FetchJobs retrieves and maps the regional listing. A payload without a jobs
// array yields an empty list.
func (a *RegionalAdapter) FetchJobs(ctx context.Context) ([]model.Job, error) {
	resp, err := getJSON(ctx, a.client, a.endpoint, "regional fetch")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var payload regionalResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("regional fetch: %w", err)
	}

	var scraped []model.ScrapedJob
	if isArray(payload.Jobs) {
		if err := json.Unmarshal(payload.Jobs, &scraped); err != nil {
			scraped = nil
		}
	}
	return normalize.Regional(scraped), nil
}

// LocalRegionalSource serves the regional listing straight from an in-process
// scraper, skipping the HTTP hop when the scrape endpoint runs in the same
// binary.
type LocalRegionalSource struct {
	scraper model.ListingScraper
}

// NewLocalRegionalSource wraps scraper as a model.JobFetcher.
func NewLocalRegionalSource(scraper model.ListingScraper) *LocalRegionalSource {
	return &LocalRegionalSource{scraper: scraper}
}

// FetchJobs scrapes and maps the regional listing.
func (s *LocalRegionalSource) FetchJobs(ctx context.Context) ([]model.Job, error) {
	scraped, err := s.scraper.Scrape(ctx)
	if err != nil {
		return nil, fmt.Errorf("regional scrape: %w", err)
	}
	return normalize.Regional(scraped), nil
}

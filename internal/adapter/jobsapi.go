package adapter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/jobtrace/jobtrace/internal/model"
	"github.com/jobtrace/jobtrace/internal/normalize"
)

// Ensure JobsAPIAdapter implements model.PageFetcher.
var _ model.PageFetcher = (*JobsAPIAdapter)(nil)

// jobsAPIResponse is the top-level primary job API envelope. Both levels stay
// raw so a wrong shape degrades to an empty page instead of an error.
type jobsAPIResponse struct {
	Result json.RawMessage `json:"result"`
}

type jobsAPIResult struct {
	Jobs json.RawMessage `json:"jobs"`
}

// JobsAPIAdapter fetches pages from the primary paginated job API.
type JobsAPIAdapter struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewJobsAPIAdapter creates an adapter for the job API rooted at baseURL.
func NewJobsAPIAdapter(baseURL string, client *http.Client) *JobsAPIAdapter {
	return &JobsAPIAdapter{
		baseURL: baseURL,
		client:  client,
		logger:  slog.New(slog.DiscardHandler),
	}
}

// WithLogger sets the logger used to report skipped records.
func (a *JobsAPIAdapter) WithLogger(logger *slog.Logger) *JobsAPIAdapter {
	a.logger = logger
	return a
}

// FetchPage requests one page and normalizes every record. A response whose
// envelope lacks a job array yields an empty page. Elements of the array that
// are not objects are skipped.
func (a *JobsAPIAdapter) FetchPage(ctx context.Context, page, limit int) ([]model.Job, error) {
	u, err := url.Parse(a.baseURL)
	if err != nil {
		return nil, fmt.Errorf("jobs api page %d: parse base url: %w", page, err)
	}
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	u.RawQuery = q.Encode()

	resp, err := getJSON(ctx, a.client, u.String(), fmt.Sprintf("jobs api page %d", page))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope jobsAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("jobs api page %d: %w", page, err)
	}

	var result jobsAPIResult
	if !isObject(envelope.Result) || json.Unmarshal(envelope.Result, &result) != nil {
		return []model.Job{}, nil
	}
	records := a.decodeRecords(result.Jobs, page)

	jobs := make([]model.Job, 0, len(records))
	for _, rec := range records {
		jobs = append(jobs, normalize.Primary(rec))
	}
	return jobs, nil
}

func (a *JobsAPIAdapter) decodeRecords(raw json.RawMessage, page int) []normalize.SourceRecord {
	if !isArray(raw) {
		return nil
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	records := make([]normalize.SourceRecord, 0, len(elems))
	for i, elem := range elems {
		var rec normalize.SourceRecord
		if !isObject(elem) || json.Unmarshal(elem, &rec) != nil {
			a.logger.Debug("skipping malformed job record", "page", page, "index", i)
			continue
		}
		records = append(records, rec)
	}
	return records
}

func isObject(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '{'
}

func isArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

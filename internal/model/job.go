package model

import (
	"context"
	"time"
)

// JobType is the employment type of a listing.
type JobType string

const (
	JobTypeFullTime   JobType = "Full-time"
	JobTypePartTime   JobType = "Part-time"
	JobTypeContract   JobType = "Contract"
	JobTypeInternship JobType = "Internship"
)

// WorkArrangement is where the work happens.
type WorkArrangement string

const (
	WorkRemote WorkArrangement = "Remote"
	WorkHybrid WorkArrangement = "Hybrid"
	WorkOnsite WorkArrangement = "Onsite"
)

// LiteracyLevel is the skill level a listing asks for.
type LiteracyLevel string

const (
	LiteracyBasic        LiteracyLevel = "Basic"
	LiteracyIntermediate LiteracyLevel = "Intermediate"
	LiteracyAdvanced     LiteracyLevel = "Advanced"
)

// Enumerated options, in display order. The filter engine partitions
// selected tags by these lists.
var (
	WorkArrangements = []WorkArrangement{WorkRemote, WorkHybrid, WorkOnsite}
	JobTypes         = []JobType{JobTypeFullTime, JobTypePartTime, JobTypeContract, JobTypeInternship}
	LiteracyLevels   = []LiteracyLevel{LiteracyBasic, LiteracyIntermediate, LiteracyAdvanced}
)

// Source names.
const (
	SourcePrimary  = "primary"
	SourceRegional = "regional"
)

// Job is the canonical listing shape every source is normalized into.
type Job struct {
	ID              string          `json:"id"`
	Title           string          `json:"title"`
	Company         string          `json:"company"`
	Location        string          `json:"location"`
	Type            JobType         `json:"type"`
	WorkArrangement WorkArrangement `json:"workArrangement"`
	LiteracyLevel   LiteracyLevel   `json:"literacyLevel"`
	Salary          string          `json:"salary,omitempty"`
	Pay             *PayRange       `json:"pay,omitempty"`
	PostedTime      string          `json:"postedTime"`
	PostedAt        *time.Time      `json:"postedAt,omitempty"` // nullable (not every source has a timestamp)
	Description     string          `json:"description"`
	Tags            []string        `json:"tags"`
	URL             string          `json:"url,omitempty"`
	Source          string          `json:"source"`
}

// Clickable reports whether the job links out to an apply page.
func (j Job) Clickable() bool {
	return j.URL != ""
}

// PayRange is the numeric yearly salary range behind Job.Salary.
type PayRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ScrapedJob is one entry of the regional scrape endpoint's payload.
type ScrapedJob struct {
	Title    string `json:"title"`
	Company  string `json:"company"`
	Location string `json:"location"`
	URL      string `json:"url"`
	Posted   string `json:"posted"`
}

// JobFetcher fetches a complete, unpaginated job list (the regional source).
type JobFetcher interface {
	FetchJobs(ctx context.Context) ([]Job, error)
}

// PageFetcher fetches one page of normalized jobs from a paginated source.
// page is 1-based.
type PageFetcher interface {
	FetchPage(ctx context.Context, page, limit int) ([]Job, error)
}

// ListingScraper scrapes a third-party listing page into flat entries.
type ListingScraper interface {
	Scrape(ctx context.Context) ([]ScrapedJob, error)
}

// JobFilter decides whether a job matches the user's criteria.
type JobFilter interface {
	Match(job Job) bool
}

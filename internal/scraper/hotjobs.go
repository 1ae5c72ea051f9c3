// Package scraper turns a third-party HTML listing page into model.ScrapedJob
// entries for the regional scrape endpoint.
package scraper

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jobtrace/jobtrace/internal/model"
)

const (
	// DefaultTargetURL is the listing page scraped for regional jobs.
	DefaultTargetURL = "https://www.hotnigerianjobs.com/"
	// DefaultMaxJobs caps how many entries one scrape returns.
	DefaultMaxJobs = 20

	scrapedCompany  = "N/A"
	scrapedLocation = "Nigeria"
)

// Selectors for the listing page.
const (
	itemSelector   = "div.mycase"
	titleSelector  = "h1 a"
	postedSelector = "span.semibio"
)

var _ model.ListingScraper = (*HotJobsScraper)(nil)

// HotJobsScraper scrapes the regional listing page with goquery.
type HotJobsScraper struct {
	targetURL string
	maxJobs   int
	userAgent string
	client    *http.Client
}

// NewHotJobsScraper creates a scraper for targetURL. maxJobs <= 0 uses
// DefaultMaxJobs.
func NewHotJobsScraper(targetURL string, maxJobs int, userAgent string, client *http.Client) *HotJobsScraper {
	if maxJobs <= 0 {
		maxJobs = DefaultMaxJobs
	}
	return &HotJobsScraper{
		targetURL: targetURL,
		maxJobs:   maxJobs,
		userAgent: userAgent,
		client:    client,
	}
}

// Scrape fetches the listing page and extracts up to maxJobs entries. Entries
// missing a title, link or posted line are skipped.
func (s *HotJobsScraper) Scrape(ctx context.Context) ([]model.ScrapedJob, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.targetURL, nil)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.targetURL, err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: %w", s.targetURL, err)
	}
	defer resp.Body.Close()

	if err := model.StatusError(resp, "scrape "+s.targetURL); err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("scrape %s: parse html: %w", s.targetURL, err)
	}

	return extract(doc, s.maxJobs), nil
}

func extract(doc *goquery.Document, maxJobs int) []model.ScrapedJob {
	jobs := make([]model.ScrapedJob, 0, maxJobs)
	doc.Find(itemSelector).EachWithBreak(func(_ int, item *goquery.Selection) bool {
		link := item.Find(titleSelector).First()
		title := strings.TrimSpace(link.Text())
		href, _ := link.Attr("href")
		href = strings.TrimSpace(href)
		posted := strings.TrimSpace(item.Find(postedSelector).First().Text())

		if title == "" || href == "" || posted == "" {
			return true
		}
		jobs = append(jobs, model.ScrapedJob{
			Title:    title,
			Company:  scrapedCompany,
			Location: scrapedLocation,
			URL:      href,
			Posted:   posted,
		})
		return len(jobs) < maxJobs
	})
	return jobs
}

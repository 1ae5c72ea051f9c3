// Package normalize maps heterogeneous source records into model.Job.
//
// Every function here is pure: the same input always yields the same Job, and
// the enumerated fields (Type, WorkArrangement, LiteracyLevel) are always set.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"github.com/jobtrace/jobtrace/internal/model"
)

// Defaults applied when a source omits a field.
const (
	DefaultPrimaryCompany  = "Unknown Company"
	DefaultPrimaryLocation = "Remote"

	DefaultRegionalTitle       = "Job Opportunity"
	DefaultRegionalCompany     = "Nigerian Company"
	DefaultRegionalLocation    = "Nigeria"
	DefaultRegionalPosted      = "Recently"
	DefaultRegionalDescription = "Exciting job opportunity in Nigeria"

	// Scraped entries carry this placeholder when the company is unknown.
	unknownCompanyMarker = "N/A"
)

var regionalTags = []string{"Nigeria", "Local"}

// Text is a JSON value that may arrive as a string or a number. Numbers keep
// their literal text; null and other kinds decode to "".
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		*t = Text(data)
	default:
		*t = ""
	}
	return nil
}

// present mirrors a truthiness check: empty and zero values count as absent.
func (t Text) present() bool {
	if t == "" {
		return false
	}
	if f, err := strconv.ParseFloat(string(t), 64); err == nil && f == 0 {
		return false
	}
	return true
}

// SourceRecord is one job as returned by the primary job API.
type SourceRecord struct {
	ID                   Text                 `json:"_id"`
	Title                Text                 `json:"title"`
	Owner                sourceOwner          `json:"owner"`
	LocationAddress      Text                 `json:"locationAddress"`
	Type                 Text                 `json:"type"`
	DescriptionBreakdown descriptionBreakdown `json:"descriptionBreakdown"`
	Description          Text                 `json:"description"`
	SkillsSuggest        TextList             `json:"skills_suggest"`
	CreatedAt            Text                 `json:"createdAt"`
	URL                  Text                 `json:"url"`
}

type sourceOwner struct {
	CompanyName     Text `json:"companyName"`
	LocationAddress Text `json:"locationAddress"`
}

func (o *sourceOwner) UnmarshalJSON(data []byte) error {
	type plain sourceOwner
	*o = sourceOwner{}
	if !isObject(data) {
		return nil
	}
	return json.Unmarshal(data, (*plain)(o))
}

type descriptionBreakdown struct {
	SalaryRangeMinYearly  Text     `json:"salaryRangeMinYearly"`
	SalaryRangeMaxYearly  Text     `json:"salaryRangeMaxYearly"`
	OneSentenceJobSummary Text     `json:"oneSentenceJobSummary"`
	Keywords              TextList `json:"keywords"`
}

func (d *descriptionBreakdown) UnmarshalJSON(data []byte) error {
	type plain descriptionBreakdown
	*d = descriptionBreakdown{}
	if !isObject(data) {
		return nil
	}
	return json.Unmarshal(data, (*plain)(d))
}

// TextList is a JSON array of Text. Anything other than an array decodes to
// nil and empty elements are dropped.
type TextList []string

func (l *TextList) UnmarshalJSON(data []byte) error {
	*l = nil
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		return nil
	}
	var items []Text
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	for _, it := range items {
		if it != "" {
			*l = append(*l, string(it))
		}
	}
	return nil
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

var strictPolicy = bluemonday.StrictPolicy()

// Primary normalizes a primary-source record.
func Primary(rec SourceRecord) model.Job {
	job := model.Job{
		ID:              string(rec.ID),
		Title:           string(rec.Title),
		Company:         firstNonEmpty(string(rec.Owner.CompanyName), DefaultPrimaryCompany),
		Location:        firstNonEmpty(string(rec.LocationAddress), string(rec.Owner.LocationAddress), DefaultPrimaryLocation),
		Type:            InferJobType(string(rec.Type)),
		WorkArrangement: InferWorkArrangement(string(rec.Type), model.WorkHybrid),
		LiteracyLevel:   model.LiteracyIntermediate,
		Description:     PlainText(firstNonEmpty(string(rec.DescriptionBreakdown.OneSentenceJobSummary), string(rec.Description))),
		Tags:            primaryTags(rec),
		URL:             string(rec.URL),
		Source:          model.SourcePrimary,
	}

	bd := rec.DescriptionBreakdown
	if bd.SalaryRangeMinYearly.present() && bd.SalaryRangeMaxYearly.present() {
		job.Salary = fmt.Sprintf("%s - %s", bd.SalaryRangeMinYearly, bd.SalaryRangeMaxYearly)
		minPay, errMin := strconv.ParseFloat(string(bd.SalaryRangeMinYearly), 64)
		maxPay, errMax := strconv.ParseFloat(string(bd.SalaryRangeMaxYearly), 64)
		if errMin == nil && errMax == nil {
			job.Pay = &model.PayRange{Min: minPay, Max: maxPay}
		}
	}

	if t, ok := parseTimestamp(string(rec.CreatedAt)); ok {
		job.PostedAt = &t
		job.PostedTime = OrdinalDate(t)
	}

	return job
}

// Regional maps scrape-endpoint entries. The regional source has its own
// field names and defaults, so it does not go through Primary.
func Regional(recs []model.ScrapedJob) []model.Job {
	jobs := make([]model.Job, 0, len(recs))
	for idx, r := range recs {
		company := r.Company
		if company == "" || company == unknownCompanyMarker {
			company = DefaultRegionalCompany
		}
		id := r.URL
		if id == "" {
			id = fmt.Sprintf("nigeria-job-%d", idx)
		}
		jobs = append(jobs, model.Job{
			ID:              id,
			Title:           firstNonEmpty(r.Title, DefaultRegionalTitle),
			Company:         company,
			Location:        firstNonEmpty(r.Location, DefaultRegionalLocation),
			Type:            model.JobTypeFullTime,
			WorkArrangement: model.WorkOnsite,
			LiteracyLevel:   model.LiteracyIntermediate,
			PostedTime:      firstNonEmpty(r.Posted, DefaultRegionalPosted),
			Description:     firstNonEmpty(r.Title, DefaultRegionalDescription),
			Tags:            append([]string(nil), regionalTags...),
			URL:             r.URL,
			Source:          model.SourceRegional,
		})
	}
	return jobs
}

// InferJobType maps free text to a JobType. First match wins, in the order
// part, contract, intern; anything else is Full-time.
func InferJobType(text string) model.JobType {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "part"):
		return model.JobTypePartTime
	case strings.Contains(t, "contract"):
		return model.JobTypeContract
	case strings.Contains(t, "intern"):
		return model.JobTypeInternship
	default:
		return model.JobTypeFullTime
	}
}

// InferWorkArrangement maps free text to a WorkArrangement, checking remote,
// onsite and hybrid in that order. fallback is returned when nothing matches.
func InferWorkArrangement(text string, fallback model.WorkArrangement) model.WorkArrangement {
	t := strings.ToLower(text)
	switch {
	case strings.Contains(t, "remote"):
		return model.WorkRemote
	case strings.Contains(t, "onsite"):
		return model.WorkOnsite
	case strings.Contains(t, "hybrid"):
		return model.WorkHybrid
	default:
		return fallback
	}
}

// OrdinalDate formats t as e.g. "2nd March 2025".
func OrdinalDate(t time.Time) string {
	day := t.Day()
	suffix := "th"
	switch j, k := day%10, day%100; {
	case j == 1 && k != 11:
		suffix = "st"
	case j == 2 && k != 12:
		suffix = "nd"
	case j == 3 && k != 13:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s %s %d", day, suffix, t.Month(), t.Year())
}

// PlainText strips markup and collapses whitespace.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	plain := html.UnescapeString(strictPolicy.Sanitize(s))
	return strings.Join(strings.Fields(plain), " ")
}

func primaryTags(rec SourceRecord) []string {
	if len(rec.DescriptionBreakdown.Keywords) > 0 {
		return []string(rec.DescriptionBreakdown.Keywords)
	}
	if len(rec.SkillsSuggest) > 0 {
		return []string(rec.SkillsSuggest)
	}
	return []string{}
}

var timestampLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

func parseTimestamp(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	// Numeric timestamps are Unix milliseconds.
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Package filter narrows and orders the accumulated job set for display.
// Everything here is pure and synchronous.
package filter

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/jobtrace/jobtrace/internal/model"
)

var _ model.JobFilter = Criteria{}

// Criteria is the user's current narrowing of the job set.
type Criteria struct {
	Keyword  string   `json:"keyword"`
	Location string   `json:"location"`
	Selected []string `json:"selected"`
	Sort     Sort     `json:"sort"`
}

// Match reports whether job passes the keyword, location and tag-dimension
// tests. Sort is ignored.
func (c Criteria) Match(job model.Job) bool {
	return newMatcher(c).match(job)
}

// Apply returns the jobs matching c, ordered by c.Sort. The input slice is
// not modified.
func Apply(jobs []model.Job, c Criteria) []model.Job {
	m := newMatcher(c)
	out := make([]model.Job, 0, len(jobs))
	for _, j := range jobs {
		if m.match(j) {
			out = append(out, j)
		}
	}
	c.Sort.apply(out)
	return out
}

// Dimensions is a selection split by tag dimension.
type Dimensions struct {
	WorkArrangements []model.WorkArrangement
	JobTypes         []model.JobType
	LiteracyLevels   []model.LiteracyLevel
}

// Partition groups selected tags by the option list they belong to. Tags
// that belong to no list are dropped.
func Partition(selected []string) Dimensions {
	var d Dimensions
	for _, tag := range selected {
		switch {
		case slices.Contains(model.WorkArrangements, model.WorkArrangement(tag)):
			d.WorkArrangements = append(d.WorkArrangements, model.WorkArrangement(tag))
		case slices.Contains(model.JobTypes, model.JobType(tag)):
			d.JobTypes = append(d.JobTypes, model.JobType(tag))
		case slices.Contains(model.LiteracyLevels, model.LiteracyLevel(tag)):
			d.LiteracyLevels = append(d.LiteracyLevels, model.LiteracyLevel(tag))
		}
	}
	return d
}

// matcher holds the folded criteria for one pass. cases.Caser is not safe
// for concurrent use, so every pass builds its own.
type matcher struct {
	fold     cases.Caser
	keyword  string
	location string
	dims     Dimensions
}

func newMatcher(c Criteria) *matcher {
	m := &matcher{fold: cases.Fold(), dims: Partition(c.Selected)}
	m.keyword = m.fold.String(c.Keyword)
	m.location = m.fold.String(c.Location)
	return m
}

func (m *matcher) match(j model.Job) bool {
	if m.keyword != "" && !m.matchKeyword(j) {
		return false
	}
	if m.location != "" && !m.contains(j.Location, m.location) {
		return false
	}
	if len(m.dims.WorkArrangements) > 0 && !slices.Contains(m.dims.WorkArrangements, j.WorkArrangement) {
		return false
	}
	if len(m.dims.JobTypes) > 0 && !slices.Contains(m.dims.JobTypes, j.Type) {
		return false
	}
	if len(m.dims.LiteracyLevels) > 0 && !slices.Contains(m.dims.LiteracyLevels, j.LiteracyLevel) {
		return false
	}
	return true
}

func (m *matcher) matchKeyword(j model.Job) bool {
	if m.contains(j.Title, m.keyword) || m.contains(j.Description, m.keyword) || m.contains(j.Company, m.keyword) {
		return true
	}
	for _, tag := range j.Tags {
		if m.contains(tag, m.keyword) {
			return true
		}
	}
	return false
}

func (m *matcher) contains(field, folded string) bool {
	return strings.Contains(m.fold.String(field), folded)
}

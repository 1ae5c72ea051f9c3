package filter

import (
	"fmt"
	"slices"

	"github.com/jobtrace/jobtrace/internal/model"
)

// Sort names an ordering of the visible set.
type Sort string

const (
	// SortNone keeps source order.
	SortNone       Sort = ""
	SortRelevance  Sort = "relevance"
	SortNewest     Sort = "newest"
	SortSalaryHigh Sort = "salary-high"
	SortSalaryLow  Sort = "salary-low"
)

// ParseSort validates s. The empty string and "relevance" both mean source
// order.
func ParseSort(s string) (Sort, error) {
	switch v := Sort(s); v {
	case SortNone, SortRelevance, SortNewest, SortSalaryHigh, SortSalaryLow:
		return v, nil
	default:
		return SortNone, fmt.Errorf("unknown sort %q", s)
	}
}

// apply orders jobs in place. All orderings are stable and put records
// lacking the key last.
func (s Sort) apply(jobs []model.Job) {
	switch s {
	case SortNewest:
		slices.SortStableFunc(jobs, func(a, b model.Job) int {
			return missingLast(a.PostedAt == nil, b.PostedAt == nil, func() int {
				return b.PostedAt.Compare(*a.PostedAt)
			})
		})
	case SortSalaryHigh:
		slices.SortStableFunc(jobs, func(a, b model.Job) int {
			return missingLast(a.Pay == nil, b.Pay == nil, func() int {
				return compareFloat(b.Pay.Max, a.Pay.Max)
			})
		})
	case SortSalaryLow:
		slices.SortStableFunc(jobs, func(a, b model.Job) int {
			return missingLast(a.Pay == nil, b.Pay == nil, func() int {
				return compareFloat(a.Pay.Min, b.Pay.Min)
			})
		})
	}
}

func missingLast(aMissing, bMissing bool, cmp func() int) int {
	switch {
	case aMissing && bMissing:
		return 0
	case aMissing:
		return 1
	case bMissing:
		return -1
	default:
		return cmp()
	}
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

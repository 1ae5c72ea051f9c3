package filter

import (
	"slices"
	"testing"
	"time"

	"github.com/jobtrace/jobtrace/internal/model"
)

func sampleJobs() []model.Job {
	return []model.Job{
		{ID: "1", Title: "Product Manager", Company: "Flutterwave", Location: "Lagos", Type: model.JobTypeFullTime, WorkArrangement: model.WorkRemote, LiteracyLevel: model.LiteracyIntermediate, Tags: []string{"Designer"}},
		{ID: "2", Title: "Backend Engineer", Company: "Paystack", Location: "Abuja", Type: model.JobTypePartTime, WorkArrangement: model.WorkRemote, LiteracyLevel: model.LiteracyIntermediate, Description: "Build payment rails."},
		{ID: "3", Title: "Accountant", Company: "Dangote", Location: "Kano", Type: model.JobTypeFullTime, WorkArrangement: model.WorkOnsite, LiteracyLevel: model.LiteracyBasic},
		{ID: "4", Title: "UX Researcher", Company: "Design Studio", Location: "Remote", Type: model.JobTypeContract, WorkArrangement: model.WorkHybrid, LiteracyLevel: model.LiteracyAdvanced},
	}
}

func ids(jobs []model.Job) []string {
	out := make([]string, len(jobs))
	for i, j := range jobs {
		out[i] = j.ID
	}
	return out
}

func TestApply(t *testing.T) {
	tests := []struct {
		name     string
		criteria Criteria
		want     []string
	}{
		{
			name:     "empty criteria passes all in source order",
			criteria: Criteria{},
			want:     []string{"1", "2", "3", "4"},
		},
		{
			name:     "keyword matches tag case-insensitively",
			criteria: Criteria{Keyword: "design"},
			want:     []string{"1", "4"},
		},
		{
			name:     "keyword matches description",
			criteria: Criteria{Keyword: "PAYMENT"},
			want:     []string{"2"},
		},
		{
			name:     "keyword whitespace is matched literally",
			criteria: Criteria{Keyword: "  accountant "},
			want:     []string{},
		},
		{
			name:     "whitespace-only keyword still narrows",
			criteria: Criteria{Keyword: " ", Location: "ka"},
			want:     []string{},
		},
		{
			name:     "location substring",
			criteria: Criteria{Location: "ab"},
			want:     []string{"2"},
		},
		{
			name:     "remote and full-time are ANDed across dimensions",
			criteria: Criteria{Selected: []string{"Remote", "Full-time"}},
			want:     []string{"1"},
		},
		{
			name:     "values within a dimension are ORed",
			criteria: Criteria{Selected: []string{"Remote", "Onsite"}},
			want:     []string{"1", "2", "3"},
		},
		{
			name:     "skill level dimension",
			criteria: Criteria{Selected: []string{"Advanced"}},
			want:     []string{"4"},
		},
		{
			name:     "unknown tags are ignored",
			criteria: Criteria{Selected: []string{"Senior", "Contract"}},
			want:     []string{"4"},
		},
		{
			name:     "keyword and location and tags together",
			criteria: Criteria{Keyword: "engineer", Location: "abuja", Selected: []string{"Part-time"}},
			want:     []string{"2"},
		},
		{
			name:     "no match",
			criteria: Criteria{Keyword: "astronaut"},
			want:     []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Apply(sampleJobs(), tt.criteria))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Apply() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestApply_KeywordResultsContainKeyword(t *testing.T) {
	c := Criteria{Keyword: "er"}
	for _, j := range Apply(sampleJobs(), c) {
		if !c.Match(j) {
			t.Errorf("job %s in result but Match is false", j.ID)
		}
	}
}

func TestApply_UnicodeFolding(t *testing.T) {
	jobs := []model.Job{{ID: "1", Title: "STRASSE Planner"}, {ID: "2", Title: "Café Manager"}}
	if got := ids(Apply(jobs, Criteria{Keyword: "café"})); !slices.Equal(got, []string{"2"}) {
		t.Errorf("got %v", got)
	}
	if got := ids(Apply(jobs, Criteria{Keyword: "CAFÉ"})); !slices.Equal(got, []string{"2"}) {
		t.Errorf("got %v", got)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	jobs := sampleJobs()
	_ = Apply(jobs, Criteria{Keyword: "design", Sort: SortSalaryHigh})
	if got := ids(jobs); !slices.Equal(got, []string{"1", "2", "3", "4"}) {
		t.Errorf("input reordered: %v", got)
	}
}

func TestPartition(t *testing.T) {
	d := Partition([]string{"Hybrid", "Internship", "Basic", "Lagos", "Remote"})
	if !slices.Equal(d.WorkArrangements, []model.WorkArrangement{model.WorkHybrid, model.WorkRemote}) {
		t.Errorf("WorkArrangements = %v", d.WorkArrangements)
	}
	if !slices.Equal(d.JobTypes, []model.JobType{model.JobTypeInternship}) {
		t.Errorf("JobTypes = %v", d.JobTypes)
	}
	if !slices.Equal(d.LiteracyLevels, []model.LiteracyLevel{model.LiteracyBasic}) {
		t.Errorf("LiteracyLevels = %v", d.LiteracyLevels)
	}
}

func TestSort(t *testing.T) {
	day := func(d int) *time.Time {
		t := time.Date(2026, 3, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	jobs := []model.Job{
		{ID: "a", PostedAt: day(1), Pay: &model.PayRange{Min: 100, Max: 200}},
		{ID: "b"},
		{ID: "c", PostedAt: day(9), Pay: &model.PayRange{Min: 50, Max: 500}},
		{ID: "d", PostedAt: day(9)},
		{ID: "e", Pay: &model.PayRange{Min: 100, Max: 300}},
	}

	tests := []struct {
		sort Sort
		want []string
	}{
		{SortNone, []string{"a", "b", "c", "d", "e"}},
		{SortRelevance, []string{"a", "b", "c", "d", "e"}},
		{SortNewest, []string{"c", "d", "a", "b", "e"}},
		{SortSalaryHigh, []string{"c", "e", "a", "b", "d"}},
		{SortSalaryLow, []string{"c", "a", "e", "b", "d"}},
	}
	for _, tt := range tests {
		t.Run(string(tt.sort), func(t *testing.T) {
			got := ids(Apply(jobs, Criteria{Sort: tt.sort}))
			if !slices.Equal(got, tt.want) {
				t.Errorf("sort %q = %v, want %v", tt.sort, got, tt.want)
			}
		})
	}
}

func TestParseSort(t *testing.T) {
	for _, s := range []string{"", "relevance", "newest", "salary-high", "salary-low"} {
		if _, err := ParseSort(s); err != nil {
			t.Errorf("ParseSort(%q): %v", s, err)
		}
	}
	if _, err := ParseSort("oldest"); err == nil {
		t.Error("expected error for unknown sort")
	}
}

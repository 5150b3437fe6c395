package collection

import (
	"strings"

	"storydesk/internal/domain"
)

// SearchField selects a text field the search term is matched against.
type SearchField func(domain.Story) string

var (
	SearchTitle    SearchField = func(s domain.Story) string { return s.Title }
	SearchSlug     SearchField = func(s domain.Story) string { return s.Slug }
	SearchCategory SearchField = func(s domain.Story) string { return s.Category }
	SearchExcerpt  SearchField = func(s domain.Story) string { return s.Excerpt }
)

// AdminSearch and PublicSearch are the field sets used by the dashboard and the
// reader site respectively.
var (
	AdminSearch  = []SearchField{SearchTitle, SearchSlug, SearchCategory}
	PublicSearch = []SearchField{SearchTitle, SearchExcerpt, SearchCategory}
)

// Filter holds the predicate parameters. Empty values match everything.
type Filter struct {
	Search   string
	Status   domain.Status
	Category string
}

func (f Filter) Empty() bool {
	return f.Search == "" && f.Status == "" && f.Category == ""
}

// Match reports whether s satisfies every non-empty predicate.
func (f Filter) Match(s domain.Story, fields []SearchField) bool {
	if f.Status != "" && s.Status != f.Status {
		return false
	}
	if f.Category != "" && s.Category != f.Category {
		return false
	}
	if f.Search == "" {
		return true
	}
	term := strings.ToLower(f.Search)
	for _, field := range fields {
		if strings.Contains(strings.ToLower(field(s)), term) {
			return true
		}
	}
	return false
}

// Apply returns the matching records in their original order. The input is
// never modified.
func Apply(records []domain.Story, f Filter, fields []SearchField) []domain.Story {
	out := make([]domain.Story, 0, len(records))
	for _, s := range records {
		if f.Match(s, fields) {
			out = append(out, s)
		}
	}
	return out
}

// Paginate returns the 1-based page of size pageSize. Pages outside the
// available range yield nil.
func Paginate(records []domain.Story, page, pageSize int) []domain.Story {
	if pageSize <= 0 || page < 1 {
		return nil
	}
	start := (page - 1) * pageSize
	if start >= len(records) {
		return nil
	}
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	return records[start:end]
}

// TotalPages is ceil(n / pageSize).
func TotalPages(n, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return (n + pageSize - 1) / pageSize
}

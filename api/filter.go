package api

import (
	"strings"
)

// FilterSet is an ordered list of lowercase substrings used to select
// pipelines by name; it is never mutated after it's been resolved
type FilterSet []string

// ResolveFilters lowercases the command line supplied filters, preserving
// order and duplicates; when none are supplied it falls back to the
// configured default. An empty string filter is legal and matches every
// pipeline name.
func ResolveFilters(values []string, defaultFilter string) FilterSet {
	if len(values) == 0 {
		return FilterSet{strings.ToLower(defaultFilter)}
	}

	filters := make(FilterSet, 0, len(values))
	for _, value := range values {
		filters = append(filters, strings.ToLower(value))
	}

	return filters
}

// Matches reports whether the pipeline name contains at least one of the
// filters, case-insensitively
func (fs FilterSet) Matches(name string) bool {
	loweredName := strings.ToLower(name)
	for _, filter := range fs {
		if strings.Contains(loweredName, filter) {
			return true
		}
	}

	return false
}

// String joins the filters for display in the report banner
func (fs FilterSet) String() string {
	return strings.Join(fs, ", ")
}

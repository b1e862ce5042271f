package readmodel

import (
	"net/url"
	"strings"
)

// SortField is a whitelisted video sort key.
type SortField string

const (
	SortCreatedAt SortField = "createdAt"
	SortUpdatedAt SortField = "updatedAt"
	SortViews     SortField = "views"
	SortDuration  SortField = "duration"
	SortTitle     SortField = "title"
)

var sortColumns = map[SortField]string{
	SortCreatedAt: "created_at",
	SortUpdatedAt: "updated_at",
	SortViews:     "views",
	SortDuration:  "duration",
	SortTitle:     "title",
}

// Sort orders a video list. The zero value is not valid; use ParseSort.
type Sort struct {
	Field SortField
	Desc  bool
}

// DefaultSort lists newest videos first.
var DefaultSort = Sort{Field: SortCreatedAt, Desc: true}

// ParseSort reads sortBy and sortType. Unknown keys fall back to createdAt and
// anything but "asc" sorts descending.
func ParseSort(values url.Values) Sort {
	sort := DefaultSort
	if field := SortField(strings.TrimSpace(values.Get("sortBy"))); field != "" {
		if _, ok := sortColumns[field]; ok {
			sort.Field = field
		}
	}
	sort.Desc = !strings.EqualFold(strings.TrimSpace(values.Get("sortType")), "asc")
	return sort
}

// Column returns the SQL column for the sort field.
func (s Sort) Column() string {
	if column, ok := sortColumns[s.Field]; ok {
		return column
	}
	return sortColumns[SortCreatedAt]
}

// Direction returns ASC or DESC.
func (s Sort) Direction() string {
	if s.Desc {
		return "DESC"
	}
	return "ASC"
}

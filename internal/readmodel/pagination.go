// Package readmodel shapes stored entities into the viewer-relative
// projections returned by list and detail endpoints.
package readmodel

import (
	"math"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100

	// MaxPage keeps the row offset of a full page within an int32.
	MaxPage = math.MaxInt32 / MaxLimit
)

// PageRequest is a coerced page/limit pair; both are always positive.
type PageRequest struct {
	Page  int
	Limit int
}

// Offset is the number of rows skipped before the page starts. It saturates
// instead of overflowing for requests built outside ParsePageRequest.
func (p PageRequest) Offset() int {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	if p.Page-1 > math.MaxInt/p.Limit {
		return math.MaxInt
	}
	return (p.Page - 1) * p.Limit
}

// ParsePageRequest reads page and limit from query values. Missing,
// non-numeric or non-positive values fall back to the defaults; page is
// capped at MaxPage and limit at MaxLimit.
func ParsePageRequest(values url.Values) PageRequest {
	req := PageRequest{
		Page:  positiveOr(values.Get("page"), DefaultPage),
		Limit: positiveOr(values.Get("limit"), DefaultLimit),
	}
	if req.Page > MaxPage {
		req.Page = MaxPage
	}
	if req.Limit > MaxLimit {
		req.Limit = MaxLimit
	}
	return req
}

func positiveOr(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

// Page is a slice of results plus the bookkeeping clients use to paginate.
type Page[T any] struct {
	Docs          []T   `json:"docs"`
	TotalDocs     int64 `json:"totalDocs"`
	Limit         int   `json:"limit"`
	Page          int   `json:"page"`
	TotalPages    int   `json:"totalPages"`
	PagingCounter int   `json:"pagingCounter"`
	HasPrevPage   bool  `json:"hasPrevPage"`
	HasNextPage   bool  `json:"hasNextPage"`
	PrevPage      *int  `json:"prevPage"`
	NextPage      *int  `json:"nextPage"`
}

// NewPage assembles a page from the docs of the requested window and the total
// number of matching rows.
func NewPage[T any](docs []T, total int64, req PageRequest) Page[T] {
	if docs == nil {
		docs = []T{}
	}

	totalPages := 0
	if total > 0 {
		totalPages = int((total + int64(req.Limit) - 1) / int64(req.Limit))
	}

	page := Page[T]{
		Docs:          docs,
		TotalDocs:     total,
		Limit:         req.Limit,
		Page:          req.Page,
		TotalPages:    totalPages,
		PagingCounter: req.Offset() + 1,
		HasPrevPage:   req.Page > 1,
		HasNextPage:   req.Page < totalPages,
	}
	if page.HasPrevPage {
		prev := req.Page - 1
		page.PrevPage = &prev
	}
	if page.HasNextPage {
		next := req.Page + 1
		page.NextPage = &next
	}
	return page
}

// Window returns the slice of items covered by req.
func Window[T any](items []T, req PageRequest) []T {
	start := req.Offset()
	if start >= len(items) || req.Limit <= 0 {
		return []T{}
	}
	end := len(items)
	if req.Limit < end-start {
		end = start + req.Limit
	}
	return items[start:end]
}

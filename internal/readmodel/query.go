package readmodel

import (
	"net/url"
	"strings"
)

// VideoQuery selects a page of videos.
type VideoQuery struct {
	PageRequest
	Sort     Sort
	Search   string
	OwnerID  string
	ViewerID string
}

// ParseVideoQuery reads the list parameters of the video feed.
func ParseVideoQuery(values url.Values, viewerID string) VideoQuery {
	return VideoQuery{
		PageRequest: ParsePageRequest(values),
		Sort:        ParseSort(values),
		Search:      strings.TrimSpace(values.Get("query")),
		OwnerID:     strings.TrimSpace(values.Get("userId")),
		ViewerID:    viewerID,
	}
}

// IncludeUnpublished reports whether the viewer is listing their own channel.
func (q VideoQuery) IncludeUnpublished() bool {
	return q.ViewerID != "" && q.OwnerID == q.ViewerID
}

// LikePattern turns the search text into an escaped ILIKE pattern.
func (q VideoQuery) LikePattern() string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q.Search)
	return "%" + escaped + "%"
}

package readmodel

import (
	"sort"
	"strings"

	"github.com/vidtube/backend/internal/models"
)

// FilterVideos applies q to an in-memory set of list rows and returns the
// requested window plus the number of matching rows.
func FilterVideos(rows []models.VideoSummary, q VideoQuery) ([]models.VideoSummary, int64) {
	search := strings.ToLower(q.Search)

	matched := make([]models.VideoSummary, 0, len(rows))
	for _, row := range rows {
		if q.OwnerID != "" && row.OwnerID != q.OwnerID {
			continue
		}
		if !row.IsPublished && !q.IncludeUnpublished() {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(row.Title), search) &&
			!strings.Contains(strings.ToLower(row.Description), search) {
			continue
		}
		matched = append(matched, row)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		if q.Sort.Desc {
			return videoLess(matched[j].Video, matched[i].Video, q.Sort.Field)
		}
		return videoLess(matched[i].Video, matched[j].Video, q.Sort.Field)
	})

	return Window(matched, q.PageRequest), int64(len(matched))
}

func videoLess(a, b models.Video, field SortField) bool {
	switch field {
	case SortUpdatedAt:
		return a.UpdatedAt.Before(b.UpdatedAt)
	case SortViews:
		return a.Views < b.Views
	case SortDuration:
		return a.Duration < b.Duration
	case SortTitle:
		return a.Title < b.Title
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

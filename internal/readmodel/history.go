package readmodel

import (
	"sort"

	"github.com/vidtube/backend/internal/models"
)

// ShapeWatchHistory orders entries most recent first and resolves each to its
// current video. Entries whose video is gone are dropped.
func ShapeWatchHistory(entries []models.WatchEntry, videos map[string]models.VideoSummary) []models.WatchHistoryItem {
	ordered := make([]models.WatchEntry, len(entries))
	copy(ordered, entries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].WatchedAt.After(ordered[j].WatchedAt)
	})

	items := make([]models.WatchHistoryItem, 0, len(ordered))
	for _, entry := range ordered {
		video, ok := videos[entry.VideoID]
		if !ok {
			continue
		}
		items = append(items, models.WatchHistoryItem{WatchedAt: entry.WatchedAt, Video: video})
	}
	return items
}

// ShouldAppendHistory reports whether watching videoID adds a history row: only
// when the most recent entry is for a different video.
func ShouldAppendHistory(entries []models.WatchEntry, videoID string) bool {
	var latest *models.WatchEntry
	for i := range entries {
		if latest == nil || !entries[i].WatchedAt.Before(latest.WatchedAt) {
			latest = &entries[i]
		}
	}
	return latest == nil || latest.VideoID != videoID
}

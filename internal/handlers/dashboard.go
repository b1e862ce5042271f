package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/readmodel"
)

// DashboardHandler reports on the caller's own channel.
type DashboardHandler struct {
	Videos VideoStore
}

// Stats handles GET /dashboard/stats.
func (h DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	stats, err := h.Videos.ChannelStats(ctx, caller.ID)
	if err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, stats, "Channel stats fetched successfully")
}

// ChannelVideos handles GET /dashboard/videos. Drafts are included.
func (h DashboardHandler) ChannelVideos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	q := readmodel.ParseVideoQuery(r.URL.Query(), caller.ID)
	q.OwnerID = caller.ID
	docs, total, err := h.Videos.List(ctx, q)
	if err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, readmodel.NewPage(docs, total, q.PageRequest), "Channel videos fetched successfully")
}

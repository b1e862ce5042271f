package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// PlaylistHandler implements playlist and Watch Later endpoints.
type PlaylistHandler struct {
	Playlists PlaylistStore
	Videos    VideoStore
	Users     UserStore
	NowFunc   func() time.Time
}

type playlistRequest struct {
	Name        string `json:"name" validate:"required,notblank,max=150"`
	Description string `json:"description" validate:"max=1000"`
}

type membershipResponse struct {
	PlaylistID string                  `json:"playlistId"`
	VideoID    string                  `json:"videoId"`
	Status     models.MembershipResult `json:"status"`
}

// Create handles POST /playlists.
func (h PlaylistHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	req, err := decodePlaylistRequest(r)
	if err != nil {
		return err
	}

	now := h.now()
	playlist := models.Playlist{
		ID:          uuid.NewString(),
		OwnerID:     caller.ID,
		Name:        req.Name,
		Description: req.Description,
		VideoIDs:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Playlists.Create(ctx, playlist); err != nil {
		return err
	}

	owner := caller.Owner()
	return respondJSON(ctx, w, http.StatusCreated, models.PlaylistSummary{Playlist: playlist, Owner: &owner}, "Playlist created successfully")
}

// ListForUser handles GET /playlists/user/{userId}. Private playlists are
// listed for their owner only.
func (h PlaylistHandler) ListForUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	userID, err := pathID(r, "userId", "user id")
	if err != nil {
		return err
	}
	if _, err := h.Users.FindByID(ctx, userID); err != nil {
		return orNotFound(err, "User not found")
	}

	page := readmodel.ParsePageRequest(r.URL.Query())
	includePrivate := auth.ViewerID(ctx) == userID
	docs, total, err := h.Playlists.ListForOwner(ctx, userID, includePrivate, page)
	if err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, readmodel.NewPage(docs, total, page), "Playlists fetched successfully")
}

// Get handles GET /playlists/{playlistId}.
func (h PlaylistHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	playlistID, err := pathID(r, "playlistId", "playlist id")
	if err != nil {
		return err
	}

	detail, err := h.Playlists.Detail(ctx, playlistID)
	if err != nil {
		return orNotFound(err, "Playlist not found")
	}
	if !detail.IsPublic {
		if err := authorizeOwner(detail.Playlist, auth.ViewerID(ctx), "view this private playlist"); err != nil {
			return err
		}
	}
	return respondJSON(ctx, w, http.StatusOK, detail, "Playlist fetched successfully")
}

// Update handles PATCH /playlists/{playlistId}.
func (h PlaylistHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId", "playlist id")
	if err != nil {
		return err
	}
	req, err := decodePlaylistRequest(r)
	if err != nil {
		return err
	}

	if _, err := h.owned(r, playlistID, caller.ID, "update this playlist"); err != nil {
		return err
	}

	updated, err := h.Playlists.Update(ctx, playlistID, req.Name, req.Description, h.now())
	if err != nil {
		return orNotFound(err, "Playlist not found")
	}
	return respondJSON(ctx, w, http.StatusOK, updated, "Playlist updated successfully")
}

// Delete handles DELETE /playlists/{playlistId}.
func (h PlaylistHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId", "playlist id")
	if err != nil {
		return err
	}

	if _, err := h.owned(r, playlistID, caller.ID, "delete this playlist"); err != nil {
		return err
	}
	if err := h.Playlists.Delete(ctx, playlistID); err != nil {
		return orNotFound(err, "Playlist not found")
	}
	return respondJSON(ctx, w, http.StatusOK, struct{}{}, "Playlist deleted successfully")
}

// AddVideo handles PATCH /playlists/add/{videoId}/{playlistId}.
func (h PlaylistHandler) AddVideo(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, playlistID, err := membershipIDs(r)
	if err != nil {
		return err
	}

	if _, err := h.owned(r, playlistID, caller.ID, "change this playlist"); err != nil {
		return err
	}
	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		return orNotFound(err, "Video not found")
	}

	result, err := h.Playlists.AddVideo(ctx, playlistID, videoID)
	if err != nil {
		return orNotFound(err, "Playlist not found")
	}
	return h.respondMembership(w, r, playlistID, videoID, result)
}

// RemoveVideo handles PATCH /playlists/remove/{videoId}/{playlistId}.
func (h PlaylistHandler) RemoveVideo(w http.ResponseWriter, r *http.Request) error {
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, playlistID, err := membershipIDs(r)
	if err != nil {
		return err
	}

	if _, err := h.owned(r, playlistID, caller.ID, "change this playlist"); err != nil {
		return err
	}

	result, err := h.Playlists.RemoveVideo(r.Context(), playlistID, videoID)
	if err != nil {
		return orNotFound(err, "Playlist not found")
	}
	return h.respondMembership(w, r, playlistID, videoID, result)
}

// ToggleVisibility handles PATCH /playlists/toggle/{playlistId}.
func (h PlaylistHandler) ToggleVisibility(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	playlistID, err := pathID(r, "playlistId", "playlist id")
	if err != nil {
		return err
	}

	playlist, err := h.owned(r, playlistID, caller.ID, "change this playlist")
	if err != nil {
		return err
	}
	if playlist.IsWatchLater && !playlist.IsPublic {
		return badRequest("The Watch Later playlist cannot be made public")
	}

	updated, err := h.Playlists.SetVisibility(ctx, playlistID, !playlist.IsPublic, h.now())
	if err != nil {
		return orNotFound(err, "Playlist not found")
	}

	message := "Playlist is now private"
	if updated.IsPublic {
		message = "Playlist is now public"
	}
	return respondJSON(ctx, w, http.StatusOK, updated, message)
}

// SaveToWatchLater handles POST /playlists/save/watch-later/{videoId}.
func (h PlaylistHandler) SaveToWatchLater(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}

	if _, err := h.Videos.FindByID(ctx, videoID); err != nil {
		return orNotFound(err, "Video not found")
	}
	playlist, err := h.Playlists.WatchLater(ctx, caller.ID, true)
	if err != nil {
		return err
	}

	result, err := h.Playlists.AddVideo(ctx, playlist.ID, videoID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	return h.respondMembership(w, r, playlist.ID, videoID, result)
}

// RemoveFromWatchLater handles DELETE /playlists/remove/watch-later/{videoId}.
func (h PlaylistHandler) RemoveFromWatchLater(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}

	playlist, err := h.Playlists.WatchLater(ctx, caller.ID, false)
	if err != nil {
		return orNotFound(err, "Watch Later playlist not found")
	}

	result, err := h.Playlists.RemoveVideo(ctx, playlist.ID, videoID)
	if err != nil {
		return orNotFound(err, "Watch Later playlist not found")
	}
	return h.respondMembership(w, r, playlist.ID, videoID, result)
}

// WatchLater handles GET /playlists/get/watch-later. The playlist is
// provisioned on first access.
func (h PlaylistHandler) WatchLater(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	playlist, err := h.Playlists.WatchLater(ctx, caller.ID, true)
	if err != nil {
		return err
	}
	detail, err := h.Playlists.Detail(ctx, playlist.ID)
	if err != nil {
		return orNotFound(err, "Watch Later playlist not found")
	}
	return respondJSON(ctx, w, http.StatusOK, detail, "Watch Later fetched successfully")
}

// owned fetches a playlist and checks that ownerID owns it.
func (h PlaylistHandler) owned(r *http.Request, playlistID, ownerID, action string) (models.Playlist, error) {
	playlist, err := h.Playlists.FindByID(r.Context(), playlistID)
	if err != nil {
		return models.Playlist{}, orNotFound(err, "Playlist not found")
	}
	if err := authorizeOwner(playlist, ownerID, action); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func (h PlaylistHandler) respondMembership(w http.ResponseWriter, r *http.Request, playlistID, videoID string, result models.MembershipResult) error {
	metrics.RecordToggle("playlist_membership", string(result))

	var message string
	switch result {
	case models.MemberAdded:
		message = "Video added to playlist"
	case models.MemberAlreadyPresent:
		message = "Video is already in playlist"
	case models.MemberRemoved:
		message = "Video removed from playlist"
	default:
		message = "Video is not in playlist"
	}
	return respondJSON(r.Context(), w, http.StatusOK, membershipResponse{PlaylistID: playlistID, VideoID: videoID, Status: result}, message)
}

func (h PlaylistHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

func decodePlaylistRequest(r *http.Request) (playlistRequest, error) {
	var req playlistRequest
	if err := decodeJSON(r, &req); err != nil {
		return req, err
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Description = strings.TrimSpace(req.Description)
	if err := validateStruct(req); err != nil {
		return req, err
	}
	return req, nil
}

func membershipIDs(r *http.Request) (videoID, playlistID string, err error) {
	if videoID, err = pathID(r, "videoId", "video id"); err != nil {
		return "", "", err
	}
	if playlistID, err = pathID(r, "playlistId", "playlist id"); err != nil {
		return "", "", err
	}
	return videoID, playlistID, nil
}

package handlers

import (
	"net/http"

	"github.com/vidtube/backend/internal/metrics"
	"github.com/vidtube/backend/internal/models"
)

// LikeHandler implements like toggles and the liked videos list.
type LikeHandler struct {
	Likes LikeStore
}

type toggleResponse struct {
	Status models.ToggleResult `json:"status"`
}

// ToggleVideo handles POST /likes/toggle/v/{videoId}.
func (h LikeHandler) ToggleVideo(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeVideo, "videoId", "Video")
}

// ToggleComment handles POST /likes/toggle/c/{commentId}.
func (h LikeHandler) ToggleComment(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeComment, "commentId", "Comment")
}

// ToggleTweet handles POST /likes/toggle/t/{tweetId}.
func (h LikeHandler) ToggleTweet(w http.ResponseWriter, r *http.Request) error {
	return h.toggle(w, r, models.LikeTweet, "tweetId", "Tweet")
}

func (h LikeHandler) toggle(w http.ResponseWriter, r *http.Request, kind models.LikeKind, param, noun string) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	targetID, err := pathID(r, param, string(kind)+" id")
	if err != nil {
		return err
	}

	result, err := h.Likes.Toggle(ctx, models.LikeTarget{Kind: kind, ID: targetID}, caller.ID)
	if err != nil {
		return orNotFound(err, noun+" not found")
	}
	metrics.RecordToggle("like_"+string(kind), string(result))

	message := noun + " liked"
	if result == models.Removed {
		message = noun + " unliked"
	}
	return respondJSON(ctx, w, http.StatusOK, toggleResponse{Status: result}, message)
}

// LikedVideos handles GET /likes/videos.
func (h LikeHandler) LikedVideos(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	videos, err := h.Likes.LikedVideos(ctx, caller.ID)
	if err != nil {
		return err
	}
	if videos == nil {
		videos = []models.VideoSummary{}
	}
	return respondJSON(ctx, w, http.StatusOK, models.LikedVideos{LikedVideos: videos, VideosCount: len(videos)}, "Liked videos fetched successfully")
}

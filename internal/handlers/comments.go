package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// CommentHandler implements the comment endpoints of a video.
type CommentHandler struct {
	Comments CommentStore
	Videos   VideoStore
	NowFunc  func() time.Time
}

type contentRequest struct {
	Content string `json:"content" validate:"required,notblank,max=2000"`
}

// List handles GET /comments/{videoId}.
func (h CommentHandler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}

	viewerID := auth.ViewerID(ctx)
	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	if !visibleTo(video, viewerID) {
		return notFound("Video not found")
	}

	page := readmodel.ParsePageRequest(r.URL.Query())
	docs, total, err := h.Comments.ListForVideo(ctx, videoID, viewerID, page)
	if err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, readmodel.NewPage(docs, total, page), "Comments fetched successfully")
}

// Add handles POST /comments/{videoId}.
func (h CommentHandler) Add(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validateStruct(req); err != nil {
		return err
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	if !visibleTo(video, caller.ID) {
		return notFound("Video not found")
	}

	now := h.now()
	comment := models.Comment{
		ID:        uuid.NewString(),
		VideoID:   videoID,
		OwnerID:   caller.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Comments.Create(ctx, comment); err != nil {
		return orNotFound(err, "Video not found")
	}

	owner := caller.Owner()
	view := models.CommentView{Comment: comment, Owner: &owner}
	return respondJSON(ctx, w, http.StatusCreated, view, "Comment added successfully")
}

// Update handles PATCH /comments/c/{commentId}.
func (h CommentHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "commentId", "comment id")
	if err != nil {
		return err
	}
	var req contentRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	req.Content = strings.TrimSpace(req.Content)
	if err := validateStruct(req); err != nil {
		return err
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		return orNotFound(err, "Comment not found")
	}
	if err := authorizeOwner(comment, caller.ID, "edit this comment"); err != nil {
		return err
	}

	updated, err := h.Comments.UpdateContent(ctx, commentID, req.Content, h.now())
	if err != nil {
		return orNotFound(err, "Comment not found")
	}
	return respondJSON(ctx, w, http.StatusOK, updated, "Comment updated successfully")
}

// Delete handles DELETE /comments/c/{commentId}.
func (h CommentHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	commentID, err := pathID(r, "commentId", "comment id")
	if err != nil {
		return err
	}

	comment, err := h.Comments.FindByID(ctx, commentID)
	if err != nil {
		return orNotFound(err, "Comment not found")
	}
	if err := authorizeOwner(comment, caller.ID, "delete this comment"); err != nil {
		return err
	}

	if err := h.Comments.Delete(ctx, commentID); err != nil {
		return orNotFound(err, "Comment not found")
	}
	return respondJSON(ctx, w, http.StatusOK, struct{}{}, "Comment deleted successfully")
}

func (h CommentHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// VideoHandler implements video publishing and browsing endpoints.
type VideoHandler struct {
	Videos  VideoStore
	History WatchHistoryStore
	Media   MediaUploader
	Janitor MediaJanitor
	NowFunc func() time.Time
}

type videoForm struct {
	Title       string `form:"title" validate:"required,notblank,max=200"`
	Description string `form:"description" validate:"required,notblank,max=5000"`
}

type publishState struct {
	VideoID     string `json:"videoId"`
	IsPublished bool   `json:"isPublished"`
}

// List handles GET /videos.
func (h VideoHandler) List(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if _, err := queryID(r, "userId", "user id"); err != nil {
		return err
	}

	q := readmodel.ParseVideoQuery(r.URL.Query(), auth.ViewerID(ctx))
	docs, total, err := h.Videos.List(ctx, q)
	if err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, readmodel.NewPage(docs, total, q.PageRequest), "Videos fetched successfully")
}

// Publish handles POST /videos.
func (h VideoHandler) Publish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := parseMultipart(r); err != nil {
		return err
	}

	form := videoForm{Title: formValue(r, "title"), Description: formValue(r, "description")}
	if err := validateStruct(form); err != nil {
		return err
	}
	videoFile, err := formFile(r, "videoFile", true)
	if err != nil {
		return err
	}
	thumbFile, err := formFile(r, "thumbnail", true)
	if err != nil {
		return err
	}

	video, err := upload(ctx, h.Media, media.KindVideo, videoFile)
	if err != nil {
		return err
	}
	thumbnail, err := upload(ctx, h.Media, media.KindThumbnail, thumbFile)
	if err != nil {
		discardMedia(ctx, h.Janitor, video.URL)
		return err
	}

	now := h.now()
	created := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     caller.ID,
		Title:       form.Title,
		Description: form.Description,
		VideoFile:   video.URL,
		Thumbnail:   thumbnail.URL,
		Duration:    video.Duration,
		IsPublished: true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.Videos.Create(ctx, created); err != nil {
		discardMedia(ctx, h.Janitor, video.URL, thumbnail.URL)
		return err
	}

	logging.FromContext(ctx).Info("video published", "video_id", created.ID, "duration", created.Duration)
	return respondJSON(ctx, w, http.StatusCreated, created, "Video published successfully")
}

// Get handles GET /videos/{videoId}.
func (h VideoHandler) Get(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}

	viewerID := auth.ViewerID(ctx)
	detail, err := h.Videos.Detail(ctx, videoID, viewerID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	if !visibleTo(detail.Video, viewerID) {
		return notFound("Video not found")
	}
	return respondJSON(ctx, w, http.StatusOK, detail, "Video fetched successfully")
}

// Update handles PATCH /videos/{videoId}.
func (h VideoHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}
	if err := parseMultipart(r); err != nil {
		return err
	}
	form := videoForm{Title: formValue(r, "title"), Description: formValue(r, "description")}
	if err := validateStruct(form); err != nil {
		return err
	}
	thumbFile, err := formFile(r, "thumbnail", false)
	if err != nil {
		return err
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	if err := authorizeOwner(video, caller.ID, "update this video"); err != nil {
		return err
	}

	previous := ""
	if thumbFile != nil {
		thumbnail, err := upload(ctx, h.Media, media.KindThumbnail, thumbFile)
		if err != nil {
			return err
		}
		previous, video.Thumbnail = video.Thumbnail, thumbnail.URL
	}
	video.Title = form.Title
	video.Description = form.Description
	video.UpdatedAt = h.now()

	if err := h.Videos.Update(ctx, video); err != nil {
		if previous != "" {
			discardMedia(ctx, h.Janitor, video.Thumbnail)
		}
		return orNotFound(err, "Video not found")
	}
	if previous != "" {
		discardMedia(ctx, h.Janitor, previous)
	}
	return respondJSON(ctx, w, http.StatusOK, video, "Video updated successfully")
}

// Delete handles DELETE /videos/{videoId}. Likes and comments go with the
// video; its media is removed in the background.
func (h VideoHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	if err := authorizeOwner(video, caller.ID, "delete this video"); err != nil {
		return err
	}

	if err := h.Videos.Delete(ctx, videoID); err != nil {
		return orNotFound(err, "Video not found")
	}
	discardMedia(ctx, h.Janitor, video.VideoFile, video.Thumbnail)

	logging.FromContext(ctx).Info("video deleted", "video_id", videoID)
	return respondJSON(ctx, w, http.StatusOK, struct{}{}, "Video deleted successfully")
}

// View handles PATCH /videos/view/{videoId}. Every call counts a view;
// signed-in viewers also get a watch history entry.
func (h VideoHandler) View(w http.ResponseWriter, r *http.Request) error {
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

	if err := h.Videos.IncrementViews(ctx, videoID); err != nil {
		return orNotFound(err, "Video not found")
	}
	if viewerID != "" && h.History != nil {
		if _, err := h.History.RecordView(ctx, viewerID, videoID, h.now()); err != nil {
			return err
		}
	}

	detail, err := h.Videos.Detail(ctx, videoID, viewerID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	return respondJSON(ctx, w, http.StatusOK, detail, "Video view recorded")
}

// Stats handles GET /videos/stats/{videoId}.
func (h VideoHandler) Stats(w http.ResponseWriter, r *http.Request) error {
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

	stats, err := h.Videos.Stats(ctx, videoID, viewerID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	return respondJSON(ctx, w, http.StatusOK, stats, "Video stats fetched successfully")
}

// TogglePublish handles PATCH /videos/toggle/publish/{videoId}.
func (h VideoHandler) TogglePublish(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}

	video, err := h.Videos.FindByID(ctx, videoID)
	if err != nil {
		return orNotFound(err, "Video not found")
	}
	if err := authorizeOwner(video, caller.ID, "change this video"); err != nil {
		return err
	}

	video.IsPublished = !video.IsPublished
	video.UpdatedAt = h.now()
	if err := h.Videos.Update(ctx, video); err != nil {
		return orNotFound(err, "Video not found")
	}

	message := "Video unpublished"
	if video.IsPublished {
		message = "Video published"
	}
	return respondJSON(ctx, w, http.StatusOK, publishState{VideoID: video.ID, IsPublished: video.IsPublished}, message)
}

func (h VideoHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

// visibleTo reports whether viewerID may see video. Drafts are visible to
// their owner only.
func visibleTo(video models.Video, viewerID string) bool {
	return video.IsPublished || (viewerID != "" && video.OwnerID == viewerID)
}

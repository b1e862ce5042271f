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

// TweetHandler implements channel tweet endpoints.
type TweetHandler struct {
	Tweets  TweetStore
	Users   UserStore
	NowFunc func() time.Time
}

// ListForUser handles GET /tweets/user/{userId}.
func (h TweetHandler) ListForUser(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	userID, err := pathID(r, "userId", "user id")
	if err != nil {
		return err
	}
	if _, err := h.Users.FindByID(ctx, userID); err != nil {
		return orNotFound(err, "User not found")
	}

	page := readmodel.ParsePageRequest(r.URL.Query())
	docs, total, err := h.Tweets.ListForOwner(ctx, userID, auth.ViewerID(ctx), page)
	if err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, readmodel.NewPage(docs, total, page), "Tweets fetched successfully")
}

// Create handles POST /tweets.
func (h TweetHandler) Create(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
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

	now := h.now()
	tweet := models.Tweet{
		ID:        uuid.NewString(),
		OwnerID:   caller.ID,
		Content:   req.Content,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.Tweets.Create(ctx, tweet); err != nil {
		return err
	}

	owner := caller.Owner()
	return respondJSON(ctx, w, http.StatusCreated, models.TweetView{Tweet: tweet, Owner: &owner}, "Tweet created successfully")
}

// Update handles PATCH /tweets/{tweetId}.
func (h TweetHandler) Update(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	tweetID, err := pathID(r, "tweetId", "tweet id")
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

	tweet, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		return orNotFound(err, "Tweet not found")
	}
	if err := authorizeOwner(tweet, caller.ID, "edit this tweet"); err != nil {
		return err
	}

	updated, err := h.Tweets.UpdateContent(ctx, tweetID, req.Content, h.now())
	if err != nil {
		return orNotFound(err, "Tweet not found")
	}
	return respondJSON(ctx, w, http.StatusOK, updated, "Tweet updated successfully")
}

// Delete handles DELETE /tweets/{tweetId}.
func (h TweetHandler) Delete(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	tweetID, err := pathID(r, "tweetId", "tweet id")
	if err != nil {
		return err
	}

	tweet, err := h.Tweets.FindByID(ctx, tweetID)
	if err != nil {
		return orNotFound(err, "Tweet not found")
	}
	if err := authorizeOwner(tweet, caller.ID, "delete this tweet"); err != nil {
		return err
	}

	if err := h.Tweets.Delete(ctx, tweetID); err != nil {
		return orNotFound(err, "Tweet not found")
	}
	return respondJSON(ctx, w, http.StatusOK, struct{}{}, "Tweet deleted successfully")
}

func (h TweetHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

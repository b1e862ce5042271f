package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

// UserHandler implements account, session and channel endpoints.
type UserHandler struct {
	Users    UserStore
	History  WatchHistoryStore
	Sessions SessionManager
	Media    MediaUploader
	Janitor  MediaJanitor
	Cookies  cookieJar
	NowFunc  func() time.Time
}

type registerRequest struct {
	FullName string `form:"fullName" validate:"required,notblank"`
	Email    string `form:"email" validate:"required,email"`
	Username string `form:"username" validate:"required,notblank,alphanumunicode"`
	Password string `form:"password" validate:"required,min=8"`
}

type loginRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password" validate:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=8,nefield=OldPassword"`
}

type updateAccountRequest struct {
	FullName string `json:"fullName" validate:"required,notblank"`
	Username string `json:"username" validate:"required,notblank,alphanumunicode"`
	Email    string `json:"email" validate:"required,email"`
}

type sessionResponse struct {
	User         models.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

// Register handles POST /users/register.
func (h UserHandler) Register(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if err := parseMultipart(r); err != nil {
		return err
	}

	req := registerRequest{
		FullName: formValue(r, "fullName"),
		Email:    strings.ToLower(formValue(r, "email")),
		Username: strings.ToLower(formValue(r, "username")),
		Password: r.FormValue("password"),
	}
	if err := validateStruct(req); err != nil {
		return err
	}
	avatarFile, err := formFile(r, "avatar", true)
	if err != nil {
		return err
	}
	coverFile, err := formFile(r, "coverImage", false)
	if err != nil {
		return err
	}

	if _, err := h.Users.FindByLogin(ctx, req.Username, req.Email); err == nil {
		return conflict("User with email or username already exists")
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}

	avatar, err := upload(ctx, h.Media, media.KindAvatar, avatarFile)
	if err != nil {
		return err
	}
	var cover media.Asset
	if coverFile != nil {
		if cover, err = upload(ctx, h.Media, media.KindCover, coverFile); err != nil {
			discardMedia(ctx, h.Janitor, avatar.URL)
			return err
		}
	}

	now := h.now()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        req.Email,
		FullName:     req.FullName,
		Avatar:       avatar.URL,
		CoverImage:   cover.URL,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := h.Users.Create(ctx, user); err != nil {
		discardMedia(ctx, h.Janitor, avatar.URL, cover.URL)
		if errors.Is(err, repositories.ErrConflict) {
			return conflict("User with email or username already exists")
		}
		return err
	}

	logging.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return respondJSON(ctx, w, http.StatusCreated, user.Public(), "User registered successfully")
}

// Login handles POST /users/login.
func (h UserHandler) Login(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Username == "" && req.Email == "" {
		return badRequest("username or email is required")
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	user, err := h.Users.FindByLogin(ctx, req.Username, req.Email)
	if err != nil {
		return orNotFound(err, "User does not exist")
	}
	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		return unauthorized("Invalid user credentials")
	}

	tokens, err := h.Sessions.Issue(ctx, user)
	if err != nil {
		return err
	}

	h.Cookies.set(w, tokens)
	return respondJSON(ctx, w, http.StatusOK, sessionResponse{
		User:         user.Public(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "User logged in successfully")
}

// Logout handles POST /users/logout.
func (h UserHandler) Logout(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := h.Sessions.Revoke(ctx, caller.ID); err != nil {
		return err
	}

	h.Cookies.clear(w)
	return respondJSON(ctx, w, http.StatusOK, struct{}{}, "User logged out")
}

// RefreshToken handles POST /users/refresh-token. The token comes from the
// refresh cookie, else from the body.
func (h UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()

	token := ""
	if cookie, err := r.Cookie(refreshTokenCookie); err == nil {
		token = strings.TrimSpace(cookie.Value)
	}
	if token == "" {
		var req refreshRequest
		if err := decodeJSON(r, &req); err != nil {
			return err
		}
		token = strings.TrimSpace(req.RefreshToken)
	}
	if token == "" {
		return unauthorized("Unauthorized request")
	}

	user, tokens, err := h.Sessions.Refresh(ctx, token)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return unauthorized("Invalid refresh token")
		}
		return err
	}

	h.Cookies.set(w, tokens)
	return respondJSON(ctx, w, http.StatusOK, sessionResponse{
		User:         user.Public(),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, "Access token refreshed")
}

// ChangePassword handles POST /users/change-password.
func (h UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	var req changePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	// The context copy carries no password hash.
	user, err := h.Users.FindByID(ctx, caller.ID)
	if err != nil {
		return orNotFound(err, "User not found")
	}
	if err := auth.CheckPassword(user.PasswordHash, req.OldPassword); err != nil {
		return badRequest("Invalid old password")
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := h.Users.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, struct{}{}, "Password changed successfully")
}

// CurrentUser handles GET /users/current-user.
func (h UserHandler) CurrentUser(w http.ResponseWriter, r *http.Request) error {
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	return respondJSON(r.Context(), w, http.StatusOK, caller, "User fetched successfully")
}

// UpdateAccount handles PATCH /users/update-account.
func (h UserHandler) UpdateAccount(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	var req updateAccountRequest
	if err := decodeJSON(r, &req); err != nil {
		return err
	}
	req.FullName = strings.TrimSpace(req.FullName)
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := validateStruct(req); err != nil {
		return err
	}

	user, err := h.Users.UpdateAccount(ctx, caller.ID, req.FullName, req.Username, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return conflict("Username or email already taken")
		}
		return orNotFound(err, "User not found")
	}
	return respondJSON(ctx, w, http.StatusOK, user.Public(), "Account details updated successfully")
}

// UpdateAvatar handles PATCH /users/update-avatar.
func (h UserHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) error {
	return h.replaceImage(w, r, "avatar", media.KindAvatar)
}

// UpdateCoverImage handles PATCH /users/update-cover-img.
func (h UserHandler) UpdateCoverImage(w http.ResponseWriter, r *http.Request) error {
	return h.replaceImage(w, r, "coverImage", media.KindCover)
}

func (h UserHandler) replaceImage(w http.ResponseWriter, r *http.Request, field string, kind media.Kind) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	if err := parseMultipart(r); err != nil {
		return err
	}
	fh, err := formFile(r, field, true)
	if err != nil {
		return err
	}

	asset, err := upload(ctx, h.Media, kind, fh)
	if err != nil {
		return err
	}

	var (
		user     models.User
		previous string
		message  string
	)
	if kind == media.KindAvatar {
		previous, message = caller.Avatar, "Avatar updated successfully"
		user, err = h.Users.UpdateAvatar(ctx, caller.ID, asset.URL)
	} else {
		previous, message = caller.CoverImage, "Cover image updated successfully"
		user, err = h.Users.UpdateCoverImage(ctx, caller.ID, asset.URL)
	}
	if err != nil {
		discardMedia(ctx, h.Janitor, asset.URL)
		return orNotFound(err, "User not found")
	}

	discardMedia(ctx, h.Janitor, previous)
	return respondJSON(ctx, w, http.StatusOK, user.Public(), message)
}

// Channel handles GET /users/channel/{username}.
func (h UserHandler) Channel(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	username := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "username")))
	if username == "" {
		return badRequest("username is missing")
	}

	profile, err := h.Users.ChannelProfile(ctx, username, auth.ViewerID(ctx))
	if err != nil {
		return orNotFound(err, "Channel does not exist")
	}
	return respondJSON(ctx, w, http.StatusOK, profile, "User channel fetched successfully")
}

// WatchHistory handles GET /users/watch-history.
func (h UserHandler) WatchHistory(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	items, err := h.History.History(ctx, caller.ID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.WatchHistoryItem{}
	}
	return respondJSON(ctx, w, http.StatusOK, items, "Watch history fetched successfully")
}

// ClearWatchHistory handles PATCH /users/watch-history.
func (h UserHandler) ClearWatchHistory(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := h.History.ClearHistory(ctx, caller.ID); err != nil {
		return err
	}
	return respondJSON(ctx, w, http.StatusOK, []models.WatchHistoryItem{}, "Watch history cleared")
}

// RemoveFromWatchHistory handles PATCH /users/watch-history/{videoId}.
func (h UserHandler) RemoveFromWatchHistory(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	caller, err := currentUser(r)
	if err != nil {
		return err
	}
	videoID, err := pathID(r, "videoId", "video id")
	if err != nil {
		return err
	}

	if err := h.History.RemoveFromHistory(ctx, caller.ID, videoID); err != nil {
		return orNotFound(err, "Video is not in watch history")
	}
	items, err := h.History.History(ctx, caller.ID)
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.WatchHistoryItem{}
	}
	return respondJSON(ctx, w, http.StatusOK, items, "Video removed from watch history")
}

func (h UserHandler) now() time.Time {
	if h.NowFunc != nil {
		return h.NowFunc().UTC()
	}
	return time.Now().UTC()
}

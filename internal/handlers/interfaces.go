package handlers

import (
	"context"
	"mime/multipart"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// UserStore captures the account operations required by the user handlers.
type UserStore interface {
	Create(ctx context.Context, user models.User) error
	FindByID(ctx context.Context, id string) (models.User, error)
	FindByLogin(ctx context.Context, username, email string) (models.User, error)
	UpdateAccount(ctx context.Context, id, fullName, username, email string) (models.User, error)
	UpdateAvatar(ctx context.Context, id, url string) (models.User, error)
	UpdateCoverImage(ctx context.Context, id, url string) (models.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ChannelProfile(ctx context.Context, username, viewerID string) (models.ChannelProfile, error)
}

// WatchHistoryStore persists per-user watch history.
type WatchHistoryStore interface {
	RecordView(ctx context.Context, userID, videoID string, at time.Time) (bool, error)
	History(ctx context.Context, userID string) ([]models.WatchHistoryItem, error)
	RemoveFromHistory(ctx context.Context, userID, videoID string) error
	ClearHistory(ctx context.Context, userID string) error
}

// VideoStore captures video persistence and video read models.
type VideoStore interface {
	Create(ctx context.Context, video models.Video) error
	FindByID(ctx context.Context, id string) (models.Video, error)
	Update(ctx context.Context, video models.Video) error
	Delete(ctx context.Context, id string) error
	IncrementViews(ctx context.Context, id string) error
	List(ctx context.Context, q readmodel.VideoQuery) ([]models.VideoSummary, int64, error)
	Detail(ctx context.Context, id, viewerID string) (models.VideoDetail, error)
	Stats(ctx context.Context, id, viewerID string) (models.VideoStats, error)
	ChannelStats(ctx context.Context, ownerID string) (models.ChannelStats, error)
}

// CommentStore captures comment persistence.
type CommentStore interface {
	Create(ctx context.Context, comment models.Comment) error
	FindByID(ctx context.Context, id string) (models.Comment, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (models.Comment, error)
	Delete(ctx context.Context, id string) error
	ListForVideo(ctx context.Context, videoID, viewerID string, page readmodel.PageRequest) ([]models.CommentView, int64, error)
}

// TweetStore captures tweet persistence.
type TweetStore interface {
	Create(ctx context.Context, tweet models.Tweet) error
	FindByID(ctx context.Context, id string) (models.Tweet, error)
	UpdateContent(ctx context.Context, id, content string, at time.Time) (models.Tweet, error)
	Delete(ctx context.Context, id string) error
	ListForOwner(ctx context.Context, ownerID, viewerID string, page readmodel.PageRequest) ([]models.TweetView, int64, error)
}

// LikeStore flips likes and lists liked videos.
type LikeStore interface {
	Toggle(ctx context.Context, target models.LikeTarget, likerID string) (models.ToggleResult, error)
	LikedVideos(ctx context.Context, userID string) ([]models.VideoSummary, error)
}

// SubscriptionStore flips subscriptions and lists both sides of them.
type SubscriptionStore interface {
	Toggle(ctx context.Context, subscriberID, channelID string) (models.ToggleResult, error)
	Subscribers(ctx context.Context, channelID string) ([]models.SubscriberView, error)
	SubscribedChannels(ctx context.Context, subscriberID string) ([]models.SubscribedChannel, error)
}

// PlaylistStore captures playlist persistence and membership.
type PlaylistStore interface {
	Create(ctx context.Context, playlist models.Playlist) error
	FindByID(ctx context.Context, id string) (models.Playlist, error)
	Update(ctx context.Context, id, name, description string, at time.Time) (models.Playlist, error)
	SetVisibility(ctx context.Context, id string, public bool, at time.Time) (models.Playlist, error)
	Delete(ctx context.Context, id string) error
	AddVideo(ctx context.Context, playlistID, videoID string) (models.MembershipResult, error)
	RemoveVideo(ctx context.Context, playlistID, videoID string) (models.MembershipResult, error)
	Detail(ctx context.Context, id string) (models.PlaylistDetail, error)
	ListForOwner(ctx context.Context, ownerID string, includePrivate bool, page readmodel.PageRequest) ([]models.PlaylistSummary, int64, error)
	WatchLater(ctx context.Context, ownerID string, create bool) (models.Playlist, error)
}

// SessionManager issues, rotates and verifies authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, user models.User) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.User, models.SessionTokens, error)
	Revoke(ctx context.Context, userID string) error
	ParseAccessToken(token string) (*auth.AccessClaims, error)
}

// MediaUploader pushes multipart files to object storage.
type MediaUploader interface {
	Upload(ctx context.Context, kind media.Kind, fh *multipart.FileHeader) (media.Asset, error)
}

// MediaJanitor deletes media in the background.
type MediaJanitor interface {
	Enqueue(locations ...string) error
}

// HealthChecker reports whether the backing store is reachable.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

package repositories

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/readmodel"
)

// MemoryStore keeps every collection in process memory and shapes reads with
// the readmodel package directly. It backs local development without a
// database and the handler tests.
type MemoryStore struct {
	Users         *MemoryUserRepository
	Videos        *MemoryVideoRepository
	Comments      *MemoryCommentRepository
	Likes         *MemoryLikeRepository
	Subscriptions *MemorySubscriptionRepository
	Playlists     *MemoryPlaylistRepository
	Tweets        *MemoryTweetRepository
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	d := &memoryData{
		users:     make(map[string]models.User),
		videos:    make(map[string]models.Video),
		comments:  make(map[string]models.Comment),
		tweets:    make(map[string]models.Tweet),
		playlists: make(map[string]models.Playlist),
	}
	return &MemoryStore{
		Users:         &MemoryUserRepository{d: d},
		Videos:        &MemoryVideoRepository{d: d},
		Comments:      &MemoryCommentRepository{d: d},
		Likes:         &MemoryLikeRepository{d: d},
		Subscriptions: &MemorySubscriptionRepository{d: d},
		Playlists:     &MemoryPlaylistRepository{d: d},
		Tweets:        &MemoryTweetRepository{d: d},
	}
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error { return nil }

type memoryData struct {
	mu        sync.RWMutex
	users     map[string]models.User
	videos    map[string]models.Video
	comments  map[string]models.Comment
	tweets    map[string]models.Tweet
	playlists map[string]models.Playlist
	likes     []models.Like
	subs      []models.Subscription
	history   []models.WatchEntry
}

// owners returns the users matching id, zero or one, like an owner join.
func (d *memoryData) owners(id string) []models.User {
	if u, ok := d.users[id]; ok {
		return []models.User{u}
	}
	return nil
}

func (d *memoryData) summary(v models.Video) models.VideoSummary {
	return readmodel.ShapeVideoSummary(v, d.owners(v.OwnerID), d.likes)
}

func (d *memoryData) summariesByID(ids []string) map[string]models.VideoSummary {
	out := make(map[string]models.VideoSummary, len(ids))
	for _, id := range ids {
		if v, ok := d.videos[id]; ok {
			out[id] = d.summary(v)
		}
	}
	return out
}

func (d *memoryData) dropLikes(match func(models.Like) bool) {
	d.likes = slices.DeleteFunc(d.likes, match)
}

// MemoryUserRepository is the in-memory user, session and history store.
type MemoryUserRepository struct{ d *memoryData }

func (r *MemoryUserRepository) Create(_ context.Context, user models.User) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, existing := range r.d.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return ErrConflict
		}
	}
	r.d.users[user.ID] = user
	return nil
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	user, ok := r.d.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return user, nil
}

func (r *MemoryUserRepository) FindByLogin(_ context.Context, username, email string) (models.User, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, user := range r.d.users {
		if (username != "" && user.Username == username) || (email != "" && user.Email == email) {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

func (r *MemoryUserRepository) UpdateAccount(_ context.Context, id, fullName, username, email string) (models.User, error) {
	return r.update(id, func(u *models.User) error {
		for otherID, other := range r.d.users {
			if otherID != id && (other.Username == username || other.Email == email) {
				return ErrConflict
			}
		}
		u.FullName, u.Username, u.Email = fullName, username, email
		return nil
	})
}

func (r *MemoryUserRepository) UpdateAvatar(_ context.Context, id, url string) (models.User, error) {
	return r.update(id, func(u *models.User) error { u.Avatar = url; return nil })
}

func (r *MemoryUserRepository) UpdateCoverImage(_ context.Context, id, url string) (models.User, error) {
	return r.update(id, func(u *models.User) error { u.CoverImage = url; return nil })
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string) error {
	_, err := r.update(id, func(u *models.User) error { u.PasswordHash = passwordHash; return nil })
	return err
}

func (r *MemoryUserRepository) update(id string, mutate func(*models.User) error) (models.User, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	user, ok := r.d.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	if err := mutate(&user); err != nil {
		return models.User{}, err
	}
	user.UpdatedAt = time.Now().UTC()
	r.d.users[id] = user
	return user, nil
}

func (r *MemoryUserRepository) SaveRefreshToken(_ context.Context, userID, token string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	user, ok := r.d.users[userID]
	if !ok {
		return ErrNotFound
	}
	user.RefreshToken = token
	r.d.users[userID] = user
	return nil
}

func (r *MemoryUserRepository) RefreshToken(_ context.Context, userID string) (string, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	user, ok := r.d.users[userID]
	if !ok {
		return "", ErrNotFound
	}
	return user.RefreshToken, nil
}

func (r *MemoryUserRepository) ChannelProfile(_ context.Context, username, viewerID string) (models.ChannelProfile, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	for _, user := range r.d.users {
		if user.Username != username {
			continue
		}
		var videos int64
		for _, v := range r.d.videos {
			if v.OwnerID == user.ID && v.IsPublished {
				videos++
			}
		}
		return readmodel.ShapeChannelProfile(user, r.d.subs, videos, viewerID), nil
	}
	return models.ChannelProfile{}, ErrNotFound
}

func (r *MemoryUserRepository) RecordView(_ context.Context, userID, videoID string, at time.Time) (bool, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.users[userID]; !ok {
		return false, ErrNotFound
	}

	var mine []models.WatchEntry
	for _, entry := range r.d.history {
		if entry.UserID == userID {
			mine = append(mine, entry)
		}
	}
	if !readmodel.ShouldAppendHistory(mine, videoID) {
		return false, nil
	}

	r.d.history = append(r.d.history, models.WatchEntry{ID: uuid.NewString(), UserID: userID, VideoID: videoID, WatchedAt: at.UTC()})
	return true, nil
}

func (r *MemoryUserRepository) History(_ context.Context, userID string) ([]models.WatchHistoryItem, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var (
		mine []models.WatchEntry
		ids  []string
	)
	for _, entry := range r.d.history {
		if entry.UserID == userID {
			mine = append(mine, entry)
			ids = append(ids, entry.VideoID)
		}
	}
	return readmodel.ShapeWatchHistory(mine, r.d.summariesByID(ids)), nil
}

func (r *MemoryUserRepository) RemoveFromHistory(_ context.Context, userID, videoID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	before := len(r.d.history)
	r.d.history = slices.DeleteFunc(r.d.history, func(e models.WatchEntry) bool {
		return e.UserID == userID && e.VideoID == videoID
	})
	if len(r.d.history) == before {
		return ErrNotFound
	}
	return nil
}

func (r *MemoryUserRepository) ClearHistory(_ context.Context, userID string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	r.d.history = slices.DeleteFunc(r.d.history, func(e models.WatchEntry) bool { return e.UserID == userID })
	return nil
}

// MemoryVideoRepository is the in-memory video store.
type MemoryVideoRepository struct{ d *memoryData }

func (r *MemoryVideoRepository) Create(_ context.Context, video models.Video) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.users[video.OwnerID]; !ok {
		return ErrNotFound
	}
	if _, ok := r.d.videos[video.ID]; ok {
		return ErrConflict
	}
	r.d.videos[video.ID] = video
	return nil
}

func (r *MemoryVideoRepository) FindByID(_ context.Context, id string) (models.Video, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	video, ok := r.d.videos[id]
	if !ok {
		return models.Video{}, ErrNotFound
	}
	return video, nil
}

func (r *MemoryVideoRepository) Update(_ context.Context, video models.Video) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	stored, ok := r.d.videos[video.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Title, stored.Description, stored.Thumbnail = video.Title, video.Description, video.Thumbnail
	stored.IsPublished, stored.UpdatedAt = video.IsPublished, video.UpdatedAt
	r.d.videos[video.ID] = stored
	return nil
}

func (r *MemoryVideoRepository) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.videos[id]; !ok {
		return ErrNotFound
	}

	for commentID, c := range r.d.comments {
		if c.VideoID != id {
			continue
		}
		r.d.dropLikes(func(l models.Like) bool {
			return l.Target == models.LikeTarget{Kind: models.LikeComment, ID: commentID}
		})
		delete(r.d.comments, commentID)
	}
	r.d.dropLikes(func(l models.Like) bool {
		return l.Target == models.LikeTarget{Kind: models.LikeVideo, ID: id}
	})
	for playlistID, p := range r.d.playlists {
		p.VideoIDs = slices.DeleteFunc(slices.Clone(p.VideoIDs), func(v string) bool { return v == id })
		r.d.playlists[playlistID] = p
	}
	delete(r.d.videos, id)
	return nil
}

func (r *MemoryVideoRepository) IncrementViews(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	video, ok := r.d.videos[id]
	if !ok {
		return ErrNotFound
	}
	video.Views++
	r.d.videos[id] = video
	return nil
}

func (r *MemoryVideoRepository) List(_ context.Context, q readmodel.VideoQuery) ([]models.VideoSummary, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	rows := make([]models.VideoSummary, 0, len(r.d.videos))
	for _, v := range r.d.videos {
		rows = append(rows, r.d.summary(v))
	}
	// Stable input order keeps ties deterministic.
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })

	docs, total := readmodel.FilterVideos(rows, q)
	return docs, total, nil
}

func (r *MemoryVideoRepository) Detail(_ context.Context, id, viewerID string) (models.VideoDetail, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	video, ok := r.d.videos[id]
	if !ok {
		return models.VideoDetail{}, ErrNotFound
	}
	return readmodel.ShapeVideoDetail(video, r.d.owners(video.OwnerID), r.d.likes, r.d.subs, viewerID), nil
}

func (r *MemoryVideoRepository) Stats(_ context.Context, id, viewerID string) (models.VideoStats, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	video, ok := r.d.videos[id]
	if !ok {
		return models.VideoStats{}, ErrNotFound
	}
	likers := readmodel.Likers(models.LikeTarget{Kind: models.LikeVideo, ID: id}, r.d.likes)
	var comments int64
	for _, c := range r.d.comments {
		if c.VideoID == id {
			comments++
		}
	}
	return models.VideoStats{
		VideoID:      id,
		Views:        video.Views,
		LikeCount:    int64(len(likers)),
		CommentCount: comments,
		IsLiked:      readmodel.ViewerIn(viewerID, likers),
	}, nil
}

func (r *MemoryVideoRepository) ChannelStats(_ context.Context, ownerID string) (models.ChannelStats, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var stats models.ChannelStats
	for _, v := range r.d.videos {
		if v.OwnerID != ownerID {
			continue
		}
		stats.TotalVideos++
		stats.TotalViews += v.Views
		stats.TotalLikes += int64(len(readmodel.Likers(models.LikeTarget{Kind: models.LikeVideo, ID: v.ID}, r.d.likes)))
	}
	stats.TotalSubscribers = int64(len(readmodel.Subscribers(ownerID, r.d.subs)))
	return stats, nil
}

// MemoryCommentRepository is the in-memory comment store.
type MemoryCommentRepository struct{ d *memoryData }

func (r *MemoryCommentRepository) Create(_ context.Context, comment models.Comment) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.videos[comment.VideoID]; !ok {
		return ErrNotFound
	}
	r.d.comments[comment.ID] = comment
	return nil
}

func (r *MemoryCommentRepository) FindByID(_ context.Context, id string) (models.Comment, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	comment, ok := r.d.comments[id]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	return comment, nil
}

func (r *MemoryCommentRepository) UpdateContent(_ context.Context, id, content string, at time.Time) (models.Comment, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	comment, ok := r.d.comments[id]
	if !ok {
		return models.Comment{}, ErrNotFound
	}
	comment.Content, comment.UpdatedAt = content, at
	r.d.comments[id] = comment
	return comment, nil
}

func (r *MemoryCommentRepository) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.comments[id]; !ok {
		return ErrNotFound
	}
	r.d.dropLikes(func(l models.Like) bool {
		return l.Target == models.LikeTarget{Kind: models.LikeComment, ID: id}
	})
	delete(r.d.comments, id)
	return nil
}

func (r *MemoryCommentRepository) ListForVideo(_ context.Context, videoID, viewerID string, page readmodel.PageRequest) ([]models.CommentView, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var views []models.CommentView
	for _, c := range r.d.comments {
		if c.VideoID == videoID {
			views = append(views, readmodel.ShapeComment(c, r.d.owners(c.OwnerID), r.d.likes, viewerID))
		}
	}
	sort.Slice(views, func(i, j int) bool { return newerFirst(views[i].CreatedAt, views[j].CreatedAt, views[i].ID, views[j].ID) })
	return readmodel.Window(views, page), int64(len(views)), nil
}

// MemoryTweetRepository is the in-memory tweet store.
type MemoryTweetRepository struct{ d *memoryData }

func (r *MemoryTweetRepository) Create(_ context.Context, tweet models.Tweet) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.users[tweet.OwnerID]; !ok {
		return ErrNotFound
	}
	r.d.tweets[tweet.ID] = tweet
	return nil
}

func (r *MemoryTweetRepository) FindByID(_ context.Context, id string) (models.Tweet, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	tweet, ok := r.d.tweets[id]
	if !ok {
		return models.Tweet{}, ErrNotFound
	}
	return tweet, nil
}

func (r *MemoryTweetRepository) UpdateContent(_ context.Context, id, content string, at time.Time) (models.Tweet, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	tweet, ok := r.d.tweets[id]
	if !ok {
		return models.Tweet{}, ErrNotFound
	}
	tweet.Content, tweet.UpdatedAt = content, at
	r.d.tweets[id] = tweet
	return tweet, nil
}

func (r *MemoryTweetRepository) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.tweets[id]; !ok {
		return ErrNotFound
	}
	r.d.dropLikes(func(l models.Like) bool {
		return l.Target == models.LikeTarget{Kind: models.LikeTweet, ID: id}
	})
	delete(r.d.tweets, id)
	return nil
}

func (r *MemoryTweetRepository) ListForOwner(_ context.Context, ownerID, viewerID string, page readmodel.PageRequest) ([]models.TweetView, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var views []models.TweetView
	for _, t := range r.d.tweets {
		if t.OwnerID == ownerID {
			views = append(views, readmodel.ShapeTweet(t, r.d.owners(t.OwnerID), r.d.likes, viewerID))
		}
	}
	sort.Slice(views, func(i, j int) bool { return newerFirst(views[i].CreatedAt, views[j].CreatedAt, views[i].ID, views[j].ID) })
	return readmodel.Window(views, page), int64(len(views)), nil
}

// MemoryLikeRepository is the in-memory like store.
type MemoryLikeRepository struct{ d *memoryData }

func (r *MemoryLikeRepository) Toggle(_ context.Context, target models.LikeTarget, likerID string) (models.ToggleResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if !r.targetExists(target) {
		return "", ErrNotFound
	}

	before := len(r.d.likes)
	r.d.dropLikes(func(l models.Like) bool { return l.Target == target && l.LikedBy == likerID })
	if len(r.d.likes) < before {
		return models.Removed, nil
	}

	r.d.likes = append(r.d.likes, models.Like{ID: uuid.NewString(), Target: target, LikedBy: likerID, CreatedAt: time.Now().UTC()})
	return models.Added, nil
}

func (r *MemoryLikeRepository) targetExists(target models.LikeTarget) bool {
	var ok bool
	switch target.Kind {
	case models.LikeVideo:
		_, ok = r.d.videos[target.ID]
	case models.LikeComment:
		_, ok = r.d.comments[target.ID]
	case models.LikeTweet:
		_, ok = r.d.tweets[target.ID]
	}
	return ok
}

func (r *MemoryLikeRepository) LikedVideos(_ context.Context, userID string) ([]models.VideoSummary, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	liked := []models.VideoSummary{}
	for i := len(r.d.likes) - 1; i >= 0; i-- {
		like := r.d.likes[i]
		if like.LikedBy != userID || like.Target.Kind != models.LikeVideo {
			continue
		}
		if v, ok := r.d.videos[like.Target.ID]; ok && v.IsPublished {
			liked = append(liked, r.d.summary(v))
		}
	}
	return liked, nil
}

// MemorySubscriptionRepository is the in-memory subscription store.
type MemorySubscriptionRepository struct{ d *memoryData }

func (r *MemorySubscriptionRepository) Toggle(_ context.Context, subscriberID, channelID string) (models.ToggleResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.users[channelID]; !ok {
		return "", ErrNotFound
	}

	before := len(r.d.subs)
	r.d.subs = slices.DeleteFunc(r.d.subs, func(s models.Subscription) bool {
		return s.SubscriberID == subscriberID && s.ChannelID == channelID
	})
	if len(r.d.subs) < before {
		return models.Removed, nil
	}

	r.d.subs = append(r.d.subs, models.Subscription{
		ID: uuid.NewString(), SubscriberID: subscriberID, ChannelID: channelID, CreatedAt: time.Now().UTC(),
	})
	return models.Added, nil
}

func (r *MemorySubscriptionRepository) Subscribers(_ context.Context, channelID string) ([]models.SubscriberView, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := []models.SubscriberView{}
	for i := len(r.d.subs) - 1; i >= 0; i-- {
		s := r.d.subs[i]
		if s.ChannelID != channelID {
			continue
		}
		if u, ok := r.d.users[s.SubscriberID]; ok {
			out = append(out, models.SubscriberView{Owner: u.Owner(), SubscribedAt: s.CreatedAt})
		}
	}
	return out, nil
}

func (r *MemorySubscriptionRepository) SubscribedChannels(_ context.Context, subscriberID string) ([]models.SubscribedChannel, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	out := []models.SubscribedChannel{}
	for i := len(r.d.subs) - 1; i >= 0; i-- {
		s := r.d.subs[i]
		if s.SubscriberID != subscriberID {
			continue
		}
		if u, ok := r.d.users[s.ChannelID]; ok {
			out = append(out, models.SubscribedChannel{
				Owner:           u.Owner(),
				SubscriberCount: int64(len(readmodel.Subscribers(u.ID, r.d.subs))),
			})
		}
	}
	return out, nil
}

// MemoryPlaylistRepository is the in-memory playlist store.
type MemoryPlaylistRepository struct{ d *memoryData }

func (r *MemoryPlaylistRepository) Create(_ context.Context, playlist models.Playlist) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	return r.createLocked(playlist)
}

func (r *MemoryPlaylistRepository) createLocked(playlist models.Playlist) error {
	if _, ok := r.d.users[playlist.OwnerID]; !ok {
		return ErrNotFound
	}
	if playlist.IsWatchLater {
		for _, p := range r.d.playlists {
			if p.OwnerID == playlist.OwnerID && p.IsWatchLater {
				return ErrConflict
			}
		}
	}
	if playlist.VideoIDs == nil {
		playlist.VideoIDs = []string{}
	}
	r.d.playlists[playlist.ID] = playlist
	return nil
}

func (r *MemoryPlaylistRepository) FindByID(_ context.Context, id string) (models.Playlist, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	playlist, ok := r.d.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	playlist.VideoIDs = slices.Clone(playlist.VideoIDs)
	return playlist, nil
}

func (r *MemoryPlaylistRepository) Update(_ context.Context, id, name, description string, at time.Time) (models.Playlist, error) {
	return r.update(id, func(p *models.Playlist) { p.Name, p.Description, p.UpdatedAt = name, description, at })
}

func (r *MemoryPlaylistRepository) SetVisibility(_ context.Context, id string, public bool, at time.Time) (models.Playlist, error) {
	return r.update(id, func(p *models.Playlist) { p.IsPublic, p.UpdatedAt = public, at })
}

func (r *MemoryPlaylistRepository) update(id string, mutate func(*models.Playlist)) (models.Playlist, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	playlist, ok := r.d.playlists[id]
	if !ok {
		return models.Playlist{}, ErrNotFound
	}
	mutate(&playlist)
	r.d.playlists[id] = playlist
	playlist.VideoIDs = slices.Clone(playlist.VideoIDs)
	return playlist, nil
}

func (r *MemoryPlaylistRepository) Delete(_ context.Context, id string) error {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	if _, ok := r.d.playlists[id]; !ok {
		return ErrNotFound
	}
	delete(r.d.playlists, id)
	return nil
}

func (r *MemoryPlaylistRepository) AddVideo(_ context.Context, playlistID, videoID string) (models.MembershipResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	playlist, ok := r.d.playlists[playlistID]
	if !ok {
		return "", ErrNotFound
	}
	if _, ok := r.d.videos[videoID]; !ok {
		return "", ErrNotFound
	}
	if slices.Contains(playlist.VideoIDs, videoID) {
		return models.MemberAlreadyPresent, nil
	}
	playlist.VideoIDs = append(slices.Clone(playlist.VideoIDs), videoID)
	playlist.UpdatedAt = time.Now().UTC()
	r.d.playlists[playlistID] = playlist
	return models.MemberAdded, nil
}

func (r *MemoryPlaylistRepository) RemoveVideo(_ context.Context, playlistID, videoID string) (models.MembershipResult, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	playlist, ok := r.d.playlists[playlistID]
	if !ok {
		return "", ErrNotFound
	}
	if !slices.Contains(playlist.VideoIDs, videoID) {
		return models.MemberNotPresent, nil
	}
	playlist.VideoIDs = slices.DeleteFunc(slices.Clone(playlist.VideoIDs), func(v string) bool { return v == videoID })
	playlist.UpdatedAt = time.Now().UTC()
	r.d.playlists[playlistID] = playlist
	return models.MemberRemoved, nil
}

func (r *MemoryPlaylistRepository) Detail(_ context.Context, id string) (models.PlaylistDetail, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	playlist, ok := r.d.playlists[id]
	if !ok {
		return models.PlaylistDetail{}, ErrNotFound
	}
	return readmodel.ShapePlaylistDetail(playlist, r.d.owners(playlist.OwnerID), r.d.summariesByID(playlist.VideoIDs)), nil
}

func (r *MemoryPlaylistRepository) ListForOwner(_ context.Context, ownerID string, includePrivate bool, page readmodel.PageRequest) ([]models.PlaylistSummary, int64, error) {
	r.d.mu.RLock()
	defer r.d.mu.RUnlock()

	var summaries []models.PlaylistSummary
	for _, p := range r.d.playlists {
		if p.OwnerID == ownerID && (includePrivate || p.IsPublic) {
			summaries = append(summaries, readmodel.ShapePlaylistSummary(p, r.d.owners(p.OwnerID)))
		}
	}
	sort.Slice(summaries, func(i, j int) bool {
		return newerFirst(summaries[i].CreatedAt, summaries[j].CreatedAt, summaries[i].ID, summaries[j].ID)
	})
	return readmodel.Window(summaries, page), int64(len(summaries)), nil
}

func (r *MemoryPlaylistRepository) WatchLater(_ context.Context, ownerID string, create bool) (models.Playlist, error) {
	r.d.mu.Lock()
	defer r.d.mu.Unlock()

	for _, p := range r.d.playlists {
		if p.OwnerID == ownerID && p.IsWatchLater {
			p.VideoIDs = slices.Clone(p.VideoIDs)
			return p, nil
		}
	}
	if !create {
		return models.Playlist{}, ErrNotFound
	}

	now := time.Now().UTC()
	playlist := models.Playlist{
		ID:           uuid.NewString(),
		OwnerID:      ownerID,
		Name:         models.WatchLaterName,
		IsWatchLater: true,
		VideoIDs:     []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := r.createLocked(playlist); err != nil {
		return models.Playlist{}, err
	}
	return playlist, nil
}

func newerFirst(a, b time.Time, aID, bID string) bool {
	if !a.Equal(b) {
		return a.After(b)
	}
	return aID > bID
}

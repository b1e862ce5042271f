package readmodel

import (
	"slices"

	"github.com/vidtube/backend/internal/models"
)

// CollapseOwner turns the result of an owner join into a single projection.
// No match yields nil so the field is omitted.
func CollapseOwner(matches []models.User) *models.Owner {
	if len(matches) == 0 {
		return nil
	}
	owner := matches[0].Owner()
	return &owner
}

// ViewerIn reports whether viewerID is among ids. An anonymous viewer (empty
// id) is never a member.
func ViewerIn(viewerID string, ids []string) bool {
	if viewerID == "" {
		return false
	}
	return slices.Contains(ids, viewerID)
}

// Likers returns the ids of users that like target.
func Likers(target models.LikeTarget, likes []models.Like) []string {
	var ids []string
	for _, like := range likes {
		if like.Target == target {
			ids = append(ids, like.LikedBy)
		}
	}
	return ids
}

// Subscribers returns the ids of users subscribed to channelID.
func Subscribers(channelID string, subs []models.Subscription) []string {
	var ids []string
	for _, sub := range subs {
		if sub.ChannelID == channelID {
			ids = append(ids, sub.SubscriberID)
		}
	}
	return ids
}

// ShapeVideoSummary builds a list row for v.
func ShapeVideoSummary(v models.Video, owners []models.User, likes []models.Like) models.VideoSummary {
	return models.VideoSummary{
		Video:      v,
		Owner:      CollapseOwner(owners),
		LikesCount: int64(len(Likers(models.LikeTarget{Kind: models.LikeVideo, ID: v.ID}, likes))),
	}
}

// ShapeVideoDetail builds the detail projection of v for viewerID.
func ShapeVideoDetail(v models.Video, owners []models.User, likes []models.Like, subs []models.Subscription, viewerID string) models.VideoDetail {
	likers := Likers(models.LikeTarget{Kind: models.LikeVideo, ID: v.ID}, likes)
	detail := models.VideoDetail{
		Video:     v,
		LikeCount: int64(len(likers)),
		IsLiked:   ViewerIn(viewerID, likers),
	}
	if owner := CollapseOwner(owners); owner != nil {
		subscribers := Subscribers(owner.ID, subs)
		detail.Owner = &models.ChannelOwner{
			Owner:           *owner,
			SubscriberCount: int64(len(subscribers)),
			IsSubscribed:    ViewerIn(viewerID, subscribers),
		}
	}
	return detail
}

// ShapeComment builds the projection of c for viewerID.
func ShapeComment(c models.Comment, owners []models.User, likes []models.Like, viewerID string) models.CommentView {
	likers := Likers(models.LikeTarget{Kind: models.LikeComment, ID: c.ID}, likes)
	return models.CommentView{
		Comment:    c,
		Owner:      CollapseOwner(owners),
		LikesCount: int64(len(likers)),
		IsLiked:    ViewerIn(viewerID, likers),
	}
}

// ShapeTweet builds the projection of t for viewerID.
func ShapeTweet(t models.Tweet, owners []models.User, likes []models.Like, viewerID string) models.TweetView {
	likers := Likers(models.LikeTarget{Kind: models.LikeTweet, ID: t.ID}, likes)
	return models.TweetView{
		Tweet:      t,
		Owner:      CollapseOwner(owners),
		LikesCount: int64(len(likers)),
		IsLiked:    ViewerIn(viewerID, likers),
	}
}

// ShapePlaylistSummary builds a list row for p.
func ShapePlaylistSummary(p models.Playlist, owners []models.User) models.PlaylistSummary {
	return models.PlaylistSummary{
		Playlist:    p,
		Owner:       CollapseOwner(owners),
		TotalVideos: len(p.VideoIDs),
	}
}

// ShapePlaylistDetail resolves the videos of p in playlist order. Ids that no
// longer resolve are skipped and do not count towards totalVideos.
func ShapePlaylistDetail(p models.Playlist, owners []models.User, videos map[string]models.VideoSummary) models.PlaylistDetail {
	detail := models.PlaylistDetail{
		Playlist: p,
		Owner:    CollapseOwner(owners),
		Videos:   make([]models.VideoSummary, 0, len(p.VideoIDs)),
	}
	for _, id := range p.VideoIDs {
		if v, ok := videos[id]; ok {
			detail.Videos = append(detail.Videos, v)
		}
	}
	detail.TotalVideos = len(detail.Videos)
	return detail
}

// ShapeChannelProfile builds the channel page of u for viewerID.
func ShapeChannelProfile(u models.User, subs []models.Subscription, videosCount int64, viewerID string) models.ChannelProfile {
	subscribers := Subscribers(u.ID, subs)
	var following int64
	for _, sub := range subs {
		if sub.SubscriberID == u.ID {
			following++
		}
	}
	return models.ChannelProfile{
		ID:                        u.ID,
		Username:                  u.Username,
		FullName:                  u.FullName,
		Email:                     u.Email,
		Avatar:                    u.Avatar,
		CoverImage:                u.CoverImage,
		SubscribersCount:          int64(len(subscribers)),
		ChannelsSubscribedToCount: following,
		IsSubscribed:              ViewerIn(viewerID, subscribers),
		VideosCount:               videosCount,
	}
}

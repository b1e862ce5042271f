package models

import "time"

// Owner is the public projection of a user attached to owned entities.
type Owner struct {
	ID       string `json:"_id"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	Avatar   string `json:"avatar"`
}

// VideoSummary is a video row in list responses.
type VideoSummary struct {
	Video
	Owner      *Owner `json:"owner,omitempty"`
	LikesCount int64  `json:"likesCount"`
}

// ChannelOwner is the owner projection on a video detail.
type ChannelOwner struct {
	Owner
	SubscriberCount int64 `json:"subscriberCount"`
	IsSubscribed    bool  `json:"isSubscribed"`
}

// VideoDetail is the single-video projection relative to a viewer.
type VideoDetail struct {
	Video
	Owner     *ChannelOwner `json:"owner,omitempty"`
	LikeCount int64         `json:"likeCount"`
	IsLiked   bool          `json:"isLiked"`
}

// VideoStats summarises engagement on a single video.
type VideoStats struct {
	VideoID      string `json:"videoId"`
	Views        int64  `json:"views"`
	LikeCount    int64  `json:"likeCount"`
	CommentCount int64  `json:"commentCount"`
	IsLiked      bool   `json:"isLiked"`
}

// CommentView is a comment relative to a viewer.
type CommentView struct {
	Comment
	Owner      *Owner `json:"owner,omitempty"`
	LikesCount int64  `json:"likesCount"`
	IsLiked    bool   `json:"isLiked"`
}

// TweetView is a tweet relative to a viewer.
type TweetView struct {
	Tweet
	Owner      *Owner `json:"owner,omitempty"`
	LikesCount int64  `json:"likesCount"`
	IsLiked    bool   `json:"isLiked"`
}

// PlaylistSummary is a playlist row in list responses.
type PlaylistSummary struct {
	Playlist
	Owner       *Owner `json:"owner,omitempty"`
	TotalVideos int    `json:"totalVideos"`
}

// PlaylistDetail is a playlist with its videos resolved in order.
type PlaylistDetail struct {
	Playlist
	Owner       *Owner         `json:"owner,omitempty"`
	Videos      []VideoSummary `json:"videos"`
	TotalVideos int            `json:"totalVideos"`
}

// ChannelProfile is the public page of a user.
type ChannelProfile struct {
	ID                        string `json:"_id"`
	Username                  string `json:"username"`
	FullName                  string `json:"fullName"`
	Email                     string `json:"email"`
	Avatar                    string `json:"avatar"`
	CoverImage                string `json:"coverImage"`
	SubscribersCount          int64  `json:"subscribersCount"`
	ChannelsSubscribedToCount int64  `json:"channelsSubscribedToCount"`
	IsSubscribed              bool   `json:"isSubscribed"`
	VideosCount               int64  `json:"videosCount"`
}

// SubscriberView is one subscriber of a channel.
type SubscriberView struct {
	Owner
	SubscribedAt time.Time `json:"subscribedAt"`
}

// SubscribedChannel is one channel a user follows.
type SubscribedChannel struct {
	Owner
	SubscriberCount int64 `json:"subscriberCount"`
}

// WatchHistoryItem is a resolved watch history entry.
type WatchHistoryItem struct {
	WatchedAt time.Time    `json:"watchedAt"`
	Video     VideoSummary `json:"video"`
}

// ChannelStats aggregates a channel's dashboard numbers.
type ChannelStats struct {
	TotalViews       int64 `json:"totalViews"`
	TotalVideos      int64 `json:"totalVideos"`
	TotalLikes       int64 `json:"totalLikes"`
	TotalSubscribers int64 `json:"totalSubscribers"`
}

// LikedVideos lists the videos a user has liked.
type LikedVideos struct {
	LikedVideos []VideoSummary `json:"likedVideos"`
	VideosCount int            `json:"videosCount"`
}

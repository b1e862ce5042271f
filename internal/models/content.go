package models

import "time"

// Video is an uploaded video owned by a channel.
type Video struct {
	ID          string    `json:"_id"`
	OwnerID     string    `json:"-"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	VideoFile   string    `json:"videoFile"`
	Thumbnail   string    `json:"thumbnail"`
	Duration    float64   `json:"duration"`
	Views       int64     `json:"views"`
	IsPublished bool      `json:"isPublished"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func (v Video) OwnerRef() string { return v.OwnerID }

// Comment is a remark left on a video.
type Comment struct {
	ID        string    `json:"_id"`
	VideoID   string    `json:"video"`
	OwnerID   string    `json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (c Comment) OwnerRef() string { return c.OwnerID }

// Tweet is a short text post on a channel.
type Tweet struct {
	ID        string    `json:"_id"`
	OwnerID   string    `json:"-"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t Tweet) OwnerRef() string { return t.OwnerID }

// Playlist is an ordered, duplicate-free collection of videos.
type Playlist struct {
	ID           string    `json:"_id"`
	OwnerID      string    `json:"-"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsPublic     bool      `json:"isPublic"`
	IsWatchLater bool      `json:"isWatchLater"`
	VideoIDs     []string  `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

func (p Playlist) OwnerRef() string { return p.OwnerID }

// WatchLaterName is the fixed name of the per-user Watch Later playlist.
const WatchLaterName = "Watch Later"

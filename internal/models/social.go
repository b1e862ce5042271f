package models

import "time"

// LikeKind names the entity family a like points at.
type LikeKind string

const (
	LikeVideo   LikeKind = "video"
	LikeComment LikeKind = "comment"
	LikeTweet   LikeKind = "tweet"
)

// LikeTarget identifies exactly one likeable entity.
type LikeTarget struct {
	Kind LikeKind
	ID   string
}

// Like records that LikedBy likes Target.
type Like struct {
	ID        string
	Target    LikeTarget
	LikedBy   string
	CreatedAt time.Time
}

// Subscription records that SubscriberID follows ChannelID.
type Subscription struct {
	ID           string
	SubscriberID string
	ChannelID    string
	CreatedAt    time.Time
}

func (s Subscription) OwnerRef() string { return s.SubscriberID }

// ToggleResult reports which way a two-state flip went.
type ToggleResult string

const (
	Added   ToggleResult = "added"
	Removed ToggleResult = "removed"
)

// MembershipResult reports the outcome of a playlist add or remove.
type MembershipResult string

const (
	MemberAdded          MembershipResult = "added"
	MemberAlreadyPresent MembershipResult = "already_present"
	MemberRemoved        MembershipResult = "removed"
	MemberNotPresent     MembershipResult = "not_present"
)

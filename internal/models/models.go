package models

import "time"

// Ownable is implemented by every entity that only its owner may mutate.
type Ownable interface {
	OwnerRef() string
}

// User represents an account on the platform. The password hash and refresh
// token never leave the server.
type User struct {
	ID           string    `json:"_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FullName     string    `json:"fullName"`
	Avatar       string    `json:"avatar"`
	CoverImage   string    `json:"coverImage"`
	PasswordHash string    `json:"-"`
	RefreshToken string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Public strips credentials from the user.
func (u User) Public() User {
	u.PasswordHash = ""
	u.RefreshToken = ""
	return u
}

// Owner returns the public owner projection of the user.
func (u User) Owner() Owner {
	return Owner{ID: u.ID, Username: u.Username, FullName: u.FullName, Avatar: u.Avatar}
}

// WatchEntry is one stored row of a user's watch history.
type WatchEntry struct {
	ID        string
	UserID    string
	VideoID   string
	WatchedAt time.Time
}

// SessionTokens groups the bearer credentials issued to authenticated users.
type SessionTokens struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}

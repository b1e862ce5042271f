package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/vidtube/backend/internal/models"
)

var (
	// ErrInvalidToken indicates a token that fails signature, expiry or shape checks.
	ErrInvalidToken = errors.New("invalid token")
	// ErrRefreshTokenMismatch indicates a valid refresh token that is no longer the stored one.
	ErrRefreshTokenMismatch = errors.New("refresh token is expired or used")
	// ErrRefreshTokenMissing indicates that no refresh token was presented.
	ErrRefreshTokenMissing = errors.New("refresh token is required")
)

// SessionStore keeps the single active refresh token of each user.
type SessionStore interface {
	SaveRefreshToken(ctx context.Context, userID, token string) error
	RefreshToken(ctx context.Context, userID string) (string, error)
}

// UserFinder resolves the user a refresh token was issued to.
type UserFinder interface {
	FindByID(ctx context.Context, id string) (models.User, error)
}

// AccessClaims are carried by access tokens.
type AccessClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"fullName"`
	jwt.RegisteredClaims
}

// Options configures a Manager.
type Options struct {
	AccessSecret  string
	AccessTTL     time.Duration
	RefreshSecret string
	RefreshTTL    time.Duration
}

// Manager signs and verifies access and refresh tokens. Refresh tokens are
// rotated on every use; only the most recently issued one is accepted.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store SessionStore
	users UserFinder
	now   func() time.Time
}

// NewManager constructs a Manager backed by store.
func NewManager(opts Options, store SessionStore, users UserFinder) *Manager {
	if store == nil || users == nil {
		panic("auth: session store and user finder must not be nil")
	}
	return &Manager{
		accessSecret:  []byte(opts.AccessSecret),
		refreshSecret: []byte(opts.RefreshSecret),
		accessTTL:     opts.AccessTTL,
		refreshTTL:    opts.RefreshTTL,
		store:         store,
		users:         users,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithNowFunc overrides the clock used for issuing and verifying tokens.
func (m *Manager) WithNowFunc(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Issue signs a new token pair for user and stores the refresh token,
// replacing any previous one.
func (m *Manager) Issue(ctx context.Context, user models.User) (models.SessionTokens, error) {
	if user.ID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()
	tokens := models.SessionTokens{
		AccessExpiresAt:  now.Add(m.accessTTL),
		RefreshExpiresAt: now.Add(m.refreshTTL),
	}

	var err error
	tokens.AccessToken, err = m.sign(m.accessSecret, AccessClaims{
		Email:            user.Email,
		Username:         user.Username,
		FullName:         user.FullName,
		RegisteredClaims: m.registered(user.ID, now, tokens.AccessExpiresAt),
	})
	if err != nil {
		return models.SessionTokens{}, err
	}

	tokens.RefreshToken, err = m.sign(m.refreshSecret, m.registered(user.ID, now, tokens.RefreshExpiresAt))
	if err != nil {
		return models.SessionTokens{}, err
	}

	if err := m.store.SaveRefreshToken(ctx, user.ID, tokens.RefreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("save refresh token: %w", err)
	}
	return tokens, nil
}

// Refresh verifies refreshToken against the stored token of its subject and
// issues a rotated pair.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.User, models.SessionTokens, error) {
	if refreshToken == "" {
		return models.User{}, models.SessionTokens{}, ErrRefreshTokenMissing
	}

	claims := &jwt.RegisteredClaims{}
	if err := m.parse(refreshToken, m.refreshSecret, claims); err != nil {
		return models.User{}, models.SessionTokens{}, err
	}

	user, err := m.users.FindByID(ctx, claims.Subject)
	if err != nil {
		return models.User{}, models.SessionTokens{}, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
	}

	stored, err := m.store.RefreshToken(ctx, user.ID)
	if err != nil {
		return models.User{}, models.SessionTokens{}, fmt.Errorf("load refresh token: %w", err)
	}
	if stored == "" || stored != refreshToken {
		return models.User{}, models.SessionTokens{}, ErrRefreshTokenMismatch
	}

	tokens, err := m.Issue(ctx, user)
	if err != nil {
		return models.User{}, models.SessionTokens{}, err
	}
	return user, tokens, nil
}

// Revoke clears the stored refresh token of userID.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if err := m.store.SaveRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("clear refresh token: %w", err)
	}
	return nil
}

// ParseAccessToken verifies an access token and returns its claims.
func (m *Manager) ParseAccessToken(token string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := m.parse(token, m.accessSecret, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) registered(subject string, now, expires time.Time) jwt.RegisteredClaims {
	// A random id keeps two tokens issued within the same second distinct.
	id, _ := randomToken()
	return jwt.RegisteredClaims{
		ID:        id,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	}
}

func (m *Manager) sign(secret []byte, claims jwt.Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (m *Manager) parse(token string, secret []byte, claims jwt.Claims) error {
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !parsed.Valid {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if subject, _ := claims.GetSubject(); subject == "" {
		return fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return nil
}

func randomToken() (string, error) {
	const size = 16
	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/models"
)

type stubUsers map[string]models.User

func (s stubUsers) FindByID(_ context.Context, id string) (models.User, error) {
	user, ok := s[id]
	if !ok {
		return models.User{}, errors.New("not found")
	}
	return user, nil
}

func newTestManager(refreshTTL time.Duration) (*Manager, *InMemorySessionStore) {
	store := NewInMemorySessionStore()
	users := stubUsers{"user-1": {ID: "user-1", Username: "alice", Email: "alice@example.com", FullName: "Alice"}}
	manager := NewManager(Options{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Minute,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    refreshTTL,
	}, store, users)
	return manager, store
}

func TestManagerIssueAndRefresh(t *testing.T) {
	manager, store := newTestManager(time.Hour)
	ctx := context.Background()

	tokens, err := manager.Issue(ctx, models.User{ID: "user-1", Username: "alice", Email: "alice@example.com"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		t.Fatalf("expected non-empty tokens: %+v", tokens)
	}
	if !store.Has("user-1") {
		t.Fatal("expected refresh token to be stored")
	}

	claims, err := manager.ParseAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Subject != "user-1" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	user, refreshed, err := manager.Refresh(ctx, tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if user.ID != "user-1" {
		t.Fatalf("unexpected user %q", user.ID)
	}
	if refreshed.RefreshToken == tokens.RefreshToken {
		t.Fatal("expected new refresh token")
	}

	if _, _, err := manager.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("expected rotated token to be rejected, got %v", err)
	}
}

func TestManagerIssueValidation(t *testing.T) {
	manager, _ := newTestManager(time.Hour)
	if _, err := manager.Issue(context.Background(), models.User{}); err == nil {
		t.Fatal("expected error for empty user id")
	}
}

func TestManagerRefreshFailures(t *testing.T) {
	manager, _ := newTestManager(time.Hour)
	ctx := context.Background()

	if _, _, err := manager.Refresh(ctx, ""); !errors.Is(err, ErrRefreshTokenMissing) {
		t.Fatalf("expected missing token got %v", err)
	}
	if _, _, err := manager.Refresh(ctx, "not-a-jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token got %v", err)
	}

	tokens, err := manager.Issue(ctx, models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, _, err := manager.Refresh(ctx, tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("access token must not verify as refresh token, got %v", err)
	}

	if err := manager.Revoke(ctx, "user-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, _, err := manager.Refresh(ctx, tokens.RefreshToken); !errors.Is(err, ErrRefreshTokenMismatch) {
		t.Fatalf("expected mismatch after revoke got %v", err)
	}
}

func TestManagerRejectsExpiredTokens(t *testing.T) {
	manager, _ := newTestManager(time.Hour)
	issuedAt := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	manager.WithNowFunc(func() time.Time { return issuedAt })

	tokens, err := manager.Issue(context.Background(), models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	manager.WithNowFunc(func() time.Time { return issuedAt.Add(2 * time.Minute) })
	if _, err := manager.ParseAccessToken(tokens.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired access token to be rejected, got %v", err)
	}
	if _, _, err := manager.Refresh(context.Background(), tokens.RefreshToken); err != nil {
		t.Fatalf("refresh token should still be valid: %v", err)
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("supersafe")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "supersafe" {
		t.Fatal("password stored in clear")
	}
	if err := CheckPassword(hash, "supersafe"); err != nil {
		t.Fatalf("expected match: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
}

func TestIdentityStripsCredentials(t *testing.T) {
	ctx := WithUser(context.Background(), models.User{ID: "u1", PasswordHash: "hash", RefreshToken: "tok"})
	user, ok := UserFromContext(ctx)
	if !ok || user.PasswordHash != "" || user.RefreshToken != "" {
		t.Fatalf("unexpected identity: %+v (%v)", user, ok)
	}
	if ViewerID(context.Background()) != "" {
		t.Fatal("anonymous viewer id must be empty")
	}
}

package auth

import (
	"context"

	"github.com/vidtube/backend/internal/models"
)

type userKey struct{}

// WithUser stores the authenticated user on ctx with credentials stripped.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey{}, user.Public())
}

// UserFromContext returns the authenticated user, if any.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey{}).(models.User)
	return user, ok && user.ID != ""
}

// ViewerID returns the authenticated user id or "" for anonymous requests.
func ViewerID(ctx context.Context) string {
	user, _ := UserFromContext(ctx)
	return user.ID
}

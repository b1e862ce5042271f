package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

const (
	accessTokenCookie  = "accessToken"
	refreshTokenCookie = "refreshToken"
)

// Gate resolves the caller identity from the access token.
type Gate struct {
	Sessions SessionManager
	Users    UserStore
}

// Require rejects requests without a valid access token.
func (g Gate) Require(next http.Handler) http.Handler {
	return g.wrap(next, true)
}

// Optional lets anonymous requests through but still rejects a bad token.
func (g Gate) Optional(next http.Handler) http.Handler {
	return g.wrap(next, false)
}

func (g Gate) wrap(next http.Handler, required bool) http.Handler {
	return apiFunc(func(w http.ResponseWriter, r *http.Request) error {
		token := bearerToken(r)
		if token == "" {
			if required {
				return unauthorized("Unauthorized request")
			}
			next.ServeHTTP(w, r)
			return nil
		}

		user, err := g.resolve(r, token)
		if err != nil {
			return err
		}

		ctx := auth.WithUser(r.Context(), user)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With("user_id", user.ID))
		next.ServeHTTP(w, r.WithContext(ctx))
		return nil
	})
}

func (g Gate) resolve(r *http.Request, token string) (models.User, error) {
	if g.Sessions == nil || g.Users == nil {
		return models.User{}, errors.New("access gate dependencies unavailable")
	}

	claims, err := g.Sessions.ParseAccessToken(token)
	if err != nil {
		return models.User{}, unauthorized("Invalid access token")
	}

	user, err := g.Users.FindByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, unauthorized("Invalid access token")
		}
		return models.User{}, err
	}
	return user, nil
}

// bearerToken reads the access token from its cookie, else from the
// Authorization header.
func bearerToken(r *http.Request) string {
	if cookie, err := r.Cookie(accessTokenCookie); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	return ""
}

// currentUser returns the identity placed on the context by Gate.Require.
func currentUser(r *http.Request) (models.User, error) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		return models.User{}, unauthorized("Unauthorized request")
	}
	return user, nil
}

// cookieJar sets and clears the session cookies.
type cookieJar struct {
	secure bool
}

func (c cookieJar) set(w http.ResponseWriter, tokens models.SessionTokens) {
	http.SetCookie(w, c.cookie(accessTokenCookie, tokens.AccessToken, tokens.AccessExpiresAt))
	http.SetCookie(w, c.cookie(refreshTokenCookie, tokens.RefreshToken, tokens.RefreshExpiresAt))
}

func (c cookieJar) clear(w http.ResponseWriter) {
	for _, name := range []string{accessTokenCookie, refreshTokenCookie} {
		cookie := c.cookie(name, "", time.Unix(0, 0))
		cookie.MaxAge = -1
		http.SetCookie(w, cookie)
	}
}

func (c cookieJar) cookie(name, value string, expires time.Time) *http.Cookie {
	sameSite := http.SameSiteNoneMode
	if !c.secure {
		// Browsers drop SameSite=None cookies that are not Secure.
		sameSite = http.SameSiteLaxMode
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: sameSite,
	}
}

package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/middleware"
	"github.com/vidtube/backend/internal/models"
)

func registerFields(username string) map[string]string {
	return map[string]string{
		"fullName": "Test " + username,
		"email":    username + "@example.com",
		"username": username,
		"password": testPassword,
	}
}

func TestUserHandlerRegister(t *testing.T) {
	env := newTestEnv(t)

	rec := env.doMultipart(http.MethodPost, "/api/v1/users/register", registerFields("Alice"),
		map[string]string{"avatar": "me.png", "coverImage": "cover.png"}, "")
	expectStatus(t, rec, http.StatusCreated)

	resp := decodeResponse[map[string]any](t, rec)
	if !resp.Success || resp.StatusCode != http.StatusCreated {
		t.Fatalf("unexpected envelope %+v", resp)
	}
	if resp.Data["username"] != "alice" {
		t.Fatalf("expected lower-cased username got %v", resp.Data["username"])
	}
	for _, secret := range []string{"password", "passwordHash", "refreshToken"} {
		if _, ok := resp.Data[secret]; ok {
			t.Fatalf("response leaks %s: %v", secret, resp.Data)
		}
	}

	stored, err := env.store.Users.FindByLogin(context.Background(), "alice", "")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if auth.CheckPassword(stored.PasswordHash, testPassword) != nil {
		t.Fatal("stored password is not hashed")
	}
	if stored.Avatar == "" || stored.CoverImage == "" {
		t.Fatalf("expected media urls on the user got %+v", stored)
	}
	if len(env.uploader.kinds) != 2 || env.uploader.kinds[0] != media.KindAvatar {
		t.Fatalf("unexpected uploads %v", env.uploader.kinds)
	}
}

func TestUserHandlerRegisterFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("taken")

	tests := []struct {
		name   string
		fields map[string]string
		files  map[string]string
		want   int
	}{
		{name: "missing avatar", fields: registerFields("bob"), want: http.StatusBadRequest},
		{name: "blank full name", fields: map[string]string{"fullName": "  ", "email": "b@example.com", "username": "bob", "password": testPassword}, files: map[string]string{"avatar": "a.png"}, want: http.StatusBadRequest},
		{name: "bad email", fields: map[string]string{"fullName": "Bob", "email": "nope", "username": "bob", "password": testPassword}, files: map[string]string{"avatar": "a.png"}, want: http.StatusBadRequest},
		{name: "existing username", fields: registerFields("taken"), files: map[string]string{"avatar": "a.png"}, want: http.StatusConflict},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.doMultipart(http.MethodPost, "/api/v1/users/register", tc.fields, tc.files, "")
			expectStatus(t, rec, tc.want)
			resp := decodeResponse[any](t, rec)
			if resp.Success || resp.Errors == nil {
				t.Fatalf("expected failure envelope with errors list got %s", rec.Body.String())
			}
		})
	}

	if len(env.uploader.kinds) != 0 {
		t.Fatalf("expected no uploads for rejected registrations got %v", env.uploader.kinds)
	}
}

func TestUserHandlerLogin(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("carol")

	rec := env.do(http.MethodPost, "/api/v1/users/login", map[string]string{"email": "carol@example.com", "password": testPassword}, "")
	expectStatus(t, rec, http.StatusOK)

	resp := decodeResponse[sessionResponse](t, rec)
	if resp.Data.AccessToken == "" || resp.Data.RefreshToken == "" {
		t.Fatalf("expected tokens to be issued got %+v", resp.Data)
	}
	if resp.Data.User.ID != user.ID {
		t.Fatalf("expected user %s got %s", user.ID, resp.Data.User.ID)
	}

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	access := cookies[accessTokenCookie]
	if access == nil || !access.HttpOnly || !access.Secure || access.SameSite != http.SameSiteNoneMode {
		t.Fatalf("unexpected access cookie %+v", access)
	}
	if cookies[refreshTokenCookie] == nil {
		t.Fatal("expected refresh cookie")
	}

	stored, err := env.store.Users.RefreshToken(context.Background(), user.ID)
	if err != nil || stored != resp.Data.RefreshToken {
		t.Fatalf("expected refresh token to be stored, got %q (%v)", stored, err)
	}
}

func TestUserHandlerLoginFailures(t *testing.T) {
	env := newTestEnv(t)
	env.seedUser("dave")

	tests := []struct {
		name string
		body map[string]string
		want int
	}{
		{name: "no identifier", body: map[string]string{"password": testPassword}, want: http.StatusBadRequest},
		{name: "no password", body: map[string]string{"username": "dave"}, want: http.StatusBadRequest},
		{name: "unknown user", body: map[string]string{"username": "ghost", "password": testPassword}, want: http.StatusNotFound},
		{name: "wrong password", body: map[string]string{"username": "dave", "password": "not-the-password"}, want: http.StatusUnauthorized},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/api/v1/users/login", tc.body, "")
			expectStatus(t, rec, tc.want)
		})
	}
}

func TestUserHandlerRefreshRotatesToken(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("erin")
	tokens, err := env.sessions.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := env.do(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": tokens.RefreshToken}, "")
	expectStatus(t, rec, http.StatusOK)
	rotated := decodeResponse[sessionResponse](t, rec).Data
	if rotated.RefreshToken == "" || rotated.RefreshToken == tokens.RefreshToken {
		t.Fatalf("expected a rotated refresh token got %q", rotated.RefreshToken)
	}

	// The superseded token is no longer accepted.
	rec = env.do(http.MethodPost, "/api/v1/users/refresh-token", map[string]string{"refreshToken": tokens.RefreshToken}, "")
	expectStatus(t, rec, http.StatusUnauthorized)

	req := newCookieRequest(http.MethodPost, "/api/v1/users/refresh-token", refreshTokenCookie, rotated.RefreshToken)
	rec = env.serve(req, "")
	expectStatus(t, rec, http.StatusOK)

	rec = env.do(http.MethodPost, "/api/v1/users/refresh-token", nil, "")
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestUserHandlerLogout(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("frank")
	token := env.tokenFor(user)

	rec := env.do(http.MethodPost, "/api/v1/users/logout", nil, token)
	expectStatus(t, rec, http.StatusOK)

	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Fatalf("expected cookie %s to be expired got %+v", c.Name, c)
		}
	}
	stored, _ := env.store.Users.RefreshToken(context.Background(), user.ID)
	if stored != "" {
		t.Fatalf("expected refresh token to be cleared got %q", stored)
	}

	rec = env.do(http.MethodPost, "/api/v1/users/logout", nil, "")
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestUserHandlerChangePassword(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("grace")
	token := env.tokenFor(user)

	rec := env.do(http.MethodPost, "/api/v1/users/change-password", map[string]string{"oldPassword": "wrong-old-one", "newPassword": "brandnew123"}, token)
	expectStatus(t, rec, http.StatusBadRequest)

	rec = env.do(http.MethodPost, "/api/v1/users/change-password", map[string]string{"oldPassword": testPassword, "newPassword": "brandnew123"}, token)
	expectStatus(t, rec, http.StatusOK)

	stored, err := env.store.Users.FindByID(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("find user: %v", err)
	}
	if auth.CheckPassword(stored.PasswordHash, "brandnew123") != nil {
		t.Fatal("expected the new password to be stored")
	}
}

func TestUserHandlerCurrentUserAndUpdateAccount(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("heidi")
	env.seedUser("ivan")
	token := env.tokenFor(user)

	rec := env.do(http.MethodGet, "/api/v1/users/current-user", nil, token)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeResponse[models.User](t, rec).Data; got.ID != user.ID || got.PasswordHash != "" {
		t.Fatalf("unexpected current user %+v", got)
	}

	rec = env.do(http.MethodPatch, "/api/v1/users/update-account", map[string]string{"fullName": "Heidi", "username": "ivan", "email": "heidi@example.com"}, token)
	expectStatus(t, rec, http.StatusConflict)

	rec = env.do(http.MethodPatch, "/api/v1/users/update-account", map[string]string{"fullName": "Heidi K", "username": "heidik", "email": "heidik@example.com"}, token)
	expectStatus(t, rec, http.StatusOK)
	if got := decodeResponse[models.User](t, rec).Data; got.Username != "heidik" || got.FullName != "Heidi K" {
		t.Fatalf("unexpected updated user %+v", got)
	}

	rec = env.do(http.MethodPatch, "/api/v1/users/update-account", map[string]string{"fullName": "Heidi"}, token)
	expectStatus(t, rec, http.StatusBadRequest)
	if errs := decodeResponse[any](t, rec).Errors; len(errs) != 2 {
		t.Fatalf("expected one message per missing field got %v", errs)
	}
}

func TestUserHandlerUpdateAvatarQueuesOldMedia(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("judy")
	token := env.tokenFor(user)

	rec := env.doMultipart(http.MethodPatch, "/api/v1/users/update-avatar", nil, map[string]string{"avatar": "new.png"}, token)
	expectStatus(t, rec, http.StatusOK)

	updated := decodeResponse[models.User](t, rec).Data
	if updated.Avatar == user.Avatar || updated.Avatar == "" {
		t.Fatalf("expected a new avatar got %q", updated.Avatar)
	}
	queued := env.janitor.Queued()
	if len(queued) != 1 || queued[0] != user.Avatar {
		t.Fatalf("expected old avatar to be queued for deletion got %v", queued)
	}

	rec = env.doMultipart(http.MethodPatch, "/api/v1/users/update-cover-img", nil, nil, token)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestUserHandlerChannelProfile(t *testing.T) {
	env := newTestEnv(t)
	owner := env.seedUser("kim")
	fan := env.seedUser("leo")
	if _, err := env.store.Subscriptions.Toggle(context.Background(), fan.ID, owner.ID); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	rec := env.do(http.MethodGet, "/api/v1/users/channel/kim", nil, env.tokenFor(fan))
	expectStatus(t, rec, http.StatusOK)
	profile := decodeResponse[models.ChannelProfile](t, rec).Data
	if profile.SubscribersCount != 1 || !profile.IsSubscribed {
		t.Fatalf("unexpected profile for subscriber %+v", profile)
	}

	rec = env.do(http.MethodGet, "/api/v1/users/channel/kim", nil, "")
	expectStatus(t, rec, http.StatusOK)
	if profile := decodeResponse[models.ChannelProfile](t, rec).Data; profile.IsSubscribed {
		t.Fatal("anonymous viewer must not be subscribed")
	}

	rec = env.do(http.MethodGet, "/api/v1/users/channel/nobody", nil, "")
	expectStatus(t, rec, http.StatusNotFound)
}

func TestUserHandlerRateLimited(t *testing.T) {
	env := newTestEnv(t, func(d *Dependencies) { d.AuthLimiter = denyLimiter{} })
	env.seedUser("mallory")

	rec := env.do(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "mallory", "password": testPassword}, "")
	expectStatus(t, rec, http.StatusTooManyRequests)
}

type recordingLimiter struct {
	calls []string
}

func (l *recordingLimiter) Allow(scope, client string) bool {
	l.calls = append(l.calls, scope+" "+client)
	return true
}

func TestUserHandlerRateLimitScopes(t *testing.T) {
	limiter := &recordingLimiter{}
	env := newTestEnv(t, func(d *Dependencies) { d.AuthLimiter = limiter })
	env.seedUser("quinn")

	env.do(http.MethodPost, "/api/v1/users/login", map[string]string{"username": "quinn", "password": testPassword}, "")
	env.do(http.MethodPost, "/api/v1/users/refresh-token", nil, "")
	env.doMultipart(http.MethodPost, "/api/v1/users/register", registerFields("rita"), map[string]string{"avatar": "a.png"}, "")

	want := []string{"login 192.0.2.1", "refresh 192.0.2.1", "register 192.0.2.1"}
	if !reflect.DeepEqual(limiter.calls, want) {
		t.Fatalf("expected %v got %v", want, limiter.calls)
	}
}

func TestAuthLimiterForwardedHeaders(t *testing.T) {
	oneLoginPerHour := func(d *Dependencies) {
		d.AuthLimiter = middleware.NewScopedRateLimiter(map[string]middleware.Budget{
			middleware.ScopeLogin: {Requests: 1, Window: time.Hour, Burst: 1},
		})
	}
	loginFrom := func(env *testEnv, forwarded string) int {
		body, err := json.Marshal(map[string]string{"username": "wes", "password": testPassword})
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/v1/users/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", forwarded)
		return env.serve(req, "").Code
	}

	t.Run("ignored by default", func(t *testing.T) {
		env := newTestEnv(t, oneLoginPerHour)
		env.seedUser("wes")

		if code := loginFrom(env, "203.0.113.1"); code != http.StatusOK {
			t.Fatalf("expected first login to pass got %d", code)
		}
		if code := loginFrom(env, "203.0.113.2"); code != http.StatusTooManyRequests {
			t.Fatalf("expected a rotated forwarded address to share the budget got %d", code)
		}
	})

	t.Run("trusted behind a proxy", func(t *testing.T) {
		env := newTestEnv(t, oneLoginPerHour, func(d *Dependencies) { d.TrustProxy = true })
		env.seedUser("wes")

		if code := loginFrom(env, "203.0.113.1"); code != http.StatusOK {
			t.Fatalf("expected first login to pass got %d", code)
		}
		if code := loginFrom(env, "203.0.113.2"); code != http.StatusOK {
			t.Fatalf("expected a second proxied client to have its own budget got %d", code)
		}
		if code := loginFrom(env, "203.0.113.1"); code != http.StatusTooManyRequests {
			t.Fatalf("expected the first proxied client to be limited got %d", code)
		}
	})
}

func newCookieRequest(method, path, name, value string) *http.Request {
	req, _ := http.NewRequest(method, path, nil)
	req.RemoteAddr = "192.0.2.1:1234"
	req.AddCookie(&http.Cookie{Name: name, Value: value})
	return req
}

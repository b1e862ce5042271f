package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/vidtube/backend/internal/auth"
)

func TestGate(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("vera")
	token := env.tokenFor(user)

	expired := auth.NewManager(auth.Options{
		AccessSecret: "access-secret", AccessTTL: time.Minute,
		RefreshSecret: "refresh-secret", RefreshTTL: time.Hour,
	}, auth.NewInMemorySessionStore(), env.store.Users).WithNowFunc(func() time.Time {
		return time.Now().Add(-time.Hour)
	})
	stale, err := expired.Issue(context.Background(), user)
	if err != nil {
		t.Fatalf("issue stale token: %v", err)
	}

	var seen string
	echo := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = auth.ViewerID(r.Context())
		if u, ok := auth.UserFromContext(r.Context()); ok && u.PasswordHash != "" {
			t.Error("context user must not carry the password hash")
		}
		w.WriteHeader(http.StatusNoContent)
	})
	gate := Gate{Sessions: env.sessions, Users: env.store.Users}

	tests := []struct {
		name     string
		required bool
		header   string
		cookie   string
		want     int
		wantID   string
	}{
		{name: "required without token", required: true, want: http.StatusUnauthorized},
		{name: "required with bearer", required: true, header: "Bearer " + token, want: http.StatusNoContent, wantID: user.ID},
		{name: "required with cookie", required: true, cookie: token, want: http.StatusNoContent, wantID: user.ID},
		{name: "required with garbage", required: true, header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "required with expired token", required: true, header: "Bearer " + stale.AccessToken, want: http.StatusUnauthorized},
		{name: "optional without token", want: http.StatusNoContent},
		{name: "optional with bearer", header: "Bearer " + token, want: http.StatusNoContent, wantID: user.ID},
		{name: "optional with garbage", header: "Bearer nope", want: http.StatusUnauthorized},
		{name: "optional with basic auth", header: "Basic dXNlcjpwYXNz", want: http.StatusNoContent},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			if tc.cookie != "" {
				req.AddCookie(&http.Cookie{Name: accessTokenCookie, Value: tc.cookie})
			}
			rec := httptest.NewRecorder()

			handler := gate.Optional(echo)
			if tc.required {
				handler = gate.Require(echo)
			}
			handler.ServeHTTP(rec, req)

			expectStatus(t, rec, tc.want)
			if seen != tc.wantID {
				t.Fatalf("expected viewer %q got %q", tc.wantID, seen)
			}
		})
	}
}

func TestGateRejectsDeletedUser(t *testing.T) {
	env := newTestEnv(t)
	user := env.seedUser("walt")
	token := env.tokenFor(user)

	other := newTestEnv(t)
	gate := Gate{Sessions: env.sessions, Users: other.store.Users}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	gate.Optional(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run for an unknown user")
	})).ServeHTTP(rec, req)

	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestErrorEnvelopeShape(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/v1/nowhere", nil, "")
	expectStatus(t, rec, http.StatusNotFound)
	resp := decodeResponse[any](t, rec)
	if resp.Success || resp.StatusCode != http.StatusNotFound || resp.Errors == nil || len(resp.Errors) != 0 {
		t.Fatalf("unexpected error envelope %s", rec.Body.String())
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("expected json content type got %s", got)
	}
}

package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/models"
	"github.com/vidtube/backend/internal/repositories"
)

const testPassword = "password123"

type stubUploader struct {
	mu       sync.Mutex
	kinds    []media.Kind
	duration float64
	err      error
}

func (s *stubUploader) Upload(_ context.Context, kind media.Kind, fh *multipart.FileHeader) (media.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return media.Asset{}, s.err
	}
	s.kinds = append(s.kinds, kind)
	asset := media.Asset{URL: "https://cdn.test/" + string(kind) + "/" + uuid.NewString() + "-" + fh.Filename}
	if kind == media.KindVideo {
		asset.Duration = s.duration
	}
	return asset, nil
}

type stubJanitor struct {
	mu     sync.Mutex
	queued []string
}

func (s *stubJanitor) Enqueue(locations ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, location := range locations {
		if location != "" {
			s.queued = append(s.queued, location)
		}
	}
	return nil
}

func (s *stubJanitor) Queued() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.queued...)
}

type denyLimiter struct{}

func (denyLimiter) Allow(string, string) bool { return false }

type testEnv struct {
	t        *testing.T
	store    *repositories.MemoryStore
	sessions *auth.Manager
	uploader *stubUploader
	janitor  *stubJanitor
	handler  http.Handler
}

func newTestEnv(t *testing.T, configure ...func(*Dependencies)) *testEnv {
	t.Helper()

	store := repositories.NewMemoryStore()
	sessions := auth.NewManager(auth.Options{
		AccessSecret:  "access-secret",
		AccessTTL:     time.Hour,
		RefreshSecret: "refresh-secret",
		RefreshTTL:    24 * time.Hour,
	}, store.Users, store.Users)
	env := &testEnv{
		t:        t,
		store:    store,
		sessions: sessions,
		uploader: &stubUploader{duration: 42.5},
		janitor:  &stubJanitor{},
	}

	deps := Dependencies{
		Users:         store.Users,
		History:       store.Users,
		Videos:        store.Videos,
		Comments:      store.Comments,
		Tweets:        store.Tweets,
		Likes:         store.Likes,
		Subscriptions: store.Subscriptions,
		Playlists:     store.Playlists,
		Sessions:      sessions,
		Media:         env.uploader,
		Janitor:       env.janitor,
		Health:        store,
		SecureCookies: true,
	}
	for _, fn := range configure {
		fn(&deps)
	}
	env.handler = NewRouter(deps)
	return env
}

func (e *testEnv) seedUser(username string) models.User {
	e.t.Helper()
	hash, err := auth.HashPassword(testPassword)
	if err != nil {
		e.t.Fatalf("hash password: %v", err)
	}
	now := time.Now().UTC()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		FullName:     username + " tester",
		Avatar:       "https://cdn.test/avatars/" + username + ".png",
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.store.Users.Create(context.Background(), user); err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	return user
}

func (e *testEnv) tokenFor(user models.User) string {
	e.t.Helper()
	tokens, err := e.sessions.Issue(context.Background(), user)
	if err != nil {
		e.t.Fatalf("issue tokens: %v", err)
	}
	return tokens.AccessToken
}

func (e *testEnv) seedVideo(ownerID, title string, published bool, at time.Time) models.Video {
	e.t.Helper()
	video := models.Video{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Title:       title,
		Description: title + " description",
		VideoFile:   "https://cdn.test/videos/" + title + ".mp4",
		Thumbnail:   "https://cdn.test/thumbnails/" + title + ".png",
		Duration:    60,
		IsPublished: published,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := e.store.Videos.Create(context.Background(), video); err != nil {
		e.t.Fatalf("create video: %v", err)
	}
	return video
}

// do sends a JSON request. A nil body sends no body.
func (e *testEnv) do(method, path string, body any, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return e.serve(req, token)
}

// doMultipart sends a multipart form with one small file per entry of files.
func (e *testEnv) doMultipart(method, path string, fields, files map[string]string, token string) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for name, value := range fields {
		if err := writer.WriteField(name, value); err != nil {
			e.t.Fatalf("write field: %v", err)
		}
	}
	for name, filename := range files {
		part, err := writer.CreateFormFile(name, filename)
		if err != nil {
			e.t.Fatalf("create form file: %v", err)
		}
		if _, err := part.Write([]byte("media bytes")); err != nil {
			e.t.Fatalf("write form file: %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		e.t.Fatalf("close multipart writer: %v", err)
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return e.serve(req, token)
}

func (e *testEnv) serve(req *http.Request, token string) *httptest.ResponseRecorder {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

type testResponse[T any] struct {
	StatusCode int      `json:"statusCode"`
	Data       T        `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func decodeResponse[T any](t *testing.T, rec *httptest.ResponseRecorder) testResponse[T] {
	t.Helper()
	var resp testResponse[T]
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return resp
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d got %d: %s", want, rec.Code, rec.Body.String())
	}
}

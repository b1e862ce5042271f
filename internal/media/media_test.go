package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http/httptest"
	"os"
	"os/exec"
	"strings"
	"sync"
	"testing"
	"time"
)

type objectStoreStub struct {
	mu      sync.Mutex
	saved   map[string][]byte
	deleted []string
	saveErr error
	delErr  error
}

func (s *objectStoreStub) Save(_ context.Context, key string, r io.Reader, _ string) (string, error) {
	if s.saveErr != nil {
		return "", s.saveErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[key] = data
	return "https://cdn.example.com/" + key, nil
}

func (s *objectStoreStub) Delete(_ context.Context, location string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, location)
	return s.delErr
}

type proberFunc func(ctx context.Context, path string) (float64, error)

func (f proberFunc) Duration(ctx context.Context, path string) (float64, error) { return f(ctx, path) }

func fileHeader(t *testing.T, field, filename, content string) *multipart.FileHeader {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest("POST", "/", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if err := req.ParseMultipartForm(1 << 20); err != nil {
		t.Fatalf("parse multipart: %v", err)
	}
	return req.MultipartForm.File[field][0]
}

func TestUploaderPushesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	store := &objectStoreStub{}
	var probed string
	prober := proberFunc(func(_ context.Context, path string) (float64, error) {
		probed = path
		return 12.5, nil
	})

	uploader := NewUploader(store, prober, dir, 1<<20)
	asset, err := uploader.Upload(context.Background(), KindVideo, fileHeader(t, "videoFile", "clip.MP4", "frames"))
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if asset.Duration != 12.5 {
		t.Fatalf("expected probed duration, got %v", asset.Duration)
	}
	if !strings.HasPrefix(asset.URL, "https://cdn.example.com/videos/") || !strings.HasSuffix(asset.URL, ".mp4") {
		t.Fatalf("unexpected url %q", asset.URL)
	}
	if probed == "" {
		t.Fatal("expected the staged file to be probed")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read staging dir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected staging dir to be empty, found %d entries", len(entries))
	}
}

func TestUploaderFailures(t *testing.T) {
	dir := t.TempDir()

	t.Run("too large", func(t *testing.T) {
		uploader := NewUploader(&objectStoreStub{}, nil, dir, 3)
		if _, err := uploader.Upload(context.Background(), KindAvatar, fileHeader(t, "avatar", "a.png", "abcdef")); !errors.Is(err, ErrFileTooLarge) {
			t.Fatalf("expected ErrFileTooLarge, got %v", err)
		}
	})

	t.Run("unreadable video", func(t *testing.T) {
		prober := proberFunc(func(context.Context, string) (float64, error) { return 0, errors.New("invalid data") })
		uploader := NewUploader(&objectStoreStub{}, prober, dir, 0)
		if _, err := uploader.Upload(context.Background(), KindVideo, fileHeader(t, "videoFile", "v.mp4", "junk")); !errors.Is(err, ErrUnreadableMedia) {
			t.Fatalf("expected ErrUnreadableMedia, got %v", err)
		}
	})

	t.Run("probe unavailable keeps upload", func(t *testing.T) {
		prober := proberFunc(func(context.Context, string) (float64, error) { return 0, ErrProbeUnavailable })
		uploader := NewUploader(&objectStoreStub{}, prober, dir, 0)
		asset, err := uploader.Upload(context.Background(), KindVideo, fileHeader(t, "videoFile", "v.mp4", "frames"))
		if err != nil || asset.Duration != 0 {
			t.Fatalf("expected upload without duration, got %+v (%v)", asset, err)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		uploader := NewUploader(&objectStoreStub{saveErr: errors.New("bucket gone")}, nil, dir, 0)
		if _, err := uploader.Upload(context.Background(), KindThumbnail, fileHeader(t, "thumbnail", "t.jpg", "img")); err == nil {
			t.Fatal("expected store error")
		}
	})

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Fatalf("staged files leaked: %d", len(entries))
	}
}

func TestFFProbeDuration(t *testing.T) {
	probe := NewFFProbe("ffprobe", time.Second)
	probe.Run = func(_ context.Context, binary string, args ...string) ([]byte, error) {
		if binary != "ffprobe" || args[len(args)-1] != "/tmp/clip.mp4" {
			t.Fatalf("unexpected invocation %s %v", binary, args)
		}
		return []byte(`{"format":{"filename":"/tmp/clip.mp4","duration":"93.480000"}}`), nil
	}

	duration, err := probe.Duration(context.Background(), "/tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Duration() error = %v", err)
	}
	if duration != 93.48 {
		t.Fatalf("unexpected duration %v", duration)
	}
}

func TestFFProbeErrors(t *testing.T) {
	tests := []struct {
		name    string
		out     string
		runErr  error
		wantErr error
	}{
		{name: "missing binary", runErr: fmt.Errorf("exec: %w", exec.ErrNotFound), wantErr: ErrProbeUnavailable},
		{name: "no duration", out: `{"format":{}}`},
		{name: "garbage", out: `not json`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			probe := NewFFProbe("", time.Second)
			probe.Run = func(context.Context, string, ...string) ([]byte, error) { return []byte(tc.out), tc.runErr }
			_, err := probe.Duration(context.Background(), "x.mp4")
			if err == nil {
				t.Fatal("expected error")
			}
			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestJanitorDeletesQueuedMedia(t *testing.T) {
	store := &objectStoreStub{delErr: nil}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	janitor := NewJanitor(store, JanitorConfig{QueueSize: 4, Workers: 2}, logger)

	if err := janitor.Enqueue("https://cdn.example.com/a.mp4", "", "https://cdn.example.com/a.jpg"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.deleted) != 2 {
		t.Fatalf("expected two deletions, got %v", store.deleted)
	}

	if err := janitor.Enqueue("late.mp4"); !errors.Is(err, ErrJanitorClosed) {
		t.Fatalf("expected ErrJanitorClosed, got %v", err)
	}
}

func TestJanitorSurvivesStoreErrors(t *testing.T) {
	store := &objectStoreStub{delErr: errors.New("denied")}
	janitor := NewJanitor(store, JanitorConfig{QueueSize: 1, Workers: 1}, slog.New(slog.NewTextHandler(io.Discard, nil)))

	if err := janitor.Enqueue("x.png"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := janitor.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if len(store.deleted) != 1 {
		t.Fatalf("expected one attempt, got %v", store.deleted)
	}
}

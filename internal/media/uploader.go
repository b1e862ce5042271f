package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/metrics"
)

// ObjectStore persists media and returns the public location of each object.
type ObjectStore interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, location string) error
}

// Prober reports the playback length of a local media file.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Kind groups uploads by purpose; it is also the object key prefix.
type Kind string

const (
	KindAvatar    Kind = "avatars"
	KindCover     Kind = "covers"
	KindVideo     Kind = "videos"
	KindThumbnail Kind = "thumbnails"
)

// Asset is an uploaded file.
type Asset struct {
	URL      string
	Duration float64
}

// Uploader stages multipart files on local disk, probes videos and pushes
// the result to the object store. The staged copy never outlives Upload.
type Uploader struct {
	store    ObjectStore
	prober   Prober
	dir      string
	maxBytes int64
}

// NewUploader constructs an Uploader staging files under dir.
func NewUploader(store ObjectStore, prober Prober, dir string, maxBytes int64) *Uploader {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Uploader{store: store, prober: prober, dir: dir, maxBytes: maxBytes}
}

// Upload pushes the file behind fh and returns its location. Videos also
// carry their probed duration.
func (u *Uploader) Upload(ctx context.Context, kind Kind, fh *multipart.FileHeader) (asset Asset, err error) {
	if u == nil || u.store == nil {
		return Asset{}, ErrStorageUnavailable
	}
	if u.maxBytes > 0 && fh.Size > u.maxBytes {
		return Asset{}, fmt.Errorf("%w: %s is %d bytes", ErrFileTooLarge, fh.Filename, fh.Size)
	}

	started := time.Now()
	defer func() { metrics.RecordUpload(string(kind), time.Since(started), err) }()

	staged, err := u.stage(ctx, fh)
	if err != nil {
		return Asset{}, err
	}
	defer func() {
		staged.Close()
		if rmErr := os.Remove(staged.Name()); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			logging.FromContext(ctx).Warn("remove staged upload", "path", staged.Name(), "error", rmErr)
		}
	}()

	if kind == KindVideo {
		if asset.Duration, err = u.probe(ctx, staged.Name()); err != nil {
			return Asset{}, err
		}
	}

	if _, err := staged.Seek(0, io.SeekStart); err != nil {
		return Asset{}, fmt.Errorf("rewind staged upload: %w", err)
	}

	spanCtx, span := logging.StartSpan(ctx, "media.push")
	defer span.End()

	key := path.Join(string(kind), uuid.NewString()+strings.ToLower(filepath.Ext(fh.Filename)))
	asset.URL, err = u.store.Save(spanCtx, key, staged, fh.Header.Get("Content-Type"))
	if err != nil {
		span.Fail(err)
		return Asset{}, err
	}
	return asset, nil
}

func (u *Uploader) stage(ctx context.Context, fh *multipart.FileHeader) (*os.File, error) {
	_, span := logging.StartSpan(ctx, "media.stage")
	defer span.End()

	src, err := fh.Open()
	if err != nil {
		span.Fail(err)
		return nil, fmt.Errorf("open upload %s: %w", fh.Filename, err)
	}
	defer src.Close()

	dst, err := os.CreateTemp(u.dir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		span.Fail(err)
		return nil, fmt.Errorf("create staging file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dst.Name())
		span.Fail(err)
		return nil, fmt.Errorf("stage upload %s: %w", fh.Filename, err)
	}
	return dst, nil
}

func (u *Uploader) probe(ctx context.Context, file string) (float64, error) {
	if u.prober == nil {
		return 0, nil
	}

	probeCtx, span := logging.StartSpan(ctx, "media.probe")
	defer span.End()

	duration, err := u.prober.Duration(probeCtx, file)
	switch {
	case err == nil:
		return duration, nil
	case errors.Is(err, ErrProbeUnavailable):
		logging.FromContext(ctx).Warn("video duration unknown", "error", err)
		return 0, nil
	default:
		span.Fail(err)
		return 0, fmt.Errorf("%w: %v", ErrUnreadableMedia, err)
	}
}

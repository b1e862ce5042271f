package handlers

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/vidtube/backend/internal/logging"
	"github.com/vidtube/backend/internal/media"
)

// multipartMemory is how much of a multipart body is buffered in memory
// before net/http spills file parts to disk.
const multipartMemory = 32 << 20

func parseMultipart(r *http.Request) error {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if errors.Is(err, http.ErrNotMultipart) {
			return badRequest("Request must be multipart/form-data")
		}
		return badRequest("Invalid multipart form")
	}
	return nil
}

// formValue returns the trimmed value of a form field.
func formValue(r *http.Request, name string) string {
	return strings.TrimSpace(r.FormValue(name))
}

// formFile returns the header of a multipart file part, or nil when the part
// is absent and not required.
func formFile(r *http.Request, name string, required bool) (*multipart.FileHeader, error) {
	_, fh, err := r.FormFile(name)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			if required {
				return nil, badRequest(fmt.Sprintf("%s file is required", name))
			}
			return nil, nil
		}
		return nil, badRequest(fmt.Sprintf("Invalid %s file", name))
	}
	return fh, nil
}

// discardMedia queues stale media for deletion. Failures are logged only.
func discardMedia(ctx context.Context, janitor MediaJanitor, locations ...string) {
	if janitor == nil {
		return
	}
	if err := janitor.Enqueue(locations...); err != nil {
		logging.FromContext(ctx).Warn("queue media deletion", "locations", locations, "error", err)
	}
}

func upload(ctx context.Context, uploader MediaUploader, kind media.Kind, fh *multipart.FileHeader) (media.Asset, error) {
	if uploader == nil {
		return media.Asset{}, media.ErrStorageUnavailable
	}
	asset, err := uploader.Upload(ctx, kind, fh)
	if err != nil {
		return media.Asset{}, fmt.Errorf("upload %s: %w", kind, err)
	}
	return asset, nil
}

package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vidtube/backend/internal/logging"
)

// envelope is the body of every successful API response.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// failure is the body of every error response.
type failure struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

// apiFunc is a handler that reports failures as errors. ServeHTTP is the one
// place errors become responses.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (fn apiFunc) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := fn(w, r)
	if err == nil {
		return
	}

	ctx := r.Context()
	apiErr := toAPIError(err)
	logger := logging.FromContext(ctx)
	if apiErr.Status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", apiErr.Status, "error", err)
	} else {
		logger.Warn("request returned client error", "status", apiErr.Status, "error", err)
	}

	fieldErrors := apiErr.Errors
	if fieldErrors == nil {
		fieldErrors = []string{}
	}
	writeEnvelope(ctx, w, apiErr.Status, failure{
		StatusCode: apiErr.Status,
		Message:    apiErr.Message,
		Success:    false,
		Errors:     fieldErrors,
	})
}

// respondJSON writes a success envelope.
func respondJSON(ctx context.Context, w http.ResponseWriter, status int, data any, message string) error {
	writeEnvelope(ctx, w, status, envelope{
		StatusCode: status,
		Data:       data,
		Message:    message,
		Success:    status < http.StatusBadRequest,
	})
	return nil
}

func writeEnvelope(ctx context.Context, w http.ResponseWriter, status int, body any) {
	payload, err := json.Marshal(body)
	if err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		status = http.StatusInternalServerError
		payload = []byte(`{"statusCode":500,"data":null,"message":"Something went wrong","success":false,"errors":[]}`)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(payload); err != nil {
		logging.FromContext(ctx).Warn("write response body", "error", err)
	}
}

const maxJSONBody = 1 << 20

// decodeJSON reads a JSON body into dst. An empty body leaves dst untouched so
// that validation reports the missing fields.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(ct, "application/json") {
		return badRequest("Content-Type must be application/json")
	}

	decoder := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := decoder.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return badRequest("Invalid request body")
	}
	return nil
}

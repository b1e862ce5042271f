package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/vidtube/backend/internal/auth"
	"github.com/vidtube/backend/internal/media"
	"github.com/vidtube/backend/internal/repositories"
)

// APIError is an error with a client-facing status and message.
type APIError struct {
	Status  int
	Message string
	Errors  []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d: %s", e.Status, e.Message)
}

func badRequest(message string, fieldErrors ...string) *APIError {
	return &APIError{Status: http.StatusBadRequest, Message: message, Errors: fieldErrors}
}

func unauthorized(message string) *APIError {
	return &APIError{Status: http.StatusUnauthorized, Message: message}
}

func notFound(message string) *APIError {
	return &APIError{Status: http.StatusNotFound, Message: message}
}

func conflict(message string) *APIError {
	return &APIError{Status: http.StatusConflict, Message: message}
}

func internalError(message string) *APIError {
	return &APIError{Status: http.StatusInternalServerError, Message: message}
}

func tooManyRequests(message string) *APIError {
	return &APIError{Status: http.StatusTooManyRequests, Message: message}
}

// toAPIError maps err onto the error taxonomy. Unknown errors become a
// generic 500; their cause is logged by the caller, never returned.
func toAPIError(err error) *APIError {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.Is(err, repositories.ErrNotFound):
		return notFound("Resource not found")
	case errors.Is(err, repositories.ErrConflict):
		return conflict("Resource already exists")
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRefreshTokenMismatch):
		return unauthorized("Invalid or expired token")
	case errors.Is(err, auth.ErrRefreshTokenMissing):
		return unauthorized("Unauthorized request")
	case errors.Is(err, media.ErrFileTooLarge), errors.Is(err, media.ErrUnreadableMedia):
		return badRequest(err.Error())
	default:
		return internalError("Something went wrong")
	}
}

// orNotFound narrows a store error to a specific not-found message.
func orNotFound(err error, message string) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return notFound(message)
	}
	return err
}

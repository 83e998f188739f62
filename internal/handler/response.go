// Package handler contains the HTTP handlers of the analytics API.
//
// Handlers parse requests, call the service and write JSON. Every error goes
// through writeError so clients always get the same envelope:
//
//	{"error": "not_found", "message": "user not found with id 42"}
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/social-analytics/internal/apperror"
)

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`   // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"` // Human-readable description
}

// writeJSON sends a JSON response with the given status code. Headers must be
// set before WriteHeader; anything set afterwards is silently dropped.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are already sent; all we can do is log.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to an HTTP status and sends it.
//
// Input-data faults (schema, malformed cells, no posts) are 422: the request
// was fine but the source tables cannot be processed. Untyped errors are 500
// with a generic message so file paths and SQL never reach the client.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status, errorType := classify(err)
		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
		})
		return
	}

	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, apperror.ErrSchema):
		return http.StatusUnprocessableEntity, "schema_error"
	case errors.Is(err, apperror.ErrMalformedTimestamp):
		return http.StatusUnprocessableEntity, "malformed_timestamp"
	case errors.Is(err, apperror.ErrMalformedValue):
		return http.StatusUnprocessableEntity, "malformed_value"
	case errors.Is(err, apperror.ErrEmptyPostSet):
		return http.StatusUnprocessableEntity, "empty_post_set"
	}
	return http.StatusInternalServerError, "internal_error"
}

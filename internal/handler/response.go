package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/sakif/tap-to-earn/internal/apperror"
)

// ErrorResponse is the error envelope returned by every API endpoint.
// Error is a stable machine-readable code; Message is for humans.
type ErrorResponse struct {
	Error        string `json:"error"`
	Message      string `json:"message,omitempty"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"` // only on rate_limited
}

// writeJSON sends a JSON response with the given status code.
// Headers must be set before WriteHeader, and WriteHeader before the body.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			// Headers are gone by now; logging is all we can do.
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error onto the HTTP surface.
//
// The service layer speaks apperror sentinels, never status codes; the whole
// taxonomy-to-HTTP translation lives in this one switch:
//
//	validation → 400, auth → 403, not found → 404, rate limit → 429,
//	misconfiguration → 500 config_error, anything else → opaque 500.
//
// Rate-limit responses additionally carry retry_after_ms in the body and a
// Retry-After header (in whole seconds, rounded up, per RFC 9110).
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		switch {
		case errors.Is(err, apperror.ErrValidation):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "validation_error",
				Message: appErr.Message,
			})
		case errors.Is(err, apperror.ErrForbidden):
			writeJSON(w, http.StatusForbidden, ErrorResponse{
				Error:   "auth_error",
				Message: appErr.Message,
			})
		case errors.Is(err, apperror.ErrNotFound):
			writeJSON(w, http.StatusNotFound, ErrorResponse{
				Error:   "not_found",
				Message: appErr.Message,
			})
		case errors.Is(err, apperror.ErrRateLimited):
			retryMS := appErr.RetryAfter.Milliseconds()
			retrySec := (retryMS + 999) / 1000
			w.Header().Set("Retry-After", strconv.FormatInt(retrySec, 10))
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{
				Error:        "rate_limited",
				RetryAfterMS: retryMS,
			})
		case errors.Is(err, apperror.ErrConfig):
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:   "config_error",
				Message: appErr.Message,
			})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error:   "internal_error",
				Message: "An internal error occurred",
			})
		}
		return
	}

	// Unknown error — never leak internals (SQL, paths) to the client.
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

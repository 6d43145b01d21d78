package apperror

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrValidation  = errors.New("validation error")
	ErrForbidden   = errors.New("forbidden")
	ErrRateLimited = errors.New("rate limited")
	ErrConfig      = errors.New("server misconfiguration")
)

type AppError struct {
	Err        error         // sentinel, for errors.Is checks
	Message    string        // human-readable error message
	Field      string        // optional: request field causing the error
	RetryAfter time.Duration // only set for rate-limit errors
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NotFound(resource string, id int64) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %d", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

// Forbidden returns an AppError for an authentication failure.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// RateLimited returns an AppError carrying the time the caller has to wait
// before the next tap can be accepted. HTTP handlers map this to 429 and
// expose RetryAfter as retry_after_ms.
func RateLimited(retryAfter time.Duration) *AppError {
	return &AppError{
		Err:        ErrRateLimited,
		Message:    "tapping too fast",
		RetryAfter: retryAfter,
	}
}

// Config returns an AppError for a missing or invalid server-side setting.
// These always map to 500 — the server must fail loudly rather than degrade
// to accepting unverified requests.
func Config(message string) *AppError {
	return &AppError{
		Err:     ErrConfig,
		Message: message,
	}
}

package errors

import "net/http"

// Kind classifies an error for API consumers. The transport layer maps the
// kind to an HTTP status; retry logic keys off the kind, not the message.
type Kind string

const (
	KindBadRequest       Kind = "bad_request"
	KindUnauthorized     Kind = "unauthorized"
	KindNotFound         Kind = "not_found"
	KindInvalidState     Kind = "invalid_state"
	KindAlreadyProcessed Kind = "already_processed"
	KindCrossRegion      Kind = "cross_region"
	KindPartialFailure   Kind = "partial_failure"
	KindRateLimit        Kind = "rate_limit"
	KindInternal         Kind = "internal"
)

// AppError is a custom error type that includes an error kind and HTTP status code
type AppError struct {
	Kind    Kind   `json:"kind"`
	Code    int    `json:"-"`
	Message string `json:"message"`

	// Step names the sub-operation that failed inside a multi-step workflow.
	// Only set for partial_failure so callers can resume instead of restart.
	Step string `json:"step,omitempty"`
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates a new AppError
func NewAppError(kind Kind, code int, message string) *AppError {
	return &AppError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// Common errors
var (
	ErrInvalidRequest = NewAppError(KindBadRequest, http.StatusBadRequest, "Invalid request parameters")
	ErrUnauthorized   = NewAppError(KindUnauthorized, http.StatusUnauthorized, "Unauthorized access")
	ErrNotFound       = NewAppError(KindNotFound, http.StatusNotFound, "Resource not found")
	ErrInternalServer = NewAppError(KindInternal, http.StatusInternalServerError, "Internal server error")
	ErrRateLimit      = NewAppError(KindRateLimit, http.StatusTooManyRequests, "Rate limit exceeded")
)

// Helper functions to create specific errors
func BadRequest(msg string) *AppError {
	return NewAppError(KindBadRequest, http.StatusBadRequest, msg)
}

func NotFound(msg string) *AppError {
	return NewAppError(KindNotFound, http.StatusNotFound, msg)
}

func Unauthorized(msg string) *AppError {
	return NewAppError(KindUnauthorized, http.StatusForbidden, msg)
}

func InvalidState(msg string) *AppError {
	return NewAppError(KindInvalidState, http.StatusConflict, msg)
}

func AlreadyProcessed(msg string) *AppError {
	return NewAppError(KindAlreadyProcessed, http.StatusConflict, msg)
}

func CrossRegion(msg string) *AppError {
	return NewAppError(KindCrossRegion, http.StatusUnprocessableEntity, msg)
}

// PartialFailure reports a multi-step workflow that completed some steps.
// step names the first step that failed so the caller can retry from there.
func PartialFailure(step, msg string) *AppError {
	e := NewAppError(KindPartialFailure, http.StatusInternalServerError, msg)
	e.Step = step
	return e
}

func Internal(msg string) *AppError {
	return NewAppError(KindInternal, http.StatusInternalServerError, msg)
}

// KindOf extracts the kind from any error, defaulting to internal.
func KindOf(err error) Kind {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Kind
	}
	return KindInternal
}

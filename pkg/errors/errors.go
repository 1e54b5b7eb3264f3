package errors

import (
	"errors"
	"fmt"
	"net/http"
)

type AppError struct {
	Code    string
	Message string
	Status  int
	Err     error
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code string, message string, status int, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Status:  status,
		Err:     err,
	}
}

func NotFound(resource string, err error) *AppError {
	return &AppError{
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found", resource),
		Status:  http.StatusNotFound,
		Err:     err,
	}
}

func BadRequest(message string, err error) *AppError {
	return &AppError{
		Code:    "BAD_REQUEST",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     err,
	}
}

func Unauthorized(message string, err error) *AppError {
	return &AppError{
		Code:    "UNAUTHORIZED",
		Message: message,
		Status:  http.StatusUnauthorized,
		Err:     err,
	}
}

func Forbidden(message string, err error) *AppError {
	return &AppError{
		Code:    "FORBIDDEN",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     err,
	}
}

func Internal(message string, err error) *AppError {
	return &AppError{
		Code:    "INTERNAL_ERROR",
		Message: message,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// InvalidParticipants rejects a conversation whose participant set is not
// exactly two distinct user ids.
func InvalidParticipants(message string) *AppError {
	return &AppError{
		Code:    "INVALID_PARTICIPANTS",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// NotParticipant rejects an operation attempted by a user outside the
// conversation's participant set.
func NotParticipant(userID, conversationID string) *AppError {
	return &AppError{
		Code:    "NOT_PARTICIPANT",
		Message: fmt.Sprintf("user %s is not a participant of conversation %s", userID, conversationID),
		Status:  http.StatusForbidden,
	}
}

// InvalidMetadata rejects a structured message whose type-specific payload is
// missing or malformed.
func InvalidMetadata(message string) *AppError {
	return &AppError{
		Code:    "INVALID_METADATA",
		Message: message,
		Status:  http.StatusBadRequest,
	}
}

// StoreUnavailable wraps a transient persistence failure.
func StoreUnavailable(message string, err error) *AppError {
	return &AppError{
		Code:    "STORE_UNAVAILABLE",
		Message: message,
		Status:  http.StatusServiceUnavailable,
		Err:     err,
	}
}

// ConflictRetryExhausted reports that the conditional update on a conversation
// gave up after repeated contention.
func ConflictRetryExhausted(message string, err error) *AppError {
	return &AppError{
		Code:    "CONFLICT_RETRY_EXHAUSTED",
		Message: message,
		Status:  http.StatusConflict,
		Err:     err,
	}
}

func TooManyRequests(message string) *AppError {
	return &AppError{
		Code:    "TOO_MANY_REQUESTS",
		Message: message,
		Status:  http.StatusTooManyRequests,
	}
}

func Is(err error, code string) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}

package errors

import (
	"errors"
	"fmt"
	"net/http"

	"screenpipe/internal/core/domain"
)

// ErrorCode represents application error codes
type ErrorCode string

const (
	ErrCodePermissionDenied    ErrorCode = "PERMISSION_DENIED"
	ErrCodeNoDisplay           ErrorCode = "NO_DISPLAY"
	ErrCodeNoDestination       ErrorCode = "NO_DESTINATION"
	ErrCodeAlreadyInProgress   ErrorCode = "ALREADY_IN_PROGRESS"
	ErrCodeNotInProgress       ErrorCode = "NOT_IN_PROGRESS"
	ErrCodeInvalidState        ErrorCode = "INVALID_STATE"
	ErrCodeSetupFailed         ErrorCode = "SETUP_FAILED"
	ErrCodeWriteFailed         ErrorCode = "WRITE_FAILED"
	ErrCodeCancelled           ErrorCode = "CANCELLED"
	ErrCodeDisplayReconfigured ErrorCode = "DISPLAY_RECONFIGURED"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"
	ErrCodeInternal            ErrorCode = "INTERNAL_ERROR"
)

// AppError represents an application error with code and context
type AppError struct {
	Code       ErrorCode
	Message    string
	HTTPStatus int
	Cause      error
}

// Error implements error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// WrapError wraps an existing error with application error
func WrapError(err error, code ErrorCode, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Cause:      err,
	}
}

func NewInvalidInputError(message string) *AppError {
	return NewAppError(ErrCodeInvalidInput, message, http.StatusBadRequest)
}

func NewInternalError(message string) *AppError {
	return NewAppError(ErrCodeInternal, message, http.StatusInternalServerError)
}

// FromDomain maps the capture error taxonomy onto application errors so
// callers can offer targeted remediation (permission prompt, destination
// picker) instead of a generic failure.
func FromDomain(err error) *AppError {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrPermissionDenied):
		return WrapError(err, ErrCodePermissionDenied, "screen capture permission denied", http.StatusForbidden)
	case errors.Is(err, domain.ErrNoDisplay):
		return WrapError(err, ErrCodeNoDisplay, "no display available", http.StatusPreconditionFailed)
	case errors.Is(err, domain.ErrNoDestination):
		return WrapError(err, ErrCodeNoDestination, "no destination path provided", http.StatusBadRequest)
	case errors.Is(err, domain.ErrCaptureInProgress), errors.Is(err, domain.ErrAlreadyRecording):
		return WrapError(err, ErrCodeAlreadyInProgress, "a session is already in progress", http.StatusConflict)
	case errors.Is(err, domain.ErrNotRecording):
		return WrapError(err, ErrCodeNotInProgress, "no recording in progress", http.StatusConflict)
	case errors.Is(err, domain.ErrInvalidState):
		return WrapError(err, ErrCodeInvalidState, "operation not valid in current state", http.StatusConflict)
	case errors.Is(err, domain.ErrSetupFailed):
		return WrapError(err, ErrCodeSetupFailed, "encoder setup failed", http.StatusInternalServerError)
	case errors.Is(err, domain.ErrWriteFailed):
		return WrapError(err, ErrCodeWriteFailed, "media write failed", http.StatusInternalServerError)
	case errors.Is(err, domain.ErrCancelled):
		return WrapError(err, ErrCodeCancelled, "capture cancelled", http.StatusConflict)
	case errors.Is(err, domain.ErrDisplayReconfigured):
		return WrapError(err, ErrCodeDisplayReconfigured, "display configuration changed", http.StatusConflict)
	default:
		return WrapError(err, ErrCodeInternal, "internal error", http.StatusInternalServerError)
	}
}

// IsAppError checks if error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError extracts AppError from error chain
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return nil
}

package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data caught before any request is made.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeAuth indicates the auth provider rejected a sign-in or sign-up.
	ErrCodeAuth ErrorCode = "auth"
	// ErrCodeUnauthorized indicates a request was made without a usable session.
	ErrCodeUnauthorized ErrorCode = "unauthorized"
	// ErrCodeDataService indicates the data service rejected a request.
	ErrCodeDataService ErrorCode = "data_service"
	// ErrCodeConfiguration indicates missing or unusable startup configuration.
	ErrCodeConfiguration ErrorCode = "configuration"
	// ErrCodeRateLimited indicates the caller exceeded an attempt budget.
	ErrCodeRateLimited ErrorCode = "rate_limited"
	// ErrCodeInternal indicates an internal error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError { return newError(ErrCodeNotFound, message) }

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError { return newError(ErrCodeConflict, message) }

// Validation creates a new Validation error.
func Validation(message string) *AppError { return newError(ErrCodeValidation, message) }

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{
		Code:    ErrCodeValidation,
		Message: message,
		Field:   field,
	}
}

// Auth creates an auth error whose Message is safe to show to the user.
func Auth(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeAuth, Message: message, Cause: cause}
}

// Unauthorized creates a new Unauthorized error.
func Unauthorized(message string) *AppError { return newError(ErrCodeUnauthorized, message) }

// DataService wraps a data service failure. The message is for logs, not for users.
func DataService(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeDataService, Message: message, Cause: cause}
}

// Configuration creates a new Configuration error.
func Configuration(message string) *AppError { return newError(ErrCodeConfiguration, message) }

// ConfigurationWithCause creates a Configuration error that keeps the parse failure.
func ConfigurationWithCause(message string, cause error) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: message, Cause: cause}
}

// RateLimited creates a new RateLimited error.
func RateLimited(message string) *AppError { return newError(ErrCodeRateLimited, message) }

// Internal creates a new Internal error.
func Internal(message string) *AppError { return newError(ErrCodeInternal, message) }

// Internalf creates a new Internal error with formatted message.
func Internalf(format string, args ...any) *AppError {
	return newError(ErrCodeInternal, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	return Wrap(err, code, fmt.Sprintf(format, args...))
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsAuth checks if an error is an Auth error.
func IsAuth(err error) bool { return isCode(err, ErrCodeAuth) }

// IsUnauthorized checks if an error is an Unauthorized error.
func IsUnauthorized(err error) bool { return isCode(err, ErrCodeUnauthorized) }

// IsDataService checks if an error is a DataService error.
func IsDataService(err error) bool { return isCode(err, ErrCodeDataService) }

// IsConfiguration checks if an error is a Configuration error.
func IsConfiguration(err error) bool { return isCode(err, ErrCodeConfiguration) }

// IsRateLimited checks if an error is a RateLimited error.
func IsRateLimited(err error) bool { return isCode(err, ErrCodeRateLimited) }

// IsInternal checks if an error is an Internal error.
func IsInternal(err error) bool { return isCode(err, ErrCodeInternal) }

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool { return isCode(err, ErrCodeTimeout) }

// IsCanceled checks if an error is a Canceled error.
func IsCanceled(err error) bool { return isCode(err, ErrCodeCanceled) }

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}

// UserMessage returns the AppError message, or fallback when err carries none.
func UserMessage(err error, fallback string) string {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return fallback
}

package channels

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a collector failure for health metrics and for the
// Reconnector's keep-retrying-or-give-up decision.
type ErrorCode string

const (
	// ErrCodeConnection is a transport failure: the platform is reachable
	// again after a reconnect.
	ErrCodeConnection ErrorCode = "CONNECTION_ERROR"

	// ErrCodeAuthentication is a rejected credential: a revoked Telegram
	// session token, a bad webhook signature. Reconnecting cannot fix it.
	ErrCodeAuthentication ErrorCode = "AUTH_ERROR"

	// ErrCodeRateLimit is an upstream throttle; retry after backoff.
	ErrCodeRateLimit ErrorCode = "RATE_LIMIT_ERROR"

	// ErrCodeInvalidInput is a malformed payload the platform delivered.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"

	// ErrCodeNotFound is a missing channel, chat, or dialog.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"

	// ErrCodeTimeout is an expired deadline on a platform call.
	ErrCodeTimeout ErrorCode = "TIMEOUT_ERROR"

	// ErrCodeInternal is an unexpected collector-side fault.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"

	// ErrCodeUnavailable is a transient platform outage.
	ErrCodeUnavailable ErrorCode = "SERVICE_UNAVAILABLE"

	// ErrCodeConfig is a bad collector configuration.
	ErrCodeConfig ErrorCode = "CONFIG_ERROR"
)

// Error is a collector failure carrying its classification, so the
// Reconnector and health metrics can act on the code while the message and
// wrapped cause stay intact for logs.
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError wraps err as a classified collector Error.
func NewError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// ErrAuthentication classifies a rejected credential.
func ErrAuthentication(message string, err error) *Error {
	return NewError(ErrCodeAuthentication, message, err)
}

// ErrConnection classifies a transport failure.
func ErrConnection(message string, err error) *Error {
	return NewError(ErrCodeConnection, message, err)
}

// ErrRateLimit classifies an upstream throttle.
func ErrRateLimit(message string, err error) *Error {
	return NewError(ErrCodeRateLimit, message, err)
}

// IsRetryable reports whether the failure may heal on its own: throttles,
// timeouts, outages, and dropped connections do; rejected credentials and
// bad configuration do not.
func (e *Error) IsRetryable() bool {
	switch e.Code {
	case ErrCodeRateLimit, ErrCodeTimeout, ErrCodeUnavailable, ErrCodeConnection:
		return true
	default:
		return false
	}
}

// GetErrorCode extracts the ErrorCode from err, or ErrCodeInternal when err
// carries no classification.
func GetErrorCode(err error) ErrorCode {
	var chErr *Error
	if errors.As(err, &chErr) {
		return chErr.Code
	}
	return ErrCodeInternal
}

// IsRetryable reports whether err is a classified, retryable collector
// failure. Unclassified errors report false; the Reconnector treats them as
// retryable transport faults anyway, so classification only matters for the
// failures that must stop the loop.
func IsRetryable(err error) bool {
	var chErr *Error
	if errors.As(err, &chErr) {
		return chErr.IsRetryable()
	}
	return false
}

package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a provider failure into the wire taxonomy the agent
// graph's decide/generate nodes reason about: Timeout, AuthError,
// RateLimited, BadRequest, or the catch-all ProviderError for anything else
// (billing holds, content-safety blocks, model unavailability, 5xx).
type ErrorKind string

const (
	// KindTimeout means the request exceeded its deadline or the transport
	// timed out before a response arrived.
	KindTimeout ErrorKind = "Timeout"

	// KindAuthError means the provider rejected the request's credentials
	// (HTTP 401/403, an invalid or revoked API key).
	KindAuthError ErrorKind = "AuthError"

	// KindRateLimited means the provider throttled the request (HTTP 429).
	KindRateLimited ErrorKind = "RateLimited"

	// KindBadRequest means the request itself was malformed (HTTP 400) —
	// retrying unmodified will fail the same way every time.
	KindBadRequest ErrorKind = "BadRequest"

	// KindProviderError is the catch-all for everything that doesn't fit the
	// four classes above: billing/quota holds, content-safety blocks, model
	// unavailability, and 5xx server errors.
	KindProviderError ErrorKind = "ProviderError"
)

// IsRetryable reports whether a failure of this kind is worth retrying
// against the same provider. Billing holds, auth failures, and malformed
// requests won't resolve themselves on a second attempt.
func (k ErrorKind) IsRetryable() bool {
	switch k {
	case KindRateLimited, KindTimeout:
		return true
	default:
		return false
	}
}

// ShouldFailover reports whether this failure warrants routing the request
// to a different configured provider rather than retrying the same one.
func (k ErrorKind) ShouldFailover() bool {
	switch k {
	case KindAuthError, KindProviderError:
		return true
	default:
		return false
	}
}

// ProviderError is the structured failure returned by every
// providers.LLMProvider implementation, carrying enough context for the
// failover chain and audit log to explain why a completion call failed.
type ProviderError struct {
	// Kind is the wire-level error classification.
	Kind ErrorKind

	// Provider is the provider name (e.g. "anthropic", "openai").
	Provider string

	// Model is the model that was requested.
	Model string

	// Status is the HTTP status code, if applicable.
	Status int

	// Code is the provider-specific error code.
	Code string

	// Message is the human-readable error message.
	Message string

	// RequestID is the provider's request ID, logged for support escalation.
	RequestID string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	var parts []string

	parts = append(parts, fmt.Sprintf("[%s]", e.Kind))

	if e.Provider != "" {
		parts = append(parts, e.Provider)
	}

	if e.Model != "" {
		parts = append(parts, fmt.Sprintf("model=%s", e.Model))
	}

	if e.Status != 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.Status))
	}

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("code=%s", e.Code))
	}

	if e.Message != "" {
		parts = append(parts, e.Message)
	} else if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, " ")
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError wraps cause as a ProviderError for provider/model,
// classifying it from the error text.
func NewProviderError(provider, model string, cause error) *ProviderError {
	err := &ProviderError{
		Provider: provider,
		Model:    model,
		Cause:    cause,
		Kind:     KindProviderError,
	}

	if cause != nil {
		err.Message = cause.Error()
		err.Kind = ClassifyError(cause)
	}

	return err
}

// WithStatus attaches the HTTP status code and reclassifies the error kind
// from it.
func (e *ProviderError) WithStatus(status int) *ProviderError {
	e.Status = status
	e.Kind = classifyStatusCode(status)
	return e
}

// WithCode attaches a provider-specific error code and reclassifies if the
// code is recognized.
func (e *ProviderError) WithCode(code string) *ProviderError {
	e.Code = code
	if kind := classifyErrorCode(code); kind != KindProviderError {
		e.Kind = kind
	}
	return e
}

// WithRequestID attaches the provider's request ID.
func (e *ProviderError) WithRequestID(id string) *ProviderError {
	e.RequestID = id
	return e
}

// WithMessage sets the error message.
func (e *ProviderError) WithMessage(msg string) *ProviderError {
	e.Message = msg
	return e
}

// ClassifyError inspects an error's text and returns its ErrorKind. Used
// when a provider SDK returns a bare error with no structured status/code.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return KindProviderError
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "context deadline") ||
		strings.Contains(errStr, "etimedout") {
		return KindTimeout
	}

	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "rate_limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") {
		return KindRateLimited
	}

	if strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "invalid api key") ||
		strings.Contains(errStr, "invalid_api_key") ||
		strings.Contains(errStr, "authentication") ||
		strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "403") {
		return KindAuthError
	}

	if strings.Contains(errStr, "invalid_request") ||
		strings.Contains(errStr, "invalid request") ||
		strings.Contains(errStr, "bad request") ||
		strings.Contains(errStr, "400") {
		return KindBadRequest
	}

	// Billing holds, content-safety blocks, model unavailability, and 5xx
	// server errors all fall through to the catch-all provider-error kind;
	// Code/Status carry the finer-grained reason for the audit log.
	return KindProviderError
}

// classifyStatusCode maps an HTTP status code to an ErrorKind.
func classifyStatusCode(status int) ErrorKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuthError
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status == http.StatusBadRequest:
		return KindBadRequest
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindProviderError
	}
}

// classifyErrorCode maps a provider-specific error code to an ErrorKind.
func classifyErrorCode(code string) ErrorKind {
	switch strings.ToLower(code) {
	case "rate_limit_error", "rate_limit_exceeded":
		return KindRateLimited
	case "authentication_error", "invalid_api_key":
		return KindAuthError
	case "invalid_request_error":
		return KindBadRequest
	case "timeout", "request_timeout":
		return KindTimeout
	default:
		return KindProviderError
	}
}

// IsProviderError reports whether err is (or wraps) a *ProviderError.
func IsProviderError(err error) bool {
	var providerErr *ProviderError
	return errors.As(err, &providerErr)
}

// GetProviderError extracts a *ProviderError from err's chain.
func GetProviderError(err error) (*ProviderError, bool) {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr, true
	}
	return nil, false
}

// IsRetryable reports whether err should be retried against the same
// provider.
func IsRetryable(err error) bool {
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Kind.IsRetryable()
	}
	return ClassifyError(err).IsRetryable()
}

// ShouldFailover reports whether err warrants trying a different provider.
func ShouldFailover(err error) bool {
	if providerErr, ok := GetProviderError(err); ok {
		return providerErr.Kind.ShouldFailover()
	}
	return ClassifyError(err).ShouldFailover()
}

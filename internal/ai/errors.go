package ai

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents the type of provider-related error
type ErrorType string

const (
	// ErrTypeProvider indicates generic provider-side errors
	ErrTypeProvider ErrorType = "provider"

	// ErrTypeConfiguration indicates configuration errors; never retried
	ErrTypeConfiguration ErrorType = "configuration"

	// ErrTypeAuthentication indicates authentication errors
	ErrTypeAuthentication ErrorType = "authentication"

	// ErrTypeRateLimit indicates rate limiting errors
	ErrTypeRateLimit ErrorType = "rate_limit"

	// ErrTypeNetwork indicates network-related errors
	ErrTypeNetwork ErrorType = "network"

	// ErrTypeTimeout indicates timeout errors
	ErrTypeTimeout ErrorType = "timeout"

	// ErrTypeValidation indicates input validation errors
	ErrTypeValidation ErrorType = "validation"

	// ErrTypeInternal indicates internal errors
	ErrTypeInternal ErrorType = "internal"
)

// ProviderError represents errors raised by embedding/generation providers.
type ProviderError struct {
	// Type categorizes the error
	Type ErrorType `json:"type"`

	// Message provides a human-readable description. It must not embed raw
	// provider response bodies; those stay in Cause for logs only.
	Message string `json:"message"`

	// Provider indicates which provider raised the error
	Provider string `json:"provider,omitempty"`

	// StatusCode for HTTP-related errors
	StatusCode int `json:"status_code,omitempty"`

	// Cause is the underlying error
	Cause error `json:"-"`

	// Retryable indicates if the operation can be retried
	Retryable bool `json:"retryable"`

	// RetryAfter suggests a delay in seconds (for rate limiting)
	RetryAfter int `json:"retry_after,omitempty"`
}

func (e *ProviderError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, fmt.Sprintf("provider=%s", e.Provider))
	}
	parts = append(parts, fmt.Sprintf("type=%s", e.Type))
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying error
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches on error type so callers can test categories with errors.Is
func (e *ProviderError) Is(target error) bool {
	if pe, ok := target.(*ProviderError); ok {
		return e.Type == pe.Type
	}
	return false
}

// NewProviderError creates a new provider error
func NewProviderError(errType ErrorType, message, provider string) *ProviderError {
	return &ProviderError{
		Type:      errType,
		Message:   message,
		Provider:  provider,
		Retryable: isRetryableType(errType),
	}
}

// NewProviderErrorWithCause creates a provider error with an underlying cause
func NewProviderErrorWithCause(errType ErrorType, message, provider string, cause error) *ProviderError {
	return &ProviderError{
		Type:      errType,
		Message:   message,
		Provider:  provider,
		Cause:     cause,
		Retryable: isRetryableType(errType),
	}
}

// NewConfigurationError creates a configuration error for a provider field
func NewConfigurationError(provider, field, message string) *ProviderError {
	return &ProviderError{
		Type:     ErrTypeConfiguration,
		Message:  fmt.Sprintf("field %q: %s", field, message),
		Provider: provider,
	}
}

func isRetryableType(errType ErrorType) bool {
	switch errType {
	case ErrTypeRateLimit, ErrTypeTimeout, ErrTypeNetwork:
		return true
	default:
		return false
	}
}

// IsRetryable reports whether err is a transient provider error worth
// another attempt within the retry budget.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// EmbeddingFailure is surfaced when the retry budget for an embedding call
// is exhausted. Offset is the index of the first input text in the failing
// batch, letting the ingest path report the offending chunk.
type EmbeddingFailure struct {
	Provider string
	Offset   int
	Attempts int
	Cause    error
}

func (e *EmbeddingFailure) Error() string {
	return fmt.Sprintf("embedding failed on provider %q after %d attempts (input offset %d): %v",
		e.Provider, e.Attempts, e.Offset, e.Cause)
}

func (e *EmbeddingFailure) Unwrap() error {
	return e.Cause
}

// GenerationFailure is surfaced when the retry budget for an answer
// generation call is exhausted. The pipeline must not fabricate an answer
// when it sees one.
type GenerationFailure struct {
	Provider string
	Attempts int
	Cause    error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("generation failed on provider %q after %d attempts: %v",
		e.Provider, e.Attempts, e.Cause)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Cause
}

// Package errors implements the closed, coded error taxonomy shared by
// every component of the memory engine and tool orchestrator. Every error
// that crosses a component boundary carries one of the Kind values in
// codes.go, a human message, and reports whether a caller may retry it.
package errors

import (
	"fmt"
)

// AgentError is the structured error type for the memory engine and tool
// orchestrator. It provides rich context for logging and error-kind
// dispatch without callers needing a type switch.
type AgentError struct {
	// Kind is the closed error category (DimensionMismatch, NotFound, ...).
	Kind Kind

	// Message is the human-readable error message.
	Message string

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool
}

// Error implements the error interface.
func (e *AgentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *AgentError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches the target error by kind.
// This enables errors.Is() to work with AgentError.
func (e *AgentError) Is(target error) bool {
	if t, ok := target.(*AgentError); ok {
		return e.Kind == t.Kind
	}
	return false
}

// WithDetail adds a key-value detail to the error.
// Returns the error for method chaining.
func (e *AgentError) WithDetail(key, value string) *AgentError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// New creates a new AgentError of the given kind with a formatted message.
// Retryable is derived from the kind (see retryableKinds in codes.go).
func New(kind Kind, format string, args ...any) *AgentError {
	return &AgentError{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Retryable: retryableKinds[kind],
	}
}

// Wrap creates an AgentError of the given kind wrapping an existing error.
func Wrap(kind Kind, cause error, format string, args ...any) *AgentError {
	if cause == nil {
		return nil
	}
	return &AgentError{
		Kind:      kind,
		Message:   fmt.Sprintf(format, args...),
		Cause:     cause,
		Retryable: retryableKinds[kind],
	}
}

// DimensionMismatch builds a KindDimensionMismatch error.
func DimensionMismatch(expected, got int) *AgentError {
	return New(KindDimensionMismatch, "expected dimension %d, got %d", expected, got).
		WithDetail("expected", fmt.Sprint(expected)).
		WithDetail("got", fmt.Sprint(got))
}

// EmbeddingUnavailable builds a KindEmbeddingUnavailable error.
func EmbeddingUnavailable(cause error) *AgentError {
	return Wrap(KindEmbeddingUnavailable, cause, "embedding provider unavailable")
}

// NotFound builds a KindNotFound error for the given id.
func NotFound(id string) *AgentError {
	return New(KindNotFound, "record %s not found", id)
}

// InvalidRecord builds a KindInvalidRecord error.
func InvalidRecord(cause error) *AgentError {
	return Wrap(KindInvalidRecord, cause, "invalid record")
}

// TierViolation builds a KindTierViolation error.
func TierViolation(format string, args ...any) *AgentError {
	return New(KindTierViolation, format, args...)
}

// CapabilityDenied builds a KindCapabilityDenied error.
func CapabilityDenied(tool, capability string) *AgentError {
	return New(KindCapabilityDenied, "tool %q lacks capability %q", tool, capability).
		WithDetail("tool", tool).
		WithDetail("capability", capability)
}

// ResourceExhausted builds a KindResourceExhausted error.
func ResourceExhausted(format string, args ...any) *AgentError {
	return New(KindResourceExhausted, format, args...)
}

// Timeout builds a KindTimeout error.
func Timeout(cause error) *AgentError {
	return Wrap(KindTimeout, cause, "operation timed out")
}

// Transient builds a KindTransient retryable error.
func Transient(cause error) *AgentError {
	return Wrap(KindTransient, cause, "transient failure")
}

// Fatal builds a KindFatal error: the DI core should stop and the owning
// component should report Down health.
func Fatal(cause error) *AgentError {
	return Wrap(KindFatal, cause, "fatal error")
}

// IsRetryable checks if an error is retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if ae, ok := err.(*AgentError); ok {
		return ae.Retryable
	}
	return false
}

// IsFatal checks if an error has the Fatal kind.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	if ae, ok := err.(*AgentError); ok {
		return ae.Kind == KindFatal
	}
	return false
}

// GetKind extracts the error kind from an AgentError.
// Returns the empty Kind if not an AgentError.
func GetKind(err error) Kind {
	if ae, ok := err.(*AgentError); ok {
		return ae.Kind
	}
	return ""
}

package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	agentErr := Wrap(KindNotFound, originalErr, "lookup failed")

	require.NotNil(t, agentErr)
	assert.Equal(t, originalErr, errors.Unwrap(agentErr))
	assert.True(t, errors.Is(agentErr, originalErr))
}

func TestAgentError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		kind     Kind
		message  string
		expected string
	}{
		{
			name:     "not found",
			kind:     KindNotFound,
			message:  "record abc not found",
			expected: "[not_found] record abc not found",
		},
		{
			name:     "dimension mismatch",
			kind:     KindDimensionMismatch,
			message:  "expected dimension 768, got 384",
			expected: "[dimension_mismatch] expected dimension 768, got 384",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.kind, "%s", tt.message)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestAgentError_Is_MatchesByKind(t *testing.T) {
	err1 := New(KindNotFound, "record A not found")
	err2 := New(KindNotFound, "record B not found")

	assert.True(t, errors.Is(err1, err2))
}

func TestAgentError_Is_DoesNotMatchDifferentKinds(t *testing.T) {
	err1 := New(KindNotFound, "not found")
	err2 := New(KindTimeout, "timed out")

	assert.False(t, errors.Is(err1, err2))
}

func TestAgentError_WithDetail_AddsContext(t *testing.T) {
	err := New(KindNotFound, "file not found")

	err = err.WithDetail("path", "/foo/bar.go")
	err = err.WithDetail("size", "1024")

	assert.Equal(t, "/foo/bar.go", err.Details["path"])
	assert.Equal(t, "1024", err.Details["size"])
}

func TestDimensionMismatchHelper(t *testing.T) {
	err := DimensionMismatch(768, 384)
	assert.Equal(t, KindDimensionMismatch, err.Kind)
	assert.Equal(t, "768", err.Details["expected"])
	assert.Equal(t, "384", err.Details["got"])
}

func TestCapabilityDeniedHelper(t *testing.T) {
	err := CapabilityDenied("shell_exec", "network")
	assert.Equal(t, KindCapabilityDenied, err.Kind)
	assert.False(t, err.Retryable)
}

func TestWrap_CreatesAgentErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	agentErr := Wrap(KindFatal, originalErr, "startup failed")

	require.NotNil(t, agentErr)
	assert.Equal(t, KindFatal, agentErr.Kind)
	assert.Equal(t, "startup failed", agentErr.Message)
	assert.Equal(t, originalErr, agentErr.Cause)
}

func TestWrap_NilCauseReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(KindFatal, nil, "x"))
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"retryable transient", Transient(errors.New("flake")), true},
		{"retryable timeout", Timeout(errors.New("deadline")), true},
		{"non-retryable not found", New(KindNotFound, "gone"), false},
		{"standard error", errors.New("standard error"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalKind(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"fatal error", Fatal(errors.New("disk gone")), true},
		{"non-fatal error", New(KindNotFound, "not found"), false},
		{"standard error", errors.New("standard error"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}

func TestGetKind(t *testing.T) {
	assert.Equal(t, KindTimeout, GetKind(Timeout(errors.New("x"))))
	assert.Equal(t, Kind(""), GetKind(errors.New("plain")))
}

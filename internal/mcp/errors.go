// Package mcp implements the Model Context Protocol server that exposes the
// memory engine and tool orchestrator to MCP clients.
package mcp

import (
	"context"
	"errors"
	"fmt"

	agenterrors "github.com/magray-run/agentcore/internal/errors"
)

// Custom MCP error codes, reserved in the -320xx application range below
// the standard JSON-RPC codes.
const (
	// ErrCodeNotFound indicates the requested record or tool does not exist.
	ErrCodeNotFound = -32001
	// ErrCodeEmbeddingUnavailable indicates no embedding backend could serve
	// the request.
	ErrCodeEmbeddingUnavailable = -32002
	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003
	// ErrCodeCapabilityDenied indicates a tool invocation exceeded its
	// manifest's declared capabilities.
	ErrCodeCapabilityDenied = -32004
	// ErrCodeResourceExhausted indicates a pool, budget, or semaphore is
	// saturated.
	ErrCodeResourceExhausted = -32005

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for validation failures raised inside this package,
// before any call reaches the memory engine or tool registry.
var (
	ErrToolNotFound  = errors.New("tool not found")
	ErrInvalidParams = errors.New("invalid parameters")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts errors raised by the memory engine and tool orchestrator
// into MCP protocol errors. Anything carrying an AgentError is mapped by
// Kind; everything else falls back to context/sentinel checks, then to a
// bare internal error.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var ae *agenterrors.AgentError
	if errors.As(err, &ae) {
		return mapAgentError(ae)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "request timed out"}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "request was canceled"}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "tool not found"}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: err.Error()}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "internal server error"}
	}
}

// mapAgentError maps an AgentError's Kind onto the MCP error code space.
func mapAgentError(ae *agenterrors.AgentError) *MCPError {
	switch ae.Kind {
	case agenterrors.KindNotFound:
		return &MCPError{Code: ErrCodeNotFound, Message: ae.Message}
	case agenterrors.KindEmbeddingUnavailable:
		return &MCPError{Code: ErrCodeEmbeddingUnavailable, Message: ae.Message}
	case agenterrors.KindDimensionMismatch, agenterrors.KindInvalidRecord:
		return &MCPError{Code: ErrCodeInvalidParams, Message: ae.Message}
	case agenterrors.KindTierViolation:
		return &MCPError{Code: ErrCodeInvalidParams, Message: ae.Message}
	case agenterrors.KindCapabilityDenied:
		return &MCPError{Code: ErrCodeCapabilityDenied, Message: ae.Message}
	case agenterrors.KindResourceExhausted:
		return &MCPError{Code: ErrCodeResourceExhausted, Message: ae.Message}
	case agenterrors.KindTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: ae.Message}
	case agenterrors.KindTransient:
		return &MCPError{Code: ErrCodeInternalError, Message: ae.Message}
	default: // KindFatal and anything unrecognized
		return &MCPError{Code: ErrCodeInternalError, Message: ae.Message}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a
// custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{Code: ErrCodeInvalidParams, Message: msg}
}

// NewMethodNotFoundError creates an error for an unknown tool name.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{Code: ErrCodeMethodNotFound, Message: fmt.Sprintf("tool %q not found", name)}
}

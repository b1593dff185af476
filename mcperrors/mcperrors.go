// Package mcperrors defines the core's one domain error type, DomainError, adapted from the
// teacher's svrcore.ServerError: a typed error carrying a JSON-RPC error code and message,
// produced by handlers and translated by the session dispatcher into a wire Error response.
// Tool execution errors are deliberately NOT modeled here -- per SPEC_FULL.md §7 they are
// carried inside a ToolCallResult with IsError=true, never raised as a DomainError.
package mcperrors

import (
	"fmt"

	"github.com/jrichter-oss/mcpcore/jsonrpc"
)

// DomainError is raised by session/server-role code and translated by the dispatcher into a
// JSON-RPC Error response with the same Code and Message.
type DomainError struct {
	Code    int
	Message string
	// Data, if set, is marshaled verbatim into the wire error's "data" field.
	Data any
}

func New(code int, messageFmt string, a ...any) *DomainError {
	return &DomainError{Code: code, Message: fmt.Sprintf(messageFmt, a...)}
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("mcp error %d: %s", e.Code, e.Message)
}

// ParseError, InvalidRequest, MethodNotFound, InvalidParams, Internal construct DomainErrors
// pre-populated with the matching reserved JSON-RPC code.
func ParseError(messageFmt string, a ...any) *DomainError {
	return New(jsonrpc.CodeParseError, messageFmt, a...)
}
func InvalidRequest(messageFmt string, a ...any) *DomainError {
	return New(jsonrpc.CodeInvalidRequest, messageFmt, a...)
}
func MethodNotFound(method string) *DomainError {
	return New(jsonrpc.CodeMethodNotFound, "method not found: %s", method)
}
func InvalidParams(messageFmt string, a ...any) *DomainError {
	return New(jsonrpc.CodeInvalidParams, messageFmt, a...)
}
func Internal(messageFmt string, a ...any) *DomainError {
	return New(jsonrpc.CodeInternalError, messageFmt, a...)
}

// CapabilityNotAdvertised is raised locally when code would send a message exercising a
// capability the peer never advertised. Per SPEC_FULL.md §7 this never crosses the wire as a
// JSON-RPC error when the caller is at fault -- it is a local, pre-send guard.
type CapabilityNotAdvertised struct {
	Capability string
}

func (e *CapabilityNotAdvertised) Error() string {
	return fmt.Sprintf("mcp: peer did not advertise capability %q", e.Capability)
}

// Cancelled marks a pending request rejected by cancellation (local or peer-initiated). Per
// SPEC_FULL.md §7 this is not an error condition for protocol purposes, but Go's error-return
// idiom still needs a sentinel to distinguish it from a wire Error.
type Cancelled struct {
	Reason string
}

func (e *Cancelled) Error() string {
	if e.Reason == "" {
		return "mcp: request cancelled"
	}
	return fmt.Sprintf("mcp: request cancelled: %s", e.Reason)
}

// ConnectionLost marks a pending request rejected because its transport closed before a
// response arrived.
type ConnectionLost struct{}

func (*ConnectionLost) Error() string { return "mcp: connection lost before response received" }

// SessionClosed is returned to callers attempting to use a disposed session.
type SessionClosed struct{}

func (*SessionClosed) Error() string { return "mcp: session is closed" }

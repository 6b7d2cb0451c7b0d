package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// RootNotConfigured indicates the project has no document root set
	RootNotConfigured ErrorCode = "ROOT_NOT_CONFIGURED"
	// RootInvalid indicates the configured root is missing or not a directory
	RootInvalid ErrorCode = "ROOT_INVALID"
	// PathEscape indicates a resolved path left the sandbox root
	PathEscape ErrorCode = "PATH_ESCAPE"
	// ScopeInvalid indicates invalid scope parameters
	ScopeInvalid ErrorCode = "SCOPE_INVALID"
	// AnchorNotFound indicates an anchor matched no line
	AnchorNotFound ErrorCode = "ANCHOR_NOT_FOUND"
	// OccurrenceOutOfRange indicates an nth occurrence beyond the match count
	OccurrenceOutOfRange ErrorCode = "OCCURRENCE_OUT_OF_RANGE"
	// InvalidRange indicates a line range outside the file or inverted
	InvalidRange ErrorCode = "INVALID_RANGE"
	// AmbiguousRange indicates an edit whose extent cannot be determined safely
	AmbiguousRange ErrorCode = "AMBIGUOUS_RANGE"
	// RegexError indicates a pattern failed to compile
	RegexError ErrorCode = "REGEX_ERROR"
	// FileNotFound indicates the target file does not exist
	FileNotFound ErrorCode = "FILE_NOT_FOUND"
	// ProjectNotFound indicates an unknown project identifier
	ProjectNotFound ErrorCode = "PROJECT_NOT_FOUND"
	// InvalidParameter indicates a malformed tool argument
	InvalidParameter ErrorCode = "INVALID_PARAMETER"
	// InternalError indicates an unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// ToolError represents a toolkit error with a stable code and message.
// It crosses the tool boundary as data; the orchestrator decides whether
// and how to re-issue the call.
type ToolError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new ToolError
func New(code ErrorCode, message string) *ToolError {
	return &ToolError{Code: code, Message: message}
}

// Wrap creates a new ToolError wrapping a cause
func Wrap(code ErrorCode, message string, cause error) *ToolError {
	return &ToolError{Code: code, Message: message, cause: cause}
}

// Error implements the error interface
func (e *ToolError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ToolError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *ToolError) WithDetails(details interface{}) *ToolError {
	e.Details = details
	return e
}

// CodeOf extracts the stable code from any error. Non-ToolError values
// map to InternalError so the envelope always carries a code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	if te, ok := err.(*ToolError); ok {
		return te.Code
	}
	return InternalError
}

// NewInvalidParameterError reports a missing or malformed tool argument.
func NewInvalidParameterError(name, detail string) *ToolError {
	msg := fmt.Sprintf("missing or invalid parameter '%s'", name)
	if detail != "" {
		msg += ": " + detail
	}
	return New(InvalidParameter, msg)
}

// NewPathEscapeError reports a path resolving outside the sandbox root.
func NewPathEscapeError(got, root string) *ToolError {
	return New(PathEscape, fmt.Sprintf("path must be under the project root (got: %s, root: %s)", got, root))
}

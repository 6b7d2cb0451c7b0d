// Package envelope provides a standardized response wrapper for all
// tool responses. Every result crosses the boundary as one
// self-describing document; failures travel in the error field as
// data, never as transport-level exceptions.
package envelope

import (
	rserrors "reposcope/internal/errors"
)

// CurrentSchemaVersion is the current envelope schema version.
const CurrentSchemaVersion = "1.0"

// Truncation describes result trimming.
type Truncation struct {
	IsTruncated bool   `json:"isTruncated"`
	Shown       int    `json:"shown,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Meta holds response metadata.
type Meta struct {
	Truncation *Truncation `json:"truncation,omitempty"`
	DurationMs int64       `json:"durationMs,omitempty"`
}

// Warning represents a non-fatal issue.
type Warning struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// ErrorInfo carries a failed call's stable code and message.
type ErrorInfo struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// Response is the standard envelope for all tool responses.
type Response struct {
	SchemaVersion string      `json:"schemaVersion"`
	Data          interface{} `json:"data,omitempty"`
	Meta          *Meta       `json:"meta,omitempty"`
	Warnings      []Warning   `json:"warnings,omitempty"`
	Error         *ErrorInfo  `json:"error,omitempty"`
}

// Success wraps data in a fresh envelope.
func Success(data interface{}) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
	}
}

// Failure encodes an error as envelope data. ToolError codes pass
// through; anything else becomes INTERNAL_ERROR.
func Failure(err error) *Response {
	info := &ErrorInfo{
		Code:    string(rserrors.CodeOf(err)),
		Message: err.Error(),
	}
	var te *rserrors.ToolError
	if t, ok := err.(*rserrors.ToolError); ok {
		te = t
	}
	if te != nil {
		info.Message = te.Message
		info.Details = te.Details
	}
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Error:         info,
	}
}

// WithTruncation attaches a truncation note.
func (r *Response) WithTruncation(truncated bool, shown int, reason string) *Response {
	if !truncated {
		return r
	}
	if r.Meta == nil {
		r.Meta = &Meta{}
	}
	r.Meta.Truncation = &Truncation{IsTruncated: true, Shown: shown, Reason: reason}
	return r
}

// WithDuration attaches the handler's wall time.
func (r *Response) WithDuration(ms int64) *Response {
	if r.Meta == nil {
		r.Meta = &Meta{}
	}
	r.Meta.DurationMs = ms
	return r
}

// AddWarning appends a non-fatal issue.
func (r *Response) AddWarning(code, message string) *Response {
	r.Warnings = append(r.Warnings, Warning{Code: code, Message: message})
	return r
}

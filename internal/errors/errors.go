// Package errors carries the endpoint's coded errors and re-exports
// github.com/cockroachdb/errors for wrapping and inspection.
package errors

import (
	"fmt"

	crdb "github.com/cockroachdb/errors"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// BadRequest indicates an unparseable URL, a missing query, an
	// undecodable form body or an unsupported Content-Type
	BadRequest ErrorCode = "BAD_REQUEST"
	// ParserError indicates the query text is not a valid query
	ParserError ErrorCode = "PARSER_ERROR"
	// NotAcceptable indicates no serializer matches the Accept preferences
	NotAcceptable ErrorCode = "NOT_ACCEPTABLE"
	// EvaluationFailure indicates a query neither strategy can evaluate,
	// or a data-access error raised by the store
	EvaluationFailure ErrorCode = "EVALUATION_FAILURE"
	// MethodNotAllowed indicates an HTTP method other than GET or POST
	MethodNotAllowed ErrorCode = "METHOD_NOT_ALLOWED"
	// RateLimited indicates too many requests from one client
	RateLimited ErrorCode = "RATE_LIMITED"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// EndpointError represents a protocol error with a code and message
type EndpointError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// NewEndpointError creates a new EndpointError
func NewEndpointError(code ErrorCode, message string, cause error) *EndpointError {
	return &EndpointError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Error implements the error interface
func (e *EndpointError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EndpointError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *EndpointError) WithDetails(details interface{}) *EndpointError {
	e.Details = details
	return e
}

// Diagnostic is the plain-text body written for the error.
func (e *EndpointError) Diagnostic() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// NewBadRequest builds a BAD_REQUEST error.
func NewBadRequest(message string, cause error) *EndpointError {
	return NewEndpointError(BadRequest, message, cause)
}

// NewParserError builds a PARSER_ERROR error.
func NewParserError(cause error) *EndpointError {
	return NewEndpointError(ParserError, "Failed to parse query", cause)
}

// NewNotAcceptable builds a NOT_ACCEPTABLE error.
func NewNotAcceptable(message string) *EndpointError {
	return NewEndpointError(NotAcceptable, message, nil)
}

// NewEvaluationFailure builds an EVALUATION_FAILURE error.
func NewEvaluationFailure(message string, cause error) *EndpointError {
	return NewEndpointError(EvaluationFailure, message, cause)
}

// CodeOf returns the code of the first EndpointError in err's chain, or
// InternalError when there is none.
func CodeOf(err error) ErrorCode {
	var ee *EndpointError
	if crdb.As(err, &ee) {
		return ee.Code
	}
	return InternalError
}

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	WithHint     = crdb.WithHint
	WithDetail   = crdb.WithDetail
)

// Error inspection
var (
	Is           = crdb.Is
	IsAny        = crdb.IsAny
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	GetAllHints  = crdb.GetAllHints
	FlattenHints = crdb.FlattenHints
)

package datatype

import (
	"errors"
	"fmt"
)

// Error represents a SyncMesh client error with a structured error code.
// Codes are stable across releases and mirror the codes the store returns
// in error bodies, so transport and SDK failures share one vocabulary.
type Error struct {
	Code    string // Error code (e.g., "SM-DT-4280")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support. Two Errors match when their codes match,
// so a sentinel compares equal to any decorated copy of itself.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	return &Error{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// IsCode checks if an error is an Error with the given code.
// If code is empty, it only checks whether the error is an Error.
func IsCode(err error, code string) bool {
	var se *Error
	if errors.As(err, &se) {
		if code == "" {
			return true
		}
		return se.Code == code
	}
	return false
}

// ErrorCode extracts the error code from an error if it is an Error.
func ErrorCode(err error) string {
	var se *Error
	if errors.As(err, &se) {
		return se.Code
	}
	return ""
}

// ============================================================================
// Datatype Errors (DT)
// ============================================================================

var (
	// ErrInvalidElement indicates an element or snapshot member is not a
	// usable string value.
	ErrInvalidElement = NewError("SM-DT-4001", "invalid element")

	// ErrInvalidSnapshot indicates a raw snapshot value is structurally
	// unusable for the datatype.
	ErrInvalidSnapshot = NewError("SM-DT-4002", "invalid snapshot value")

	// ErrUnknownDatatype indicates the requested type name is not registered.
	ErrUnknownDatatype = NewError("SM-DT-4040", "unknown datatype")

	// ErrContextRequired indicates an operation needs a causal context from
	// the store before it can be staged safely.
	ErrContextRequired = NewError("SM-DT-4280", "causal context required")
)

// ============================================================================
// Client Errors (CL)
// ============================================================================

var (
	// ErrInvalidArgument indicates a bad bucket, key, or request input.
	ErrInvalidArgument = NewError("SM-CL-4000", "invalid argument")

	// ErrUnauthorized indicates a missing or rejected API key.
	ErrUnauthorized = NewError("SM-CL-4010", "unauthorized")

	// ErrKeyNotFound indicates the datatype does not exist in the store.
	ErrKeyNotFound = NewError("SM-CL-4040", "key not found")

	// ErrUnexpectedDatatype indicates the fetched type differs from the
	// requested one.
	ErrUnexpectedDatatype = NewError("SM-CL-4090", "unexpected datatype")

	// ErrRateLimited indicates a server or client-side throttle rejected
	// the request.
	ErrRateLimited = NewError("SM-CL-4290", "rate limited")

	// ErrServerError indicates the store failed to apply the request.
	ErrServerError = NewError("SM-CL-5000", "server error")

	// ErrUnavailable indicates the store could not be reached.
	ErrUnavailable = NewError("SM-CL-5030", "service unavailable")

	// ErrOperationQueued indicates the operation was journaled for later
	// delivery instead of being committed now.
	ErrOperationQueued = NewError("SM-CL-2020", "operation queued for delivery")
)

// ============================================================================
// Configuration Errors (CFG)
// ============================================================================

var (
	// ErrInvalidConfig indicates the client configuration was rejected.
	ErrInvalidConfig = NewError("SM-CFG-4000", "invalid configuration")
)

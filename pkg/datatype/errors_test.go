package datatype

import (
	"errors"
	"fmt"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		expected string
	}{
		{
			name:     "error without details",
			err:      NewError("SM-TEST-1000", "test message"),
			expected: "[SM-TEST-1000] test message",
		},
		{
			name:     "error with details",
			err:      NewError("SM-TEST-1001", "test message").WithDetails("extra info"),
			expected: "[SM-TEST-1001] test message: extra info",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestError_Is(t *testing.T) {
	err1 := NewError("SM-TEST-1000", "message 1")
	err2 := NewError("SM-TEST-1000", "message 2") // Same code, different message
	err3 := NewError("SM-TEST-1001", "message 1") // Different code

	// Same code should match
	if !errors.Is(err1, err2) {
		t.Error("errors.Is should return true for same error code")
	}

	// Different code should not match
	if errors.Is(err1, err3) {
		t.Error("errors.Is should return false for different error code")
	}

	// Should not match plain errors
	if errors.Is(err1, fmt.Errorf("some error")) {
		t.Error("errors.Is should return false for non-Error")
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("underlying cause")
	err := NewError("SM-TEST-1000", "wrapper").WithCause(cause)

	if unwrapped := errors.Unwrap(err); unwrapped != cause {
		t.Errorf("Unwrap() = %v, want %v", unwrapped, cause)
	}

	// Without cause
	errNoCause := NewError("SM-TEST-1000", "no cause")
	if errors.Unwrap(errNoCause) != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestError_WithDetails(t *testing.T) {
	original := NewError("SM-TEST-1000", "original message")
	withDetails := original.WithDetails("additional details")

	// Check original is unchanged
	if original.Details != "" {
		t.Error("WithDetails should not modify original error")
	}

	// Check new error has details
	if withDetails.Details != "additional details" {
		t.Errorf("Details = %q, want %q", withDetails.Details, "additional details")
	}

	// Check code and message are preserved
	if withDetails.Code != original.Code {
		t.Errorf("Code = %q, want %q", withDetails.Code, original.Code)
	}
	if withDetails.Message != original.Message {
		t.Errorf("Message = %q, want %q", withDetails.Message, original.Message)
	}
}

func TestError_WithCause(t *testing.T) {
	original := NewError("SM-TEST-1000", "original message")
	cause := fmt.Errorf("root cause")
	withCause := original.WithCause(cause)

	// Check original is unchanged
	if original.Cause != nil {
		t.Error("WithCause should not modify original error")
	}

	// Check new error has cause
	if withCause.Cause != cause {
		t.Errorf("Cause = %v, want %v", withCause.Cause, cause)
	}
}

func TestIsCode(t *testing.T) {
	err := ErrContextRequired

	if !IsCode(err, "SM-DT-4280") {
		t.Error("IsCode should return true for matching code")
	}
	if IsCode(err, "SM-DT-9999") {
		t.Error("IsCode should return false for non-matching code")
	}
	if IsCode(fmt.Errorf("regular error"), "SM-DT-4280") {
		t.Error("IsCode should return false for non-Error")
	}

	// Empty code only checks the error kind
	if !IsCode(err, "") {
		t.Error("IsCode with empty code should match any Error")
	}

	// Test with wrapped error
	wrapped := fmt.Errorf("wrapped: %w", ErrContextRequired)
	if !IsCode(wrapped, "SM-DT-4280") {
		t.Error("IsCode should work with wrapped errors")
	}
}

func TestErrorCode(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{
			name:     "structured error",
			err:      ErrInvalidElement,
			expected: "SM-DT-4001",
		},
		{
			name:     "wrapped structured error",
			err:      fmt.Errorf("wrapped: %w", ErrKeyNotFound),
			expected: "SM-CL-4040",
		},
		{
			name:     "regular error",
			err:      fmt.Errorf("regular error"),
			expected: "",
		},
		{
			name:     "nil error",
			err:      nil,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ErrorCode(tt.err); got != tt.expected {
				t.Errorf("ErrorCode() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	// Verify all predefined errors have correct codes
	tests := []struct {
		err  *Error
		code string
	}{
		// Datatype errors
		{ErrInvalidElement, "SM-DT-4001"},
		{ErrInvalidSnapshot, "SM-DT-4002"},
		{ErrUnknownDatatype, "SM-DT-4040"},
		{ErrContextRequired, "SM-DT-4280"},

		// Client errors
		{ErrInvalidArgument, "SM-CL-4000"},
		{ErrUnauthorized, "SM-CL-4010"},
		{ErrKeyNotFound, "SM-CL-4040"},
		{ErrUnexpectedDatatype, "SM-CL-4090"},
		{ErrRateLimited, "SM-CL-4290"},
		{ErrServerError, "SM-CL-5000"},
		{ErrUnavailable, "SM-CL-5030"},
		{ErrOperationQueued, "SM-CL-2020"},

		// Configuration errors
		{ErrInvalidConfig, "SM-CFG-4000"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			if tt.err.Code != tt.code {
				t.Errorf("Error code = %q, want %q", tt.err.Code, tt.code)
			}
			if tt.err.Message == "" {
				t.Error("Error message should not be empty")
			}
		})
	}
}

func TestErrorChaining(t *testing.T) {
	// Test chaining WithDetails and WithCause
	cause := fmt.Errorf("root cause")
	err := ErrContextRequired.
		WithDetails("discard on unfetched set").
		WithCause(cause)

	// Verify all properties are preserved
	if err.Code != "SM-DT-4280" {
		t.Errorf("Code = %q, want %q", err.Code, "SM-DT-4280")
	}
	if err.Details != "discard on unfetched set" {
		t.Errorf("Details = %q", err.Details)
	}
	if err.Cause != cause {
		t.Error("Cause should be preserved")
	}

	// Verify errors.Is still works
	if !errors.Is(err, ErrContextRequired) {
		t.Error("errors.Is should work after chaining")
	}
}

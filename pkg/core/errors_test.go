package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestExecutionError_Error(t *testing.T) {
	err := &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "test_error",
		Message:  "test message",
	}

	if got := err.Error(); got != "test message" {
		t.Errorf("Error() = %q, want %q", got, "test message")
	}
}

func TestExecutionError_ErrorWithCause(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Category: ErrCategoryAssertion,
		Code:     "test_error",
		Message:  "test message",
		Cause:    cause,
	}

	got := err.Error()
	if !strings.Contains(got, "test message") {
		t.Errorf("Error() = %q, should contain 'test message'", got)
	}
	if !strings.Contains(got, "underlying error") {
		t.Errorf("Error() = %q, should contain 'underlying error'", got)
	}
}

func TestExecutionError_Unwrap(t *testing.T) {
	cause := errors.New("underlying error")
	err := &ExecutionError{
		Message: "wrapper",
		Cause:   cause,
	}

	if got := err.Unwrap(); got != cause {
		t.Errorf("Unwrap() = %v, want %v", got, cause)
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
}

func TestExecutionError_WithCause(t *testing.T) {
	original := ErrElementNotFound
	cause := errors.New("custom cause")

	newErr := original.WithCause(cause)

	if newErr.Cause != cause {
		t.Error("WithCause() did not set cause")
	}
	if newErr.Code != original.Code {
		t.Error("WithCause() changed code")
	}
	if original.Cause != nil {
		t.Error("WithCause() modified original error")
	}
}

func TestExecutionError_WithMessage(t *testing.T) {
	original := ErrEventTimeout
	newErr := original.WithMessage("Swipe failed to receive an event")

	if newErr.Message != "Swipe failed to receive an event" {
		t.Errorf("Message = %q", newErr.Message)
	}
	if newErr.Code != original.Code {
		t.Error("WithMessage() changed code")
	}
	if original.Message == newErr.Message {
		t.Error("WithMessage() modified original error")
	}
}

func TestExecutionError_WithMessagef(t *testing.T) {
	err := ErrElementNotFound.WithMessagef("Can't find a launcher object; id: %s", "workspace")
	if err.Message != "Can't find a launcher object; id: workspace" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestExecutionError_WithDetails(t *testing.T) {
	original := ErrElementStillVisible.WithDetails(map[string]interface{}{"resource": "apps_view"})
	newErr := original.WithDetails(map[string]interface{}{"timeout": "60s"})

	if newErr.Details["resource"] != "apps_view" {
		t.Errorf("lost existing detail: %v", newErr.Details)
	}
	if newErr.Details["timeout"] != "60s" {
		t.Errorf("missing new detail: %v", newErr.Details)
	}
	if _, ok := original.Details["timeout"]; ok {
		t.Error("WithDetails() modified original error")
	}
}

func TestExecutionError_IsMatchesCode(t *testing.T) {
	err := ErrStaleContainer.WithMessage("custom")
	wrapped := fmt.Errorf("workspace: %w", err)

	if !errors.Is(wrapped, ErrStaleContainer) {
		t.Error("errors.Is should match by code through wrapping")
	}
	if errors.Is(wrapped, ErrElementNotFound) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestCategoryOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCategory
	}{
		{"nil", nil, ErrCategoryNone},
		{"plain", errors.New("x"), ErrCategoryNone},
		{"precondition", ErrNotTestHarness, ErrCategoryPrecondition},
		{"stale", ErrStaleContainer, ErrCategoryStale},
		{"wrapped timeout", fmt.Errorf("ctx: %w", ErrEventTimeout), ErrCategoryTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.want {
				t.Errorf("CategoryOf() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		want     string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryPrecondition, "precondition"},
		{ErrCategoryStale, "stale"},
		{ErrCategoryAssertion, "assertion"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConnection, "connection"},
		{ErrCategoryConfig, "config"},
		{ErrorCategory(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.category.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}

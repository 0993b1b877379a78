package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestNewRegisteredCode(t *testing.T) {
	err := New(CodeUnsupportedWatchConfig)
	if err.Code != "E001" {
		t.Errorf("Code = %q, want E001", err.Code)
	}
	if err.Category != CategoryConfig {
		t.Errorf("Category = %q, want config", err.Category)
	}
	if err.Suggestion == "" {
		t.Error("registered code should carry a suggestion")
	}
	if got := err.Error(); got != "E001: unsupported watch configuration" {
		t.Errorf("Error() = %q", got)
	}
}

func TestNewUnknownCode(t *testing.T) {
	err := New("E999")
	if err.Code != "E999" {
		t.Errorf("Code = %q, want E999", err.Code)
	}
	if err.Message != "unknown error" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestIsMatchesByCode(t *testing.T) {
	err := New(CodePreloadDisabled).WithDetail("request layer off")
	if !stderrors.Is(err, New(CodePreloadDisabled)) {
		t.Error("errors.Is should match by code")
	}
	if stderrors.Is(err, New(CodeUnsafeMethod)) {
		t.Error("errors.Is should not match a different code")
	}
}

func TestWrapUnwrap(t *testing.T) {
	inner := fmt.Errorf("boom")
	err := New(CodeMalformedFrame).Wrap(inner)
	if !stderrors.Is(err, inner) {
		t.Error("wrapped error should be reachable via errors.Is")
	}
}

func TestFromError(t *testing.T) {
	if FromError(nil, CodeMalformedFrame) != nil {
		t.Error("FromError(nil) should be nil")
	}
	orig := New(CodeUnsafeMethod)
	if got := FromError(orig, CodeMalformedFrame); got != orig {
		t.Error("FromError should pass through *Error unchanged")
	}
	wrapped := FromError(fmt.Errorf("io"), CodeMalformedFrame)
	if wrapped.Code != CodeMalformedFrame {
		t.Errorf("Code = %q", wrapped.Code)
	}
}

func TestNewf(t *testing.T) {
	err := Newf(CategoryDispatch, "handler %s failed", "save")
	if err.Code != "" {
		t.Errorf("Newf should not assign a code, got %q", err.Code)
	}
	if err.Error() != "handler save failed" {
		t.Errorf("Error() = %q", err.Error())
	}
}

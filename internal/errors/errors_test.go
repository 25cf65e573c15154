package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestErrorFormat(t *testing.T) {
	err := New(CodeCaptureUnavailable, "display gone")
	want := "[CAPTURE_UNAVAILABLE] display gone"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(cause, CodeServiceUnavailable, "recognition service unreachable")

	if !stderrors.Is(err, cause) {
		t.Error("errors.Is should find the cause")
	}
	if CodeOf(err) != CodeServiceUnavailable {
		t.Errorf("CodeOf = %v, want CodeServiceUnavailable", CodeOf(err))
	}
}

func TestCodeOfWalksChain(t *testing.T) {
	inner := New(CodeStateCorrupt, "bad schema")
	outer := fmt.Errorf("loading state: %w", inner)

	if CodeOf(outer) != CodeStateCorrupt {
		t.Errorf("CodeOf through fmt wrap = %v, want CodeStateCorrupt", CodeOf(outer))
	}
}

func TestCodeOfUnknown(t *testing.T) {
	if CodeOf(stderrors.New("plain")) != CodeUnknown {
		t.Error("plain error should map to CodeUnknown")
	}
	if CodeOf(nil) != CodeUnknown {
		t.Error("nil error should map to CodeUnknown")
	}
}

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		code Code
		want bool
	}{
		{CodeCaptureUnavailable, true},
		{CodeServiceUnavailable, true},
		{CodeRecognitionTimeout, true},
		{CodePermissionDenied, false},
		{CodeStateCorrupt, false},
		{CodeConfigInvalid, false},
	}

	for _, tc := range cases {
		if got := IsRetryable(New(tc.code, "x")); got != tc.want {
			t.Errorf("IsRetryable(%v) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestWithMetadata(t *testing.T) {
	err := New(CodeIOFailed, "write failed").WithMetadata("path", "state.json")

	if err.Metadata["path"] != "state.json" {
		t.Errorf("Metadata = %v, want path=state.json", err.Metadata)
	}
	if got := err.Error(); got == "[IO_FAILED] write failed" {
		t.Error("Error() should include metadata")
	}
}

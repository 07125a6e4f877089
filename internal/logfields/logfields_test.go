package logfields

import (
	"errors"
	"testing"
)

func TestHelpers(t *testing.T) {
	if a := Code(256); a.Key != KeyCode || a.Value.Int64() != 256 {
		t.Fatalf("unexpected attr: %v", a)
	}
	if a := RequestID("r-1"); a.Key != KeyRequestID || a.Value.String() != "r-1" {
		t.Fatalf("unexpected attr: %v", a)
	}
	if a := Error(errors.New("boom")); a.Value.String() != "boom" {
		t.Fatalf("unexpected error attr: %v", a)
	}
	if a := Error(nil); a.Value.String() != "" {
		t.Fatalf("nil error should produce empty string, got %q", a.Value.String())
	}
}

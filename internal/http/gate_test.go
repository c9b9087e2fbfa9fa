package http

import (
	"errors"
	"testing"
)

func TestTriggerGateAuthorize(t *testing.T) {
	gate := NewTriggerGate("super-secret-trigger-token")

	if err := gate.Authorize("super-secret-trigger-token"); err != nil {
		t.Fatalf("correct secret rejected: %v", err)
	}

	for _, bad := range []string{"", "wrong", "super-secret-trigger-toke", "super-secret-trigger-tokenx"} {
		if err := gate.Authorize(bad); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("Authorize(%q) = %v, want ErrUnauthorized", bad, err)
		}
	}
}

package analyses

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorKinds(t *testing.T) {
	cause := errors.New("chrome exited")
	err := fmt.Errorf("analyze: %w", E(KindResourceAcquisition, "launch browser", cause))

	if !errors.Is(err, KindResourceAcquisition) {
		t.Fatalf("expected kind to match through wrapping: %v", err)
	}
	if errors.Is(err, KindNavigationTimeout) {
		t.Fatalf("unexpected kind match")
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause lost: %v", err)
	}
	if KindOf(err) != KindResourceAcquisition {
		t.Fatalf("KindOf: got %q", KindOf(err))
	}
	if KindOf(cause) != "" {
		t.Fatalf("plain errors carry no kind")
	}
}

func TestEKeepsFirstKind(t *testing.T) {
	inner := E(KindNavigationTimeout, "navigate", errors.New("deadline"))
	outer := E(KindAuditEngine, "audit", inner)
	if KindOf(outer) != KindNavigationTimeout {
		t.Fatalf("expected first classification to win, got %q", KindOf(outer))
	}
}

func TestParseTarget(t *testing.T) {
	valid := []string{"https://example.com", "http://example.com/path?q=1", "  https://a.b  "}
	for _, raw := range valid {
		if _, err := ParseTarget(raw); err != nil {
			t.Errorf("%q: unexpected error %v", raw, err)
		}
	}
	invalid := []string{"", "example.com", "ftp://example.com", "https://", "::not a url", "javascript:alert(1)"}
	for _, raw := range invalid {
		_, err := ParseTarget(raw)
		if !errors.Is(err, KindInvalidInput) {
			t.Errorf("%q: expected InvalidInput, got %v", raw, err)
		}
	}
}

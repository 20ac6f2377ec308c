package utils

import (
	"strings"
	"testing"
)

func TestRandomBase36(t *testing.T) {
	s, err := RandomBase36(16)
	if err != nil {
		t.Fatalf("RandomBase36: %v", err)
	}
	if len(s) != 16 {
		t.Fatalf("len = %d, want 16", len(s))
	}
	for _, r := range s {
		if !strings.ContainsRune(base36, r) {
			t.Fatalf("unexpected rune %q in %q", r, s)
		}
	}
}

func TestGenerateSecureTokenUnique(t *testing.T) {
	a, _ := GenerateSecureToken(16)
	b, _ := GenerateSecureToken(16)
	if a == "" || a == b {
		t.Fatalf("tokens should be non-empty and distinct: %q %q", a, b)
	}
}

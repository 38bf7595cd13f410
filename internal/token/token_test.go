package token

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	tok, err := New()
	if err != nil {
		t.Fatalf("new token: %v", err)
	}
	if len(tok) != 2*Size {
		t.Errorf("token length = %d, want %d", len(tok), 2*Size)
	}
}

func TestNewUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		tok, err := New()
		if err != nil {
			t.Fatalf("new token: %v", err)
		}
		if seen[tok] {
			t.Fatalf("duplicate token %q", tok)
		}
		seen[tok] = true
	}
}

func TestAPIKey(t *testing.T) {
	key, err := APIKey()
	if err != nil {
		t.Fatalf("api key: %v", err)
	}
	if !strings.HasPrefix(key, "dk_") {
		t.Errorf("key = %q, want dk_ prefix", key)
	}
	if len(key) != 3+2*Size {
		t.Errorf("key length = %d, want %d", len(key), 3+2*Size)
	}
}

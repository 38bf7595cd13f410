// Package token generates opaque, unguessable identifiers for verification
// links, sessions and API keys.
package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Size is the number of random bytes behind every token (256 bits).
const Size = 32

// New returns Size random bytes from crypto/rand, hex encoded.
func New() (string, error) {
	b := make([]byte, Size)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// APIKey returns a key of the form "dk_<hex>".
func APIKey() (string, error) {
	t, err := New()
	if err != nil {
		return "", err
	}
	return "dk_" + t, nil
}

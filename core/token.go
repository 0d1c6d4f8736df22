package core

import (
	"crypto/rand"
	"fmt"

	"github.com/mr-tron/base58"
)

const tokenEntropyBytes = 32

// NewTokenString mints an opaque, unguessable revocation token.
func NewTokenString() (string, error) {
	buf := make([]byte, tokenEntropyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token entropy: %w", err)
	}
	return base58.Encode(buf), nil
}

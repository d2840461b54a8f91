package secrets

import (
	"fmt"
	"strings"

	"copydeck/internal/tracker"
)

// plainHeader is prepended by PlainCipher so stored values are clearly
// distinguishable from real plaintext while remaining reversible.
const plainHeader = "PLAIN\x00"

// PlainCipher is a deterministic no-crypto cipher for testing. It
// prepends a fixed header on encryption and strips it on decryption.
type PlainCipher struct{}

var _ tracker.TokenCipher = (*PlainCipher)(nil)

// NewPlainCipher creates a new PlainCipher.
func NewPlainCipher() *PlainCipher {
	return &PlainCipher{}
}

func (c *PlainCipher) Encrypt(plaintext string) (string, error) {
	return plainHeader + plaintext, nil
}

func (c *PlainCipher) Decrypt(ciphertext string) (string, error) {
	if !strings.HasPrefix(ciphertext, plainHeader) {
		return "", fmt.Errorf("invalid plain cipher header")
	}
	return strings.TrimPrefix(ciphertext, plainHeader), nil
}

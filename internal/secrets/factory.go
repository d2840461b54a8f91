package secrets

import (
	"fmt"

	"copydeck/internal/config"
	"copydeck/internal/tracker"
)

// NewCipherFromConfig creates a TokenCipher based on the configuration type.
func NewCipherFromConfig(cfg config.SecretsConfig) (tracker.TokenCipher, error) {
	switch cfg.Type {
	case "age", "":
		return NewAgeCipher(cfg), nil
	case "plain":
		return NewPlainCipher(), nil
	default:
		return nil, fmt.Errorf("unknown secrets type: %q", cfg.Type)
	}
}

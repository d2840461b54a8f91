package imagestore

import (
	"fmt"

	"copydeck/internal/config"
	"copydeck/internal/tracker"
)

// NewStoreFromConfig creates an ImageStore implementation based on the image config type.
func NewStoreFromConfig(cfg config.ImageConfig) (tracker.ImageStore, error) {
	switch cfg.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "s3":
		return NewS3Store(cfg)
	case "filesystem", "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem image store requires dir to be set")
		}
		return NewFileSystemStore(cfg.Dir)
	default:
		return nil, fmt.Errorf("unknown image store type: %s", cfg.Type)
	}
}

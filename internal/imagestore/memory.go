package imagestore

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"copydeck/internal/tracker"
)

// MemoryStore is an in-memory image store, useful for testing.
// It is safe for concurrent use.
type MemoryStore struct {
	images map[string][]byte // frame id -> image bytes
	mu     sync.RWMutex
}

// NewMemoryStore creates a new in-memory image store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{images: make(map[string][]byte)}
}

// Put stores the image for a frame, overwriting any previous one.
func (m *MemoryStore) Put(frameID string, r io.Reader, size int64) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if size >= 0 && int64(len(data)) != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.images[frameID] = data
	return frameID, nil
}

// Get writes the stored image for a frame to w.
func (m *MemoryStore) Get(frameID string, w io.Writer) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.images[frameID]
	if !ok {
		return fmt.Errorf("image not found for frame: %s", frameID)
	}

	if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}

// Len reports the number of stored images. Test helper.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.images)
}

// Compile-time check that MemoryStore implements tracker.ImageStore
var _ tracker.ImageStore = (*MemoryStore)(nil)

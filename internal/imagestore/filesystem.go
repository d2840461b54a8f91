package imagestore

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"copydeck/internal/tracker"
)

// FileSystemStore keeps frame preview images as files under a single
// directory, one PNG per frame. Frame ids contain characters that are
// not filesystem-safe, so they are flattened into the file name.
type FileSystemStore struct {
	dir string
}

// NewFileSystemStore creates a filesystem image store rooted at dir.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create image directory: %w", err)
	}
	return &FileSystemStore{dir: dir}, nil
}

var frameIDReplacer = strings.NewReplacer(":", "_", ";", "-", "/", "_")

func frameFileName(frameID string) string {
	return frameIDReplacer.Replace(frameID) + ".png"
}

// Put stores the image for a frame, overwriting any previous one.
// The write is atomic (temp file + rename) so a reader never sees a
// partially written image.
func (s *FileSystemStore) Put(frameID string, r io.Reader, size int64) (string, error) {
	name := frameFileName(frameID)
	destPath := filepath.Join(s.dir, name)

	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}

	if size >= 0 && written != size {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return name, nil
}

// Get writes the stored image for a frame to w.
func (s *FileSystemStore) Get(frameID string, w io.Writer) error {
	srcPath := filepath.Join(s.dir, frameFileName(frameID))

	f, err := os.Open(srcPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("image not found for frame: %s", frameID)
		}
		return fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}
	return nil
}

// Compile-time check that FileSystemStore implements tracker.ImageStore
var _ tracker.ImageStore = (*FileSystemStore)(nil)

package tracker

import "io"

// ImageStore persists frame preview images. References returned by Put
// are opaque and replaced wholesale on every sync (no history kept).
type ImageStore interface {
	// Put stores the image for a frame and returns a stable reference.
	// Storing the same frame id again overwrites the previous image.
	Put(frameID string, r io.Reader, size int64) (ref string, err error)

	// Get writes the stored image for a frame to w.
	Get(frameID string, w io.Writer) error
}

package tracker

import (
	"context"
	"io"
)

// Provider is the remote design-file API consumed by the sync
// orchestrator: a read-only document fetch plus rendered preview images.
type Provider interface {
	// FetchFile retrieves the full document tree and style registry.
	FetchFile(ctx context.Context, fileKey, token string) (*File, error)

	// FetchPreviewImages renders preview images for the given node ids
	// and returns a map of node id to image URL. An empty id list yields
	// an empty map without a remote call.
	FetchPreviewImages(ctx context.Context, fileKey, token string, ids []string) (map[string]string, error)

	// DownloadImage streams the rendered image at url. The caller must
	// close the reader.
	DownloadImage(ctx context.Context, url string) (io.ReadCloser, int64, error)
}

// The types below mirror the provider's wire format (the json tags are
// the remote API's field names), trimmed to the subset the extractor
// needs.

// File is one remote design file: a document tree plus its style registry.
type File struct {
	Name     string               `json:"name"`
	Document Node                 `json:"document"`
	Styles   map[string]StyleMeta `json:"styles"`
}

// Node is one node in the document tree. The document's direct children
// are pages (type CANVAS).
type Node struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Children []Node  `json:"children,omitempty"`
	// Characters is the text content, present only on TEXT nodes.
	Characters string     `json:"characters,omitempty"`
	Style      *TextStyle `json:"style,omitempty"`
	// Styles maps style slots (e.g. "text") to style registry ids.
	Styles              map[string]string `json:"styles,omitempty"`
	AbsoluteBoundingBox *Rect             `json:"absoluteBoundingBox,omitempty"`
}

// TextStyle is the rendered typography of a TEXT node.
type TextStyle struct {
	FontSize   float64 `json:"fontSize,omitempty"`
	FontWeight float64 `json:"fontWeight,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
}

// Rect is a node's bounding geometry in source coordinate space.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// StyleMeta is one entry in the document's style registry.
type StyleMeta struct {
	Key       string `json:"key"`
	Name      string `json:"name"`
	StyleType string `json:"styleType"`
}

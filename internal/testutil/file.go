package testutil

import "copydeck/internal/tracker"

// NewFile builds a design file whose document children are the given pages.
func NewFile(name string, pages ...tracker.Node) *tracker.File {
	return &tracker.File{
		Name: name,
		Document: tracker.Node{
			ID:       "0:0",
			Name:     "Document",
			Type:     "DOCUMENT",
			Children: pages,
		},
	}
}

// NewPage builds a CANVAS node with the given children.
func NewPage(id, name string, children ...tracker.Node) tracker.Node {
	return tracker.Node{ID: id, Name: name, Type: "CANVAS", Children: children}
}

// NewFrame builds a FRAME node with bounds and the given children.
func NewFrame(id, name string, x, y, w, h float64, children ...tracker.Node) tracker.Node {
	return tracker.Node{
		ID:                  id,
		Name:                name,
		Type:                "FRAME",
		Children:            children,
		AbsoluteBoundingBox: &tracker.Rect{X: x, Y: y, Width: w, Height: h},
	}
}

// NewText builds a TEXT node with content, font size, and bounds.
func NewText(id, content string, fontSize, x, y, w, h float64) tracker.Node {
	return tracker.Node{
		ID:                  id,
		Name:                content,
		Type:                "TEXT",
		Characters:          content,
		Style:               &tracker.TextStyle{FontSize: fontSize},
		AbsoluteBoundingBox: &tracker.Rect{X: x, Y: y, Width: w, Height: h},
	}
}

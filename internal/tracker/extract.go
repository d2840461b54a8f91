package tracker

import "copydeck/internal/model"

// frame-like node types. The first of these encountered while
// descending becomes the subtree's frame context; nested ones do not
// overwrite it.
var frameTypes = map[string]bool{
	"FRAME":         true,
	"COMPONENT":     true,
	"COMPONENT_SET": true,
	"INSTANCE":      true,
}

const defaultFontSize = 14

// ExtractedText is one text-bearing leaf item normalized out of the
// document tree, carrying its page, its outermost enclosing frame (if
// any), and a resolved style label.
type ExtractedText struct {
	ID       string
	PageID   string
	PageName string
	Content  string
	FontSize float64
	Style    string
	X        float64
	Y        float64
	Width    float64
	Height   float64
	Frame    *model.FrameRef
}

// ExtractTextItems flattens a document tree into text items. Traversal
// is depth-first from each page node (the document's direct children).
// If sourcePageIDs is non-empty, only the listed pages are traversed.
// Leaves without bounding geometry are skipped: they cannot be tracked
// without a position.
func ExtractTextItems(file *File, sourcePageIDs []string) []ExtractedText {
	pageFilter := make(map[string]bool, len(sourcePageIDs))
	for _, id := range sourcePageIDs {
		pageFilter[id] = true
	}

	var items []ExtractedText
	for i := range file.Document.Children {
		page := &file.Document.Children[i]
		if len(pageFilter) > 0 && !pageFilter[page.ID] {
			continue
		}
		walkNode(page, page.ID, page.Name, nil, file.Styles, &items)
	}
	return items
}

func walkNode(node *Node, pageID, pageName string, frame *model.FrameRef, registry map[string]StyleMeta, items *[]ExtractedText) {
	if frame == nil && frameTypes[node.Type] {
		frame = frameRef(node)
	}

	if node.Type == "TEXT" && node.Characters != "" {
		if item, ok := textItem(node, pageID, pageName, frame, registry); ok {
			*items = append(*items, item)
		}
	}

	for i := range node.Children {
		walkNode(&node.Children[i], pageID, pageName, frame, registry, items)
	}
}

// frameRef captures a frame node's identity and geometry. A frame
// without a bounding box still counts as context; its geometry is zero.
func frameRef(node *Node) *model.FrameRef {
	ref := &model.FrameRef{ID: node.ID, Name: node.Name}
	if b := node.AbsoluteBoundingBox; b != nil {
		ref.X, ref.Y, ref.Width, ref.Height = b.X, b.Y, b.Width, b.Height
	}
	return ref
}

func textItem(node *Node, pageID, pageName string, frame *model.FrameRef, registry map[string]StyleMeta) (ExtractedText, bool) {
	bounds := node.AbsoluteBoundingBox
	if bounds == nil {
		return ExtractedText{}, false
	}

	fontSize := float64(defaultFontSize)
	if node.Style != nil && node.Style.FontSize > 0 {
		fontSize = node.Style.FontSize
	}

	return ExtractedText{
		ID:       node.ID,
		PageID:   pageID,
		PageName: pageName,
		Content:  node.Characters,
		FontSize: fontSize,
		Style:    resolveStyle(node, registry, fontSize),
		X:        bounds.X,
		Y:        bounds.Y,
		Width:    bounds.Width,
		Height:   bounds.Height,
		Frame:    frame,
	}, true
}

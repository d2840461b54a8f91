package tracker

// resolveStyle maps a text node to a human-facing style label. A text
// style reference into the document's style registry wins; nodes
// without one fall back to font-size bucketing.
func resolveStyle(node *Node, registry map[string]StyleMeta, fontSize float64) string {
	if id, ok := node.Styles["text"]; ok {
		if meta, ok := registry[id]; ok && meta.Name != "" {
			return meta.Name
		}
	}
	return styleForFontSize(fontSize)
}

// styleForFontSize buckets a font size into a coarse style label.
func styleForFontSize(fontSize float64) string {
	switch {
	case fontSize >= 32:
		return "Heading L"
	case fontSize >= 24:
		return "Heading M"
	case fontSize >= 18:
		return "Heading S"
	case fontSize >= 14:
		return "Body M"
	default:
		return "Body S"
	}
}

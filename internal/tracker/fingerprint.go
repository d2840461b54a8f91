package tracker

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"strconv"
)

// Fingerprint produces a stable content digest from a text block's
// semantic payload. Positions are rounded to two decimal places before
// hashing to absorb floating-point jitter from the source render
// pipeline. Width, height, and font size are deliberately excluded so
// a rewrap-induced resize does not register as a content change.
func Fingerprint(content, style string, x, y float64) string {
	payload := content + "|" + style + "|" + formatCoord(x) + "|" + formatCoord(y)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// formatCoord rounds to 2dp and renders with minimal digits, so 10.0
// and 10.004 both hash as "10".
func formatCoord(v float64) string {
	rounded := math.Round(v*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

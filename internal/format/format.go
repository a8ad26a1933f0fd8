package format

import (
	"fmt"
	"math"
	"strings"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB"}

// Bytes renders a byte count with two decimals and a 1024-based unit.
func Bytes(n int64) string {
	if n < 0 {
		n = 0
	}
	value := float64(n)
	unit := 0
	for value >= 1024 && unit < len(byteUnits)-1 {
		value /= 1024
		unit++
	}
	return fmt.Sprintf("%.2f %s", value, byteUnits[unit])
}

// Duration renders a second count as HH:MM:SS. Negative or non-finite
// values are the unknown-ETA sentinel and render as N/A.
func Duration(seconds float64) string {
	if seconds < 0 || math.IsInf(seconds, 0) || math.IsNaN(seconds) {
		return "N/A"
	}
	total := int64(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ProgressBar renders a ten-cell bar for a percentage, clamped to [0, 100].
func ProgressBar(pct float64) string {
	if pct > 100 {
		pct = 100
	}
	if pct < 0 {
		pct = 0
	}
	filled := int(math.Round(pct / 10))
	return "[" + strings.Repeat("■", filled) + strings.Repeat("□", 10-filled) + "]"
}

const escapeSet = "_*[]()~`>#+-=|{}.!"

// Escape backslash-escapes MarkdownV2 reserved punctuation so arbitrary
// filenames and links survive transport rendering.
func Escape(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if strings.ContainsRune(escapeSet, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

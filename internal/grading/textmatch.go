package grading

import (
	"strings"
	"unicode"
)

// normalize lowercases, trims and collapses runs of whitespace.
func normalize(s string) string {
	return collapseSpaces(strings.TrimSpace(strings.ToLower(s)))
}

// collapseSpaces replaces each run of whitespace with a single space.
// Leading and trailing runs are kept (as one space each).
func collapseSpaces(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			if !space {
				b.WriteByte(' ')
			}
			space = true
			continue
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

func dehyphen(s string) string { return strings.ReplaceAll(s, "-", " ") }

// WordCount counts whitespace-separated tokens after trimming.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

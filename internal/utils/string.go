package utils

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var spaceReg = regexp.MustCompile(`\s+`)

// NormalizeQuery converts query text to NFC and collapses whitespace.
// Umlauts typed as combining sequences then match the precomposed
// spelling stored in the index.
func NormalizeQuery(input string) string {
	result := norm.NFC.String(input)
	result = spaceReg.ReplaceAllString(result, " ")
	return strings.TrimSpace(result)
}

// DisplayWidth returns the number of terminal cells needed for s
func DisplayWidth(s string) int {
	total := 0
	for _, r := range s {
		total += runeWidth(r)
	}
	return total
}

// Truncate shortens s to at most maxWidth terminal cells, marking the cut
// with an ellipsis.
func Truncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if DisplayWidth(s) <= maxWidth {
		return s
	}

	var b strings.Builder
	used := 0
	for _, r := range s {
		w := runeWidth(r)
		if used+w > maxWidth-1 {
			break
		}
		b.WriteRune(r)
		used += w
	}
	b.WriteString("…")
	return b.String()
}

// PadRight appends spaces until s fills width terminal cells
func PadRight(s string, width int) string {
	if gap := width - DisplayWidth(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func runeWidth(r rune) int {
	if r < 0x20 {
		return 0
	}
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

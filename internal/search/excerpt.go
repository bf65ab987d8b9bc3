package search

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const excerptRadius = 20

// fold lowercases rune by rune so that rune offsets line up with the
// original text.
func fold(s string, caseSensitive bool) string {
	if caseSensitive {
		return s
	}
	return strings.Map(unicode.ToLower, s)
}

// firstMatch returns the rune offset and rune length of the earliest
// occurrence of any term in folded, or -1.
func firstMatch(folded string, terms []string) (offset, length int) {
	best, bestLen := -1, 0
	for _, t := range terms {
		i := strings.Index(folded, t)
		if i < 0 {
			continue
		}
		if best < 0 || i < best || i == best && len(t) > bestLen {
			best, bestLen = i, len(t)
		}
	}
	if best < 0 {
		return -1, 0
	}
	return utf8.RuneCountInString(folded[:best]), utf8.RuneCountInString(folded[best : best+bestLen])
}

// excerptAt cuts up to excerptRadius runes either side of the match and
// marks truncated edges with "...".
func excerptAt(text []rune, offset, length int) string {
	start := max(0, offset-excerptRadius)
	end := min(len(text), offset+length+excerptRadius)
	out := strings.TrimSpace(string(text[start:end]))
	if start > 0 {
		out = "..." + out
	}
	if end < len(text) {
		out += "..."
	}
	return out
}

// lineAt is the 1-based line number of the rune at offset.
func lineAt(text []rune, offset int) int {
	line := 1
	for _, r := range text[:offset] {
		if r == '\n' {
			line++
		}
	}
	return line
}

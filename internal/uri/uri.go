// Package uri builds obsidian:// deep links to vault notes.
package uri

import (
	"strings"
)

const scheme = "obsidian:///"

// ForNote returns the deep link for notePath (vault-relative) inside the vault
// rooted at vaultPath. The .md extension is dropped and every path segment is
// percent-encoded; separators are kept.
func ForNote(vaultPath, notePath string) string {
	notePath = strings.TrimPrefix(strings.ReplaceAll(notePath, `\`, "/"), "/")
	vaultPath = strings.TrimSuffix(strings.ReplaceAll(vaultPath, `\`, "/"), "/")

	full := strings.TrimSuffix(vaultPath+"/"+notePath, ".md")
	segments := strings.Split(full, "/")
	for i, s := range segments {
		segments[i] = escapeComponent(s)
	}
	return scheme + strings.Join(segments, "/")
}

const upperhex = "0123456789ABCDEF"

// escapeComponent percent-encodes s as UTF-8, leaving only the unreserved
// set A-Z a-z 0-9 - _ . ! ~ * ' ( ) untouched.
func escapeComponent(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if unreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(upperhex[c>>4])
		b.WriteByte(upperhex[c&0x0f])
	}
	return b.String()
}

func unreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	switch c {
	case '-', '_', '.', '!', '~', '*', '\'', '(', ')':
		return true
	}
	return false
}

package model

import (
	"strings"
	"unicode"
)

// NormalizeHash strips whitespace, angle brackets and colons and lower-cases the rest,
// so "<AB:CD>" and "abcd" name the same peer.
func NormalizeHash(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '<' || r == '>' || r == ':' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// SameHash reports whether two hash representations normalize to the same key.
func SameHash(a, b string) bool {
	na := NormalizeHash(a)
	return na != "" && na == NormalizeHash(b)
}

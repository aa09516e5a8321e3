package textutil

import (
	"strings"

	"github.com/antzucaro/matchr"
)

// ContainsAny reports whether `text` contains at least one needle, case-insensitively.
func ContainsAny(text string, needles ...string) bool {
	text = strings.ToLower(text)
	for _, n := range needles {
		if strings.Contains(text, strings.ToLower(n)) {
			return true
		}
	}
	return false
}

// Similarity is the Jaro-Winkler similarity of two strings after lowercasing, in [0, 1].
func Similarity(a, b string) float64 {
	return matchr.JaroWinkler(strings.ToLower(a), strings.ToLower(b), false)
}

// Truncate cuts `s` to at most `n` runes.
func Truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

package util

import (
	"strings"
	"unicode/utf8"
)

// Truncate cuts s to at most max runes, appending "…" when it had to cut.
// Telegram rejects messages above 4096 characters.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max-1]) + "…"
}

// SplitLines returns the non-blank lines of s, trimmed.
func SplitLines(s string) []string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			out = append(out, line)
		}
	}
	return out
}

// Package utils provides shared helpers for text, vectors and logging.
package utils

import "strings"

// Truncate collapses runs of whitespace in s to single spaces and cuts the
// result to maxLen runes, appending "..." when it was cut.
// If maxLen is 0 or negative, only whitespace is collapsed.
func Truncate(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	if maxLen <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

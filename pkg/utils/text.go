// Package utils provides shared helpers for logging and console output.
package utils

// Truncate shortens s to at most maxLen runes, appending "..." when anything was cut.
// A maxLen of 0 or less returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return s
	}
	n := 0
	for i := range s {
		if n == maxLen {
			return s[:i] + "..."
		}
		n++
	}
	return s
}

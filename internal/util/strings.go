// ABOUTME: String helpers for outgoing chat text
// ABOUTME: Rune-safe truncation to a platform character limit
package util

// Truncate shortens s to at most maxLen runes, ending with "..." when cut
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

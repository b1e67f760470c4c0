package logutil

import "strings"

// SanitizeForLog strips newlines and control characters from user-provided
// strings (hosts, usernames, commands) so they cannot forge log entries.
func SanitizeForLog(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r' || r == '\t':
			b.WriteRune(' ')
		case r < 32:
			// drop remaining control characters
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Truncate shortens s to at most maxLen bytes for log output.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}

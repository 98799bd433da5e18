package models

import "strings"

// SanitizeKeySegment escapes delimiter characters in usage key segments so an
// identity containing ':' cannot address another caller's counter.
//
// Example: "user:admin" becomes "user_admin".
func SanitizeKeySegment(s string) string {
	return strings.ReplaceAll(s, ":", "_")
}

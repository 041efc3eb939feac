// Package captcha turns a captured CAPTCHA image into text: automated
// recognition with bounded retries, answer validation, and a human fallback.
package captcha

import "strings"

// Accepted answer length, inclusive.
const (
	MinLength = 4
	MaxLength = 8
)

// Valid reports whether text has the shape of a portal CAPTCHA answer:
// MinLength to MaxLength ASCII letters or digits.
func Valid(text string) bool {
	if len(text) < MinLength || len(text) > MaxLength {
		return false
	}
	for i := 0; i < len(text); i++ {
		c := text[i]
		if !('0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}

// Clean removes all whitespace from a recognizer answer ("AB 12C" -> "AB12C").
func Clean(text string) string {
	return strings.Join(strings.Fields(text), "")
}

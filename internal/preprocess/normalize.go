// Package preprocess normalizes raw text before it is embedded.
package preprocess

import "strings"

// Normalize lower-cases text, collapses every run of whitespace into a single
// space and trims the ends. Blank input yields "".
func Normalize(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// NormalizeValue is Normalize for values of unknown type. Anything that is not
// a string normalizes to "".
func NormalizeValue(v any) string {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	return Normalize(s)
}

// IsBlank reports whether text normalizes to "".
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// Package slug derives the URL-safe keys used to deduplicate records.
package slug

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Make converts a display value to a slug: accents stripped, lowercased,
// every run of other characters collapsed to a single hyphen.
// "Plomería  Rápida!" becomes "plomeria-rapida".
func Make(value string) string {
	s := strings.ToLower(strings.TrimSpace(value))
	s = removeAccents(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// removeAccents strips diacritical marks from a string.
func removeAccents(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	result, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return result
}

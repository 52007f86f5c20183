// Package util provides small string helpers shared by the command parser.
package util

import "strings"

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// WithArticle prefixes noun with "a" or "an" by its first letter.
// Empty input, or input that already starts with an article, is returned as is.
func WithArticle(noun string) string {
	noun = strings.TrimSpace(noun)
	if noun == "" {
		return noun
	}
	lower := strings.ToLower(noun)
	for _, art := range []string{"a ", "an ", "the "} {
		if strings.HasPrefix(lower, art) {
			return noun
		}
	}
	switch lower[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return "an " + noun
	}
	return "a " + noun
}

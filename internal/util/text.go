package util

import (
	"regexp"
	"strings"
)

var reSpaces = regexp.MustCompile(`\s+`)

// CollapseSpaces squeezes runs of whitespace into single spaces and trims.
func CollapseSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// CleanText collapses whitespace and truncates to maxLen runes. Returns nil
// for blank input so optional columns stay NULL instead of empty strings.
func CleanText(input string, maxLen int) *string {
	s := CollapseSpaces(input)
	if s == "" {
		return nil
	}
	s = Truncate(s, maxLen)
	return &s
}

// Truncate cuts s to at most maxLen runes.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen])
}

// TitleCase upper-cases the first letter of each space-separated word and
// lower-cases the rest.
func TitleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

func StringPtr(v string) *string { return &v }

func FloatPtr(v float64) *float64 { return &v }

package usecase

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxQueryLength caps normalized query text, in runes
const maxQueryLength = 100

// Compiled regex patterns for query normalization
var (
	// Anything that is not a letter, digit, space, hyphen or apostrophe
	queryJunkPattern = regexp.MustCompile(`[^\p{L}\p{N}\s'\-]`)

	// Hyphens and apostrophes that do not sit between two word characters
	orphanJoinerPattern = regexp.MustCompile(`(^|[^\p{L}\p{N}])['\-]+|['\-]+([^\p{L}\p{N}]|$)`)

	// Multiple spaces cleanup
	multiSpacePattern = regexp.MustCompile(`\s+`)
)

// QueryPreprocessor normalizes raw search text before scoring and cache keying
type QueryPreprocessor struct {
	maxLength int
}

// NewQueryPreprocessor creates a new query preprocessor
func NewQueryPreprocessor() *QueryPreprocessor {
	return &QueryPreprocessor{maxLength: maxQueryLength}
}

// Normalize lowercases the query, strips punctuation except inner hyphens and
// apostrophes, collapses whitespace and caps the length on a word boundary.
func (p *QueryPreprocessor) Normalize(query string) string {
	cleaned := strings.ToLower(query)
	cleaned = queryJunkPattern.ReplaceAllString(cleaned, " ")
	cleaned = orphanJoinerPattern.ReplaceAllString(cleaned, "$1 $2")
	cleaned = multiSpacePattern.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)

	return truncateOnWord(cleaned, p.maxLength)
}

// truncateOnWord cuts s to at most max runes, backing up to the last space when possible
func truncateOnWord(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)[:max]
	cut := string(runes)
	if idx := strings.LastIndex(cut, " "); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimSpace(cut)
}

package usecase

import (
	"regexp"
	"strings"
)

// Package-level compiled regex pattern for performance
var punctuationRegex = regexp.MustCompile(`[^\p{L}\p{N}\s]`)

// Fuzzy bonus applies only to "close but not identical" labels
const (
	minFuzzyDistance = 1
	maxFuzzyDistance = 2
)

// EditDistance returns the Levenshtein distance between a and b: the minimum
// number of single-rune insertions, deletions or substitutions turning a into b.
// Comparison is case-sensitive; callers lowercase both sides.
func EditDistance(a, b string) int {
	if len(a) == 0 {
		return len([]rune(b))
	}
	if len(b) == 0 {
		return len([]rune(a))
	}

	r1 := []rune(a)
	r2 := []rune(b)
	m := len(r1)
	n := len(r2)

	// Use two rows instead of full matrix for space efficiency
	prev := make([]int, n+1)
	curr := make([]int, n+1)

	for j := 0; j <= n; j++ {
		prev[j] = j
	}

	for i := 1; i <= m; i++ {
		curr[0] = i
		for j := 1; j <= n; j++ {
			cost := 0
			if r1[i-1] != r2[j-1] {
				cost = 1
			}
			curr[j] = min(
				prev[j]+1,      // deletion
				curr[j-1]+1,    // insertion
				prev[j-1]+cost, // substitution
			)
		}
		prev, curr = curr, prev
	}

	return prev[n]
}

// tokenize splits a string into lowercase tokens, dropping punctuation
func tokenize(s string) []string {
	cleaned := punctuationRegex.ReplaceAllString(strings.ToLower(s), " ")
	return strings.Fields(cleaned)
}

// closestLabelDistance compares query against the whole label, each label token,
// and each run of label tokens as long as the query, returning the smallest distance.
// Both arguments must already be lowercase.
func closestLabelDistance(queryTokens, labelTokens []string) int {
	if len(queryTokens) == 0 || len(labelTokens) == 0 {
		return -1
	}

	query := strings.Join(queryTokens, " ")
	best := EditDistance(query, strings.Join(labelTokens, " "))

	width := len(queryTokens)
	if width > len(labelTokens) {
		return best
	}

	for i := 0; i+width <= len(labelTokens); i++ {
		window := strings.Join(labelTokens[i:i+width], " ")
		if d := EditDistance(query, window); d < best {
			best = d
		}
	}
	return best
}

// isNearMatch reports whether d is inside the fuzzy bonus window
func isNearMatch(d int) bool {
	return d >= minFuzzyDistance && d <= maxFuzzyDistance
}

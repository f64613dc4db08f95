// Package similarity provides the string comparison primitives used by the
// resolution stages: a sequence-similarity ratio and the name normalization
// rules shared by deduplication and base-name grouping.
package similarity

import (
	"regexp"
	"strings"
)

// legalSuffixes are trailing vocabulary tokens stripped during normalization.
// Order matters only for readability; matching is token-based.
var legalSuffixes = map[string]bool{
	"act":         true,
	"acts":        true,
	"ordinance":   true,
	"ordinances":  true,
	"rule":        true,
	"rules":       true,
	"regulation":  true,
	"regulations": true,
	"order":       true,
	"orders":      true,
	"resolution":  true,
	"amendment":   true,
	"amendments":  true,
	"bill":        true,
	"code":        true,
}

var (
	parentheticalRe = regexp.MustCompile(`\([^)]*\)`)
	yearRe          = regexp.MustCompile(`\b(1[89]\d{2}|20\d{2})\b`)
	punctRe         = regexp.MustCompile(`[^\p{L}\p{N}\s]`)
	spaceRe         = regexp.MustCompile(`\s+`)
)

// Ratio computes a sequence-similarity ratio between two strings in [0, 1]:
// twice the length of their longest common subsequence divided by the sum of
// their lengths. Two empty strings are identical (ratio 1).
func Ratio(a, b string) float64 {
	if a == b {
		return 1.0
	}
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 || len(rb) == 0 {
		return 0.0
	}

	// Single-row LCS; partitions are small so O(n*m) is acceptable.
	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				curr[j] = prev[j-1] + 1
			} else if prev[j] >= curr[j-1] {
				curr[j] = prev[j]
			} else {
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	lcs := prev[len(rb)]
	return 2.0 * float64(lcs) / float64(len(ra)+len(rb))
}

// NormalizeName lowercases a statute name, strips punctuation, collapses
// whitespace, and removes trailing legal-suffix tokens. Used as the
// deduplication bucket key.
func NormalizeName(name string) string {
	lowered := strings.ToLower(name)
	lowered = punctRe.ReplaceAllString(lowered, " ")
	lowered = spaceRe.ReplaceAllString(lowered, " ")
	lowered = strings.TrimSpace(lowered)

	tokens := strings.Fields(lowered)
	for len(tokens) > 0 && legalSuffixes[tokens[len(tokens)-1]] {
		tokens = tokens[:len(tokens)-1]
	}
	return strings.Join(tokens, " ")
}

// BaseName derives the grouping base name: parentheticals and 4-digit years
// are removed before normalization, so "Anti-Terrorism (Amendment) Act, 1999"
// and "Anti-Terrorism Act, 1997" share the base name "anti terrorism".
func BaseName(name string) string {
	stripped := parentheticalRe.ReplaceAllString(name, " ")
	stripped = yearRe.ReplaceAllString(stripped, " ")
	return NormalizeName(stripped)
}

// IsGenericBase reports whether a base name is too short or too generic to be
// eligible for cross-partition merging, regardless of similarity score.
func IsGenericBase(base string, minLength int, stoplist []string) bool {
	if len(base) < minLength {
		return true
	}
	for _, stop := range stoplist {
		if base == stop {
			return true
		}
	}
	return false
}

package normalize

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// Ratio returns the edit-distance similarity of two strings in [0,1]:
// 1 minus the Levenshtein distance divided by the longer length.
// Either operand empty yields 0.0.
func Ratio(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	longest := utf8.RuneCountInString(a)
	if n := utf8.RuneCountInString(b); n > longest {
		longest = n
	}

	distance := levenshtein.ComputeDistance(a, b)

	return 1.0 - float64(distance)/float64(longest)
}

// TokenSortRatio compares two strings ignoring word order: both operands are
// split on whitespace, token-sorted and rejoined before taking Ratio.
// Either operand empty yields 0.0.
func TokenSortRatio(a, b string) float64 {
	if a == "" || b == "" {
		return 0.0
	}

	return Ratio(sortTokens(a), sortTokens(b))
}

func sortTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)

	return strings.Join(tokens, " ")
}

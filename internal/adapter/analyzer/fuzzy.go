package analyzer

import (
	"math"
)

// Ratio returns the normalized indel similarity of a and b on a 0-100 scale,
// rounded half to even. Two empty strings score 0.
func Ratio(a, b string) int {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}
	lcs := longestCommonSubsequence(ra, rb)
	return int(math.RoundToEven(200 * float64(lcs) / float64(total)))
}

// TokenSortRatio compares a and b after tokenizing, sorting and rejoining both,
// so word order does not affect the score.
func TokenSortRatio(a, b string) int {
	return Ratio(SortedTokens(a), SortedTokens(b))
}

// ExtractOne returns the choice with the highest TokenSortRatio against query.
// Ties keep the earliest choice. ok is false when no choice has any tokens.
func ExtractOne(query string, choices []string) (best string, score int, ok bool) {
	processed := SortedTokens(query)
	if processed == "" {
		return "", 0, false
	}

	score = -1
	for _, choice := range choices {
		c := SortedTokens(choice)
		if c == "" {
			continue
		}
		s := Ratio(processed, c)
		if s > score {
			best, score, ok = choice, s, true
			if s == 100 {
				break
			}
		}
	}
	if !ok {
		return "", 0, false
	}
	return best, score, true
}

// longestCommonSubsequence uses a rolling row so memory stays O(len(b)).
func longestCommonSubsequence(a, b []rune) int {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

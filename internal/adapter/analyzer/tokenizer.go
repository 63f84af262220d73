package analyzer

import (
	"sort"
	"strings"
	"unicode"
)

// Tokenize lowercases text and splits it on every rune that is not a letter
// or a digit.
func Tokenize(text string) []string {
	words := splitWords(text)
	for i, w := range words {
		words[i] = strings.ToLower(w)
	}
	return words
}

// SortedTokens returns the ASCII tokens of text, lowercased, sorted and joined
// by single spaces. Runes outside ASCII are dropped before splitting, so
// "Paracétamol" becomes "paractamol". Tokens are runs of letters, digits and
// underscores.
func SortedTokens(text string) string {
	var b strings.Builder
	for _, r := range text {
		switch {
		case r > unicode.MaxASCII:
		case r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteByte(' ')
		}
	}
	tokens := strings.Fields(b.String())
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

// splitWords splits text into words using unicode letter/digit boundaries.
func splitWords(text string) []string {
	var words []string
	var current strings.Builder

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			current.WriteRune(r)
		} else {
			if current.Len() > 0 {
				words = append(words, current.String())
				current.Reset()
			}
		}
	}
	if current.Len() > 0 {
		words = append(words, current.String())
	}

	return words
}

package analyzer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "amoxicillin", "amoxicillin", 100},
		{"disjoint", "abc", "xyz", 0},
		{"empty", "", "abc", 0},
		{"both empty", "", "", 0},
		// lcs 3 of 4+4 runes
		{"one substitution", "abcd", "abxd", 75},
		// lcs 17 of 20+20 runes
		{"eighty five", strings.Repeat("a", 20), strings.Repeat("a", 17) + "bbb", 85},
		// lcs 21 of 25+25 runes
		{"eighty four", strings.Repeat("a", 25), strings.Repeat("a", 21) + "bbbb", 84},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Ratio(tt.a, tt.b))
		})
	}
}

func TestRatio_RoundsHalfToEven(t *testing.T) {
	// lcs 5 of 5+11 runes = 62.5
	assert.Equal(t, 62, Ratio("aaaaa", "aaaaabbbbbb"))
}

func TestTokenSortRatio_IgnoresWordOrder(t *testing.T) {
	assert.Equal(t, 100, TokenSortRatio("gloves nitrile", "Nitrile Gloves"))
	assert.Less(t, TokenSortRatio("surgical mask", "nitrile gloves"), 50)
}

func TestTokenSortRatio_IgnoresNonASCII(t *testing.T) {
	// "paractamol" vs "paracetamol": lcs 10 of 10+11 runes
	assert.Equal(t, 95, TokenSortRatio("paracetamol", "Paracétamol"))
	assert.Equal(t, 100, TokenSortRatio("paractamol", "Paracétamol"))
}

func TestExtractOne(t *testing.T) {
	choices := []string{"surgical mask", "nitrile gloves", "latex gloves"}

	best, score, ok := ExtractOne("gloves nitrile", choices)
	assert.True(t, ok)
	assert.Equal(t, "nitrile gloves", best)
	assert.Equal(t, 100, score)
}

func TestExtractOne_TieKeepsFirst(t *testing.T) {
	best, _, ok := ExtractOne("abc", []string{"abd", "abe"})
	assert.True(t, ok)
	assert.Equal(t, "abd", best)
}

func TestExtractOne_NoChoices(t *testing.T) {
	_, _, ok := ExtractOne("gloves", nil)
	assert.False(t, ok)

	_, _, ok = ExtractOne("!!!", []string{"gloves"})
	assert.False(t, ok)
}

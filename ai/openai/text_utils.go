package openai

import (
	"slices"
	"strings"
	"unicode"

	"github.com/poiesic/newswire/core"
)

// scrubString drops control characters and collapses runs of whitespace.
func scrubString(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// sortByRelevance orders keywords by descending score, keeping model order on ties.
func sortByRelevance(keywords []core.Keyword) {
	slices.SortStableFunc(keywords, func(a, b core.Keyword) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
}

// isLetter returns true if the rune is an ASCII letter.
func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

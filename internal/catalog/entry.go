package catalog

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Entry is one activity in the catalog: a human label and the NAF codes
// it resolves to. Codes keep their curated order.
type Entry struct {
	Label string
	Codes []string
}

// Neighbor is a catalog entry scored against a query.
type Neighbor struct {
	Entry Entry
	Score float64
}

// NormalizeLabel folds an activity phrase into its canonical lookup form:
// NFD decomposition with combining marks stripped, lowercased, whitespace
// collapsed to single spaces. "Boulangerie  PÂTISSERIE" and
// "boulangerie patisserie" normalize identically.
func NormalizeLabel(label string) string {
	decomposed := norm.NFD.String(label)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

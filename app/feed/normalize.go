package feed

import (
	"strings"

	"golang.org/x/text/cases"
)

var titleFolder = cases.Fold()

// NormalizeTitle produces the uniqueness key for a title: case-folded with
// whitespace trimmed and collapsed. Matching is exact after normalization;
// punctuation differences are deliberately not fuzzy-matched.
func NormalizeTitle(title string) string {
	folded := titleFolder.String(title)
	return strings.Join(strings.Fields(folded), " ")
}

package schema

import (
	"sort"

	"github.com/texttheater/golang-levenshtein/levenshtein"
)

// Suggest returns the candidate closest to name by edit distance, or "" when
// nothing is close enough to be a likely typo.
func Suggest(name string, candidates []string) string {
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)

	best, bestDist := "", -1
	for _, c := range sorted {
		d := levenshtein.DistanceForStrings([]rune(name), []rune(c), levenshtein.DefaultOptions)
		if bestDist < 0 || d < bestDist {
			best, bestDist = c, d
		}
	}

	limit := len([]rune(name)) / 3
	if limit < 2 {
		limit = 2
	}
	if bestDist < 0 || bestDist > limit {
		return ""
	}
	return best
}

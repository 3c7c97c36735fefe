package textutil

import (
	"regexp"
	"strings"

	"github.com/antzucaro/matchr"
)

var whitespaceRegex = regexp.MustCompile(`\s+`)

// NormalizeName lowercases a name and collapses its whitespace.
func NormalizeName(name string) string {
	name = strings.ToLower(name)
	name = strings.TrimSpace(name)
	name = whitespaceRegex.ReplaceAllString(name, " ")
	return name
}

// Similarity scores how well candidate matches query in [0, 1]. Exact and
// substring matches score 1.
func Similarity(query, candidate string) float64 {
	query = NormalizeName(query)
	candidate = NormalizeName(candidate)
	if query == "" || candidate == "" {
		return 0
	}
	if strings.Contains(candidate, query) {
		return 1
	}
	return matchr.JaroWinkler(query, candidate, false)
}

// BestMatch returns the index of the candidate most similar to query, or -1
// when none reaches threshold. Earlier candidates win ties.
func BestMatch(query string, candidates []string, threshold float64) int {
	best := -1
	bestScore := threshold
	for i, c := range candidates {
		score := Similarity(query, c)
		if score > bestScore || (score == bestScore && best < 0) {
			best = i
			bestScore = score
		}
	}
	return best
}

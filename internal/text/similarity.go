package text

import "strings"

// Similarity scores how close two texts are in [0, 1]. Both inputs are run
// through Normalize first. The score is the maximum of token-set Jaccard
// similarity and normalized Levenshtein ratio, so it catches both reshuffled
// wording and lightly edited verbatim copies.
func Similarity(a, b string) float64 {
	na := Normalize(a)
	nb := Normalize(b)
	if na == "" || nb == "" {
		return 0
	}

	jaccard := tokenJaccard(na, nb)
	ratio := levenshteinRatio(na, nb)
	if jaccard > ratio {
		return jaccard
	}
	return ratio
}

// tokenJaccard computes |A∩B| / |A∪B| over the word sets of two
// pre-normalized strings.
func tokenJaccard(a, b string) float64 {
	setA := make(map[string]struct{})
	for _, w := range strings.Fields(a) {
		setA[w] = struct{}{}
	}
	setB := make(map[string]struct{})
	for _, w := range strings.Fields(b) {
		setB[w] = struct{}{}
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	intersection := 0
	for w := range setA {
		if _, ok := setB[w]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	return float64(intersection) / float64(union)
}

// levenshteinRatio returns 1 - distance/maxLen over runes of two
// pre-normalized strings, using a two-row dynamic program.
func levenshteinRatio(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)
	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	prev := make([]int, len(rb)+1)
	curr := make([]int, len(rb)+1)
	for j := range prev {
		prev[j] = j
	}

	for i := 1; i <= len(ra); i++ {
		curr[0] = i
		for j := 1; j <= len(rb); j++ {
			cost := 1
			if ra[i-1] == rb[j-1] {
				cost = 0
			}
			curr[j] = min(prev[j]+1, min(curr[j-1]+1, prev[j-1]+cost))
		}
		prev, curr = curr, prev
	}

	distance := prev[len(rb)]
	return 1 - float64(distance)/float64(maxLen)
}

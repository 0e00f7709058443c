package internal

import "strings"

// Fuzzy field-name matching via 3-gram Jaccard similarity over normalized
// names. Normalization strips separators so "priority level" and
// "PriorityLevel" compare equal before n-grams even enter the picture.

func normalizeFieldName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func trigrams(s string) *Set[string] {
	grams := NewSet[string]()
	if len(s) < 3 {
		if s != "" {
			grams.Add(s)
		}
		return grams
	}
	for i := 0; i+3 <= len(s); i++ {
		grams.Add(s[i : i+3])
	}
	return grams
}

// Similarity returns the Jaccard index of the trigram sets of the two
// names after normalization, in [0, 1].
func Similarity(a, b string) float64 {
	na, nb := normalizeFieldName(a), normalizeFieldName(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	ga, gb := trigrams(na), trigrams(nb)
	intersection := 0
	for _, g := range ga.ToSlice() {
		if gb.Contains(g) {
			intersection++
		}
	}
	union := ga.Size() + gb.Size() - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}

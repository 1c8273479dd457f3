package compare

import "github.com/scholarmatch/disambiguate/internal/normalize"

func normalizedName(s string) string {
	return normalize.Normalize(s)
}

// Jaccard computes |A∩B|/|A∪B| over the normalized elements of a and b.
// Jaccard(∅,∅) == 1.0; Jaccard(A,∅) == 0.0 for non-empty A.
func Jaccard(a, b []string) float64 {
	setA := normalizedSet(a)
	setB := normalizedSet(b)

	if len(setA) == 0 && len(setB) == 0 {
		return 1.0
	}
	if len(setA) == 0 || len(setB) == 0 {
		return 0.0
	}

	intersection := 0
	for item := range setA {
		if _, ok := setB[item]; ok {
			intersection++
		}
	}
	union := len(setA) + len(setB) - intersection
	if union == 0 {
		return 1.0
	}
	return float64(intersection) / float64(union)
}

func normalizedSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		n := normalize.Normalize(item)
		if n == "" {
			continue
		}
		set[n] = struct{}{}
	}
	return set
}

package compare

import (
	"strings"

	"github.com/scholarmatch/disambiguate/internal/normalize"
)

// tokenCollapse maps common institution-name tokens to a shared short form
// before comparison, so "University" and "Univ" score as identical tokens.
var tokenCollapse = map[string]string{
	"university": "univ",
	"institute":  "inst",
	"department": "dept",
}

func collapseAffiliationTokens(s string) string {
	fields := strings.Fields(s)
	for i, f := range fields {
		if collapsed, ok := tokenCollapse[f]; ok {
			fields[i] = collapsed
		}
	}
	return strings.Join(fields, " ")
}

func normalizedAffiliation(s string) string {
	return collapseAffiliationTokens(normalize.Normalize(s))
}

// AffiliationSimilarity is the edit-distance similarity between two
// affiliation strings after normalization and common-token collapsing.
func AffiliationSimilarity(a, b string) float64 {
	return NameSimilarity(normalizedAffiliation(a), normalizedAffiliation(b))
}

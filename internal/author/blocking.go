package author

import (
	"strings"

	"github.com/scholarmatch/disambiguate/internal/normalize"
)

const blockingPrefixLen = 30

// BlockingKeys derives the full set of tagged blocking-key strings for a
// name/ORCID/affiliation/journal tuple: every key an author is indexed
// under. Candidate retrieval for a mention walks only the subset that
// RetrievalKeys returns.
func BlockingKeys(name, orcid string, affiliations, journals []string) []string {
	var keys []string

	if orcid != "" {
		keys = append(keys, "orcid:"+normalize.CanonicalizeORCID(orcid))
	}

	surname := normalize.ExtractSurname(name)
	initial := normalize.ExtractInitial(name)
	if surname != "" {
		keys = append(keys, "surname:"+surname)
	}
	if surname != "" && initial != "" {
		keys = append(keys, "surname_initial:"+surname+"_"+strings.ToLower(initial))
	}

	for i, affil := range affiliations {
		if i >= 2 {
			break
		}
		keys = append(keys, "affil:"+blockingPrefix(affil))
	}

	for i, journal := range journals {
		if i >= 3 {
			break
		}
		keys = append(keys, "journal:"+blockingPrefix(journal))
	}

	return keys
}

// RetrievalKeys derives the narrower key subset used to look up merge
// candidates for a mention: ORCID, surname, surname+initial, and at most
// the first affiliation. Unlike BlockingKeys (used to index an author under
// every key it could ever be found by), retrieval never walks journals and
// never walks a second affiliation — widening either would let an author
// that merely shares a journal, or a less-specific affiliation, become a
// spurious candidate.
func RetrievalKeys(name, orcid string, affiliations []string) []string {
	var keys []string

	if orcid != "" {
		keys = append(keys, "orcid:"+normalize.CanonicalizeORCID(orcid))
	}

	surname := normalize.ExtractSurname(name)
	initial := normalize.ExtractInitial(name)
	if surname != "" {
		keys = append(keys, "surname:"+surname)
	}
	if surname != "" && initial != "" {
		keys = append(keys, "surname_initial:"+surname+"_"+strings.ToLower(initial))
	}

	if len(affiliations) > 0 {
		keys = append(keys, "affil:"+blockingPrefix(affiliations[0]))
	}

	return keys
}

// blockingPrefix lowercases s, replaces whitespace with underscores, and
// truncates to blockingPrefixLen runes.
func blockingPrefix(s string) string {
	normalized := strings.Join(strings.Fields(normalize.Fold(s)), "_")
	runes := []rune(normalized)
	if len(runes) > blockingPrefixLen {
		runes = runes[:blockingPrefixLen]
	}
	return string(runes)
}

package trace

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"github.com/scholarmatch/disambiguate/internal/normalize"
)

// maxJournalSamples bounds how many salted journal hashes a redacted
// mention carries.
const maxJournalSamples = 2

var lastTokenIsInitial = regexp.MustCompile(`[A-Z]\.$`)

// RedactedName is the privacy-preserving projection of a raw name: enough
// shape to debug blocking/comparison decisions without recovering the
// name itself.
type RedactedName struct {
	Hash       string `json:"hash"`
	Tokens     int    `json:"tokens"`
	Length     int    `json:"length"`
	Script     string `json:"script"`
	HasInitial bool   `json:"has_initial"`
}

// RedactedMention is the full privacy-preserving projection of a mention
// written into a trace record. ORCID is carried in the clear:
// it is already a public, verifiable identifier, never raw free text.
type RedactedMention struct {
	Name           RedactedName `json:"name"`
	ORCID          string       `json:"orcid,omitempty"`
	Affiliations   []string     `json:"affiliation,omitempty"`
	CoauthorCount  int          `json:"coauthor_count"`
	JournalCount   int          `json:"journal_count"`
	JournalSamples []string     `json:"journal_samples,omitempty"`
}

// RedactMention builds the redacted projection of one mention's raw
// fields using salt as the keyed-hash input.
func RedactMention(name, orcid string, affiliations, coauthorIDs, journals []string, salt string) RedactedMention {
	journalCount, journalSamples := RedactJournals(journals, salt)

	affHashes := make([]string, 0, len(affiliations))
	for _, aff := range affiliations {
		affHashes = append(affHashes, RedactAffiliation(aff, salt))
	}

	return RedactedMention{
		Name:           RedactName(name, salt),
		ORCID:          orcid,
		Affiliations:   affHashes,
		CoauthorCount:  len(coauthorIDs),
		JournalCount:   journalCount,
		JournalSamples: journalSamples,
	}
}

// RedactName projects a raw name into its shape: a salted hash, token and
// rune counts, detected script, and whether the final token is a bare
// initial (e.g. "J.").
func RedactName(name, salt string) RedactedName {
	tokens := strings.Fields(name)

	hasInitial := false
	if len(tokens) > 0 {
		hasInitial = lastTokenIsInitial.MatchString(tokens[len(tokens)-1])
	}

	return RedactedName{
		Hash:       hashWithSalt(name, salt, 16),
		Tokens:     len(tokens),
		Length:     len([]rune(name)),
		Script:     string(normalize.DetectScript(name)),
		HasInitial: hasInitial,
	}
}

// RedactAffiliation returns a salted, truncated hash of a raw affiliation
// string.
func RedactAffiliation(affiliation, salt string) string {
	return hashWithSalt(affiliation, salt, 16)
}

// RedactJournals returns the total journal count and up to
// maxJournalSamples salted hashes of individual journals.
func RedactJournals(journals []string, salt string) (count int, samples []string) {
	count = len(journals)

	n := len(journals)
	if n > maxJournalSamples {
		n = maxJournalSamples
	}
	samples = make([]string, 0, n)
	for _, journal := range journals[:n] {
		samples = append(samples, hashWithSalt(journal, salt, 12))
	}

	return count, samples
}

func hashWithSalt(s, salt string, hexLen int) string {
	sum := sha256.Sum256([]byte(s + "||" + salt))
	encoded := hex.EncodeToString(sum[:])
	if hexLen > len(encoded) {
		hexLen = len(encoded)
	}
	return encoded[:hexLen]
}

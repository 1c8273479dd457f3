// Package mention defines the immutable input to one disambiguation
// decision: an author's name as it appears on a single publication,
// together with the contextual evidence used to resolve it.
package mention

import "sort"

// Provenance carries optional metadata about the publication a mention was
// observed on. It is kept on the Mention untouched and is never scored; the
// trace record does not include it.
type Provenance struct {
	DOI              string
	PublicationTitle string
	Year             int
}

// Mention is one observation of an author on one publication. A Mention is
// immutable once constructed; use New to build one.
type Mention struct {
	name         string
	orcid        string
	affiliations map[string]struct{}
	coauthorIDs  map[string]struct{}
	journals     map[string]struct{}
	provenance   Provenance
}

// Input is the constructor-time shape for a Mention's fields; it mirrors the
// external wire shape before set deduplication.
type Input struct {
	Name         string
	ORCID        string
	Affiliations []string
	CoauthorIDs  []string
	Journals     []string
	Provenance   Provenance
}

// New builds an immutable Mention from an Input, deduplicating all
// set-valued fields. ORCID canonicalization is the caller's responsibility;
// New does not re-canonicalize.
func New(in Input) Mention {
	return Mention{
		name:         in.Name,
		orcid:        in.ORCID,
		affiliations: toSet(in.Affiliations),
		coauthorIDs:  toSet(in.CoauthorIDs),
		journals:     toSet(in.Journals),
		provenance:   in.Provenance,
	}
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	return set
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Name returns the mention's raw (un-normalized) name.
func (m Mention) Name() string { return m.name }

// ORCID returns the mention's ORCID, or "" if absent.
func (m Mention) ORCID() string { return m.orcid }

// HasORCID reports whether the mention carries an ORCID.
func (m Mention) HasORCID() bool { return m.orcid != "" }

// Affiliations returns the mention's affiliations in sorted order.
func (m Mention) Affiliations() []string { return sortedKeys(m.affiliations) }

// CoauthorIDs returns the mention's coauthor ids in sorted order.
func (m Mention) CoauthorIDs() []string { return sortedKeys(m.coauthorIDs) }

// Journals returns the mention's journals in sorted order.
func (m Mention) Journals() []string { return sortedKeys(m.journals) }

// Provenance returns the mention's provenance metadata.
func (m Mention) Provenance() Provenance { return m.provenance }

// Package author defines the canonical Author entity, the multi-key
// blocking index used to retrieve merge candidates, and the in-memory
// Repository the decision engine is specified against.
package author

import "time"

// Author is the canonical entity a mention may resolve to. All set-valued
// fields are kept deduplicated and sorted by the Repository; callers must
// not mutate the slices returned from a Repository in place.
type Author struct {
	AuthorID         string    `json:"author_id"`
	CanonicalName    string    `json:"canonical_name"`
	AlternateNames   []string  `json:"alternate_names"`
	ORCID            string    `json:"orcid,omitempty"`
	CoauthorIDs      []string  `json:"coauthor_ids"`
	Journals         []string  `json:"journals"`
	Affiliations     []string  `json:"affiliations"`
	PublicationCount int       `json:"publication_count"`
	Confidence       float64   `json:"confidence"`
	LastUpdated      time.Time `json:"last_updated"`
}

// NewAuthor is the constructor-time shape for Add: the fields of a freshly
// observed mention that should seed a new canonical entity.
type NewAuthor struct {
	CanonicalName string
	ORCID         string
	CoauthorIDs   []string
	Journals      []string
	Affiliations  []string
}

// Delta describes the fields a MERGE contributes to an existing Author.
// Update unions every set field into the author's current sets; it never
// removes anything.
type Delta struct {
	AlternateName string
	CoauthorIDs   []string
	Journals      []string
	Affiliations  []string
}

// Clone returns a deep copy of a, safe for a caller to mutate.
func (a Author) Clone() Author {
	out := a
	out.AlternateNames = append([]string(nil), a.AlternateNames...)
	out.CoauthorIDs = append([]string(nil), a.CoauthorIDs...)
	out.Journals = append([]string(nil), a.Journals...)
	out.Affiliations = append([]string(nil), a.Affiliations...)
	return out
}

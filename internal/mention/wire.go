package mention

import "encoding/json"

// AffiliationField accepts the wire shape's "affiliation: string | string[]"
// and normalizes it to a slice, shared by every caller that
// decodes a mention from JSON (the CLI's `decide` command and the REST
// API's POST /v1/mentions).
type AffiliationField []string

// UnmarshalJSON implements json.Unmarshaler.
func (f *AffiliationField) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*f = nil
		} else {
			*f = []string{single}
		}
		return nil
	}
	var multi []string
	if err := json.Unmarshal(data, &multi); err != nil {
		return err
	}
	*f = multi
	return nil
}

// Wire is the external JSON shape a mention is ingested from:
// required name, optional orcid, affiliation as either a string or an
// array, coauthor and journal lists, and provenance metadata carried
// through but never scored.
type Wire struct {
	Name             string           `json:"name" binding:"required"`
	ORCID            string           `json:"orcid"`
	Affiliation      AffiliationField `json:"affiliation"`
	Coauthors        []string         `json:"coauthors"`
	Journals         []string         `json:"journals"`
	DOI              string           `json:"doi"`
	PublicationTitle string           `json:"publication_title"`
	Year             int              `json:"year"`
}

// ToInput converts a decoded Wire into an Input ready for New. ORCID
// canonicalization is left to the caller, matching New's own
// contract.
func (w Wire) ToInput() Input {
	return Input{
		Name:         w.Name,
		ORCID:        w.ORCID,
		Affiliations: w.Affiliation,
		CoauthorIDs:  w.Coauthors,
		Journals:     w.Journals,
		Provenance: Provenance{
			DOI:              w.DOI,
			PublicationTitle: w.PublicationTitle,
			Year:             w.Year,
		},
	}
}

// ParseJSON decodes one wire-shaped mention from data.
func ParseJSON(data []byte) (Wire, error) {
	var w Wire
	err := json.Unmarshal(data, &w)
	return w, err
}

// Package compare produces the per-feature comparison vector between a
// mention and a candidate author: a raw similarity in [0,1] (or boolean)
// plus a discretized bin label.
package compare

import "github.com/scholarmatch/disambiguate/internal/normalize"

// Feature identifies one comparison dimension.
type Feature string

const (
	FeatureAffiliation Feature = "affiliation"
	FeatureChineseName Feature = "chinese_name"
	FeatureCoauthor    Feature = "coauthor"
	FeatureJournal     Feature = "journal"
	FeatureName        Feature = "name"
	FeatureOrcid       Feature = "orcid"
)

// Order is the fixed lexicographic feature iteration order the scorer and
// deterministic hash depend on for reproducible summation.
var Order = []Feature{FeatureAffiliation, FeatureChineseName, FeatureCoauthor, FeatureJournal, FeatureName, FeatureOrcid}

// Bin is a coarse discretization of a raw similarity, stabilizing the input
// to the Fellegi-Sunter m/u lookup.
type Bin string

const (
	BinExact   Bin = "exact"
	BinHigh    Bin = "high"
	BinMedium  Bin = "medium"
	BinLow     Bin = "low"
	BinNone    Bin = "none"
	BinMatch   Bin = "match"
	BinMissing Bin = "missing"
	BinUnknown Bin = "unknown"
)

// Value is one feature's comparison result: a raw similarity and its bin.
type Value struct {
	Raw float64
	Bin Bin
}

// Vector is the comparison result for a (mention, candidate) pair. It is a
// pure value — no references to mutable state.
type Vector map[Feature]Value

// Mention is the minimal shape compare needs from a mention; avoids an
// import of the mention package so compare stays a leaf dependency.
type Mention struct {
	Name         string
	ORCID        string
	Affiliations []string
	CoauthorIDs  []string
	Journals     []string
}

// Candidate is the minimal shape compare needs from a candidate author.
type Candidate struct {
	CanonicalName  string
	AlternateNames []string
	ORCID          string
	Affiliations   []string
	CoauthorIDs    []string
	Journals       []string
}

// Compare produces the full comparison vector for one (mention, candidate)
// pair. normalizer, if non-nil, populates the optional chinese_name feature.
func Compare(m Mention, c Candidate, normalizer func(name string) (normalized string, confidence float64)) Vector {
	v := Vector{
		FeatureName:        compareName(m.Name, c),
		FeatureOrcid:       compareOrcid(m.ORCID, c.ORCID),
		FeatureCoauthor:    compareJaccard(m.CoauthorIDs, c.CoauthorIDs),
		FeatureJournal:     compareJaccard(normalizeAll(m.Journals), normalizeAll(c.Journals)),
		FeatureAffiliation: compareAffiliation(m.Affiliations, c.Affiliations),
	}
	if normalizer != nil {
		_, confidence := normalizer(m.Name)
		v[FeatureChineseName] = Value{Raw: confidence, Bin: binChineseName(confidence)}
	}
	return v
}

func normalizeAll(items []string) []string {
	out := make([]string, len(items))
	for i, item := range items {
		out[i] = normalize.Normalize(item)
	}
	return out
}

func compareName(mentionName string, c Candidate) Value {
	best := NameSimilarity(mentionName, c.CanonicalName)
	for _, alt := range c.AlternateNames {
		if sim := NameSimilarity(mentionName, alt); sim > best {
			best = sim
		}
	}
	return Value{Raw: best, Bin: binName(best)}
}

func compareOrcid(mentionOrcid, candidateOrcid string) Value {
	if mentionOrcid == "" || candidateOrcid == "" {
		return Value{Raw: 0, Bin: BinMissing}
	}
	if normalize.CanonicalizeORCID(mentionOrcid) == normalize.CanonicalizeORCID(candidateOrcid) {
		return Value{Raw: 1, Bin: BinMatch}
	}
	return Value{Raw: 0, Bin: BinMissing}
}

func compareJaccard(a, b []string) Value {
	sim := Jaccard(a, b)
	return Value{Raw: sim, Bin: binSetSimilarity(sim)}
}

func compareAffiliation(mentionAffils, candidateAffils []string) Value {
	best := 0.0
	for _, ma := range mentionAffils {
		for _, ca := range candidateAffils {
			if sim := AffiliationSimilarity(ma, ca); sim > best {
				best = sim
			}
		}
	}
	return Value{Raw: best, Bin: binAffiliation(best)}
}

func binName(sim float64) Bin {
	switch {
	case sim >= 0.95:
		return BinExact
	case sim >= 0.75:
		return BinHigh
	case sim >= 0.50:
		return BinMedium
	case sim > 0:
		return BinLow
	default:
		return BinNone
	}
}

func binSetSimilarity(sim float64) Bin {
	switch {
	case sim >= 0.50:
		return BinHigh
	case sim >= 0.20:
		return BinMedium
	case sim > 0:
		return BinLow
	default:
		return BinNone
	}
}

func binAffiliation(sim float64) Bin {
	switch {
	case sim >= 0.90:
		return BinExact
	case sim >= 0.70:
		return BinHigh
	case sim >= 0.40:
		return BinMedium
	case sim > 0:
		return BinLow
	default:
		return BinNone
	}
}

func binChineseName(confidence float64) Bin {
	switch {
	case confidence >= 0.75:
		return BinHigh
	case confidence >= 0.40:
		return BinMedium
	case confidence > 0:
		return BinLow
	default:
		return BinUnknown
	}
}

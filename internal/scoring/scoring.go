// Package scoring aggregates a comparison vector into a single scalar
// score, in one of two modes: a weighted-sum baseline or a Fellegi-Sunter
// log-likelihood sum.
package scoring

import (
	"math"

	"github.com/scholarmatch/disambiguate/internal/compare"
	"github.com/scholarmatch/disambiguate/internal/logging"
	"github.com/scholarmatch/disambiguate/pkg/config"
)

var log = logging.GetLogger("scoring")

// Mode is the tagged variant of the two scoring strategies this package
// implements.
type Mode string

const (
	Baseline      Mode = "baseline"
	FellegiSunter Mode = "fs"
)

// epsilon floors a zero m or u before taking its log.
const epsilon = 1e-10

// Score aggregates comparisons into (score_total, components) using the
// strategy named by cfg.Mode. Feature iteration follows compare.Order, the
// fixed lexicographic order the deterministic hash depends on.
func Score(comparisons compare.Vector, cfg *config.Config) (float64, map[string]float64) {
	switch Mode(cfg.Mode) {
	case FellegiSunter:
		return scoreFellegiSunter(comparisons, cfg)
	default:
		return scoreBaseline(comparisons, cfg)
	}
}

// scoreBaseline computes Σ w_f · raw_f over features with w_f > 0 present
// in both the comparison vector and cfg.SimilarityWeights. score_total is
// always in [0,1] when weights sum to 1 and every raw_f is in [0,1].
func scoreBaseline(comparisons compare.Vector, cfg *config.Config) (float64, map[string]float64) {
	total := 0.0
	components := make(map[string]float64, len(compare.Order))

	for _, feature := range compare.Order {
		w, ok := cfg.SimilarityWeights[string(feature)]
		if !ok || w <= 0 {
			continue
		}
		value, ok := comparisons[feature]
		if !ok {
			continue
		}
		contribution := w * value.Raw
		components[string(feature)] = contribution
		total += contribution
	}

	return total, components
}

// scoreFellegiSunter computes Σ log(m/u) over features present in both the
// comparison vector and cfg.MuTable. Features unknown to the table are
// skipped silently (debug log); a zero m or u is floored to epsilon first
// (warn log).
func scoreFellegiSunter(comparisons compare.Vector, cfg *config.Config) (float64, map[string]float64) {
	total := 0.0
	components := make(map[string]float64, len(compare.Order))

	for _, feature := range compare.Order {
		value, ok := comparisons[feature]
		if !ok {
			continue
		}
		table, ok := cfg.MuTable[string(feature)]
		if !ok {
			log.Debug("feature not in mu_table, skipping", "feature", feature)
			continue
		}
		mu, ok := table[string(value.Bin)]
		if !ok {
			log.Debug("bin not in mu_table, skipping", "feature", feature, "bin", value.Bin)
			continue
		}

		m, u := mu.M, mu.U
		if m <= 0 {
			log.Warn("m floored to epsilon", "feature", feature, "bin", value.Bin)
			m = epsilon
		}
		if u <= 0 {
			log.Warn("u floored to epsilon", "feature", feature, "bin", value.Bin)
			u = epsilon
		}

		contribution := math.Log(m / u)
		components[string(feature)] = contribution
		total += contribution
	}

	return total, components
}

// Package nameplugin defines the pluggable name-normalizer capability used
// by the comparison layer's optional chinese_name feature, plus a small
// built-in heuristic implementation.
package nameplugin

import (
	"strings"

	"github.com/scholarmatch/disambiguate/internal/normalize"
)

// Normalizer is a single-method capability: given a raw name, it returns a
// normalized form and a confidence in [0,1] that the normalization applies.
// Passed by the caller, not dispatched through an open class hierarchy.
type Normalizer interface {
	Normalize(name string) (normalized string, confidence float64)
}

// ScriptHeuristic is a small illustrative Normalizer: it collapses
// whitespace between CJK characters (a common transliteration typo class)
// and reports confidence from the name's detected script.
type ScriptHeuristic struct{}

// Normalize implements Normalizer.
func (ScriptHeuristic) Normalize(name string) (string, float64) {
	script := normalize.DetectScript(name)

	var normalized string
	switch script {
	case normalize.ScriptCJK:
		normalized = strings.ReplaceAll(name, " ", "")
	default:
		normalized = name
	}

	switch script {
	case normalize.ScriptCJK:
		return normalized, 0.9
	case normalize.ScriptMixed:
		return normalized, 0.5
	default:
		return normalized, 0.0
	}
}

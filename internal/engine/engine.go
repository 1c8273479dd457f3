// Package engine orchestrates one disambiguation decision: blocking key
// derivation, candidate retrieval, per-candidate comparison and scoring,
// the dual-threshold decision, repository mutation, and the trace write.
package engine

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/scholarmatch/disambiguate/internal/author"
	"github.com/scholarmatch/disambiguate/internal/compare"
	"github.com/scholarmatch/disambiguate/internal/logging"
	"github.com/scholarmatch/disambiguate/internal/mention"
	"github.com/scholarmatch/disambiguate/internal/nameplugin"
	"github.com/scholarmatch/disambiguate/internal/scoring"
	"github.com/scholarmatch/disambiguate/internal/trace"
	"github.com/scholarmatch/disambiguate/pkg/config"
)

var log = logging.GetLogger("engine")

// Thresholds is the accept/reject pair a decision was made against.
type Thresholds struct {
	Accept float64 `json:"accept"`
	Reject float64 `json:"reject"`
}

// RankedCandidate is one entry of a DecisionResult's top_k list.
type RankedCandidate struct {
	AuthorID   string             `json:"author_id"`
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

// DecisionResult is the immutable outcome of one Decide call.
// BestAuthorID is set iff Decision == "MERGE".
type DecisionResult struct {
	Decision          string             `json:"decision"`
	BestAuthorID      string             `json:"best_author_id,omitempty"`
	ScoreTotal        float64            `json:"score_total"`
	ScoreComponents   map[string]float64 `json:"score_components"`
	Comparisons       compare.Vector     `json:"comparisons"`
	Thresholds        Thresholds         `json:"thresholds"`
	Mode              string             `json:"mode"`
	TopK              []RankedCandidate  `json:"top_k"`
	BlockingKeys      []string           `json:"blocking_keys"`
	CandidateCount    int                `json:"candidate_count"`
	RunID             string             `json:"run_id"`
	DeterministicHash string             `json:"deterministic_hash"`
	Reason            string             `json:"reason"`
}

// Engine is single-threaded with respect to mutation: concurrent Decide
// calls on one Engine sharing one repository must be serialized by the
// caller.
type Engine struct {
	repo       author.Repository
	cfg        *config.Config
	normalizer nameplugin.Normalizer
	tracer     *trace.Logger
	validate   *validator.Validate
	runID      string
}

// NewEngine constructs an Engine. cfg is validated here — configuration
// errors are fatal to start-up, never surfaced mid-decision.
// normalizer and tracer may be nil: a nil normalizer disables the
// chinese_name feature; a nil tracer disables tracing entirely.
func NewEngine(repo author.Repository, cfg *config.Config, normalizer nameplugin.Normalizer, tracer *trace.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		repo:       repo,
		cfg:        cfg,
		normalizer: normalizer,
		tracer:     tracer,
		validate:   validator.New(),
		runID:      "run_" + uuid.New().String(),
	}, nil
}

type validatableMention struct {
	Name string `validate:"required"`
}

type scoredCandidate struct {
	author     author.Author
	vector     compare.Vector
	score      float64
	components map[string]float64
}

// Decide runs one mention through the full pipeline: blocking key
// derivation, candidate retrieval, comparison, scoring, the dual-threshold
// rule, repository mutation, and the trace write.
func (e *Engine) Decide(ctx context.Context, m mention.Mention) (*DecisionResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := e.validateMention(m); err != nil {
		return nil, err
	}

	keys := author.RetrievalKeys(m.Name(), m.ORCID(), m.Affiliations())
	candidates, truncated := e.repo.Candidates(keys, e.cfg.MaxCandidates)
	if truncated {
		log.Warn("candidate retrieval truncated", "max_candidates", e.cfg.MaxCandidates, "blocking_keys", len(keys))
	}

	scored := e.scoreCandidates(m, candidates)
	topK := buildTopK(scored, e.cfg.TopK)

	decision, scoreTotal, components, vector, bestAuthorID, reason := e.classify(scored)

	decision, bestAuthorID, reason, err := e.apply(decision, bestAuthorID, reason, scoreTotal, m)
	if err != nil {
		return nil, err
	}

	result := &DecisionResult{
		Decision:        decision,
		BestAuthorID:    bestAuthorID,
		ScoreTotal:      round6(scoreTotal),
		ScoreComponents: roundComponents(components),
		Comparisons:     vector,
		Thresholds:      Thresholds{Accept: e.cfg.AcceptThreshold, Reject: e.cfg.RejectThreshold},
		Mode:            e.cfg.Mode,
		TopK:            topK,
		BlockingKeys:    keys,
		CandidateCount:  len(candidates),
		RunID:           e.runID,
		Reason:          reason,
	}
	result.DeterministicHash = computeHash(result)

	if e.tracer != nil {
		e.tracer.Write(traceInputFromResult(result, m))
	}

	return result, nil
}

func (e *Engine) validateMention(m mention.Mention) error {
	if err := e.validate.Struct(validatableMention{Name: m.Name()}); err != nil {
		return &InvalidMentionError{Reason: "name is required"}
	}
	if strings.TrimSpace(m.Name()) == "" {
		return &InvalidMentionError{Reason: "name is whitespace-only"}
	}
	return nil
}

func (e *Engine) scoreCandidates(m mention.Mention, candidates []author.Author) []scoredCandidate {
	mentionForCompare := toCompareMention(m)
	normalizer := e.normalizerFunc()

	scored := make([]scoredCandidate, 0, len(candidates))
	for _, cand := range candidates {
		vector := compare.Compare(mentionForCompare, toCompareCandidate(cand), normalizer)
		total, components := scoring.Score(vector, e.cfg)
		scored = append(scored, scoredCandidate{author: cand, vector: vector, score: total, components: components})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].author.AuthorID < scored[j].author.AuthorID
	})

	return scored
}

func (e *Engine) normalizerFunc() func(string) (string, float64) {
	if e.normalizer == nil {
		return nil
	}
	return e.normalizer.Normalize
}

// classify applies the dual-threshold rule to the sorted candidate scores
// and returns the pre-mutation decision.
func (e *Engine) classify(scored []scoredCandidate) (decision string, scoreTotal float64, components map[string]float64, vector compare.Vector, bestAuthorID, reason string) {
	if len(scored) == 0 {
		return "NEW", 0, map[string]float64{}, compare.Vector{}, "", "no candidates retrieved"
	}

	best := scored[0]
	scoreTotal = best.score
	components = best.components
	vector = best.vector

	switch {
	case best.score >= e.cfg.AcceptThreshold:
		decision = "MERGE"
		bestAuthorID = best.author.AuthorID
		reason = fmt.Sprintf("score %.6f >= accept_threshold %.6f", best.score, e.cfg.AcceptThreshold)
	case best.score <= e.cfg.RejectThreshold:
		decision = "NEW"
		reason = fmt.Sprintf("score %.6f <= reject_threshold %.6f", best.score, e.cfg.RejectThreshold)
	default:
		decision = "UNKNOWN"
		reason = fmt.Sprintf("score %.6f between reject_threshold %.6f and accept_threshold %.6f", best.score, e.cfg.RejectThreshold, e.cfg.AcceptThreshold)
	}

	return decision, scoreTotal, components, vector, bestAuthorID, reason
}

// apply mutates the repository for MERGE/NEW decisions. A NEW that
// collides with an already-owned ORCID is converted to a MERGE against
// that ORCID's owner, overriding the score-driven decision.
func (e *Engine) apply(decision, bestAuthorID, reason string, scoreTotal float64, m mention.Mention) (string, string, string, error) {
	switch decision {
	case "MERGE":
		updated, err := e.repo.Update(bestAuthorID, deltaFromMention(m))
		if err != nil {
			return decision, bestAuthorID, reason, err
		}
		return decision, updated.AuthorID, reason, nil

	case "NEW":
		_, err := e.repo.Add(newAuthorFromMention(m))
		if err == nil {
			return decision, bestAuthorID, reason, nil
		}

		var dup *author.DuplicateOrcidError
		if !errors.As(err, &dup) {
			return decision, bestAuthorID, reason, err
		}

		overriddenReason := fmt.Sprintf("duplicate orcid override: orcid %s already owned by %s (score %.6f)", dup.ORCID, dup.OwnerID, scoreTotal)
		updated, uerr := e.repo.Update(dup.OwnerID, deltaFromMention(m))
		if uerr != nil {
			return decision, bestAuthorID, reason, uerr
		}
		return "MERGE", updated.AuthorID, overriddenReason, nil

	default:
		return decision, bestAuthorID, reason, nil
	}
}

func buildTopK(scored []scoredCandidate, k int) []RankedCandidate {
	if k > len(scored) {
		k = len(scored)
	}
	out := make([]RankedCandidate, 0, k)
	for _, s := range scored[:k] {
		out = append(out, RankedCandidate{
			AuthorID:   s.author.AuthorID,
			Score:      round6(s.score),
			Components: roundComponents(s.components),
		})
	}
	return out
}

func toCompareMention(m mention.Mention) compare.Mention {
	return compare.Mention{
		Name:         m.Name(),
		ORCID:        m.ORCID(),
		Affiliations: m.Affiliations(),
		CoauthorIDs:  m.CoauthorIDs(),
		Journals:     m.Journals(),
	}
}

func toCompareCandidate(a author.Author) compare.Candidate {
	return compare.Candidate{
		CanonicalName:  a.CanonicalName,
		AlternateNames: a.AlternateNames,
		ORCID:          a.ORCID,
		Affiliations:   a.Affiliations,
		CoauthorIDs:    a.CoauthorIDs,
		Journals:       a.Journals,
	}
}

func newAuthorFromMention(m mention.Mention) author.NewAuthor {
	return author.NewAuthor{
		CanonicalName: m.Name(),
		ORCID:         m.ORCID(),
		CoauthorIDs:   m.CoauthorIDs(),
		Journals:      m.Journals(),
		Affiliations:  m.Affiliations(),
	}
}

func deltaFromMention(m mention.Mention) author.Delta {
	return author.Delta{
		AlternateName: m.Name(),
		CoauthorIDs:   m.CoauthorIDs(),
		Journals:      m.Journals(),
		Affiliations:  m.Affiliations(),
	}
}

// computeHash derives the decision's deterministic hash: sha256 of a
// canonical JSON object over {decision, score_total, score_components,
// best_author_id, mode, thresholds}, truncated to its first 12 hex
// characters. encoding/json sorts map keys, giving the canonical
// serialization the hash's reproducibility depends on.
func computeHash(r *DecisionResult) string {
	canonical := map[string]any{
		"decision":         r.Decision,
		"score_total":      r.ScoreTotal,
		"score_components": r.ScoreComponents,
		"best_author_id":   r.BestAuthorID,
		"mode":             r.Mode,
		"thresholds":       map[string]float64{"accept": r.Thresholds.Accept, "reject": r.Thresholds.Reject},
	}
	data, err := json.Marshal(canonical)
	if err != nil {
		log.Error("failed to marshal canonical decision for hashing", "error", err)
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:12]
}

func traceInputFromResult(r *DecisionResult, m mention.Mention) trace.Input {
	topK := make([]trace.TopKEntry, 0, len(r.TopK))
	for _, t := range r.TopK {
		topK = append(topK, trace.TopKEntry{AuthorID: t.AuthorID, Score: t.Score, Components: t.Components})
	}

	return trace.Input{
		RunID:               r.RunID,
		Mode:                r.Mode,
		Decision:            strings.ToLower(r.Decision),
		ScoreTotal:          r.ScoreTotal,
		ScoreComponents:     r.ScoreComponents,
		Comparisons:         r.Comparisons,
		Thresholds:          trace.Thresholds{Accept: r.Thresholds.Accept, Reject: r.Thresholds.Reject},
		BestAuthorID:        r.BestAuthorID,
		TopK:                topK,
		BlockingKeys:        r.BlockingKeys,
		CandidateCount:      r.CandidateCount,
		DeterministicHash:   r.DeterministicHash,
		Reason:              r.Reason,
		MentionName:         m.Name(),
		MentionORCID:        m.ORCID(),
		MentionAffiliations: m.Affiliations(),
		MentionCoauthorIDs:  m.CoauthorIDs(),
		MentionJournals:     m.Journals(),
	}
}

func round6(f float64) float64 {
	const scale = 1e6
	rounded := f * scale
	if rounded < 0 {
		rounded -= 0.5
	} else {
		rounded += 0.5
	}
	return float64(int64(rounded)) / scale
}

func roundComponents(components map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(components))
	for k, v := range components {
		out[k] = round6(v)
	}
	return out
}

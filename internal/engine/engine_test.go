package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/scholarmatch/disambiguate/internal/author"
	"github.com/scholarmatch/disambiguate/internal/mention"
	"github.com/scholarmatch/disambiguate/pkg/config"
)

func newTestEngine(t *testing.T, cfg *config.Config) (*Engine, *author.MemoryRepository) {
	t.Helper()
	repo := author.NewMemoryRepository()
	eng, err := NewEngine(repo, cfg, nil, nil)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, repo
}

func TestDecideExactMatchMerges(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, repo := newTestEngine(t, cfg)

	seeded, err := repo.Add(author.NewAuthor{
		CanonicalName: "John Smith",
		ORCID:         "0000-0001-2345-6789",
		Journals:      []string{"Nature"},
		CoauthorIDs:   []string{"au_1", "au_2"},
	})
	if err != nil {
		t.Fatalf("seed Add: %v", err)
	}

	m := mention.New(mention.Input{
		Name:        "John Smith",
		ORCID:       "0000-0001-2345-6789",
		Journals:    []string{"Nature"},
		CoauthorIDs: []string{"au_1", "au_2"},
	})

	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if result.Decision != "MERGE" {
		t.Fatalf("decision = %q, want MERGE", result.Decision)
	}
	if result.BestAuthorID != seeded.AuthorID {
		t.Errorf("best_author_id = %q, want %q", result.BestAuthorID, seeded.AuthorID)
	}
	if result.ScoreTotal != 1.0 {
		t.Errorf("score_total = %v, want 1.0", result.ScoreTotal)
	}
	want := map[string]float64{"name": 0.5, "coauthor": 0.3, "journal": 0.2}
	for k, v := range want {
		if result.ScoreComponents[k] != v {
			t.Errorf("components[%s] = %v, want %v", k, result.ScoreComponents[k], v)
		}
	}
}

func TestDecideNoCandidatesIsNew(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, _ := newTestEngine(t, cfg)

	m := mention.New(mention.Input{Name: "Alice Wang"})
	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if result.Decision != "NEW" {
		t.Fatalf("decision = %q, want NEW", result.Decision)
	}
	if result.ScoreTotal != 0 {
		t.Errorf("score_total = %v, want 0", result.ScoreTotal)
	}
	if len(result.TopK) != 0 {
		t.Errorf("top_k = %v, want empty", result.TopK)
	}
	if result.CandidateCount != 0 {
		t.Errorf("candidate_count = %d, want 0", result.CandidateCount)
	}

	hasSurname, hasInitial := false, false
	for _, k := range result.BlockingKeys {
		if k == "surname:wang" {
			hasSurname = true
		}
		if k == "surname_initial:wang_a" {
			hasInitial = true
		}
	}
	if !hasSurname || !hasInitial {
		t.Errorf("blocking_keys = %v, want surname:wang and surname_initial:wang_a", result.BlockingKeys)
	}
}

func TestDecideBorderlineIsUnknownAndDoesNotMutate(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, repo := newTestEngine(t, cfg)

	seeded, err := repo.Add(author.NewAuthor{
		CanonicalName: "John Smith",
		ORCID:         "0000-0001-2345-6789",
		Journals:      []string{"Nature"},
		CoauthorIDs:   []string{"au_1", "au_2"},
	})
	if err != nil {
		t.Fatalf("seed Add: %v", err)
	}
	countBefore := repo.Count()

	m := mention.New(mention.Input{
		Name:         "J. A. Smith",
		CoauthorIDs:  []string{"au_1"},
		Journals:     []string{"Cell"},
		Affiliations: []string{"Harvard Medical School"},
	})

	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if result.Decision != "UNKNOWN" {
		t.Fatalf("decision = %q, want UNKNOWN", result.Decision)
	}
	if len(result.TopK) == 0 || result.TopK[0].AuthorID != seeded.AuthorID {
		t.Errorf("top_k[0] = %v, want author_id %q", result.TopK, seeded.AuthorID)
	}
	if result.ScoreTotal <= cfg.RejectThreshold || result.ScoreTotal >= cfg.AcceptThreshold {
		t.Errorf("score_total = %v, want strictly between reject and accept", result.ScoreTotal)
	}
	if repo.Count() != countBefore {
		t.Errorf("repository was mutated on UNKNOWN: count %d -> %d", countBefore, repo.Count())
	}
}

func TestDecideDuplicateOrcidOverridesToMerge(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, repo := newTestEngine(t, cfg)

	seeded, err := repo.Add(author.NewAuthor{
		CanonicalName: "Existing Owner",
		ORCID:         "0000-0002-1111-2222",
		CoauthorIDs:   []string{"au_9"},
		Journals:      []string{"Obscure Journal"},
	})
	if err != nil {
		t.Fatalf("seed Add: %v", err)
	}

	m := mention.New(mention.Input{
		Name:        "Totally Different",
		ORCID:       "0000-0002-1111-2222",
		CoauthorIDs: []string{"au_unrelated"},
		Journals:    []string{"Another Journal"},
	})

	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if result.ScoreTotal > cfg.RejectThreshold {
		t.Fatalf("score_total = %v, want <= reject_threshold so the override is exercised", result.ScoreTotal)
	}
	if result.Decision != "MERGE" {
		t.Fatalf("decision = %q, want MERGE (duplicate orcid override)", result.Decision)
	}
	if result.BestAuthorID != seeded.AuthorID {
		t.Errorf("best_author_id = %q, want %q", result.BestAuthorID, seeded.AuthorID)
	}
	if repo.Count() != 1 {
		t.Errorf("repository count = %d, want 1 (no second author inserted)", repo.Count())
	}
}

func TestDecideDoesNotRetrieveOnJournalOrSecondAffiliationAlone(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, repo := newTestEngine(t, cfg)

	if _, err := repo.Add(author.NewAuthor{
		CanonicalName: "Completely Unrelated Name",
		Journals:      []string{"Nature"},
		Affiliations:  []string{"MIT", "Shared Second Affiliation"},
	}); err != nil {
		t.Fatalf("seed Add: %v", err)
	}

	m := mention.New(mention.Input{
		Name:         "Someone Else Entirely",
		Journals:     []string{"Nature"},
		Affiliations: []string{"Harvard", "Shared Second Affiliation"},
	})

	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if result.CandidateCount != 0 {
		t.Errorf("candidate_count = %d, want 0 (sharing only a journal and a non-first affiliation must not retrieve a candidate)", result.CandidateCount)
	}
	if result.Decision != "NEW" {
		t.Errorf("decision = %q, want NEW", result.Decision)
	}
}

func TestDecideFellegiSunterAdditivity(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = "fs"
	cfg.AcceptThreshold = 1.0
	cfg.RejectThreshold = -1.0
	cfg.MuTable = map[string]map[string]config.MU{
		"name":  {"exact": {M: 0.95, U: 0.01}},
		"orcid": {"match": {M: 0.99, U: 0.001}},
	}
	cfg.ComparisonBins = map[string][]string{"name": {"exact"}, "orcid": {"match"}}
	eng, repo := newTestEngine(t, cfg)

	seeded, err := repo.Add(author.NewAuthor{
		CanonicalName: "John Smith",
		ORCID:         "0000-0001-2345-6789",
	})
	if err != nil {
		t.Fatalf("seed Add: %v", err)
	}

	m := mention.New(mention.Input{Name: "John Smith", ORCID: "0000-0001-2345-6789"})
	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}

	want := math.Log(95) + math.Log(990)
	if math.Abs(result.ScoreTotal-want) > 1e-6 {
		t.Errorf("score_total = %v, want %v", result.ScoreTotal, want)
	}
	if result.Decision != "MERGE" || result.BestAuthorID != seeded.AuthorID {
		t.Errorf("decision/best_author_id = %q/%q, want MERGE/%q", result.Decision, result.BestAuthorID, seeded.AuthorID)
	}
}

func decideExactMatch(t *testing.T, cfg *config.Config) *DecisionResult {
	t.Helper()
	eng, repo := newTestEngine(t, cfg)
	if _, err := repo.Add(author.NewAuthor{
		CanonicalName: "John Smith",
		ORCID:         "0000-0001-2345-6789",
		Journals:      []string{"Nature"},
		CoauthorIDs:   []string{"au_1", "au_2"},
	}); err != nil {
		t.Fatalf("seed Add: %v", err)
	}
	m := mention.New(mention.Input{
		Name:        "John Smith",
		ORCID:       "0000-0001-2345-6789",
		Journals:    []string{"Nature"},
		CoauthorIDs: []string{"au_1", "au_2"},
	})
	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	return result
}

func TestDeterministicHashIsSelfConsistent(t *testing.T) {
	cfg := config.DefaultConfig()
	result := decideExactMatch(t, cfg)

	if recomputed := computeHash(result); recomputed != result.DeterministicHash {
		t.Errorf("recomputed hash %q != stored hash %q", recomputed, result.DeterministicHash)
	}
}

func TestDeterministicHashIsStableAcrossIdenticalRuns(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, repo := newTestEngine(t, cfg)
	if _, err := repo.Add(author.NewAuthor{
		CanonicalName: "John Smith",
		ORCID:         "0000-0001-2345-6789",
		Journals:      []string{"Nature"},
		CoauthorIDs:   []string{"au_1", "au_2"},
	}); err != nil {
		t.Fatalf("seed Add: %v", err)
	}
	m := mention.New(mention.Input{
		Name:        "John Smith",
		ORCID:       "0000-0001-2345-6789",
		Journals:    []string{"Nature"},
		CoauthorIDs: []string{"au_1", "au_2"},
	})

	// Both runs score the same mention against the same seeded author (author
	// ids are random per repository, so separate repositories never share
	// state).
	a, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("first Decide: %v", err)
	}
	b, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("second Decide: %v", err)
	}

	if a.DeterministicHash != b.DeterministicHash {
		t.Errorf("hash differs across identical runs: %q vs %q", a.DeterministicHash, b.DeterministicHash)
	}
	if a.ScoreTotal != b.ScoreTotal {
		t.Errorf("score_total differs across identical runs: %v vs %v", a.ScoreTotal, b.ScoreTotal)
	}
}

func TestDecideRejectsInvalidMention(t *testing.T) {
	cfg := config.DefaultConfig()
	eng, _ := newTestEngine(t, cfg)

	m := mention.New(mention.Input{Name: "   "})
	_, err := eng.Decide(context.Background(), m)
	if err == nil {
		t.Fatal("expected an error for a whitespace-only name")
	}
	var invalid *InvalidMentionError
	if !errors.As(err, &invalid) {
		t.Errorf("error = %v, want *InvalidMentionError", err)
	}
}

func TestDecideAcceptBoundaryMerges(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.AcceptThreshold = 1.0
	cfg.RejectThreshold = 0.1
	cfg.SimilarityWeights = map[string]float64{"name": 1.0}
	eng, repo := newTestEngine(t, cfg)

	if _, err := repo.Add(author.NewAuthor{CanonicalName: "Exact Match Name"}); err != nil {
		t.Fatalf("seed Add: %v", err)
	}
	m := mention.New(mention.Input{Name: "Exact Match Name"})

	result, err := eng.Decide(context.Background(), m)
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if result.Decision != "MERGE" {
		t.Errorf("decision = %q, want MERGE at exact accept boundary", result.Decision)
	}
}

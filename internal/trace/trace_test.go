package trace

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/scholarmatch/disambiguate/internal/compare"
)

func readLines(t *testing.T, path string) []Record {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			t.Fatalf("unmarshal record: %v", err)
		}
		records = append(records, r)
	}
	return records
}

func sampleInput(decision string) Input {
	return Input{
		RunID:      "run_1",
		Mode:       "baseline",
		Decision:   decision,
		ScoreTotal: 0.91234567,
		ScoreComponents: map[string]float64{
			"name": 0.5,
		},
		Comparisons: compare.Vector{
			compare.FeatureName: {Raw: 1.0, Bin: compare.BinExact},
		},
		Thresholds:          Thresholds{Accept: 0.7, Reject: 0.2},
		BestAuthorID:        "au_1",
		BlockingKeys:        []string{"surname:smith"},
		CandidateCount:      1,
		DeterministicHash:   "abc123",
		Reason:              "score >= accept_threshold",
		MentionName:         "Jane Smith",
		MentionAffiliations: []string{"MIT"},
		MentionJournals:     []string{"Nature"},
	}
}

func TestWriteAppendsToMainTrace(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.jsonl")

	logger, err := NewLogger(tracePath, "", "salt")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Write(sampleInput("merge"))
	logger.Write(sampleInput("new"))

	records := readLines(t, tracePath)
	if len(records) != 2 {
		t.Fatalf("len(records) = %d, want 2", len(records))
	}
	if records[0].Decision != "merge" || records[1].Decision != "new" {
		t.Errorf("decisions = %v", []string{records[0].Decision, records[1].Decision})
	}
	if records[0].Mention.Name.Hash == "" {
		t.Error("mention name was not redacted into a hash")
	}
}

func TestWriteDuplicatesUnknownToReviewQueue(t *testing.T) {
	dir := t.TempDir()
	tracePath := filepath.Join(dir, "trace.jsonl")
	reviewPath := filepath.Join(dir, "review.jsonl")

	logger, err := NewLogger(tracePath, reviewPath, "salt")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	logger.Write(sampleInput("merge"))
	logger.Write(sampleInput("unknown"))

	mainRecords := readLines(t, tracePath)
	if len(mainRecords) != 2 {
		t.Fatalf("len(mainRecords) = %d, want 2", len(mainRecords))
	}

	reviewRecords := readLines(t, reviewPath)
	if len(reviewRecords) != 1 {
		t.Fatalf("len(reviewRecords) = %d, want 1", len(reviewRecords))
	}
	if reviewRecords[0].Decision != "unknown" {
		t.Errorf("review record decision = %q, want unknown", reviewRecords[0].Decision)
	}
	if reviewRecords[0].ReviewStatus != "pending" {
		t.Errorf("review_status = %q, want pending", reviewRecords[0].ReviewStatus)
	}
	if reviewRecords[0].ReviewTimestamp == nil {
		t.Error("review_timestamp was not set")
	}
}

func TestWriteWithNoPathsIsNoop(t *testing.T) {
	logger, err := NewLogger("", "", "salt")
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	logger.Write(sampleInput("merge"))
}

func TestFlattenComparisonsRoundsRawSimilarity(t *testing.T) {
	v := compare.Vector{compare.FeatureName: {Raw: 0.123456789, Bin: compare.BinHigh}}
	out := flattenComparisons(v)
	if out["name_bin"] != "high" {
		t.Errorf("name_bin = %v, want high", out["name_bin"])
	}
	if out["name_sim"] != 0.123457 {
		t.Errorf("name_sim = %v, want 0.123457", out["name_sim"])
	}
}

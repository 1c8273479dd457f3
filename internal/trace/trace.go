// Package trace implements the append-only, privacy-redacted audit trail:
// every DecisionResult is written as one redacted line-delimited JSON record
// to the main trace, and UNKNOWN decisions are duplicated to a review queue.
package trace

import (
	"encoding/json"
	"io"
	"os"
	"sync"
	"time"

	"github.com/scholarmatch/disambiguate/internal/compare"
	"github.com/scholarmatch/disambiguate/internal/logging"
)

var log = logging.GetLogger("trace")

// TopKEntry is one ranked candidate in a trace record's top_k list.
type TopKEntry struct {
	AuthorID   string             `json:"author_id"`
	Score      float64            `json:"score"`
	Components map[string]float64 `json:"components"`
}

// Thresholds carries the dual-threshold configuration a decision was made
// against.
type Thresholds struct {
	Accept float64 `json:"accept"`
	Reject float64 `json:"reject"`
}

// Input is the information one decision contributes to the trace. It
// mirrors engine.DecisionResult's fields without importing internal/engine,
// keeping trace a leaf dependency the engine calls into rather than one
// that calls back.
type Input struct {
	RunID             string
	Mode              string
	Decision          string // "merge", "new", or "unknown"
	ScoreTotal        float64
	ScoreComponents   map[string]float64
	Comparisons       compare.Vector
	Thresholds        Thresholds
	BestAuthorID      string
	TopK              []TopKEntry
	BlockingKeys      []string
	CandidateCount    int
	DeterministicHash string
	Reason            string

	MentionName         string
	MentionORCID        string
	MentionAffiliations []string
	MentionCoauthorIDs  []string
	MentionJournals     []string
}

// Record is the redacted, serializable shape written to the trace and
// review streams.
type Record struct {
	Timestamp         time.Time           `json:"timestamp"`
	RunID             string              `json:"run_id"`
	Mode              string              `json:"mode"`
	Decision          string              `json:"decision"`
	ScoreTotal        float64             `json:"score_total"`
	ScoreComponents   map[string]float64  `json:"score_components"`
	Comparisons       map[string]any      `json:"comparisons"`
	Thresholds        Thresholds          `json:"thresholds"`
	BestAuthorID      string              `json:"best_author_id,omitempty"`
	TopK              []TopKEntry         `json:"top_k"`
	BlockingKeys      []string            `json:"blocking_keys"`
	CandidateCount    int                 `json:"candidate_count"`
	DeterministicHash string              `json:"deterministic_hash"`
	Reason            string              `json:"reason"`
	Mention           RedactedMention     `json:"mention"`
	ReviewStatus      string              `json:"review_status,omitempty"`
	ReviewTimestamp   *time.Time          `json:"review_timestamp,omitempty"`
}

// Logger owns the two append-only streams (main trace, review queue) and
// the process-wide redaction salt. Its lifetime is owned by whoever
// constructs the engine it's wired into.
type Logger struct {
	mu     sync.Mutex
	main   io.Writer
	review io.Writer
	salt   string
}

// NewLogger opens the trace and review files named by path/reviewPath. An
// empty path disables that stream: writes become no-ops.
func NewLogger(path, reviewPath, salt string) (*Logger, error) {
	l := &Logger{salt: salt}

	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		l.main = f
	}
	if reviewPath != "" {
		f, err := os.OpenFile(reviewPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
		if err != nil {
			return nil, err
		}
		l.review = f
	}

	return l, nil
}

// Write redacts in and appends one line to the main trace; if the decision
// is "unknown", the same record (plus review metadata) is also appended to
// the review queue. I/O errors are logged and swallowed — the trace never
// fails a decision.
func (l *Logger) Write(in Input) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record := l.buildRecord(in)

	if l.main != nil {
		if err := writeLine(l.main, record); err != nil {
			log.Warn("failed to write trace record", "error", err, "run_id", in.RunID)
		}
	}

	if in.Decision == "unknown" && l.review != nil {
		now := time.Now()
		record.ReviewStatus = "pending"
		record.ReviewTimestamp = &now
		if err := writeLine(l.review, record); err != nil {
			log.Warn("failed to write review record", "error", err, "run_id", in.RunID)
		}
	}
}

func (l *Logger) buildRecord(in Input) Record {
	return Record{
		Timestamp:         time.Now(),
		RunID:             in.RunID,
		Mode:              in.Mode,
		Decision:          in.Decision,
		ScoreTotal:        round6(in.ScoreTotal),
		ScoreComponents:   roundComponents(in.ScoreComponents),
		Comparisons:       flattenComparisons(in.Comparisons),
		Thresholds:        in.Thresholds,
		BestAuthorID:      in.BestAuthorID,
		TopK:              in.TopK,
		BlockingKeys:      in.BlockingKeys,
		CandidateCount:    in.CandidateCount,
		DeterministicHash: in.DeterministicHash,
		Reason:            in.Reason,
		Mention: RedactMention(
			in.MentionName, in.MentionORCID,
			in.MentionAffiliations, in.MentionCoauthorIDs, in.MentionJournals,
			l.salt,
		),
	}
}

func flattenComparisons(v compare.Vector) map[string]any {
	out := make(map[string]any, len(v)*2)
	for feature, value := range v {
		out[string(feature)+"_bin"] = string(value.Bin)
		out[string(feature)+"_sim"] = round6(value.Raw)
	}
	return out
}

func roundComponents(components map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(components))
	for k, v := range components {
		out[k] = round6(v)
	}
	return out
}

func writeLine(w io.Writer, record Record) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// round6 rounds f to 6 decimal places, matching the precision the
// deterministic hash is computed over.
func round6(f float64) float64 {
	const scale = 1e6
	return float64(int64(f*scale+sign(f)*0.5)) / scale
}

func sign(f float64) float64 {
	if f < 0 {
		return -1
	}
	return 1
}

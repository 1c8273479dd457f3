package engine

import "github.com/scholarmatch/disambiguate/internal/author"

// ErrAuthorNotFound is re-exported for callers that only import engine.
var ErrAuthorNotFound = author.ErrAuthorNotFound

// InvalidMentionError is returned by Decide when the mention fails
// structural validation (missing or whitespace-only name). No repository
// mutation occurs and no trace record is written.
type InvalidMentionError struct {
	Reason string
}

func (e *InvalidMentionError) Error() string {
	return "engine: invalid mention: " + e.Reason
}

// DuplicateOrcidError documents the MERGE-override path: a NEW was
// attempted with an ORCID already owned by OwnerID, so the engine resolved
// it as a MERGE against that author instead.
type DuplicateOrcidError struct {
	ORCID   string
	OwnerID string
}

func (e *DuplicateOrcidError) Error() string {
	return "engine: orcid " + e.ORCID + " already owned by " + e.OwnerID
}

// ScoringWarning is a non-fatal condition surfaced during scoring: an m or
// u floored to epsilon, or an unknown feature/bin skipped. It is logged,
// never returned as an error — kept as a named type so callers and tests
// can reference the condition it documents.
type ScoringWarning struct {
	Reason string
}

func (e *ScoringWarning) Error() string {
	return "engine: scoring warning: " + e.Reason
}

// TraceIOError documents a non-fatal I/O failure in the audit path. The
// trace package itself only logs these; this type exists so a
// caller that wants to distinguish the condition in a test can name it.
type TraceIOError struct {
	Reason string
}

func (e *TraceIOError) Error() string {
	return "engine: trace i/o error: " + e.Reason
}

// Package sqlite implements author.Repository on top of a SQLite database,
// demonstrating that storage backends may persist. It satisfies
// the same contract as author.MemoryRepository; callers choose between
// them via pkg/config.StorageConfig.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/google/uuid"

	"github.com/scholarmatch/disambiguate/internal/author"
	"github.com/scholarmatch/disambiguate/internal/logging"
)

var log = logging.GetLogger("storage")

const schema = `
CREATE TABLE IF NOT EXISTS authors (
	author_id         TEXT PRIMARY KEY,
	canonical_name    TEXT NOT NULL,
	alternate_names   TEXT NOT NULL,
	orcid             TEXT,
	coauthor_ids      TEXT NOT NULL,
	journals          TEXT NOT NULL,
	affiliations      TEXT NOT NULL,
	publication_count INTEGER NOT NULL,
	confidence        REAL NOT NULL,
	last_updated      DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_authors_orcid ON authors(orcid) WHERE orcid IS NOT NULL AND orcid != '';

CREATE TABLE IF NOT EXISTS blocking_keys (
	key       TEXT NOT NULL,
	author_id TEXT NOT NULL REFERENCES authors(author_id),
	PRIMARY KEY (key, author_id)
);

CREATE INDEX IF NOT EXISTS idx_blocking_keys_key ON blocking_keys(key);
`

// Repository is a SQLite-backed author.Repository. It guards every
// operation with a single mutex, matching MemoryRepository's "single
// discipline" concurrency model — SQLite itself only allows one
// writer at a time regardless.
type Repository struct {
	mu sync.Mutex
	db *sql.DB
}

// Open opens (creating if necessary) the SQLite database at path and
// ensures the schema exists.
func Open(path string) (*Repository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("storage: create directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_foreign_keys=on", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: open: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}

	log.Info("sqlite repository opened", "path", path)
	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// Add implements author.Repository.
func (r *Repository) Add(data author.NewAuthor) (author.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if data.ORCID != "" {
		if owner, ok := r.orcidOwner(data.ORCID); ok {
			return author.Author{}, &author.DuplicateOrcidError{ORCID: data.ORCID, OwnerID: owner}
		}
	}

	now := time.Now()
	a := author.Author{
		AuthorID:         "au_" + uuid.New().String(),
		CanonicalName:    data.CanonicalName,
		AlternateNames:   dedupSorted([]string{data.CanonicalName}),
		ORCID:            data.ORCID,
		CoauthorIDs:      dedupSorted(data.CoauthorIDs),
		Journals:         dedupSorted(data.Journals),
		Affiliations:     dedupSorted(data.Affiliations),
		PublicationCount: 1,
		Confidence:       1.0,
		LastUpdated:      now,
	}

	tx, err := r.db.Begin()
	if err != nil {
		return author.Author{}, fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertAuthor(tx, a); err != nil {
		return author.Author{}, err
	}
	if err := indexAuthor(tx, a); err != nil {
		return author.Author{}, err
	}
	if err := tx.Commit(); err != nil {
		return author.Author{}, fmt.Errorf("storage: commit: %w", err)
	}

	log.Debug("author added", "author_id", a.AuthorID)
	return a, nil
}

// Get implements author.Repository.
func (r *Repository) Get(authorID string) (author.Author, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.scanAuthor(r.db.QueryRow(selectAuthorSQL+" WHERE author_id = ?", authorID))
	if err != nil {
		return author.Author{}, false
	}
	return a, true
}

// Update implements author.Repository.
func (r *Repository) Update(authorID string, delta author.Delta) (author.Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, err := r.scanAuthor(r.db.QueryRow(selectAuthorSQL+" WHERE author_id = ?", authorID))
	if err != nil {
		return author.Author{}, author.ErrAuthorNotFound
	}

	before := author.BlockingKeys(a.CanonicalName, a.ORCID, a.Affiliations, a.Journals)

	if delta.AlternateName != "" {
		a.AlternateNames = dedupSorted(append(a.AlternateNames, delta.AlternateName))
	}
	a.CoauthorIDs = dedupSorted(append(a.CoauthorIDs, delta.CoauthorIDs...))
	a.Journals = dedupSorted(append(a.Journals, delta.Journals...))
	a.Affiliations = dedupSorted(append(a.Affiliations, delta.Affiliations...))
	a.PublicationCount++
	if a.Confidence > 0.95 {
		a.Confidence = 0.95
	}
	a.LastUpdated = time.Now()

	after := author.BlockingKeys(a.CanonicalName, a.ORCID, a.Affiliations, a.Journals)

	tx, err := r.db.Begin()
	if err != nil {
		return author.Author{}, fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback()

	if err := updateAuthor(tx, a); err != nil {
		return author.Author{}, err
	}
	if err := reindex(tx, authorID, before, after); err != nil {
		return author.Author{}, err
	}
	if err := tx.Commit(); err != nil {
		return author.Author{}, fmt.Errorf("storage: commit: %w", err)
	}

	return a, nil
}

// Candidates implements author.Repository.
func (r *Repository) Candidates(keys []string, max int) ([]author.Author, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(keys) == 0 {
		return nil, false
	}

	placeholders := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		placeholders[i] = "?"
		args[i] = k
	}
	query := fmt.Sprintf(
		"SELECT DISTINCT author_id FROM blocking_keys WHERE key IN (%s) ORDER BY author_id",
		joinPlaceholders(placeholders),
	)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		log.Error("candidate query failed", "error", err)
		return nil, false
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			log.Error("candidate scan failed", "error", err)
			return nil, false
		}
		ids = append(ids, id)
	}

	truncated := false
	if max > 0 && len(ids) > max {
		truncated = true
		ids = ids[:max]
	}

	out := make([]author.Author, 0, len(ids))
	for _, id := range ids {
		a, err := r.scanAuthor(r.db.QueryRow(selectAuthorSQL+" WHERE author_id = ?", id))
		if err != nil {
			continue
		}
		out = append(out, a)
	}
	return out, truncated
}

// Count implements author.Repository.
func (r *Repository) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int
	if err := r.db.QueryRow("SELECT COUNT(*) FROM authors").Scan(&count); err != nil {
		log.Error("count query failed", "error", err)
		return 0
	}
	return count
}

// Keys implements author.Repository.
func (r *Repository) Keys(authorID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query("SELECT key FROM blocking_keys WHERE author_id = ? ORDER BY key", authorID)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err == nil {
			keys = append(keys, k)
		}
	}
	return keys
}

// AuthorsForKey implements author.Repository.
func (r *Repository) AuthorsForKey(key string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query("SELECT author_id FROM blocking_keys WHERE key = ? ORDER BY author_id", key)
	if err != nil {
		return nil
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

func (r *Repository) orcidOwner(orcid string) (string, bool) {
	var id string
	err := r.db.QueryRow("SELECT author_id FROM authors WHERE orcid = ?", orcid).Scan(&id)
	if err != nil {
		return "", false
	}
	return id, true
}

const selectAuthorSQL = `
	SELECT author_id, canonical_name, alternate_names, orcid, coauthor_ids,
	       journals, affiliations, publication_count, confidence, last_updated
	FROM authors
`

func (r *Repository) scanAuthor(row *sql.Row) (author.Author, error) {
	var a author.Author
	var alternateJSON, coauthorJSON, journalJSON, affiliationJSON string
	var orcid sql.NullString

	err := row.Scan(
		&a.AuthorID, &a.CanonicalName, &alternateJSON, &orcid, &coauthorJSON,
		&journalJSON, &affiliationJSON, &a.PublicationCount, &a.Confidence, &a.LastUpdated,
	)
	if err != nil {
		return author.Author{}, err
	}

	a.ORCID = orcid.String
	a.AlternateNames = mustUnmarshal(alternateJSON)
	a.CoauthorIDs = mustUnmarshal(coauthorJSON)
	a.Journals = mustUnmarshal(journalJSON)
	a.Affiliations = mustUnmarshal(affiliationJSON)
	return a, nil
}

func insertAuthor(tx *sql.Tx, a author.Author) error {
	_, err := tx.Exec(`
		INSERT INTO authors (
			author_id, canonical_name, alternate_names, orcid, coauthor_ids,
			journals, affiliations, publication_count, confidence, last_updated
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.AuthorID, a.CanonicalName, marshalSet(a.AlternateNames), nullString(a.ORCID),
		marshalSet(a.CoauthorIDs), marshalSet(a.Journals), marshalSet(a.Affiliations),
		a.PublicationCount, a.Confidence, a.LastUpdated,
	)
	if err != nil {
		return fmt.Errorf("storage: insert author: %w", err)
	}
	return nil
}

func updateAuthor(tx *sql.Tx, a author.Author) error {
	_, err := tx.Exec(`
		UPDATE authors SET
			alternate_names = ?, coauthor_ids = ?, journals = ?, affiliations = ?,
			publication_count = ?, confidence = ?, last_updated = ?
		WHERE author_id = ?
	`,
		marshalSet(a.AlternateNames), marshalSet(a.CoauthorIDs), marshalSet(a.Journals),
		marshalSet(a.Affiliations), a.PublicationCount, a.Confidence, a.LastUpdated, a.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("storage: update author: %w", err)
	}
	return nil
}

func indexAuthor(tx *sql.Tx, a author.Author) error {
	keys := author.BlockingKeys(a.CanonicalName, a.ORCID, a.Affiliations, a.Journals)
	for _, key := range keys {
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO blocking_keys (key, author_id) VALUES (?, ?)",
			key, a.AuthorID,
		); err != nil {
			return fmt.Errorf("storage: index author: %w", err)
		}
	}
	return nil
}

func reindex(tx *sql.Tx, authorID string, before, after []string) error {
	existing := make(map[string]struct{}, len(before))
	for _, k := range before {
		existing[k] = struct{}{}
	}
	for _, k := range after {
		if _, ok := existing[k]; ok {
			continue
		}
		if _, err := tx.Exec(
			"INSERT OR IGNORE INTO blocking_keys (key, author_id) VALUES (?, ?)",
			k, authorID,
		); err != nil {
			return fmt.Errorf("storage: reindex author: %w", err)
		}
	}
	return nil
}

func marshalSet(items []string) string {
	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

func mustUnmarshal(data string) []string {
	var items []string
	if err := json.Unmarshal([]byte(data), &items); err != nil {
		return nil
	}
	return items
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func dedupSorted(items []string) []string {
	set := make(map[string]struct{}, len(items))
	for _, item := range items {
		if item == "" {
			continue
		}
		set[item] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for item := range set {
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

func joinPlaceholders(placeholders []string) string {
	out := placeholders[0]
	for _, p := range placeholders[1:] {
		out += "," + p
	}
	return out
}

package author

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/scholarmatch/disambiguate/internal/logging"
)

var log = logging.GetLogger("author")

// Repository is the storage contract the decision engine is specified
// against. Storage backends implementing this interface are free to
// persist; the default is the in-memory MemoryRepository below.
type Repository interface {
	// Add generates a fresh author_id, indexes the author under every
	// blocking key its fields generate, and returns the new entity. It
	// fails with *DuplicateOrcidError if a different author already owns
	// the given ORCID.
	Add(data NewAuthor) (Author, error)
	// Get returns the author with the given id, or ok == false.
	Get(authorID string) (Author, bool)
	// Update unions delta's set fields into the author's current sets,
	// increments publication_count, recomputes confidence, and re-indexes
	// under any new blocking keys the delta introduces.
	Update(authorID string, delta Delta) (Author, error)
	// Candidates returns the union of authors indexed under any of keys,
	// deduplicated by author_id and ordered by author_id ascending. At
	// most max authors are returned; truncated reports whether the union
	// exceeded max before capping.
	Candidates(keys []string, max int) (candidates []Author, truncated bool)
	// Count returns the number of authors in the repository.
	Count() int
	// Keys returns every blocking key authorID is currently indexed under.
	// Used by tests to verify the indexing invariant.
	Keys(authorID string) []string
	// AuthorsForKey returns the author ids indexed under key, sorted.
	// Used by tests to verify the indexing invariant.
	AuthorsForKey(key string) []string
}

// MemoryRepository is the in-memory default Repository implementation. It
// guards the author map and the blocking index under a single mutex, so a
// caller never observes an author without its blocking keys indexed.
type MemoryRepository struct {
	mu         sync.RWMutex
	authors    map[string]Author
	index      map[string]map[string]struct{} // blocking key -> set<author_id>
	orcidOwner map[string]string              // canonical orcid -> author_id
}

// NewMemoryRepository returns an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		authors:    make(map[string]Author),
		index:      make(map[string]map[string]struct{}),
		orcidOwner: make(map[string]string),
	}
}

func (r *MemoryRepository) allocateID() string {
	return "au_" + uuid.New().String()
}

// Add implements Repository.
func (r *MemoryRepository) Add(data NewAuthor) (Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	orcid := data.ORCID
	if orcid != "" {
		if owner, ok := r.orcidOwner[orcid]; ok {
			return Author{}, &DuplicateOrcidError{ORCID: orcid, OwnerID: owner}
		}
	}

	id := r.allocateID()
	now := time.Now()
	author := Author{
		AuthorID:         id,
		CanonicalName:    data.CanonicalName,
		AlternateNames:   dedupSorted([]string{data.CanonicalName}),
		ORCID:            orcid,
		CoauthorIDs:       dedupSorted(data.CoauthorIDs),
		Journals:         dedupSorted(data.Journals),
		Affiliations:     dedupSorted(data.Affiliations),
		PublicationCount: 1,
		Confidence:       1.0,
		LastUpdated:      now,
	}

	r.authors[id] = author
	if orcid != "" {
		r.orcidOwner[orcid] = id
	}
	r.indexAuthor(author)

	log.Debug("author added", "author_id", id, "keys", len(BlockingKeys(author.CanonicalName, author.ORCID, author.Affiliations, author.Journals)))
	return author, nil
}

// Get implements Repository.
func (r *MemoryRepository) Get(authorID string) (Author, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.authors[authorID]
	return a, ok
}

// Update implements Repository.
func (r *MemoryRepository) Update(authorID string, delta Delta) (Author, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.authors[authorID]
	if !ok {
		return Author{}, ErrAuthorNotFound
	}

	before := BlockingKeys(a.CanonicalName, a.ORCID, a.Affiliations, a.Journals)

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

	r.authors[authorID] = a

	after := BlockingKeys(a.CanonicalName, a.ORCID, a.Affiliations, a.Journals)
	r.reindex(authorID, before, after)

	return a, nil
}

// Candidates implements Repository.
func (r *MemoryRepository) Candidates(keys []string, max int) ([]Author, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	var ids []string
	for _, key := range keys {
		for id := range r.index[key] {
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	sort.Strings(ids)

	truncated := false
	if max > 0 && len(ids) > max {
		truncated = true
		ids = ids[:max]
	}

	out := make([]Author, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.authors[id])
	}
	return out, truncated
}

// Count implements Repository.
func (r *MemoryRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.authors)
}

// Keys implements Repository.
func (r *MemoryRepository) Keys(authorID string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var keys []string
	for key, ids := range r.index {
		if _, ok := ids[authorID]; ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// AuthorsForKey implements Repository.
func (r *MemoryRepository) AuthorsForKey(key string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.index[key]))
	for id := range r.index[key] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// indexAuthor adds author under every key its current fields generate.
// Caller must hold r.mu.
func (r *MemoryRepository) indexAuthor(a Author) {
	for _, key := range BlockingKeys(a.CanonicalName, a.ORCID, a.Affiliations, a.Journals) {
		if r.index[key] == nil {
			r.index[key] = make(map[string]struct{})
		}
		r.index[key][a.AuthorID] = struct{}{}
	}
}

// reindex adds authorID under any key in after not already in before.
// Existing keys are left untouched (idempotent). Caller must hold r.mu.
func (r *MemoryRepository) reindex(authorID string, before, after []string) {
	existing := make(map[string]struct{}, len(before))
	for _, k := range before {
		existing[k] = struct{}{}
	}
	for _, k := range after {
		if _, ok := existing[k]; ok {
			continue
		}
		if r.index[k] == nil {
			r.index[k] = make(map[string]struct{})
		}
		r.index[k][authorID] = struct{}{}
	}
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

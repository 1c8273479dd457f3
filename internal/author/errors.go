package author

import "errors"

// ErrAuthorNotFound is returned by Update when no author exists with the
// given id.
var ErrAuthorNotFound = errors.New("author: not found")

// DuplicateOrcidError is returned by Add when a different author already
// owns the ORCID being inserted. OwnerID identifies that author so the
// caller can fall back to merging against it.
type DuplicateOrcidError struct {
	ORCID   string
	OwnerID string
}

func (e *DuplicateOrcidError) Error() string {
	return "author: orcid " + e.ORCID + " already owned by " + e.OwnerID
}

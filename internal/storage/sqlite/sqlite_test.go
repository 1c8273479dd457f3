package sqlite

import (
	"testing"

	"github.com/scholarmatch/disambiguate/internal/author"
	"github.com/scholarmatch/disambiguate/internal/testutil"
)

func openTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := Open(testutil.TempDBPath(t))
	testutil.AssertNoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestAddThenGet(t *testing.T) {
	repo := openTestRepo(t)
	a, err := repo.Add(author.NewAuthor{CanonicalName: "John Smith", ORCID: "0000-0001-2345-6789"})
	testutil.AssertNoError(t, err)

	got, ok := repo.Get(a.AuthorID)
	if !ok {
		t.Fatal("Get() after Add() returned ok=false")
	}
	if got.CanonicalName != "John Smith" {
		t.Errorf("CanonicalName = %q, want %q", got.CanonicalName, "John Smith")
	}
	if got.ORCID != "0000-0001-2345-6789" {
		t.Errorf("ORCID = %q, want %q", got.ORCID, "0000-0001-2345-6789")
	}
	if got.PublicationCount != 1 {
		t.Errorf("PublicationCount = %d, want 1", got.PublicationCount)
	}
}

func TestGetMissing(t *testing.T) {
	repo := openTestRepo(t)
	if _, ok := repo.Get("au_does-not-exist"); ok {
		t.Error("Get() of unknown id returned ok=true")
	}
}

func TestAddDuplicateOrcid(t *testing.T) {
	repo := openTestRepo(t)
	first, err := repo.Add(author.NewAuthor{CanonicalName: "John Smith", ORCID: "0000-0001-2345-6789"})
	testutil.AssertNoError(t, err)

	_, err = repo.Add(author.NewAuthor{CanonicalName: "Totally Different", ORCID: "0000-0001-2345-6789"})
	testutil.AssertError(t, err)

	dupErr, ok := err.(*author.DuplicateOrcidError)
	if !ok {
		t.Fatalf("Add() error type = %T, want *author.DuplicateOrcidError", err)
	}
	if dupErr.OwnerID != first.AuthorID {
		t.Errorf("DuplicateOrcidError.OwnerID = %q, want %q", dupErr.OwnerID, first.AuthorID)
	}
}

func TestUpdateUnionsSetsAndReindexes(t *testing.T) {
	repo := openTestRepo(t)
	a, err := repo.Add(author.NewAuthor{CanonicalName: "John Smith", Journals: []string{"Nature"}})
	testutil.AssertNoError(t, err)

	updated, err := repo.Update(a.AuthorID, author.Delta{
		AlternateName: "J. Smith",
		Journals:      []string{"Science"},
		Affiliations:  []string{"MIT"},
	})
	testutil.AssertNoError(t, err)

	if updated.PublicationCount != 2 {
		t.Errorf("PublicationCount = %d, want 2", updated.PublicationCount)
	}

	want := map[string]bool{"Nature": true, "Science": true}
	for _, j := range updated.Journals {
		if !want[j] {
			t.Errorf("unexpected journal %q", j)
		}
		delete(want, j)
	}
	if len(want) != 0 {
		t.Errorf("missing journals: %v", want)
	}

	found := false
	for _, k := range repo.Keys(a.AuthorID) {
		ids := repo.AuthorsForKey(k)
		for _, id := range ids {
			if id == a.AuthorID {
				found = true
			}
		}
	}
	if !found {
		t.Error("reindexed author is not reachable from any of its own blocking keys")
	}
}

func TestUpdateUnknownAuthor(t *testing.T) {
	repo := openTestRepo(t)
	_, err := repo.Update("au_does-not-exist", author.Delta{})
	if err != author.ErrAuthorNotFound {
		t.Errorf("Update() error = %v, want %v", err, author.ErrAuthorNotFound)
	}
}

func TestCandidatesDedupedAndSorted(t *testing.T) {
	repo := openTestRepo(t)
	repo.Add(author.NewAuthor{CanonicalName: "John Smith", Journals: []string{"Nature"}})
	repo.Add(author.NewAuthor{CanonicalName: "Jane Smith", Journals: []string{"Nature"}})

	keys := author.BlockingKeys("Smith", "", nil, []string{"Nature"})
	candidates, truncated := repo.Candidates(keys, 100)
	if truncated {
		t.Error("unexpected truncation")
	}
	if len(candidates) != 2 {
		t.Fatalf("Candidates() returned %d results, want 2", len(candidates))
	}
	if candidates[0].AuthorID >= candidates[1].AuthorID {
		t.Errorf("candidates not sorted ascending by author_id: %v", candidates)
	}
}

func TestCandidatesRespectsMax(t *testing.T) {
	repo := openTestRepo(t)
	for i := 0; i < 5; i++ {
		repo.Add(author.NewAuthor{CanonicalName: "Smith Person", Journals: []string{"Nature"}})
	}
	keys := author.BlockingKeys("Smith Person", "", nil, []string{"Nature"})
	candidates, truncated := repo.Candidates(keys, 2)
	if len(candidates) != 2 {
		t.Fatalf("Candidates() returned %d, want 2", len(candidates))
	}
	if !truncated {
		t.Error("expected truncated = true")
	}
}

func TestCount(t *testing.T) {
	repo := openTestRepo(t)
	if repo.Count() != 0 {
		t.Fatalf("Count() = %d, want 0", repo.Count())
	}
	repo.Add(author.NewAuthor{CanonicalName: "John Smith"})
	repo.Add(author.NewAuthor{CanonicalName: "Jane Doe"})
	if repo.Count() != 2 {
		t.Errorf("Count() = %d, want 2", repo.Count())
	}
}

func TestReopenPersistsData(t *testing.T) {
	path := testutil.TempDBPath(t)

	repo, err := Open(path)
	testutil.AssertNoError(t, err)
	a, err := repo.Add(author.NewAuthor{CanonicalName: "John Smith"})
	testutil.AssertNoError(t, err)
	testutil.AssertNoError(t, repo.Close())

	reopened, err := Open(path)
	testutil.AssertNoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Get(a.AuthorID)
	if !ok {
		t.Fatal("Get() after reopen returned ok=false")
	}
	if got.CanonicalName != "John Smith" {
		t.Errorf("CanonicalName = %q, want %q", got.CanonicalName, "John Smith")
	}
}

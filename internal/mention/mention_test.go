package mention

import "testing"

func TestNewDeduplicatesSets(t *testing.T) {
	m := New(Input{
		Name:         "John Smith",
		Affiliations: []string{"MIT", "MIT", "Harvard"},
		CoauthorIDs:  []string{"au_1", "au_1"},
		Journals:     []string{"Nature", ""},
	})

	if got := m.Affiliations(); len(got) != 2 {
		t.Fatalf("Affiliations() = %v, want 2 distinct entries", got)
	}
	if got := m.CoauthorIDs(); len(got) != 1 {
		t.Fatalf("CoauthorIDs() = %v, want 1 distinct entry", got)
	}
	if got := m.Journals(); len(got) != 1 || got[0] != "Nature" {
		t.Fatalf("Journals() = %v, want [Nature]", got)
	}
}

func TestAccessorsAreSorted(t *testing.T) {
	m := New(Input{Name: "X", Journals: []string{"Zeta", "Alpha", "Middle"}})
	got := m.Journals()
	want := []string{"Alpha", "Middle", "Zeta"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Journals() = %v, want %v", got, want)
		}
	}
}

func TestHasORCID(t *testing.T) {
	if New(Input{Name: "X"}).HasORCID() {
		t.Error("empty ORCID should report HasORCID() == false")
	}
	if !New(Input{Name: "X", ORCID: "0000-0001-2345-6789"}).HasORCID() {
		t.Error("non-empty ORCID should report HasORCID() == true")
	}
}

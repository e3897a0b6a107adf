package match

import (
	"slices"
	"testing"
)

func TestAliasCandidatesStatic(t *testing.T) {
	got := AliasCandidates("tsmc")
	if !slices.Contains(got, "taiwan semiconductor manufacturing") {
		t.Errorf("AliasCandidates(tsmc) = %v, want the full name included", got)
	}
}

func TestAliasCandidatesAcronym(t *testing.T) {
	got := AliasCandidates("international business machines")
	if !slices.Contains(got, "ibm") {
		t.Errorf("AliasCandidates = %v, want generated acronym ibm", got)
	}
}

func TestAliasCandidatesShortNamesSkipAcronym(t *testing.T) {
	// two-word names would generate two-letter acronyms, which collide
	// too easily to be useful
	for _, c := range AliasCandidates("general motors") {
		if len(c) == 2 && c != "gm" {
			t.Errorf("unexpected generated two-letter acronym %q", c)
		}
	}
}

func TestAliasCandidatesNoSelf(t *testing.T) {
	for _, c := range AliasCandidates("apple") {
		if c == "apple" {
			t.Error("alias candidates must not include the input itself")
		}
	}
}

package match

import "testing"

func TestSimilarityIdentical(t *testing.T) {
	if got := Similarity("apple", "apple"); got != 1 {
		t.Errorf("Similarity(apple, apple) = %f, want 1", got)
	}
}

func TestSimilaritySymmetric(t *testing.T) {
	a, b := "microsoft", "microsft"
	if Similarity(a, b) != Similarity(b, a) {
		t.Errorf("similarity is not symmetric for %q / %q", a, b)
	}
}

func TestSimilarityTypo(t *testing.T) {
	got := Similarity("microsoft", "microsft")
	if got <= 0.5 || got >= 1 {
		t.Errorf("Similarity(microsoft, microsft) = %f, want in (0.5, 1)", got)
	}
}

func TestSimilarityUnrelated(t *testing.T) {
	if got := Similarity("apple", "netflix"); got > 0.1 {
		t.Errorf("Similarity(apple, netflix) = %f, want near 0", got)
	}
}

func TestSimilarityEmpty(t *testing.T) {
	if got := Similarity("", "apple"); got != 0 {
		t.Errorf("Similarity(empty, apple) = %f, want 0", got)
	}
	if got := Similarity("", ""); got != 0 {
		t.Errorf("Similarity(empty, empty) = %f, want 0", got)
	}
}

func TestSimilarityCaseAndPunctuation(t *testing.T) {
	if got := Similarity("Coca-Cola", "coca cola"); got != 1 {
		t.Errorf("Similarity(Coca-Cola, coca cola) = %f, want 1", got)
	}
}

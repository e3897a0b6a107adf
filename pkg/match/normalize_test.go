package match

import "testing"

func TestNormalizeName(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Apple Inc.", "apple"},
		{"  Apple ", "apple"},
		{"APPLE", "apple"},
		{"The Coca-Cola Company", "coca cola"},
		{"Advanced Micro Devices, Inc.", "advanced micro devices"},
		{"OpenAI", "openai"},
		{"Acme Technologies LLC", "acme"},
		{"Machine   Learning", "machine learning"},
		// a name that is nothing but suffix tokens keeps its tokens
		{"The Company", "the company"},
		{"", ""},
		{"!!!", ""},
	}

	for _, c := range cases {
		if got := NormalizeName(c.in); got != c.want {
			t.Errorf("NormalizeName(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestNormalizeNameCollision(t *testing.T) {
	variants := []string{"Apple", "Apple Inc.", "Apple Inc", "apple incorporated", "The Apple Company"}
	want := NormalizeName(variants[0])
	for _, v := range variants[1:] {
		if got := NormalizeName(v); got != want {
			t.Errorf("NormalizeName(%q) = %q, want collision on %q", v, got, want)
		}
	}
}

package match

import "strings"

// Similarity computes trigram similarity between two strings following
// pg_trgm semantics: lowercase, non-alphanumeric treated as word
// boundaries, each word padded with two leading and one trailing space,
// similarity = |shared trigrams| / |all trigrams|. The in-process copy
// exists so the cascade and the memory store agree with the DB-side
// similarity() the Postgres store uses.
func Similarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for g := range ta {
		if tb[g] {
			shared++
		}
	}
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func trigrams(s string) map[string]bool {
	grams := make(map[string]bool)
	for _, word := range strings.Fields(normalizeForTrigrams(s)) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			grams[padded[i:i+3]] = true
		}
	}
	return grams
}

func normalizeForTrigrams(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}
	return b.String()
}

package match

import (
	"strings"
	"unicode"
)

// genericSuffixes are tokens dropped during normalization. Stripping
// them makes "Apple Inc." and "Apple" collide on the same normalized
// name.
var genericSuffixes = map[string]bool{
	"inc":          true,
	"incorporated": true,
	"corp":         true,
	"corporation":  true,
	"co":           true,
	"company":      true,
	"llc":          true,
	"ltd":          true,
	"limited":      true,
	"plc":          true,
	"group":        true,
	"holdings":     true,
	"technologies": true,
	"technology":   true,
	"labs":         true,
	"systems":      true,
	"the":          true,
}

// NormalizeName lowercases, strips punctuation, collapses whitespace,
// and removes generic suffix tokens. When stripping would leave nothing
// (the name is nothing but suffix tokens), the unstripped form is kept.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteByte(' ')
		}
	}

	tokens := strings.Fields(b.String())
	kept := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if genericSuffixes[tok] {
			continue
		}
		kept = append(kept, tok)
	}
	if len(kept) == 0 {
		kept = tokens
	}
	return strings.Join(kept, " ")
}

package match

import "strings"

// aliasTable maps normalized names to known alternates. Entries are
// symmetric so either spelling resolves to the other. Keys and values
// are in normalized form (see NormalizeName).
var aliasTable = map[string][]string{
	"tsmc": {"taiwan semiconductor manufacturing"},
	"taiwan semiconductor manufacturing": {"tsmc"},
	"taiwan semiconductor":               {"tsmc"},
	"amd":                                {"advanced micro devices"},
	"advanced micro devices":             {"amd"},
	"ibm":                                {"international business machines"},
	"international business machines":    {"ibm"},
	"ge":                                 {"general electric"},
	"general electric":                   {"ge"},
	"gm":                                 {"general motors"},
	"general motors":                     {"gm"},
	"vw":                                 {"volkswagen"},
	"volkswagen":                         {"vw"},
	"aws":                                {"amazon web services"},
	"amazon web services":                {"aws"},
	"meta":                               {"facebook"},
	"facebook":                           {"meta"},
	"google":                             {"alphabet"},
	"alphabet":                           {"google"},
	"ml":                                 {"machine learning"},
	"machine learning":                   {"ml"},
	"ai":                                 {"artificial intelligence"},
	"artificial intelligence":            {"ai"},
}

// AliasCandidates returns alternate normalized spellings for a
// normalized name: static aliases plus a generated acronym for
// multi-word names. The caller re-runs each candidate through the
// exact and normalized strategies.
func AliasCandidates(normalized string) []string {
	seen := map[string]bool{normalized: true}
	var out []string

	for _, alias := range aliasTable[normalized] {
		if !seen[alias] {
			seen[alias] = true
			out = append(out, alias)
		}
	}

	if acr := acronym(normalized); acr != "" && !seen[acr] {
		seen[acr] = true
		out = append(out, acr)
	}

	return out
}

// acronym builds the first-letter acronym of a multi-word normalized
// name. Single words and two-letter results are skipped; they collide
// too easily.
func acronym(normalized string) string {
	words := strings.Fields(normalized)
	if len(words) < 3 {
		return ""
	}
	var b strings.Builder
	for _, w := range words {
		b.WriteByte(w[0])
	}
	return b.String()
}

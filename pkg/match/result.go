package match

import "github.com/podgraph/backend/pkg/common"

// Strategy identifies which cascade step produced a match. Every
// consumer of a Result switches on the strategy instead of probing
// untyped fields.
type Strategy string

const (
	StrategyExact        Strategy = "exact"
	StrategyNormalized   Strategy = "normalized"
	StrategyAlias        Strategy = "alias"
	StrategyFuzzy        Strategy = "fuzzy"
	StrategyBusinessRule Strategy = "business_rule"
	StrategyLLM          Strategy = "llm"
	StrategyContainment  Strategy = "containment"
	StrategyNone         Strategy = "none"
)

// Result is the outcome of running the cascade for one (name, type)
// pair. A NoMatch result has StrategyNone and a nil Entity.
type Result struct {
	Entity     *common.Entity
	Strategy   Strategy
	Confidence float64
	Label      string // rule label or model reasoning, where applicable
}

// NoMatch is the valid "nothing matched" outcome. Not an error.
func NoMatch() Result {
	return Result{Strategy: StrategyNone}
}

// Matched reports whether the result carries a candidate entity.
func (r Result) Matched() bool {
	return r.Strategy != StrategyNone && r.Entity != nil
}

// ScoredEntity is a canonical entity with its trigram similarity to a
// query, as returned by candidate recall.
type ScoredEntity struct {
	common.Entity
	Similarity float64
}

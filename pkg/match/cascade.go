package match

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/podgraph/backend/pkg/ai"
	"github.com/podgraph/backend/pkg/cache"
	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/logger"
)

// CandidateStore is the slice of storage the cascade needs: the full
// per-type entity list for the cheap strategies and trigram recall for
// fuzzy matching.
type CandidateStore interface {
	GetEntitiesByType(ctx context.Context, entityType common.EntityType) ([]common.Entity, error)
	FindSimilarEntities(ctx context.Context, normalized string, entityType common.EntityType, limit int) ([]ScoredEntity, error)
}

const (
	confidenceExact       = 0.95
	confidenceNormalized  = 0.9
	confidenceAlias       = 0.9
	confidenceContainment = 0.5

	// llmConfidenceCap bounds what a model verdict can contribute. The
	// model picks among candidates the deterministic strategies already
	// surfaced, so its ceiling stays below the exact-match band.
	llmConfidenceCap = 0.9

	// AcceptThreshold is the confidence at which the cascade
	// short-circuits. Strategies are ordered so every earlier step that
	// fires already clears it.
	AcceptThreshold = 0.8

	// CandidateFloor is the minimum similarity for an entity to be
	// offered as a candidate to the model or to a relationship endpoint.
	CandidateFloor = 0.3

	// DefaultFuzzyThreshold is the trigram similarity required for a
	// fuzzy match to be accepted outright.
	DefaultFuzzyThreshold = 0.8

	minContainmentLen    = 5
	candidateRecallLimit = 10
)

// Cascade runs the matching strategies in cost order for one
// (name, type) pair. A nil AI client degrades it to deterministic-only
// matching; everything else keeps working.
type Cascade struct {
	store          CandidateStore
	aiClient       ai.ResolverAIClient
	cache          *cache.Cache
	fuzzyThreshold float64
	fuzzyDisabled  bool
	maxRetries     int
}

// Option customizes a Cascade.
type Option func(*Cascade)

// WithFuzzyThreshold overrides the trigram acceptance threshold.
func WithFuzzyThreshold(t float64) Option {
	return func(c *Cascade) {
		if t > 0 {
			c.fuzzyThreshold = t
		}
	}
}

// WithoutFuzzy turns off trigram acceptance, leaving the deterministic
// strategies and the model step. Candidate recall is unaffected.
func WithoutFuzzy() Option {
	return func(c *Cascade) {
		c.fuzzyDisabled = true
	}
}

// WithMaxRetries overrides how often a failed model call is retried.
func WithMaxRetries(n int) Option {
	return func(c *Cascade) {
		if n > 0 {
			c.maxRetries = n
		}
	}
}

// NewCascade wires the cascade. aiClient may be nil to disable the LLM
// step; resultCache may be nil to disable caching.
func NewCascade(store CandidateStore, aiClient ai.ResolverAIClient, resultCache *cache.Cache, opts ...Option) *Cascade {
	c := &Cascade{
		store:          store,
		aiClient:       aiClient,
		cache:          resultCache,
		fuzzyThreshold: DefaultFuzzyThreshold,
		maxRetries:     3,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Match resolves name against the canonical entities of entityType.
// A NoMatch result with a nil error means the name is genuinely new;
// errors are reserved for infrastructure failures.
func (c *Cascade) Match(ctx context.Context, name string, entityType common.EntityType) (Result, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return NoMatch(), nil
	}

	cacheKey := fmt.Sprintf("match|%s|%s", entityType, normalized)
	if c.cache != nil {
		if v, ok := c.cache.Get(cacheKey); ok {
			if res, ok := v.(Result); ok {
				return res, nil
			}
		}
	}

	entities, err := c.store.GetEntitiesByType(ctx, entityType)
	if err != nil {
		return NoMatch(), fmt.Errorf("failed to load %s entities: %w", entityType, err)
	}

	idx := indexEntities(entities)

	if res := c.direct(name, normalized, idx); res.Matched() {
		return c.remember(cacheKey, res), nil
	}

	scored, err := c.store.FindSimilarEntities(ctx, normalized, entityType, candidateRecallLimit)
	if err != nil {
		return NoMatch(), fmt.Errorf("failed to find similar entities: %w", err)
	}
	if !c.fuzzyDisabled && len(scored) > 0 && scored[0].Similarity >= c.fuzzyThreshold {
		res := Result{
			Entity:     &scored[0].Entity,
			Strategy:   StrategyFuzzy,
			Confidence: scored[0].Similarity,
		}
		return c.remember(cacheKey, res), nil
	}

	if res := applyBusinessRules(normalized, entityType, idx.byNormalized); res.Matched() {
		return c.remember(cacheKey, res), nil
	}

	if res := c.llmMatch(ctx, name, entityType, scored); res.Matched() {
		return c.remember(cacheKey, res), nil
	}

	if res := containmentMatch(normalized, entities); res.Matched() {
		return c.remember(cacheKey, res), nil
	}

	// Negative results are not cached: the resolver will create the
	// entity right after, and the next mention of this name must see it.
	return NoMatch(), nil
}

// Candidates returns every canonical entity of entityType that any
// strategy scores at or above floor, best first. Used by the
// relationship resolver to line up endpoint options.
func (c *Cascade) Candidates(ctx context.Context, name string, entityType common.EntityType, floor float64) ([]Result, error) {
	normalized := NormalizeName(name)
	if normalized == "" {
		return nil, nil
	}
	if floor <= 0 {
		floor = CandidateFloor
	}

	entities, err := c.store.GetEntitiesByType(ctx, entityType)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s entities: %w", entityType, err)
	}
	idx := indexEntities(entities)

	best := map[int64]Result{}
	consider := func(res Result) {
		if !res.Matched() || res.Confidence < floor {
			return
		}
		if prev, ok := best[res.Entity.ID]; !ok || res.Confidence > prev.Confidence {
			best[res.Entity.ID] = res
		}
	}

	consider(c.direct(name, normalized, idx))
	consider(applyBusinessRules(normalized, entityType, idx.byNormalized))
	consider(containmentMatch(normalized, entities))

	scored, err := c.store.FindSimilarEntities(ctx, normalized, entityType, candidateRecallLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar entities: %w", err)
	}
	for i := range scored {
		consider(Result{
			Entity:     &scored[i].Entity,
			Strategy:   StrategyFuzzy,
			Confidence: scored[i].Similarity,
		})
	}

	out := make([]Result, 0, len(best))
	for _, res := range best {
		out = append(out, res)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		return out[i].Entity.ID < out[j].Entity.ID
	})
	return out, nil
}

type entityIndex struct {
	byLowerName  map[string]*common.Entity
	byNormalized map[string]*common.Entity
	byAcronym    map[string]*common.Entity
}

func indexEntities(entities []common.Entity) entityIndex {
	idx := entityIndex{
		byLowerName:  make(map[string]*common.Entity, len(entities)),
		byNormalized: make(map[string]*common.Entity, len(entities)),
		byAcronym:    make(map[string]*common.Entity),
	}
	for i := range entities {
		e := &entities[i]
		idx.byLowerName[strings.ToLower(e.Name)] = e
		norm := e.NormalizedName
		if norm == "" {
			norm = NormalizeName(e.Name)
		}
		idx.byNormalized[norm] = e
		if acr := acronym(norm); acr != "" {
			idx.byAcronym[acr] = e
		}
	}
	return idx
}

// direct runs the exact, normalized and alias strategies, which only
// need the in-memory index.
func (c *Cascade) direct(name, normalized string, idx entityIndex) Result {
	if e, ok := idx.byLowerName[strings.ToLower(strings.TrimSpace(name))]; ok {
		return Result{Entity: e, Strategy: StrategyExact, Confidence: confidenceExact}
	}
	if e, ok := idx.byNormalized[normalized]; ok {
		return Result{Entity: e, Strategy: StrategyNormalized, Confidence: confidenceNormalized}
	}
	for _, alias := range AliasCandidates(normalized) {
		if e, ok := idx.byNormalized[alias]; ok {
			return Result{Entity: e, Strategy: StrategyAlias, Confidence: confidenceAlias, Label: alias}
		}
	}
	// "TSMC" against a stored "Taiwan Semiconductor Manufacturing".
	if e, ok := idx.byAcronym[normalized]; ok {
		return Result{Entity: e, Strategy: StrategyAlias, Confidence: confidenceAlias, Label: "acronym"}
	}
	return NoMatch()
}

// llmMatch asks the model to pick among the trigram candidates. Model
// failures are logged and treated as no-match so a flaky provider never
// blocks a batch.
func (c *Cascade) llmMatch(ctx context.Context, name string, entityType common.EntityType, scored []ScoredEntity) Result {
	if c.aiClient == nil {
		return NoMatch()
	}

	var pool []ScoredEntity
	for _, s := range scored {
		if s.Similarity >= CandidateFloor {
			pool = append(pool, s)
		}
	}
	if len(pool) == 0 {
		return NoMatch()
	}

	// The verdict cache is keyed on the candidate set so a grown set
	// (new entities since the last ask) triggers a fresh verdict.
	verdictKey := llmVerdictKey(name, entityType, pool)
	if c.cache != nil {
		if v, ok := c.cache.Get(verdictKey); ok {
			if res, ok := v.(Result); ok {
				return res
			}
		}
	}

	candidates := make([]ai.MatchCandidate, len(pool))
	for i, s := range pool {
		candidates[i] = ai.MatchCandidate{
			Name:        s.Name,
			Type:        string(s.Type),
			Description: s.Description,
		}
	}

	resp, err := ai.CallMatchAI(ctx, name, string(entityType), candidates, c.aiClient, c.maxRetries)
	if err != nil {
		logger.Warn("[match] model match failed, treating as no-match", "name", name, "error", err)
		return NoMatch()
	}

	res := NoMatch()
	if resp.Match && resp.CandidateIndex >= 0 && resp.CandidateIndex < len(pool) {
		conf := resp.Confidence
		if conf > llmConfidenceCap {
			conf = llmConfidenceCap
		}
		res = Result{
			Entity:     &pool[resp.CandidateIndex].Entity,
			Strategy:   StrategyLLM,
			Confidence: conf,
			Label:      resp.Reasoning,
		}
	}
	if c.cache != nil {
		c.cache.Set(verdictKey, res)
	}
	return res
}

func llmVerdictKey(name string, entityType common.EntityType, pool []ScoredEntity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "llm|%s|%s", entityType, NormalizeName(name))
	for _, s := range pool {
		fmt.Fprintf(&b, "|%d", s.ID)
	}
	return b.String()
}

// containmentMatch is the last resort: one normalized name contained in
// the other, with the shorter side long enough to rule out noise like
// "ai" inside "maintain".
func containmentMatch(normalized string, entities []common.Entity) Result {
	best := NoMatch()
	bestSim := 0.0
	for i := range entities {
		e := &entities[i]
		norm := e.NormalizedName
		if norm == "" {
			norm = NormalizeName(e.Name)
		}
		shorter, longer := normalized, norm
		if len(shorter) > len(longer) {
			shorter, longer = longer, shorter
		}
		if len(shorter) < minContainmentLen || !strings.Contains(longer, shorter) {
			continue
		}
		if sim := Similarity(normalized, norm); sim > bestSim {
			bestSim = sim
			best = Result{Entity: e, Strategy: StrategyContainment, Confidence: confidenceContainment}
		}
	}
	return best
}

func (c *Cascade) remember(key string, res Result) Result {
	if c.cache != nil {
		c.cache.Set(key, res)
	}
	return res
}

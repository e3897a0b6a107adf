package match

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/podgraph/backend/pkg/ai"
	"github.com/podgraph/backend/pkg/cache"
	"github.com/podgraph/backend/pkg/common"
)

type fakeStore struct {
	entities  []common.Entity
	typeLoads int
}

func (f *fakeStore) GetEntitiesByType(_ context.Context, entityType common.EntityType) ([]common.Entity, error) {
	f.typeLoads++
	var out []common.Entity
	for _, e := range f.entities {
		if e.Type == entityType {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) FindSimilarEntities(_ context.Context, normalized string, entityType common.EntityType, limit int) ([]ScoredEntity, error) {
	var out []ScoredEntity
	for _, e := range f.entities {
		if e.Type != entityType {
			continue
		}
		sim := Similarity(normalized, e.NormalizedName)
		if sim > 0 {
			out = append(out, ScoredEntity{Entity: e, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Similarity > out[j].Similarity })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type fakeAIClient struct {
	response ai.MatchResponse
	calls    int
}

func (f *fakeAIClient) GenerateCompletion(_ context.Context, _ string, _ ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (f *fakeAIClient) GenerateCompletionWithFormat(_ context.Context, _, _, _ string, out any, _ ...ai.GenerateOption) error {
	f.calls++
	if res, ok := out.(*ai.MatchResponse); ok {
		*res = f.response
	}
	return nil
}

func (f *fakeAIClient) ResetMetrics()               {}
func (f *fakeAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func testEntities() []common.Entity {
	return []common.Entity{
		{ID: 1, Name: "Apple", Type: common.EntityTypeCompany, NormalizedName: "apple"},
		{ID: 2, Name: "Microsoft", Type: common.EntityTypeCompany, NormalizedName: "microsoft"},
		{ID: 3, Name: "Taiwan Semiconductor Manufacturing", Type: common.EntityTypeCompany, NormalizedName: "taiwan semiconductor manufacturing"},
		{ID: 4, Name: "Artificial Intelligence", Type: common.EntityTypeTopic, NormalizedName: "artificial intelligence"},
		{ID: 5, Name: "Tim Cook", Type: common.EntityTypePerson, NormalizedName: "tim cook"},
	}
}

func TestCascadeExactMatch(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	res, err := c.Match(context.Background(), "Apple", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyExact || res.Entity.ID != 1 {
		t.Fatalf("got strategy %s entity %+v, want exact match on Apple", res.Strategy, res.Entity)
	}
	if res.Confidence != 0.95 {
		t.Errorf("exact confidence = %f, want 0.95", res.Confidence)
	}
}

func TestCascadeNormalizedMatch(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	res, err := c.Match(context.Background(), "Apple Inc.", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyNormalized || res.Entity.ID != 1 {
		t.Fatalf("got strategy %s, want normalized match on Apple", res.Strategy)
	}
	if res.Confidence != 0.9 {
		t.Errorf("normalized confidence = %f, want 0.9", res.Confidence)
	}
}

func TestCascadeAliasMatch(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	res, err := c.Match(context.Background(), "TSMC", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyAlias || res.Entity.ID != 3 {
		t.Fatalf("got strategy %s entity %+v, want alias match on TSMC", res.Strategy, res.Entity)
	}
}

func TestCascadeWithoutFuzzy(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil, WithoutFuzzy())

	// a typo that the trigram step would accept falls through to the
	// cheaper containment strategy when fuzzy matching is off
	res, err := c.Match(context.Background(), "Taiwan Semiconductor Manufacturin", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy == StrategyFuzzy {
		t.Fatalf("fuzzy strategy fired while disabled: %+v", res)
	}
	if res.Strategy != StrategyContainment || res.Entity.ID != 3 {
		t.Fatalf("got strategy %s, want containment match on entity 3", res.Strategy)
	}
}

func TestCascadeFuzzyMatch(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	res, err := c.Match(context.Background(), "Taiwan Semiconductor Manufacturin", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyFuzzy || res.Entity.ID != 3 {
		t.Fatalf("got strategy %s entity %+v, want fuzzy match on TSMC", res.Strategy, res.Entity)
	}
	if res.Confidence < 0.8 {
		t.Errorf("fuzzy confidence = %f, want >= threshold 0.8", res.Confidence)
	}
}

func TestCascadeFuzzyRespectsThreshold(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil, WithFuzzyThreshold(0.99))

	res, err := c.Match(context.Background(), "Microsofte", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy == StrategyFuzzy {
		t.Fatal("fuzzy match accepted below the configured threshold")
	}
}

func TestCascadeBusinessRule(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	res, err := c.Match(context.Background(), "Tim Cook's company", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyBusinessRule || res.Entity.ID != 1 {
		t.Fatalf("got strategy %s entity %+v, want business rule to Apple", res.Strategy, res.Entity)
	}
	if res.Confidence < 0.8 || res.Confidence > 0.85 {
		t.Errorf("rule confidence = %f, want in [0.8, 0.85]", res.Confidence)
	}
}

func TestCascadeContainment(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil, WithFuzzyThreshold(0.95))

	res, err := c.Match(context.Background(), "Taiwan Semiconductor Manufacturing Company Limited Fab Division", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyContainment || res.Entity.ID != 3 {
		t.Fatalf("got strategy %s entity %+v, want containment match", res.Strategy, res.Entity)
	}
	if res.Confidence != 0.5 {
		t.Errorf("containment confidence = %f, want 0.5", res.Confidence)
	}
}

func TestCascadeContainmentMinLength(t *testing.T) {
	store := &fakeStore{entities: []common.Entity{
		{ID: 9, Name: "Bain", Type: common.EntityTypeCompany, NormalizedName: "bain"},
	}}
	c := NewCascade(store, nil, nil)

	// "bain" is contained in "bainbridge" but is below the 5-char floor
	res, err := c.Match(context.Background(), "Bainbridge", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Matched() {
		t.Fatalf("got %s match, want no match for a 4-char containment", res.Strategy)
	}
}

func TestCascadeNoMatch(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	res, err := c.Match(context.Background(), "Zanzibar Freight", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Matched() {
		t.Fatalf("got %s match on unknown name", res.Strategy)
	}
	if res.Strategy != StrategyNone {
		t.Errorf("no-match strategy = %s, want none", res.Strategy)
	}
}

func TestCascadeLLMMatchCapped(t *testing.T) {
	client := &fakeAIClient{response: ai.MatchResponse{
		Match:          true,
		CandidateIndex: 0,
		Confidence:     0.99,
		Reasoning:      "same company",
	}}
	c := NewCascade(&fakeStore{entities: testEntities()}, client, nil, WithFuzzyThreshold(0.95))

	res, err := c.Match(context.Background(), "Microsofte Corporation", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if res.Strategy != StrategyLLM || res.Entity.ID != 2 {
		t.Fatalf("got strategy %s entity %+v, want llm match on Microsoft", res.Strategy, res.Entity)
	}
	if res.Confidence != 0.9 {
		t.Errorf("llm confidence = %f, want capped at 0.9", res.Confidence)
	}
}

func TestCascadeShortCircuitSkipsLLM(t *testing.T) {
	client := &fakeAIClient{}
	c := NewCascade(&fakeStore{entities: testEntities()}, client, nil)

	if _, err := c.Match(context.Background(), "Apple", common.EntityTypeCompany); err != nil {
		t.Fatal(err)
	}
	if client.calls != 0 {
		t.Errorf("model was called %d times for an exact match, want 0", client.calls)
	}
}

func TestCascadeCachesPositiveResults(t *testing.T) {
	store := &fakeStore{entities: testEntities()}
	c := NewCascade(store, nil, cache.New(time.Minute))

	for i := 0; i < 3; i++ {
		res, err := c.Match(context.Background(), "Apple", common.EntityTypeCompany)
		if err != nil {
			t.Fatal(err)
		}
		if res.Entity.ID != 1 {
			t.Fatalf("unexpected entity %+v", res.Entity)
		}
	}
	if store.typeLoads != 1 {
		t.Errorf("store was queried %d times, want 1 (cache hit afterwards)", store.typeLoads)
	}
}

func TestCascadeDoesNotCacheNoMatch(t *testing.T) {
	store := &fakeStore{entities: nil}
	c := NewCascade(store, nil, cache.New(time.Minute))

	if _, err := c.Match(context.Background(), "Newcorp Industries", common.EntityTypeCompany); err != nil {
		t.Fatal(err)
	}

	// entity created between the two lookups must be visible
	store.entities = []common.Entity{
		{ID: 7, Name: "Newcorp Industries", Type: common.EntityTypeCompany, NormalizedName: "newcorp industries"},
	}
	res, err := c.Match(context.Background(), "Newcorp Industries", common.EntityTypeCompany)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Matched() || res.Entity.ID != 7 {
		t.Fatal("stale no-match was served from the cache")
	}
}

func TestCascadeCandidates(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	got, err := c.Candidates(context.Background(), "Microsoft", common.EntityTypeCompany, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) == 0 {
		t.Fatal("want at least one candidate")
	}
	if got[0].Entity.ID != 2 || got[0].Confidence < 0.9 {
		t.Fatalf("best candidate = %+v, want Microsoft with high confidence", got[0])
	}
	for i := 1; i < len(got); i++ {
		if got[i].Confidence > got[i-1].Confidence {
			t.Fatal("candidates are not sorted by confidence")
		}
	}
	for _, r := range got {
		if r.Confidence < 0.3 {
			t.Errorf("candidate %q below floor: %f", r.Entity.Name, r.Confidence)
		}
	}
}

func TestCascadeCandidatesEmptyName(t *testing.T) {
	c := NewCascade(&fakeStore{entities: testEntities()}, nil, nil)

	got, err := c.Candidates(context.Background(), "   ", common.EntityTypeCompany, 0.3)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("got %d candidates for a blank name, want 0", len(got))
	}
}

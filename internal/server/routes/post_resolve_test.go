package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/podgraph/backend/internal/server/middleware"
	"github.com/podgraph/backend/pkg/ai"
	"github.com/podgraph/backend/pkg/cache"
	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/match"
	"github.com/podgraph/backend/pkg/resolve"
	"github.com/podgraph/backend/pkg/store/memory"
)

type countingAIClient struct {
	calls int
}

func (c *countingAIClient) GenerateCompletion(context.Context, string, ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (c *countingAIClient) GenerateCompletionWithFormat(_ context.Context, _, _, _ string, out any, _ ...ai.GenerateOption) error {
	c.calls++
	if res, ok := out.(*ai.MatchResponse); ok {
		*res = ai.MatchResponse{Match: false, CandidateIndex: -1}
	}
	return nil
}

func (c *countingAIClient) ResetMetrics()               {}
func (c *countingAIClient) GetMetrics() ai.ModelMetrics { return ai.ModelMetrics{} }

func newResolveApp(aiClient ai.ResolverAIClient) (*memory.ResolverMemStorage, *middleware.App) {
	st := memory.NewResolverMemStorage()
	matchCache := cache.New(time.Minute)
	cascade := match.NewCascade(st, aiClient, matchCache)
	return st, &middleware.App{
		Store:    st,
		Entities: resolve.NewEntityResolver(st, cascade, aiClient),
		AIClient: aiClient,
		Cache:    matchCache,
	}
}

func callResolveEntities(t *testing.T, app *middleware.App, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/resolve/entities", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := ResolveEntitiesHandler(&middleware.AppContext{Context: c, App: app}); err != nil {
		t.Fatal(err)
	}
	return rec
}

func TestResolveEntitiesHandlerClearCache(t *testing.T) {
	st, app := newResolveApp(nil)
	ctx := context.Background()

	// two identical mentions: the second one's merge seeds the match cache
	if _, err := st.EnqueueEntities(ctx, []common.StagedEntity{
		{Name: "Apple", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
		{Name: "Apple", Type: common.EntityTypeCompany, EpisodeID: "ep2"},
	}); err != nil {
		t.Fatal(err)
	}
	if rec := callResolveEntities(t, app, `{}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if app.Cache.Stats().Keys == 0 {
		t.Fatal("expected cached match results after the first batch")
	}

	// a clear_cache run with no pending work leaves the cache cold until
	// the next genuine miss
	if rec := callResolveEntities(t, app, `{"clear_cache": true}`); rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if got := app.Cache.Stats().Keys; got != 0 {
		t.Errorf("cache keys after clear_cache run = %d, want 0", got)
	}
}

func TestResolveEntitiesHandlerDisablesModel(t *testing.T) {
	client := &countingAIClient{}
	st, app := newResolveApp(client)
	ctx := context.Background()

	if _, err := st.UpsertEntity(ctx, common.Entity{Name: "Microsoft", Type: common.EntityTypeCompany}); err != nil {
		t.Fatal(err)
	}
	// the raised fuzzy threshold pushes this variant past the trigram
	// step; with use_llm off it must settle via containment instead of
	// asking the model
	if _, err := st.EnqueueEntities(ctx, []common.StagedEntity{
		{Name: "Microsofte Corporation", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
	}); err != nil {
		t.Fatal(err)
	}

	rec := callResolveEntities(t, app, `{"use_llm": false, "fuzzy_threshold": 0.99}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if client.calls != 0 {
		t.Errorf("model called %d times with use_llm disabled", client.calls)
	}
	if got := len(st.Entities()); got != 1 {
		t.Errorf("got %d entities, want the mention merged into the existing one", got)
	}
}

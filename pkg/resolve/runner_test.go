package resolve

import (
	"context"
	"testing"
	"time"

	"github.com/podgraph/backend/pkg/cache"
	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/match"
	"github.com/podgraph/backend/pkg/store/memory"
)

func newRunnerFixture() (*memory.ResolverMemStorage, *Runner) {
	st := memory.NewResolverMemStorage()
	c := cache.New(time.Minute)
	cascade := match.NewCascade(st, nil, c)
	entities := NewEntityResolver(st, cascade, nil)
	relationships := NewRelationshipResolver(st, cascade, nil)
	return st, NewRunner(entities, relationships, c)
}

func TestRunnerFullPass(t *testing.T) {
	st, runner := newRunnerFixture()
	ctx := context.Background()

	if _, err := st.EnqueueEntities(ctx, []common.StagedEntity{
		{Name: "Apple", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
		{Name: "Apple Inc.", Type: common.EntityTypeCompany, EpisodeID: "ep2"},
		{Name: "Tim Cook", Type: common.EntityTypePerson, EpisodeID: "ep1"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.EnqueueRelationships(ctx, []common.StagedRelationship{{
		SourceName:  "Tim Cook",
		TargetName:  "Apple",
		Description: "Tim Cook is the CEO of Apple",
		EpisodeID:   "ep1",
	}}); err != nil {
		t.Fatal(err)
	}

	result, err := runner.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}

	// entities resolve before relationships, so the edge endpoints find
	// the entities created in the same run
	if result.Entities.Created != 2 || result.Entities.Merged != 1 {
		t.Fatalf("entities = %+v", result.Entities)
	}
	if result.Relationships.Created != 1 {
		t.Fatalf("relationships = %+v", result.Relationships)
	}

	stats, _ := st.StagingStats(ctx)
	if stats.PendingEntities != 0 || stats.PendingRelationships != 0 {
		t.Errorf("pending work after full run: %+v", stats)
	}
	if len(st.Entities()) != 2 || len(st.Connections()) != 1 {
		t.Errorf("graph: %d entities, %d connections", len(st.Entities()), len(st.Connections()))
	}
}

func TestRunnerRespectsMaxBatches(t *testing.T) {
	st, runner := newRunnerFixture()
	ctx := context.Background()

	var staged []common.StagedEntity
	for _, name := range []string{"Apple", "Microsoft", "Nvidia", "AMD", "Intel"} {
		staged = append(staged, common.StagedEntity{Name: name, Type: common.EntityTypeCompany, EpisodeID: "ep1"})
	}
	if _, err := st.EnqueueEntities(ctx, staged); err != nil {
		t.Fatal(err)
	}

	result, err := runner.Run(ctx, RunOptions{EntityBatchSize: 2, MaxBatches: 1})
	if err != nil {
		t.Fatal(err)
	}
	if result.Batches != 1 || result.Entities.Processed != 2 {
		t.Fatalf("result = %+v, want exactly one batch of 2", result)
	}

	stats, _ := st.StagingStats(ctx)
	if stats.PendingEntities != 3 {
		t.Errorf("pending = %d, want 3 left for the next run", stats.PendingEntities)
	}
}

func TestRunnerPhaseBudgetsAreIndependent(t *testing.T) {
	st, runner := newRunnerFixture()
	ctx := context.Background()

	for _, e := range []common.Entity{
		{Name: "Tim Cook", Type: common.EntityTypePerson},
		{Name: "Apple", Type: common.EntityTypeCompany},
	} {
		if _, err := st.UpsertEntity(ctx, e); err != nil {
			t.Fatal(err)
		}
	}

	// an entity backlog bigger than the batch budget must not starve the
	// relationship phase, which runs on its own MaxBatches allowance
	if _, err := st.EnqueueEntities(ctx, []common.StagedEntity{
		{Name: "Nvidia", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
		{Name: "Intel", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
		{Name: "AMD", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := st.EnqueueRelationships(ctx, []common.StagedRelationship{{
		SourceName:  "Tim Cook",
		TargetName:  "Apple",
		Description: "Tim Cook is the CEO of Apple",
		EpisodeID:   "ep1",
	}}); err != nil {
		t.Fatal(err)
	}

	result, err := runner.Run(ctx, RunOptions{EntityBatchSize: 2, MaxBatches: 1})
	if err != nil {
		t.Fatal(err)
	}
	if result.Entities.Processed != 2 {
		t.Errorf("entities processed = %d, want the one-batch cap of 2", result.Entities.Processed)
	}
	if result.Relationships.Processed != 1 || result.Relationships.Created != 1 {
		t.Errorf("relationships = %+v, want the edge resolved despite the entity backlog", result.Relationships)
	}
	if result.Batches != 2 {
		t.Errorf("batches = %d, want one per phase", result.Batches)
	}
}

func TestRunnerRerunIsNoOp(t *testing.T) {
	st, runner := newRunnerFixture()
	ctx := context.Background()

	if _, err := st.EnqueueEntities(ctx, []common.StagedEntity{
		{Name: "Apple", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(ctx, RunOptions{}); err != nil {
		t.Fatal(err)
	}

	second, err := runner.Run(ctx, RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if second.Entities.Processed != 0 || second.Relationships.Processed != 0 {
		t.Fatalf("second run did work: %+v", second)
	}
	if len(st.Entities()) != 1 {
		t.Errorf("re-run changed the graph")
	}
}

func TestRunnerFlushCache(t *testing.T) {
	st, runner := newRunnerFixture()
	ctx := context.Background()

	if _, err := st.EnqueueEntities(ctx, []common.StagedEntity{
		{Name: "Apple", Type: common.EntityTypeCompany, EpisodeID: "ep1"},
		{Name: "Apple", Type: common.EntityTypeCompany, EpisodeID: "ep2"},
	}); err != nil {
		t.Fatal(err)
	}
	if _, err := runner.Run(ctx, RunOptions{}); err != nil {
		t.Fatal(err)
	}

	before := runner.cache.Stats().Keys
	if before == 0 {
		t.Fatal("expected cached match results after the run")
	}
	if _, err := runner.Run(ctx, RunOptions{FlushCache: true}); err != nil {
		t.Fatal(err)
	}
	if got := runner.cache.Stats().Keys; got != 0 {
		t.Errorf("cache keys after flush run = %d, want 0", got)
	}
}

func TestRunnerDuration(t *testing.T) {
	_, runner := newRunnerFixture()

	result, err := runner.Run(context.Background(), RunOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if result.DurationMs < 0 {
		t.Errorf("duration = %d", result.DurationMs)
	}
}

package resolve

import (
	"context"
	"fmt"
	"time"

	"github.com/podgraph/backend/pkg/cache"
	"github.com/podgraph/backend/pkg/logger"
)

// Default batch sizing for a full run.
const (
	DefaultEntityBatchSize       = 100
	DefaultRelationshipBatchSize = 100
	DefaultMaxBatches            = 50
)

// RunOptions configures a full resolution run. MaxBatches bounds each
// resolver phase separately, so an entity backlog can never starve
// relationship resolution.
type RunOptions struct {
	EntityBatchSize       int  `json:"entity_batch_size"`
	RelationshipBatchSize int  `json:"relationship_batch_size"`
	MaxBatches            int  `json:"max_batches"`
	FlushCache            bool `json:"flush_cache"`
}

func (o *RunOptions) applyDefaults() {
	if o.EntityBatchSize <= 0 {
		o.EntityBatchSize = DefaultEntityBatchSize
	}
	if o.RelationshipBatchSize <= 0 {
		o.RelationshipBatchSize = DefaultRelationshipBatchSize
	}
	if o.MaxBatches <= 0 {
		o.MaxBatches = DefaultMaxBatches
	}
}

// RunResult aggregates every batch of a run. On an aborted run the
// aggregates cover the batches that completed before the failure.
type RunResult struct {
	Entities      EntityResult       `json:"entities"`
	Relationships RelationshipResult `json:"relationships"`
	Batches       int                `json:"batches"`
	DurationMs    int64              `json:"duration_ms"`
}

// Runner drives entity resolution to exhaustion, then relationship
// resolution, within a bounded number of batches. Entities go first so
// relationship endpoints can resolve against the entities their own
// episode introduced.
type Runner struct {
	entities      *EntityResolver
	relationships *RelationshipResolver
	cache         *cache.Cache
}

// NewRunner wires a runner. resultCache may be nil when no cache is in
// play.
func NewRunner(entities *EntityResolver, relationships *RelationshipResolver, resultCache *cache.Cache) *Runner {
	return &Runner{entities: entities, relationships: relationships, cache: resultCache}
}

// Run executes a bounded resolution pass. Batch-level failures (a
// dequeue that cannot reach the database) abort the run and surface the
// error alongside the partial aggregates.
func (r *Runner) Run(ctx context.Context, opts RunOptions) (RunResult, error) {
	opts.applyDefaults()
	start := time.Now()

	if opts.FlushCache && r.cache != nil {
		r.cache.Flush()
	}

	result := RunResult{Entities: EntityResult{StrategyStats: make(map[string]int)}}
	defer func() {
		result.DurationMs = time.Since(start).Milliseconds()
	}()

	for batches := 0; batches < opts.MaxBatches; {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := r.entities.ResolveBatch(ctx, opts.EntityBatchSize)
		result.Entities.add(batch)
		if err != nil {
			return result, fmt.Errorf("entity batch %d failed: %w", batches+1, err)
		}
		if batch.Processed == 0 && batch.Errors == 0 {
			break
		}
		batches++
		result.Batches++
		logger.Info("[resolve] entity batch done",
			"batch", batches, "processed", batch.Processed,
			"created", batch.Created, "merged", batch.Merged, "errors", batch.Errors)
		if batch.Errors > 0 && batch.Processed == 0 {
			// nothing is making progress; stop instead of spinning
			break
		}
	}

	for batches := 0; batches < opts.MaxBatches; {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		batch, err := r.relationships.ResolveBatch(ctx, opts.RelationshipBatchSize)
		result.Relationships.add(batch)
		if err != nil {
			return result, fmt.Errorf("relationship batch %d failed: %w", batches+1, err)
		}
		if batch.Processed == 0 && batch.Errors == 0 {
			break
		}
		batches++
		result.Batches++
		logger.Info("[resolve] relationship batch done",
			"batch", batches, "processed", batch.Processed,
			"created", batch.Created, "skipped", batch.Skipped, "errors", batch.Errors)
		if batch.Errors > 0 && batch.Processed == 0 {
			break
		}
	}

	logger.Info("[resolve] run complete",
		"batches", result.Batches,
		"entities_processed", result.Entities.Processed,
		"relationships_processed", result.Relationships.Processed,
		"cost_usd", result.Entities.CostUSD)
	return result, nil
}

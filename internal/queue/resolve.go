package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/podgraph/backend/internal/util"
	"github.com/podgraph/backend/pkg/logger"
	"github.com/podgraph/backend/pkg/resolve"
)

// ResolveMessage is the payload published to the resolve queue. Zero
// values fall back to the runner defaults.
type ResolveMessage struct {
	EntityBatchSize       int  `json:"entity_batch_size,omitempty"`
	RelationshipBatchSize int  `json:"relationship_batch_size,omitempty"`
	MaxBatches            int  `json:"max_batches,omitempty"`
	FlushCache            bool `json:"flush_cache,omitempty"`
}

// ProcessResolveMessage runs a full resolution pass for one queued
// request. A returned error sends the message down the retry path.
func ProcessResolveMessage(ctx context.Context, runner *resolve.Runner, body string) error {
	var msg ResolveMessage
	if err := json.Unmarshal([]byte(body), &msg); err != nil {
		return fmt.Errorf("failed to parse resolve message: %w", err)
	}

	// message values win, then env, then the runner defaults
	if msg.EntityBatchSize == 0 {
		msg.EntityBatchSize = util.GetEnvInt("ENTITY_BATCH_SIZE", 0)
	}
	if msg.RelationshipBatchSize == 0 {
		msg.RelationshipBatchSize = util.GetEnvInt("RELATIONSHIP_BATCH_SIZE", 0)
	}
	if msg.MaxBatches == 0 {
		msg.MaxBatches = util.GetEnvInt("MAX_BATCHES", 0)
	}

	result, err := runner.Run(ctx, resolve.RunOptions{
		EntityBatchSize:       msg.EntityBatchSize,
		RelationshipBatchSize: msg.RelationshipBatchSize,
		MaxBatches:            msg.MaxBatches,
		FlushCache:            msg.FlushCache,
	})
	if err != nil {
		return fmt.Errorf("resolution run failed: %w", err)
	}

	logger.Info("[queue] resolution run finished",
		"batches", result.Batches,
		"entities_created", result.Entities.Created,
		"entities_merged", result.Entities.Merged,
		"edges_created", result.Relationships.Created,
		"duration_ms", result.DurationMs,
	)
	return nil
}

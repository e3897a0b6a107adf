package store

import (
	"context"
	"time"

	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/match"
)

// ResolverStorage defines the persistence interface for the resolution
// pipeline: the staged-mention inbox, the canonical entity and
// connection tables, and the similarity recall the matching cascade
// needs. Implementations must be safe for concurrent use.
type ResolverStorage interface {
	// Staging inbox. Enqueue appends raw mentions; Dequeue returns
	// unprocessed rows oldest-first without removing them; Mark flips
	// the processed flag (idempotent) and records why a row was skipped.
	EnqueueEntities(ctx context.Context, entities []common.StagedEntity) (int64, error)
	EnqueueRelationships(ctx context.Context, relationships []common.StagedRelationship) (int64, error)
	DequeueEntities(ctx context.Context, limit int) ([]common.StagedEntity, error)
	DequeueRelationships(ctx context.Context, limit int) ([]common.StagedRelationship, error)
	MarkEntitiesProcessed(ctx context.Context, ids []int64, skipReason string) error
	MarkRelationshipsProcessed(ctx context.Context, ids []int64, skipReason string) error
	StagingStats(ctx context.Context) (common.StagingStats, error)
	PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error)

	// Canonical graph. UpsertEntity inserts on the unique
	// (normalized_name, type) pair and returns the surviving row, so
	// concurrent resolvers converge on one entity instead of racing a
	// check-then-insert. UpsertConnection reports whether the edge was
	// created or an existing edge had its strength bumped.
	GetEntitiesByType(ctx context.Context, entityType common.EntityType) ([]common.Entity, error)
	FindSimilarEntities(ctx context.Context, normalized string, entityType common.EntityType, limit int) ([]match.ScoredEntity, error)
	UpsertEntity(ctx context.Context, entity common.Entity) (common.Entity, error)
	UpdateEntity(ctx context.Context, entity common.Entity) error
	UpsertMention(ctx context.Context, episodeID string, entityID int64) error
	UpsertConnection(ctx context.Context, conn common.Connection) (common.Connection, bool, error)
}

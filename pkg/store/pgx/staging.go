package pgx

import (
	"context"
	"fmt"
	"time"

	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/store"
)

const enqueueChunkSize = 1000

// EnqueueEntities appends raw entity mentions to the staging inbox.
// Rows are append-only; duplicates are expected and resolved later.
func (s *ResolverDBStorage) EnqueueEntities(ctx context.Context, entities []common.StagedEntity) (int64, error) {
	if len(entities) == 0 {
		return 0, nil
	}

	var inserted int64
	err := store.ChunkRange(len(entities), enqueueChunkSize, func(start, end int) error {
		chunk := entities[start:end]
		names := make([]string, len(chunk))
		types := make([]string, len(chunk))
		descriptions := make([]string, len(chunk))
		episodeIDs := make([]string, len(chunk))
		episodeTitles := make([]string, len(chunk))
		for i, e := range chunk {
			names[i] = e.Name
			types[i] = string(e.Type)
			descriptions[i] = e.Description
			episodeIDs[i] = e.EpisodeID
			episodeTitles[i] = e.EpisodeTitle
		}

		tag, err := s.conn.Exec(ctx, `
			INSERT INTO staged_entities (name, type, description, episode_id, episode_title)
			SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[])`,
			names, types, descriptions, episodeIDs, episodeTitles,
		)
		if err != nil {
			return fmt.Errorf("failed to enqueue staged entities: %w", err)
		}
		inserted += tag.RowsAffected()
		return nil
	})
	return inserted, err
}

// EnqueueRelationships appends raw relationship mentions to the staging
// inbox.
func (s *ResolverDBStorage) EnqueueRelationships(ctx context.Context, relationships []common.StagedRelationship) (int64, error) {
	if len(relationships) == 0 {
		return 0, nil
	}

	var inserted int64
	err := store.ChunkRange(len(relationships), enqueueChunkSize, func(start, end int) error {
		chunk := relationships[start:end]
		sources := make([]string, len(chunk))
		targets := make([]string, len(chunk))
		descriptions := make([]string, len(chunk))
		episodeIDs := make([]string, len(chunk))
		episodeTitles := make([]string, len(chunk))
		for i, r := range chunk {
			sources[i] = r.SourceName
			targets[i] = r.TargetName
			descriptions[i] = r.Description
			episodeIDs[i] = r.EpisodeID
			episodeTitles[i] = r.EpisodeTitle
		}

		tag, err := s.conn.Exec(ctx, `
			INSERT INTO staged_relationships (source_name, target_name, description, episode_id, episode_title)
			SELECT * FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[])`,
			sources, targets, descriptions, episodeIDs, episodeTitles,
		)
		if err != nil {
			return fmt.Errorf("failed to enqueue staged relationships: %w", err)
		}
		inserted += tag.RowsAffected()
		return nil
	})
	return inserted, err
}

// DequeueEntities returns up to limit unprocessed entity mentions,
// oldest first. Rows stay in place until marked processed.
func (s *ResolverDBStorage) DequeueEntities(ctx context.Context, limit int) ([]common.StagedEntity, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, name, type, description, episode_id, episode_title, extracted_at, processed, skip_reason
		FROM staged_entities
		WHERE NOT processed
		ORDER BY extracted_at, id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue staged entities: %w", err)
	}
	defer rows.Close()

	var out []common.StagedEntity
	for rows.Next() {
		var e common.StagedEntity
		if err := rows.Scan(
			&e.ID, &e.Name, &e.Type, &e.Description,
			&e.EpisodeID, &e.EpisodeTitle, &e.ExtractedAt, &e.Processed, &e.SkipReason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan staged entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// DequeueRelationships returns up to limit unprocessed relationship
// mentions, oldest first.
func (s *ResolverDBStorage) DequeueRelationships(ctx context.Context, limit int) ([]common.StagedRelationship, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, source_name, target_name, description, episode_id, episode_title, extracted_at, processed, skip_reason
		FROM staged_relationships
		WHERE NOT processed
		ORDER BY extracted_at, id
		LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to dequeue staged relationships: %w", err)
	}
	defer rows.Close()

	var out []common.StagedRelationship
	for rows.Next() {
		var r common.StagedRelationship
		if err := rows.Scan(
			&r.ID, &r.SourceName, &r.TargetName, &r.Description,
			&r.EpisodeID, &r.EpisodeTitle, &r.ExtractedAt, &r.Processed, &r.SkipReason,
		); err != nil {
			return nil, fmt.Errorf("failed to scan staged relationship: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkEntitiesProcessed flips the processed flag for the given rows.
// Already-processed rows are untouched, so retried batches are safe.
func (s *ResolverDBStorage) MarkEntitiesProcessed(ctx context.Context, ids []int64, skipReason string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.conn.Exec(ctx, `
		UPDATE staged_entities
		SET processed = TRUE, skip_reason = $2
		WHERE id = ANY($1) AND NOT processed`,
		ids, skipReason,
	)
	if err != nil {
		return fmt.Errorf("failed to mark staged entities processed: %w", err)
	}
	return nil
}

// MarkRelationshipsProcessed flips the processed flag for the given rows.
func (s *ResolverDBStorage) MarkRelationshipsProcessed(ctx context.Context, ids []int64, skipReason string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := s.conn.Exec(ctx, `
		UPDATE staged_relationships
		SET processed = TRUE, skip_reason = $2
		WHERE id = ANY($1) AND NOT processed`,
		ids, skipReason,
	)
	if err != nil {
		return fmt.Errorf("failed to mark staged relationships processed: %w", err)
	}
	return nil
}

// StagingStats reports pending and processed counts per kind.
func (s *ResolverDBStorage) StagingStats(ctx context.Context) (common.StagingStats, error) {
	var stats common.StagingStats
	err := s.conn.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM staged_entities WHERE NOT processed),
			(SELECT count(*) FROM staged_relationships WHERE NOT processed),
			(SELECT count(*) FROM staged_entities WHERE processed),
			(SELECT count(*) FROM staged_relationships WHERE processed)`,
	).Scan(
		&stats.PendingEntities,
		&stats.PendingRelationships,
		&stats.ProcessedEntities,
		&stats.ProcessedRelationships,
	)
	if err != nil {
		return common.StagingStats{}, fmt.Errorf("failed to get staging stats: %w", err)
	}
	return stats, nil
}

// PurgeProcessedBefore deletes processed staging rows extracted before
// cutoff and returns how many were removed.
func (s *ResolverDBStorage) PurgeProcessedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	var purged int64

	tag, err := s.conn.Exec(ctx,
		`DELETE FROM staged_entities WHERE processed AND extracted_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge staged entities: %w", err)
	}
	purged += tag.RowsAffected()

	tag, err = s.conn.Exec(ctx,
		`DELETE FROM staged_relationships WHERE processed AND extracted_at < $1`, cutoff)
	if err != nil {
		return purged, fmt.Errorf("failed to purge staged relationships: %w", err)
	}
	purged += tag.RowsAffected()

	return purged, nil
}

package pgx

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/match"
)

// GetEntitiesByType returns every canonical entity of the given type.
// The cascade runs its cheap strategies against this full slice.
func (s *ResolverDBStorage) GetEntitiesByType(ctx context.Context, entityType common.EntityType) ([]common.Entity, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, public_id, name, type, description, normalized_name
		FROM entities
		WHERE type = $1
		ORDER BY id`,
		string(entityType),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get entities by type: %w", err)
	}
	defer rows.Close()

	var out []common.Entity
	for rows.Next() {
		var e common.Entity
		if err := rows.Scan(&e.ID, &e.PublicID, &e.Name, &e.Type, &e.Description, &e.NormalizedName); err != nil {
			return nil, fmt.Errorf("failed to scan entity: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// FindSimilarEntities ranks entities of a type by pg_trgm similarity to
// the normalized query. The GIN trigram index on normalized_name keeps
// this cheap even with a large graph.
func (s *ResolverDBStorage) FindSimilarEntities(
	ctx context.Context,
	normalized string,
	entityType common.EntityType,
	limit int,
) ([]match.ScoredEntity, error) {
	rows, err := s.conn.Query(ctx, `
		SELECT id, public_id, name, type, description, normalized_name,
		       similarity(normalized_name, $1) AS sim
		FROM entities
		WHERE type = $2 AND similarity(normalized_name, $1) > 0
		ORDER BY sim DESC, id
		LIMIT $3`,
		normalized, string(entityType), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find similar entities: %w", err)
	}
	defer rows.Close()

	var out []match.ScoredEntity
	for rows.Next() {
		var se match.ScoredEntity
		if err := rows.Scan(
			&se.ID, &se.PublicID, &se.Name, &se.Type, &se.Description, &se.NormalizedName,
			&se.Similarity,
		); err != nil {
			return nil, fmt.Errorf("failed to scan scored entity: %w", err)
		}
		out = append(out, se)
	}
	return out, rows.Err()
}

// UpsertEntity inserts an entity or, when the (normalized_name, type)
// pair already exists, returns the surviving row. The conflict path
// keeps the established name and only upgrades the description when the
// new one is strictly longer. This is what makes concurrent resolver
// runs converge on a single canonical row instead of racing a
// check-then-insert.
func (s *ResolverDBStorage) UpsertEntity(ctx context.Context, entity common.Entity) (common.Entity, error) {
	if entity.NormalizedName == "" {
		entity.NormalizedName = match.NormalizeName(entity.Name)
	}
	if entity.PublicID == "" {
		pid, err := gonanoid.New()
		if err != nil {
			return common.Entity{}, fmt.Errorf("failed to generate public id: %w", err)
		}
		entity.PublicID = pid
	}

	var out common.Entity
	err := s.conn.QueryRow(ctx, `
		INSERT INTO entities (public_id, name, type, description, normalized_name)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (normalized_name, type) DO UPDATE
		SET description = CASE
			WHEN length(EXCLUDED.description) > length(entities.description) THEN EXCLUDED.description
			ELSE entities.description
		END
		RETURNING id, public_id, name, type, description, normalized_name`,
		entity.PublicID, entity.Name, string(entity.Type), entity.Description, entity.NormalizedName,
	).Scan(&out.ID, &out.PublicID, &out.Name, &out.Type, &out.Description, &out.NormalizedName)
	if err != nil {
		return common.Entity{}, fmt.Errorf("failed to upsert entity: %w", err)
	}
	return out, nil
}

// UpdateEntity rewrites name, description and normalized name of an
// existing entity. Used for canonical-name promotion.
func (s *ResolverDBStorage) UpdateEntity(ctx context.Context, entity common.Entity) error {
	if entity.NormalizedName == "" {
		entity.NormalizedName = match.NormalizeName(entity.Name)
	}
	_, err := s.conn.Exec(ctx, `
		UPDATE entities
		SET name = $2, description = $3, normalized_name = $4
		WHERE id = $1`,
		entity.ID, entity.Name, entity.Description, entity.NormalizedName,
	)
	if err != nil {
		return fmt.Errorf("failed to update entity: %w", err)
	}
	return nil
}

// UpsertMention records that an entity was referenced in an episode.
// The pair is unique, so re-processing the same mention is a no-op.
func (s *ResolverDBStorage) UpsertMention(ctx context.Context, episodeID string, entityID int64) error {
	_, err := s.conn.Exec(ctx, `
		INSERT INTO entity_mentions (episode_id, entity_id)
		VALUES ($1, $2)
		ON CONFLICT (episode_id, entity_id) DO NOTHING`,
		episodeID, entityID,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert entity mention: %w", err)
	}
	return nil
}

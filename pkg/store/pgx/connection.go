package pgx

import (
	"context"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/podgraph/backend/pkg/common"
)

// UpsertConnection creates an edge or, when the (episode, source,
// target) triple already exists, bumps its strength by one. Strength
// only ever increases. The returned bool is true when a new edge was
// created. Self-loops are rejected here and by a table constraint.
func (s *ResolverDBStorage) UpsertConnection(ctx context.Context, conn common.Connection) (common.Connection, bool, error) {
	if conn.SourceEntityID == conn.TargetEntityID {
		return common.Connection{}, false, fmt.Errorf("connection cannot link entity %d to itself", conn.SourceEntityID)
	}
	if conn.PublicID == "" {
		pid, err := gonanoid.New()
		if err != nil {
			return common.Connection{}, false, fmt.Errorf("failed to generate public id: %w", err)
		}
		conn.PublicID = pid
	}

	var out common.Connection
	var created bool
	err := s.conn.QueryRow(ctx, `
		INSERT INTO connections (public_id, episode_id, source_entity_id, target_entity_id, strength, description)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (episode_id, source_entity_id, target_entity_id) DO UPDATE
		SET strength = connections.strength + 1,
		    description = CASE
				WHEN length(EXCLUDED.description) > length(connections.description) THEN EXCLUDED.description
				ELSE connections.description
			END
		RETURNING id, public_id, episode_id, source_entity_id, target_entity_id, strength, description,
		          (xmax = 0) AS created`,
		conn.PublicID, conn.EpisodeID, conn.SourceEntityID, conn.TargetEntityID, conn.Description,
	).Scan(
		&out.ID, &out.PublicID, &out.EpisodeID, &out.SourceEntityID, &out.TargetEntityID,
		&out.Strength, &out.Description, &created,
	)
	if err != nil {
		return common.Connection{}, false, fmt.Errorf("failed to upsert connection: %w", err)
	}
	return out, created, nil
}

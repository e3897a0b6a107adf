// Package memory implements ResolverStorage entirely in process. It
// mirrors the Postgres semantics (upsert-on-conflict, oldest-first
// dequeue, trigram recall) closely enough that the resolvers can be
// exercised in tests without a database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/match"
	"github.com/podgraph/backend/pkg/store"
)

var _ store.ResolverStorage = (*ResolverMemStorage)(nil)

// ResolverMemStorage is the in-process implementation of
// store.ResolverStorage.
type ResolverMemStorage struct {
	mu sync.Mutex

	stagedEntities      []common.StagedEntity
	stagedRelationships []common.StagedRelationship
	nextStagedEntityID  int64
	nextStagedRelID     int64

	entities         map[int64]*common.Entity
	entityByKey      map[string]int64 // normalized_name|type
	nextEntityID     int64
	mentions         map[string]bool // episode_id|entity_id
	connections      map[string]*common.Connection
	nextConnectionID int64
}

// NewResolverMemStorage returns an empty store.
func NewResolverMemStorage() *ResolverMemStorage {
	return &ResolverMemStorage{
		entities:    make(map[int64]*common.Entity),
		entityByKey: make(map[string]int64),
		mentions:    make(map[string]bool),
		connections: make(map[string]*common.Connection),
	}
}

func entityKey(normalized string, t common.EntityType) string {
	return normalized + "|" + string(t)
}

// EnqueueEntities appends mentions to the staging inbox.
func (s *ResolverMemStorage) EnqueueEntities(_ context.Context, entities []common.StagedEntity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range entities {
		s.nextStagedEntityID++
		e.ID = s.nextStagedEntityID
		if e.ExtractedAt.IsZero() {
			e.ExtractedAt = time.Now()
		}
		e.Processed = false
		e.SkipReason = ""
		s.stagedEntities = append(s.stagedEntities, e)
	}
	return int64(len(entities)), nil
}

// EnqueueRelationships appends relationship mentions to the inbox.
func (s *ResolverMemStorage) EnqueueRelationships(_ context.Context, relationships []common.StagedRelationship) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range relationships {
		s.nextStagedRelID++
		r.ID = s.nextStagedRelID
		if r.ExtractedAt.IsZero() {
			r.ExtractedAt = time.Now()
		}
		r.Processed = false
		r.SkipReason = ""
		s.stagedRelationships = append(s.stagedRelationships, r)
	}
	return int64(len(relationships)), nil
}

// DequeueEntities returns up to limit unprocessed mentions ordered by
// extraction time, id breaking ties, matching the Postgres store.
func (s *ResolverMemStorage) DequeueEntities(_ context.Context, limit int) ([]common.StagedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []common.StagedEntity
	for _, e := range s.stagedEntities {
		if !e.Processed {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExtractedAt.Equal(out[j].ExtractedAt) {
			return out[i].ExtractedAt.Before(out[j].ExtractedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// DequeueRelationships returns up to limit unprocessed relationship
// mentions ordered by extraction time, id breaking ties.
func (s *ResolverMemStorage) DequeueRelationships(_ context.Context, limit int) ([]common.StagedRelationship, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []common.StagedRelationship
	for _, r := range s.stagedRelationships {
		if !r.Processed {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ExtractedAt.Equal(out[j].ExtractedAt) {
			return out[i].ExtractedAt.Before(out[j].ExtractedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkEntitiesProcessed flips the processed flag; repeated calls are
// no-ops.
func (s *ResolverMemStorage) MarkEntitiesProcessed(_ context.Context, ids []int64, skipReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := toSet(ids)
	for i := range s.stagedEntities {
		e := &s.stagedEntities[i]
		if wanted[e.ID] && !e.Processed {
			e.Processed = true
			e.SkipReason = skipReason
		}
	}
	return nil
}

// MarkRelationshipsProcessed flips the processed flag; repeated calls
// are no-ops.
func (s *ResolverMemStorage) MarkRelationshipsProcessed(_ context.Context, ids []int64, skipReason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := toSet(ids)
	for i := range s.stagedRelationships {
		r := &s.stagedRelationships[i]
		if wanted[r.ID] && !r.Processed {
			r.Processed = true
			r.SkipReason = skipReason
		}
	}
	return nil
}

// StagingStats reports pending and processed counts.
func (s *ResolverMemStorage) StagingStats(_ context.Context) (common.StagingStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats common.StagingStats
	for _, e := range s.stagedEntities {
		if e.Processed {
			stats.ProcessedEntities++
		} else {
			stats.PendingEntities++
		}
	}
	for _, r := range s.stagedRelationships {
		if r.Processed {
			stats.ProcessedRelationships++
		} else {
			stats.PendingRelationships++
		}
	}
	return stats, nil
}

// PurgeProcessedBefore drops processed staging rows older than cutoff.
func (s *ResolverMemStorage) PurgeProcessedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int64

	keptEntities := s.stagedEntities[:0]
	for _, e := range s.stagedEntities {
		if e.Processed && e.ExtractedAt.Before(cutoff) {
			purged++
			continue
		}
		keptEntities = append(keptEntities, e)
	}
	s.stagedEntities = keptEntities

	keptRels := s.stagedRelationships[:0]
	for _, r := range s.stagedRelationships {
		if r.Processed && r.ExtractedAt.Before(cutoff) {
			purged++
			continue
		}
		keptRels = append(keptRels, r)
	}
	s.stagedRelationships = keptRels

	return purged, nil
}

// GetEntitiesByType returns every canonical entity of the given type.
func (s *ResolverMemStorage) GetEntitiesByType(_ context.Context, entityType common.EntityType) ([]common.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []common.Entity
	for _, e := range s.entities {
		if e.Type == entityType {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// FindSimilarEntities ranks entities by trigram similarity, mirroring
// the similarity() query of the Postgres store.
func (s *ResolverMemStorage) FindSimilarEntities(
	_ context.Context,
	normalized string,
	entityType common.EntityType,
	limit int,
) ([]match.ScoredEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []match.ScoredEntity
	for _, e := range s.entities {
		if e.Type != entityType {
			continue
		}
		sim := match.Similarity(normalized, e.NormalizedName)
		if sim > 0 {
			out = append(out, match.ScoredEntity{Entity: *e, Similarity: sim})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// UpsertEntity inserts or returns the surviving row for the
// (normalized_name, type) pair, upgrading the description when the new
// one is strictly longer.
func (s *ResolverMemStorage) UpsertEntity(_ context.Context, entity common.Entity) (common.Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entity.NormalizedName == "" {
		entity.NormalizedName = match.NormalizeName(entity.Name)
	}
	key := entityKey(entity.NormalizedName, entity.Type)

	if id, ok := s.entityByKey[key]; ok {
		existing := s.entities[id]
		if len(entity.Description) > len(existing.Description) {
			existing.Description = entity.Description
		}
		return *existing, nil
	}

	if entity.PublicID == "" {
		pid, err := gonanoid.New()
		if err != nil {
			return common.Entity{}, fmt.Errorf("failed to generate public id: %w", err)
		}
		entity.PublicID = pid
	}
	s.nextEntityID++
	entity.ID = s.nextEntityID
	s.entities[entity.ID] = &entity
	s.entityByKey[key] = entity.ID
	return entity, nil
}

// UpdateEntity rewrites an existing entity in place.
func (s *ResolverMemStorage) UpdateEntity(_ context.Context, entity common.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.entities[entity.ID]
	if !ok {
		return fmt.Errorf("entity %d not found", entity.ID)
	}
	if entity.NormalizedName == "" {
		entity.NormalizedName = match.NormalizeName(entity.Name)
	}
	delete(s.entityByKey, entityKey(existing.NormalizedName, existing.Type))
	existing.Name = entity.Name
	existing.Description = entity.Description
	existing.NormalizedName = entity.NormalizedName
	s.entityByKey[entityKey(existing.NormalizedName, existing.Type)] = existing.ID
	return nil
}

// UpsertMention records an (episode, entity) pair idempotently.
func (s *ResolverMemStorage) UpsertMention(_ context.Context, episodeID string, entityID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mentions[fmt.Sprintf("%s|%d", episodeID, entityID)] = true
	return nil
}

// MentionCount reports how many (episode, entity) pairs are recorded.
// Test helper.
func (s *ResolverMemStorage) MentionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.mentions)
}

// UpsertConnection creates an edge or bumps the strength of the
// existing (episode, source, target) edge.
func (s *ResolverMemStorage) UpsertConnection(_ context.Context, conn common.Connection) (common.Connection, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if conn.SourceEntityID == conn.TargetEntityID {
		return common.Connection{}, false, fmt.Errorf("connection cannot link entity %d to itself", conn.SourceEntityID)
	}

	key := fmt.Sprintf("%s|%d|%d", conn.EpisodeID, conn.SourceEntityID, conn.TargetEntityID)
	if existing, ok := s.connections[key]; ok {
		existing.Strength++
		if len(conn.Description) > len(existing.Description) {
			existing.Description = conn.Description
		}
		return *existing, false, nil
	}

	if conn.PublicID == "" {
		pid, err := gonanoid.New()
		if err != nil {
			return common.Connection{}, false, fmt.Errorf("failed to generate public id: %w", err)
		}
		conn.PublicID = pid
	}
	s.nextConnectionID++
	conn.ID = s.nextConnectionID
	conn.Strength = 1
	s.connections[key] = &conn
	return conn, true, nil
}

// Connections returns a snapshot of every edge, ordered by id. Test
// helper.
func (s *ResolverMemStorage) Connections() []common.Connection {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Connection, 0, len(s.connections))
	for _, c := range s.connections {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Entities returns a snapshot of every canonical entity, ordered by id.
// Test helper.
func (s *ResolverMemStorage) Entities() []common.Entity {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]common.Entity, 0, len(s.entities))
	for _, e := range s.entities {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func toSet(ids []int64) map[int64]bool {
	set := make(map[int64]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

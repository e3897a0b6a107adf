package common

import "time"

// EntityType classifies a canonical node in the podcast graph.
type EntityType string

const (
	EntityTypeCompany EntityType = "Company"
	EntityTypePerson  EntityType = "Person"
	EntityTypeTopic   EntityType = "Topic"
	EntityTypeEpisode EntityType = "Episode"
)

// KnownEntityTypes lists every type the resolution pipeline accepts.
var KnownEntityTypes = []EntityType{
	EntityTypeCompany,
	EntityTypePerson,
	EntityTypeTopic,
	EntityTypeEpisode,
}

// Valid reports whether t is one of the known entity types.
func (t EntityType) Valid() bool {
	for _, known := range KnownEntityTypes {
		if t == known {
			return true
		}
	}
	return false
}

// StagedEntity is one raw entity mention produced by the extraction stage.
// Rows are append-only and not deduplicated at write time; the resolver
// consumes them oldest-first and flips Processed.
type StagedEntity struct {
	ID           int64      `json:"id"`
	Name         string     `json:"name"`
	Type         EntityType `json:"type"`
	Description  string     `json:"description,omitempty"`
	EpisodeID    string     `json:"episode_id"`
	EpisodeTitle string     `json:"episode_title"`
	ExtractedAt  time.Time  `json:"extracted_at"`
	Processed    bool       `json:"processed"`
	SkipReason   string     `json:"skip_reason,omitempty"`
}

// StagedRelationship is one raw relationship mention. Source and target
// are free-text names, not yet linked to canonical ids.
type StagedRelationship struct {
	ID           int64     `json:"id"`
	SourceName   string    `json:"source_name"`
	TargetName   string    `json:"target_name"`
	Description  string    `json:"description"`
	EpisodeID    string    `json:"episode_id"`
	EpisodeTitle string    `json:"episode_title"`
	ExtractedAt  time.Time `json:"extracted_at"`
	Processed    bool      `json:"processed"`
	SkipReason   string    `json:"skip_reason,omitempty"`
}

// Entity is a deduplicated canonical node. Conceptually unique per
// (NormalizedName, Type); the store backs this with a unique index and
// upsert-on-conflict so concurrent runs converge on one row.
type Entity struct {
	ID             int64      `json:"id"`
	PublicID       string     `json:"public_id"`
	Name           string     `json:"name"`
	Type           EntityType `json:"type"`
	Description    string     `json:"description,omitempty"`
	NormalizedName string     `json:"normalized_name"`
}

// EntityMention is a provenance edge recording that a canonical entity
// was referenced within a specific episode. Unique per pair, upserted
// idempotently.
type EntityMention struct {
	EpisodeID string `json:"episode_id"`
	EntityID  int64  `json:"entity_id"`
}

// Connection is a canonical edge between two entities within an episode.
// Strength counts independent supporting mentions and only increases.
// Self-loops are forbidden.
type Connection struct {
	ID             int64  `json:"id"`
	PublicID       string `json:"public_id"`
	EpisodeID      string `json:"episode_id"`
	SourceEntityID int64  `json:"source_entity_id"`
	TargetEntityID int64  `json:"target_entity_id"`
	Strength       int    `json:"strength"`
	Description    string `json:"description,omitempty"`
}

// StagingStats summarizes the staging inbox per kind.
type StagingStats struct {
	PendingEntities        int64 `json:"pending_entities"`
	PendingRelationships   int64 `json:"pending_relationships"`
	ProcessedEntities      int64 `json:"processed_entities"`
	ProcessedRelationships int64 `json:"processed_relationships"`
}

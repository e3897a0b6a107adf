package resolve

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/logger"
	"github.com/podgraph/backend/pkg/match"
	"github.com/podgraph/backend/pkg/store"
)

const (
	// relationshipAcceptThreshold is the minimum combined confidence
	// for an edge to be written.
	relationshipAcceptThreshold = 0.5

	// endpointCandidateFloor is the minimum similarity for a canonical
	// entity to count as an endpoint candidate at all.
	endpointCandidateFloor = 0.3

	skipMissingEntity = "missing entity"
	skipLowConfidence = "low confidence"
	skipSelfReference = "self reference"
)

// RelationshipDetail records the outcome for one staged relationship.
type RelationshipDetail struct {
	SourceName string  `json:"source_name"`
	TargetName string  `json:"target_name"`
	Outcome    string  `json:"outcome"`
	Confidence float64 `json:"confidence,omitempty"`
}

// RelationshipResult summarizes one relationship resolution batch.
type RelationshipResult struct {
	Processed    int                  `json:"processed"`
	Created      int                  `json:"created"`
	Strengthened int                  `json:"strengthened"`
	Skipped      int                  `json:"skipped"`
	Errors       int                  `json:"errors"`
	Details      []RelationshipDetail `json:"details,omitempty"`
}

func (r *RelationshipResult) add(other RelationshipResult) {
	r.Processed += other.Processed
	r.Created += other.Created
	r.Strengthened += other.Strengthened
	r.Skipped += other.Skipped
	r.Errors += other.Errors
	r.Details = append(r.Details, other.Details...)
}

// RelationshipResolver drains the staged-relationship inbox, linking
// free-text endpoint names to canonical entities and writing edges for
// the mentions that survive validation.
type RelationshipResolver struct {
	store   store.ResolverStorage
	cascade *match.Cascade
	rules   []ValidationRule
}

// NewRelationshipResolver wires a resolver. rules may be nil to use the
// built-in validation table.
func NewRelationshipResolver(st store.ResolverStorage, cascade *match.Cascade, rules []ValidationRule) *RelationshipResolver {
	if rules == nil {
		rules = defaultValidationRules
	}
	return &RelationshipResolver{store: st, cascade: cascade, rules: rules}
}

// ResolveBatch processes up to batchSize pending relationship mentions.
// An edge is only written when both endpoints resolve and the combined
// confidence (mean of endpoint and validation confidences) clears the
// acceptance threshold. Everything below is recorded as skipped with a
// reason; edges are never guessed.
func (r *RelationshipResolver) ResolveBatch(ctx context.Context, batchSize int) (RelationshipResult, error) {
	var result RelationshipResult

	staged, err := r.store.DequeueRelationships(ctx, batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to dequeue staged relationships: %w", err)
	}
	if len(staged) == 0 {
		return result, nil
	}

	var doneIDs []int64
	skip := func(mention common.StagedRelationship, reason string, confidence float64) bool {
		if err := r.store.MarkRelationshipsProcessed(ctx, []int64{mention.ID}, reason); err != nil {
			result.Errors++
			return false
		}
		result.Processed++
		result.Skipped++
		result.Details = append(result.Details, RelationshipDetail{
			SourceName: mention.SourceName,
			TargetName: mention.TargetName,
			Outcome:    reason,
			Confidence: confidence,
		})
		return true
	}

	for _, mention := range staged {
		if err := ctx.Err(); err != nil {
			break
		}

		if strings.TrimSpace(mention.SourceName) == "" || strings.TrimSpace(mention.TargetName) == "" {
			skip(mention, skipMissingEntity, 0)
			continue
		}
		if match.NormalizeName(mention.SourceName) == match.NormalizeName(mention.TargetName) {
			skip(mention, skipSelfReference, 0)
			continue
		}

		sources, targets, err := r.resolveEndpoints(ctx, mention.SourceName, mention.TargetName)
		if err != nil {
			logger.Warn("[resolve] endpoint lookup failed",
				"source", mention.SourceName, "target", mention.TargetName, "error", err)
			result.Errors++
			continue
		}
		if len(sources) == 0 || len(targets) == 0 {
			skip(mention, skipMissingEntity, 0)
			continue
		}

		source, target, validation, label := bestPair(r.rules, sources, targets, mention.Description)
		if !source.Matched() {
			// every pairing collapses onto one canonical entity
			skip(mention, skipSelfReference, 0)
			continue
		}

		confidence := (source.Confidence + target.Confidence + validation) / 3
		if confidence < relationshipAcceptThreshold {
			skip(mention, skipLowConfidence, confidence)
			continue
		}

		_, created, err := r.store.UpsertConnection(ctx, common.Connection{
			EpisodeID:      mention.EpisodeID,
			SourceEntityID: source.Entity.ID,
			TargetEntityID: target.Entity.ID,
			Description:    mention.Description,
		})
		if err != nil {
			logger.Warn("[resolve] connection upsert failed",
				"source", source.Entity.Name, "target", target.Entity.Name, "error", err)
			result.Errors++
			continue
		}

		outcome := "strengthened"
		if created {
			outcome = "created"
			result.Created++
		} else {
			result.Strengthened++
		}
		if label != "" {
			outcome += " (" + label + ")"
		}
		result.Processed++
		result.Details = append(result.Details, RelationshipDetail{
			SourceName: mention.SourceName,
			TargetName: mention.TargetName,
			Outcome:    outcome,
			Confidence: confidence,
		})
		doneIDs = append(doneIDs, mention.ID)
	}

	if err := r.store.MarkRelationshipsProcessed(ctx, doneIDs, ""); err != nil {
		return result, fmt.Errorf("failed to mark relationships processed: %w", err)
	}
	return result, nil
}

// resolveEndpoints collects the plausible canonical candidates for both
// endpoint names concurrently. Endpoint types are unknown in the
// mention, so every entity type is searched; everything above the floor
// is kept so pair selection can weigh type combinations.
func (r *RelationshipResolver) resolveEndpoints(ctx context.Context, sourceName, targetName string) ([]match.Result, []match.Result, error) {
	var sources, targets []match.Result

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		sources, err = r.endpointCandidates(gctx, sourceName)
		return err
	})
	g.Go(func() error {
		var err error
		targets, err = r.endpointCandidates(gctx, targetName)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sources, targets, nil
}

func (r *RelationshipResolver) endpointCandidates(ctx context.Context, name string) ([]match.Result, error) {
	var out []match.Result
	for _, entityType := range common.KnownEntityTypes {
		candidates, err := r.cascade.Candidates(ctx, name, entityType, endpointCandidateFloor)
		if err != nil {
			return nil, err
		}
		out = append(out, candidates...)
	}
	return out, nil
}

// bestPair scores every (source, target) candidate pairing and returns
// the one with the highest combined confidence: the mean of both
// endpoint confidences and the pair's validation score. A highly
// plausible type combination can this way outrank a pairing with
// stronger name matches. Pairs resolving to the same canonical entity
// are never considered; with no valid pair left the returned source is
// a no-match.
func bestPair(rules []ValidationRule, sources, targets []match.Result, description string) (match.Result, match.Result, float64, string) {
	bestSource, bestTarget := match.NoMatch(), match.NoMatch()
	var bestValidation float64
	var bestLabel string
	bestMean := -1.0

	for _, s := range sources {
		for _, t := range targets {
			if s.Entity.ID == t.Entity.ID {
				continue
			}
			validation, label := validateRelationship(rules, s.Entity.Type, t.Entity.Type, description)
			mean := (s.Confidence + t.Confidence + validation) / 3
			if mean > bestMean {
				bestMean = mean
				bestSource, bestTarget = s, t
				bestValidation, bestLabel = validation, label
			}
		}
	}
	return bestSource, bestTarget, bestValidation, bestLabel
}

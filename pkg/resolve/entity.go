package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/podgraph/backend/pkg/ai"
	"github.com/podgraph/backend/pkg/common"
	"github.com/podgraph/backend/pkg/logger"
	"github.com/podgraph/backend/pkg/match"
	"github.com/podgraph/backend/pkg/store"
)

// skip reasons recorded on staged rows that were consumed without
// producing graph changes
const (
	skipInvalidMention = "invalid mention"
)

// MergeDetail records one staged mention folded into an existing
// canonical entity.
type MergeDetail struct {
	SourceName    string         `json:"source_name"`
	CanonicalName string         `json:"canonical_name"`
	Strategy      match.Strategy `json:"strategy"`
	Confidence    float64        `json:"confidence"`
}

// EntityResult summarizes one entity resolution batch. Counters are
// additive so multi-batch runs can aggregate them.
type EntityResult struct {
	Processed     int            `json:"processed"`
	Created       int            `json:"created"`
	Merged        int            `json:"merged"`
	Skipped       int            `json:"skipped"`
	Errors        int            `json:"errors"`
	StrategyStats map[string]int `json:"strategy_stats,omitempty"`
	Merges        []MergeDetail  `json:"merges,omitempty"`
	CostUSD       float64        `json:"cost_usd"`
}

func (r *EntityResult) add(other EntityResult) {
	r.Processed += other.Processed
	r.Created += other.Created
	r.Merged += other.Merged
	r.Skipped += other.Skipped
	r.Errors += other.Errors
	r.CostUSD += other.CostUSD
	if len(other.StrategyStats) > 0 && r.StrategyStats == nil {
		r.StrategyStats = make(map[string]int)
	}
	for k, v := range other.StrategyStats {
		r.StrategyStats[k] += v
	}
	r.Merges = append(r.Merges, other.Merges...)
}

// EntityResolver drains the staged-entity inbox, matching each mention
// against the canonical graph and creating entities for the genuinely
// new ones.
type EntityResolver struct {
	store    store.ResolverStorage
	cascade  *match.Cascade
	aiClient ai.ResolverAIClient
}

// NewEntityResolver wires a resolver. aiClient is only used for cost
// accounting and may be nil.
func NewEntityResolver(st store.ResolverStorage, cascade *match.Cascade, aiClient ai.ResolverAIClient) *EntityResolver {
	return &EntityResolver{store: st, cascade: cascade, aiClient: aiClient}
}

// ResolveBatch processes up to batchSize pending mentions. Mentions hit
// by transient infrastructure errors stay pending for the next run;
// everything else is marked processed exactly once. The returned error
// is reserved for failures that prevent the batch from running at all.
func (r *EntityResolver) ResolveBatch(ctx context.Context, batchSize int) (EntityResult, error) {
	result := EntityResult{StrategyStats: make(map[string]int)}

	staged, err := r.store.DequeueEntities(ctx, batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to dequeue staged entities: %w", err)
	}
	if len(staged) == 0 {
		return result, nil
	}

	var costBefore float64
	if r.aiClient != nil {
		costBefore = r.aiClient.GetMetrics().CostUSD
	}

	var doneIDs []int64
	for _, mention := range staged {
		if err := ctx.Err(); err != nil {
			break
		}

		if strings.TrimSpace(mention.Name) == "" || !mention.Type.Valid() {
			if err := r.store.MarkEntitiesProcessed(ctx, []int64{mention.ID}, skipInvalidMention); err != nil {
				result.Errors++
				continue
			}
			result.Processed++
			result.Skipped++
			continue
		}

		matched, err := r.cascade.Match(ctx, mention.Name, mention.Type)
		if err != nil {
			// store failure: leave the row pending for the next run
			logger.Warn("[resolve] entity match failed", "name", mention.Name, "error", err)
			result.Errors++
			continue
		}

		if matched.Matched() {
			if err := r.mergeMention(ctx, mention, matched); err != nil {
				logger.Warn("[resolve] entity merge failed", "name", mention.Name, "error", err)
				result.Errors++
				continue
			}
			result.Merged++
			result.StrategyStats[string(matched.Strategy)]++
			result.Merges = append(result.Merges, MergeDetail{
				SourceName:    mention.Name,
				CanonicalName: matched.Entity.Name,
				Strategy:      matched.Strategy,
				Confidence:    matched.Confidence,
			})
		} else {
			created, err := r.store.UpsertEntity(ctx, common.Entity{
				Name:        strings.TrimSpace(mention.Name),
				Type:        mention.Type,
				Description: mention.Description,
			})
			if err != nil {
				logger.Warn("[resolve] entity create failed", "name", mention.Name, "error", err)
				result.Errors++
				continue
			}
			if err := r.store.UpsertMention(ctx, mention.EpisodeID, created.ID); err != nil {
				result.Errors++
				continue
			}
			result.Created++
			result.StrategyStats["created"]++
		}

		result.Processed++
		doneIDs = append(doneIDs, mention.ID)
	}

	if err := r.store.MarkEntitiesProcessed(ctx, doneIDs, ""); err != nil {
		return result, fmt.Errorf("failed to mark entities processed: %w", err)
	}

	if r.aiClient != nil {
		result.CostUSD = r.aiClient.GetMetrics().CostUSD - costBefore
	}
	return result, nil
}

// mergeMention folds a staged mention into an existing canonical
// entity: record provenance, upgrade the description when the mention
// carries a strictly longer one, and promote the name when the merge
// surfaced a longer variant.
func (r *EntityResolver) mergeMention(ctx context.Context, mention common.StagedEntity, matched match.Result) error {
	canonical := *matched.Entity

	update := false
	if len(mention.Description) > len(canonical.Description) {
		canonical.Description = mention.Description
		update = true
	}
	mentionName := strings.TrimSpace(mention.Name)
	switch matched.Strategy {
	case match.StrategyContainment:
		mentionNorm := match.NormalizeName(mentionName)
		if len(mentionNorm) > len(canonical.NormalizedName) && strings.Contains(mentionNorm, canonical.NormalizedName) {
			canonical.Name = mentionName
			canonical.NormalizedName = mentionNorm
			update = true
		}
	case match.StrategyNormalized:
		// suffix variants normalize identically; "Apple Inc." over a
		// stored "Apple" keeps the fuller surface form
		if len(mentionName) > len(canonical.Name) &&
			strings.Contains(strings.ToLower(mentionName), strings.ToLower(canonical.Name)) {
			canonical.Name = mentionName
			update = true
		}
	}
	if update {
		if err := r.store.UpdateEntity(ctx, canonical); err != nil {
			return err
		}
	}

	return r.store.UpsertMention(ctx, mention.EpisodeID, canonical.ID)
}

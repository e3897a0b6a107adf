package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/podgraph/backend/internal/util"
)

// MaxMatchCandidates bounds the candidate list handed to the model.
const MaxMatchCandidates = 8

// matchPromptTokenBudget bounds the candidate section of the prompt so a
// handful of very long descriptions cannot blow up request size.
const matchPromptTokenBudget = 2000

// MatchCandidate is one canonical entity offered to the model.
type MatchCandidate struct {
	Name        string
	Type        string
	Description string
}

// MatchResponse is the model's verdict on a mention/candidate-set pair.
// CandidateIndex is -1 when no candidate matches.
type MatchResponse struct {
	Match          bool    `json:"match" jsonschema_description:"Whether one of the candidates refers to the same real-world entity as the mention."`
	CandidateIndex int     `json:"candidateIndex" jsonschema_description:"Zero-based index of the matching candidate, or -1 when no candidate matches."`
	Confidence     float64 `json:"confidence" jsonschema_description:"Probability that the chosen candidate is the same entity, between 0 and 1."`
	Reasoning      string  `json:"reasoning" jsonschema_description:"One short sentence explaining the decision."`
}

// CallMatchAI asks the model which candidate (if any) the mention refers
// to. Candidates beyond MaxMatchCandidates or the token budget are
// silently dropped; callers should pass them ranked best-first.
func CallMatchAI(
	ctx context.Context,
	name string,
	entityType string,
	candidates []MatchCandidate,
	client ResolverAIClient,
	maxRetries int,
) (*MatchResponse, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(candidates) == 0 {
		return &MatchResponse{Match: false, CandidateIndex: -1}, nil
	}

	prompt := fmt.Sprintf(
		MatchPrompt,
		NormalizeValue(name),
		entityType,
		buildCandidateSection(candidates),
	)

	var res MatchResponse
	err := util.RetryErrWithContext(ctx, maxRetries, func(ctx context.Context) error {
		return client.GenerateCompletionWithFormat(
			ctx, "match_entity", "Pick the canonical entity a mention refers to.", prompt, &res,
		)
	})
	if err != nil {
		return nil, err
	}
	if res.Match && (res.CandidateIndex < 0 || res.CandidateIndex >= len(candidates)) {
		// An out-of-range index means the model invented a candidate.
		return &MatchResponse{Match: false, CandidateIndex: -1, Reasoning: res.Reasoning}, nil
	}
	return &res, nil
}

func buildCandidateSection(candidates []MatchCandidate) string {
	if len(candidates) > MaxMatchCandidates {
		candidates = candidates[:MaxMatchCandidates]
	}

	var enc *tiktoken.Tiktoken
	if e, err := tiktoken.GetEncoding("o200k_base"); err == nil {
		enc = e
	}

	var b strings.Builder
	b.WriteString("Candidates:\n")
	used := 0
	for i, c := range candidates {
		line := fmt.Sprintf(
			"%d. Name: %s, Type: %s",
			i, NormalizeValue(c.Name), c.Type,
		)
		if desc := NormalizeValue(c.Description); desc != "" {
			line += ", Description: " + desc
		}
		line += "\n"

		if enc != nil {
			used += len(enc.Encode(line, nil, nil))
			if used > matchPromptTokenBudget && i > 0 {
				break
			}
		}
		b.WriteString(line)
	}
	return b.String()
}

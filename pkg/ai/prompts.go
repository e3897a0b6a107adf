package ai

// MatchPrompt asks the model to pick the canonical entity a raw mention
// refers to, or declare that none of the candidates match. The response
// is constrained by the MatchResponse schema.
const MatchPrompt = `You are resolving entity mentions from podcast transcripts against a canonical knowledge graph.

Decide whether the mention below refers to one of the candidate entities. Mentions may use abbreviations, acronyms, nicknames, partial names, or misspellings of a candidate. Do not match entities that merely belong to the same industry or are otherwise related but distinct.

Mention:
- Name: %s
- Type: %s

%s
Rules:
- If exactly one candidate refers to the same real-world entity, return match=true with its zero-based index.
- If no candidate matches, return match=false and candidateIndex=-1.
- Confidence is your probability that the chosen candidate is the same entity, between 0 and 1.
- Keep reasoning to one short sentence.`

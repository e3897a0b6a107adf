package match

import (
	"strings"

	"github.com/podgraph/backend/pkg/common"
)

// BusinessRule links a name fragment to a canonical entity of a given
// type. Rules are data, not code: adding a mapping means adding a row,
// and tests iterate the table directly.
type BusinessRule struct {
	Contains   string            // matched against the normalized input name
	TargetName string            // normalized name of the entity the rule points at
	TargetType common.EntityType // rule only fires when this type is requested
	Confidence float64
	Label      string
}

// businessRules encodes domain knowledge the generic strategies cannot
// recover: executives imply their company, flagship products imply
// their maker, product lines imply a topic.
var businessRules = []BusinessRule{
	{Contains: "tim cook", TargetName: "apple", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},
	{Contains: "satya nadella", TargetName: "microsoft", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},
	{Contains: "jensen huang", TargetName: "nvidia", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},
	{Contains: "lisa su", TargetName: "amd", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},
	{Contains: "sundar pichai", TargetName: "google", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},
	{Contains: "mark zuckerberg", TargetName: "meta", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},
	{Contains: "andy jassy", TargetName: "amazon", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},
	{Contains: "sam altman", TargetName: "openai", TargetType: common.EntityTypeCompany, Confidence: 0.85, Label: "ceo"},

	{Contains: "iphone", TargetName: "apple", TargetType: common.EntityTypeCompany, Confidence: 0.8, Label: "brand"},
	{Contains: "macbook", TargetName: "apple", TargetType: common.EntityTypeCompany, Confidence: 0.8, Label: "brand"},
	{Contains: "windows", TargetName: "microsoft", TargetType: common.EntityTypeCompany, Confidence: 0.8, Label: "brand"},
	{Contains: "azure", TargetName: "microsoft", TargetType: common.EntityTypeCompany, Confidence: 0.8, Label: "brand"},
	{Contains: "geforce", TargetName: "nvidia", TargetType: common.EntityTypeCompany, Confidence: 0.8, Label: "brand"},
	{Contains: "chatgpt", TargetName: "openai", TargetType: common.EntityTypeCompany, Confidence: 0.8, Label: "brand"},

	{Contains: "chatgpt", TargetName: "artificial intelligence", TargetType: common.EntityTypeTopic, Confidence: 0.8, Label: "product line"},
	{Contains: "geforce", TargetName: "gpus", TargetType: common.EntityTypeTopic, Confidence: 0.8, Label: "product line"},
}

// applyBusinessRules looks for a rule whose fragment appears in the
// normalized input name and whose target exists among the loaded
// entities. Returns NoMatch when no rule fires.
func applyBusinessRules(normalized string, entityType common.EntityType, byNormalized map[string]*common.Entity) Result {
	for _, rule := range businessRules {
		if rule.TargetType != entityType {
			continue
		}
		if !strings.Contains(normalized, rule.Contains) {
			continue
		}
		if ent, ok := byNormalized[rule.TargetName]; ok {
			return Result{
				Entity:     ent,
				Strategy:   StrategyBusinessRule,
				Confidence: rule.Confidence,
				Label:      rule.Label,
			}
		}
	}
	return NoMatch()
}

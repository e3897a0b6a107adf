package resolve

import (
	"strings"

	"github.com/podgraph/backend/pkg/common"
)

// ValidationRule scores how plausible a relationship is given the
// endpoint types and the mention's description. Rules are ordered; the
// first one whose types match and whose keywords appear wins.
type ValidationRule struct {
	SourceType common.EntityType
	TargetType common.EntityType
	Keywords   []string
	Confidence float64
	Label      string
}

// defaultValidationConfidence applies when no rule fires: the types and
// wording are neither corroborating nor suspicious.
const defaultValidationConfidence = 0.6

// defaultValidationRules is the built-in plausibility table. Keyword
// fragments are matched case-insensitively against the description, so
// "founded" also catches "co-founded".
var defaultValidationRules = []ValidationRule{
	{
		SourceType: common.EntityTypePerson,
		TargetType: common.EntityTypeCompany,
		Keywords:   []string{"ceo", "founder", "founded", "chief executive", "leads", "runs", "president"},
		Confidence: 0.9,
		Label:      "leadership",
	},
	{
		SourceType: common.EntityTypeCompany,
		TargetType: common.EntityTypeCompany,
		Keywords:   []string{"acquired", "acquisition", "merger", "merged", "bought", "takeover"},
		Confidence: 0.9,
		Label:      "acquisition",
	},
	{
		SourceType: common.EntityTypeCompany,
		TargetType: common.EntityTypeCompany,
		Keywords:   []string{"partner", "collaborat", "supplies", "supplier", "invest", "joint venture"},
		Confidence: 0.8,
		Label:      "partnership",
	},
	{
		SourceType: common.EntityTypePerson,
		TargetType: common.EntityTypeTopic,
		Keywords:   []string{"expert", "research", "pioneer", "works on", "specializ"},
		Confidence: 0.75,
		Label:      "expertise",
	},
	{
		SourceType: common.EntityTypeCompany,
		TargetType: common.EntityTypeTopic,
		Keywords:   []string{"develop", "builds", "invest", "focuses on", "works on"},
		Confidence: 0.75,
		Label:      "focus area",
	},
}

// validateRelationship scores the mention against the rule table and
// returns the matched confidence and rule label.
func validateRelationship(rules []ValidationRule, sourceType, targetType common.EntityType, description string) (float64, string) {
	desc := strings.ToLower(description)
	for _, rule := range rules {
		if rule.SourceType != sourceType || rule.TargetType != targetType {
			continue
		}
		for _, kw := range rule.Keywords {
			if strings.Contains(desc, kw) {
				return rule.Confidence, rule.Label
			}
		}
	}
	return defaultValidationConfidence, ""
}

// Package scoring implements the granular scorer (C5): composing rule,
// content, and goal-alignment subscores for a candidate, invoking the
// LLM judge, and fusing the result into a final score.
package scoring

// RuleWeights gives each rule subscore's contribution to the fixed rule
// score. Unlike the top-level fusion weights (configurable per run),
// these are a closed part of the rule-score definition and never change.
var RuleWeights = map[string]float64{
	"sector":  0.4,
	"stage":   0.4,
	"funding": 0.2,
}

// GetRuleWeight returns the weight for a rule dimension, or 0.0 if field
// is not a recognized dimension.
func GetRuleWeight(field string) float64 {
	return RuleWeights[field]
}

// RuleScore computes the fixed linear blend of sector/stage/funding
// subscores: 0.4*sector + 0.4*stage + 0.2*funding.
func RuleScore(sector, stage, funding float64) float64 {
	return RuleWeights["sector"]*sector + RuleWeights["stage"]*stage + RuleWeights["funding"]*funding
}

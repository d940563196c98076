// Package violations derives structured mismatch explanations between a
// candidate program and a project, evaluated as a small embedded Rego
// policy (sector/stage/funding/eligibility rules) rather than hand-rolled
// if-chains.
package violations

import (
	"context"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/types"
)

//go:embed policy.rego
var policyModule string

// restrictedEligibilityKeywords is the documented list of keywords that
// flag an eligibility requirement as sector-restricted (currently only
// the health restriction spec.md calls out by example). Kept as Go data
// passed into the policy rather than Rego literals, so adding a keyword
// is a one-line change here.
var restrictedEligibilityKeywords = []string{
	"health", "medical", "صحي", "الصحة", "طبي",
}

var healthSectorKeywords = []string{
	"health", "medical", "صحة", "صحي", "طبي",
}

// Evaluator wraps a prepared Rego query over the embedded violation
// policy. It is safe for concurrent use: PreparedEvalQuery.Eval does not
// mutate shared state.
type Evaluator struct {
	query  rego.PreparedEvalQuery
	logger *logrus.Logger
}

// NewEvaluator compiles the embedded policy once and returns an Evaluator
// ready for repeated Derive calls.
func NewEvaluator(ctx context.Context, logger *logrus.Logger) (*Evaluator, error) {
	r := rego.New(
		rego.Query("data.matcher.violations.violations"),
		rego.Module("policy.rego", policyModule),
	)
	pq, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare violation policy: %w", err)
	}
	return &Evaluator{query: pq, logger: logger}, nil
}

// Derive evaluates the policy against project and a candidate's program
// metadata (as produced by Program.Metadata()), returning every violation
// that applies. Violations never suppress a result; they only decorate it.
func (e *Evaluator) Derive(ctx context.Context, project *types.Project, programMetadata map[string]interface{}) ([]types.Violation, error) {
	input := buildInput(project, programMetadata)

	results, err := e.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate violation policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil, nil
	}

	raw, ok := results[0].Expressions[0].Value.([]interface{})
	if !ok {
		return nil, nil
	}

	out := make([]types.Violation, 0, len(raw))
	for _, item := range raw {
		obj, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		out = append(out, types.Violation{
			Type:     types.ViolationType(stringValue(obj, "type")),
			Why:      stringValue(obj, "why"),
			Evidence: stringValue(obj, "evidence"),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out, nil
}

func buildInput(project *types.Project, metadata map[string]interface{}) map[string]interface{} {
	sectorTags := splitCommaList(metadataString(metadata, "sector_tags"))
	stageTags := splitCommaList(metadataString(metadata, "stage_tags"))
	eligibility := splitCommaList(metadataString(metadata, "eligibility_must"))

	return map[string]interface{}{
		"project": map[string]interface{}{
			"sectors":      project.Sectors,
			"stage_index":  types.StageIndex(project.Stage),
			"funding_need": project.FundingNeed,
		},
		"program": map[string]interface{}{
			"sector_tags":      sectorTags,
			"min_stage_index":  minStageIndex(stageTags),
			"funding_type":     metadataString(metadata, "funding_type"),
			"funding_max":      metadataFloat(metadata, "funding_max"),
			"eligibility_must": eligibility,
		},
		"restricted_keywords": restrictedEligibilityKeywords,
		"project_is_health":   isHealthProject(project.Sectors),
	}
}

func minStageIndex(stageTags []string) int {
	min := -1
	for _, tag := range stageTags {
		idx := types.StageIndex(tag)
		if idx < 0 {
			continue
		}
		if min < 0 || idx < min {
			min = idx
		}
	}
	return min
}

func isHealthProject(sectors []string) bool {
	for _, s := range sectors {
		lower := strings.ToLower(s)
		for _, kw := range healthSectorKeywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				return true
			}
		}
	}
	return false
}

func splitCommaList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ", ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func metadataString(metadata map[string]interface{}, key string) string {
	v, _ := metadata[key].(string)
	return v
}

func metadataFloat(metadata map[string]interface{}, key string) float64 {
	switch v := metadata[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func stringValue(obj map[string]interface{}, key string) string {
	v, _ := obj[key].(string)
	return v
}

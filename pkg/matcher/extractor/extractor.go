package extractor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/llm"
	"github.com/opportumatch/matcher/pkg/matcher/scoring"
	"github.com/opportumatch/matcher/pkg/matcher/types"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
)

// DefaultSeed is the fixed seed forwarded with every extraction call, for
// reproducibility across re-runs of the same document.
const DefaultSeed int64 = 42

// Extractor parses one source document into a structured Program record:
// a structured-output LLM call first, then a deterministic fallback
// enricher that fills whatever the LLM left empty (or everything, if the
// call failed outright).
type Extractor struct {
	client llm.Client
	model  string
	seed   int64
	logger *logrus.Logger
}

// NewExtractor constructs an Extractor. seed <= 0 uses DefaultSeed.
func NewExtractor(client llm.Client, model string, seed int64, logger *logrus.Logger) *Extractor {
	if seed <= 0 {
		seed = DefaultSeed
	}
	return &Extractor{client: client, model: model, seed: seed, logger: logger}
}

// Extract turns one Markdown document into a fully-populated Program.
// A failed or malformed LLM reply never aborts extraction: fallback
// enrichment always produces a syntactically valid record from the
// document alone. The only error Extract can return is ctx's own
// cancellation, surfaced so a batch build step can stop dispatching
// further documents.
func (e *Extractor) Extract(ctx context.Context, sourcePath, markdown string) (*types.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	program := &types.Program{SourcePath: sourcePath}

	if reply, err := e.callLLM(ctx, markdown); err != nil {
		if e.logger != nil {
			e.logger.WithFields(sharedlogging.NewFields().
				Component("extractor").
				Operation("extract").
				Resource("document", sourcePath).
				Error(err).
				ToLogrus()).Warn("structured extraction call failed, falling back to heuristic parse")
		}
	} else {
		applyLLMFields(program, reply)
	}

	FallbackEnrich(program, markdown)
	program.SourcePath = sourcePath
	if !types.IsValidFundingType(program.FundingType) {
		program.FundingType = types.FundingInKind
	}

	return program, nil
}

func (e *Extractor) callLLM(ctx context.Context, markdown string) (map[string]interface{}, error) {
	userPrompt, err := llm.BuildExtractionPrompt(markdown, "")
	if err != nil {
		return nil, err
	}

	reply, err := e.client.Complete(ctx, llm.CompletionRequest{
		Model:        e.model,
		SystemPrompt: llm.ExtractionSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  0,
		Seed:         e.seed,
	})
	if err != nil {
		return nil, err
	}

	obj, err := scoring.ExtractJSONObject(reply)
	if err != nil {
		return nil, err
	}

	var data map[string]interface{}
	if err := json.Unmarshal([]byte(obj), &data); err != nil {
		return nil, err
	}
	return data, nil
}

// applyLLMFields copies whatever fields the LLM reply populated onto
// program, tolerating missing keys and the occasional type mismatch a
// model produces (e.g. funding_min as a quoted string).
func applyLLMFields(program *types.Program, data map[string]interface{}) {
	program.ID = stringField(data, "id")
	program.Name = stringField(data, "name")
	program.Description = stringField(data, "description")
	program.Objectives = stringField(data, "objectives")
	program.ObjectivesText = stringField(data, "objectives_text")
	program.Goals = stringListField(data, "goals")
	program.Features = stringListField(data, "features")
	program.EligibilityMust = stringListField(data, "eligibility_must")
	program.SectorTags = stringListField(data, "sector_tags")
	program.StageTags = stringListField(data, "stage_tags")
	program.URL = stringField(data, "url")
	program.LastUpdated = stringField(data, "last_updated")
	program.LaunchDate = stringField(data, "launch_date")
	program.ProgramType = stringField(data, "program_type")
	program.FundingType = types.FundingType(stringField(data, "funding_type"))
	program.FundingMin = numericField(data, "funding_min")
	program.FundingMax = numericField(data, "funding_max")
}

func stringField(data map[string]interface{}, key string) string {
	v, ok := data[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

func numericField(data map[string]interface{}, key string) float64 {
	switch v := data[key].(type) {
	case float64:
		return v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func stringListField(data map[string]interface{}, key string) []string {
	switch v := data[key].(type) {
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	case string:
		return splitObjectives(v)
	default:
		return nil
	}
}

// splitObjectives breaks a free-form string into short items on '؛',
// newlines and ';'. stringListField uses it for any list field that the
// LLM returned as a single string.
func splitObjectives(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '؛' || r == '\n' || r == ';'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

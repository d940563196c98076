package scoring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/opportumatch/matcher/pkg/matcher/llm"
	"github.com/opportumatch/matcher/pkg/matcher/types"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
)

// DefaultConcurrency is the default cap on simultaneous outbound LLM
// scoring calls within a single run.
const DefaultConcurrency = 8

// maxProgramExcerptChars bounds the raw-content excerpt appended to a
// candidate's program_text, keeping the scoring prompt small.
const maxProgramExcerptChars = 1200

// Scorer turns retrieved candidates into ranked, scored results by
// invoking an LLM judge for each one under bounded concurrency.
type Scorer struct {
	client      llm.Client
	model       string
	seed        int64
	temperature float64
	concurrency int
	logger      *logrus.Logger
}

// NewScorer constructs a Scorer. concurrency <= 0 uses DefaultConcurrency.
func NewScorer(client llm.Client, model string, seed int64, concurrency int, logger *logrus.Logger) *Scorer {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Scorer{
		client:      client,
		model:       model,
		seed:        seed,
		temperature: 0,
		concurrency: concurrency,
		logger:      logger,
	}
}

// candidateOutcome pairs a scored result with the candidate's original
// retrieval-order index, used to break ties deterministically and to
// preserve the "drop failing candidates" policy without losing the
// remaining ones' positions.
type candidateOutcome struct {
	index  int
	result *types.RankedResult
	err    error
}

// ScoreAll scores every candidate against project under bounded
// concurrency, drops candidates that fail scoring (logging a structured
// warning), and returns the survivors sorted by final_raw descending with
// 1-based ranks assigned. candidates must already reflect the orchestrator's
// retrieval-order (used only for tie-breaking).
func (s *Scorer) ScoreAll(ctx context.Context, project *types.Project, candidates []types.Candidate, weights types.Weights) ([]types.RankedResult, error) {
	sem := semaphore.NewWeighted(int64(s.concurrency))
	outcomes := make([]candidateOutcome, len(candidates))

	var wg sync.WaitGroup
	for i, cand := range candidates {
		i, cand := i, cand
		if err := sem.Acquire(ctx, 1); err != nil {
			outcomes[i] = candidateOutcome{index: i, err: err}
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer sem.Release(1)
			result, err := s.scoreOne(ctx, project, cand, weights)
			outcomes[i] = candidateOutcome{index: i, result: result, err: err}
		}()
	}
	wg.Wait()

	var results []types.RankedResult
	for _, o := range outcomes {
		if o.err != nil {
			if s.logger != nil {
				s.logger.WithFields(sharedlogging.NewFields().
					Component("scoring").
					Operation("score_candidate").
					Error(o.err).
					ToLogrus()).Warn("candidate scoring failed, dropping from run")
			}
			continue
		}
		if o.result != nil {
			results = append(results, *o.result)
		}
	}

	if len(candidates) > 0 && len(results) == 0 {
		return nil, fmt.Errorf("all %d candidates failed scoring", len(candidates))
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Scores.FinalRaw > results[j].Scores.FinalRaw
	})
	for i := range results {
		results[i].Rank = i + 1
	}

	return results, nil
}

// scoreOne composes the program_text, invokes the LLM judge, normalizes
// the reply, and fuses rule/content/goal into final_raw for one candidate.
func (s *Scorer) scoreOne(ctx context.Context, project *types.Project, cand types.Candidate, weights types.Weights) (*types.RankedResult, error) {
	programRef := cand.ProgramRef
	if programRef == "" {
		programRef = types.IdentifyProgram(cand.Metadata)
	}

	programText := buildProgramText(cand.Metadata)
	projectText := project.QueryText()

	userPrompt, err := llm.BuildScoringPrompt(projectText, programRef, programText)
	if err != nil {
		return nil, err
	}

	reply, err := s.client.Complete(ctx, llm.CompletionRequest{
		Model:        s.model,
		SystemPrompt: llm.ScoringSystemPrompt,
		UserPrompt:   userPrompt,
		Temperature:  s.temperature,
		Seed:         s.seed,
	})
	if err != nil {
		return nil, err
	}

	normalized, err := NormalizeReply(reply)
	if err != nil {
		return nil, err
	}

	content := clamp01(1 - cand.Distance)
	rule := RuleScore(normalized.SectorMatch, normalized.StageMatch, normalized.FundingMatch)
	finalRaw := weights.Rule*rule + weights.Content*content + weights.Goal*normalized.GoalAlignment

	return &types.RankedResult{
		ProgramRef:  programRef,
		RawDistance: cand.Distance,
		Subscores: types.Subscores{
			Sector:  normalized.SectorMatch,
			Stage:   normalized.StageMatch,
			Funding: normalized.FundingMatch,
		},
		Scores: types.Scores{
			Rule:     rule,
			Content:  content,
			Goal:     normalized.GoalAlignment,
			FinalRaw: finalRaw,
			FinalCal: finalRaw,
		},
		Reasons:      normalized.Reasons,
		Improvements: normalized.Improvements,
		Evidence:     buildEvidence(project, cand.Metadata),
	}, nil
}

// buildProgramText composes the condensed program_text the scoring
// prompt sees: name, tags, and a bounded excerpt of the description.
func buildProgramText(metadata map[string]interface{}) string {
	var b strings.Builder
	writeField := func(label, key string) {
		if v, ok := metadata[key].(string); ok && v != "" {
			b.WriteString(label)
			b.WriteString(": ")
			b.WriteString(v)
			b.WriteString("\n")
		}
	}
	writeField("Name", "name")
	writeField("Sectors", "sector_tags")
	writeField("Stages", "stage_tags")
	writeField("FundingType", "funding_type")

	if desc, ok := metadata["description"].(string); ok && desc != "" {
		excerpt := desc
		if len(excerpt) > maxProgramExcerptChars {
			excerpt = excerpt[:maxProgramExcerptChars]
		}
		b.WriteString("Description: ")
		b.WriteString(excerpt)
	}

	return b.String()
}

// buildEvidence excerpts at most two short strings each from the project
// and program: the description plus a comma-joined excerpt of the first
// five goals.
func buildEvidence(project *types.Project, metadata map[string]interface{}) types.Evidence {
	projectEvidence := descriptionAndGoals(project.Description, project.Goals)

	programDescription, _ := metadata["description"].(string)
	var programGoals []string
	if raw, ok := metadata["goals"].(string); ok && raw != "" {
		for _, g := range strings.Split(raw, ", ") {
			if g != "" {
				programGoals = append(programGoals, g)
			}
		}
	}
	programEvidence := descriptionAndGoals(programDescription, programGoals)

	return types.Evidence{Project: projectEvidence, Program: programEvidence}
}

func descriptionAndGoals(description string, goals []string) []string {
	var out []string
	if description != "" {
		out = append(out, description)
	}
	if len(goals) > 0 {
		limit := goals
		if len(limit) > 5 {
			limit = limit[:5]
		}
		out = append(out, strings.Join(limit, ", "))
	}
	if len(out) > 2 {
		out = out[:2]
	}
	return out
}

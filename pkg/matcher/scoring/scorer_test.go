package scoring_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/llm"
	"github.com/opportumatch/matcher/pkg/matcher/scoring"
	"github.com/opportumatch/matcher/pkg/matcher/types"
)

// keyedFakeClient replies based on which program_ref appears in the
// rendered user prompt, rather than on call order. Scorer.ScoreAll
// dispatches one goroutine per candidate under a bounded worker pool, so
// a reply stub keyed on call order would be racy.
type keyedFakeClient struct {
	byProgramRef map[string]string
}

func (f *keyedFakeClient) Complete(_ context.Context, req llm.CompletionRequest) (string, error) {
	for ref, reply := range f.byProgramRef {
		if strings.Contains(req.UserPrompt, ref) {
			return reply, nil
		}
	}
	return "", fmt.Errorf("keyedFakeClient: no scripted reply matches prompt")
}

var _ = Describe("Scorer", func() {
	var (
		project *types.Project
		logger  *logrus.Logger
		weights types.Weights
	)

	BeforeEach(func() {
		project = &types.Project{
			Name:        "GreenTech",
			Description: "Solar micro-grids for rural villages",
			Sectors:     []string{"energy"},
			Stage:       "MVP",
			Goals:       []string{"electrify 10 villages"},
			FundingNeed: 50000,
		}
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		weights = types.BalancedWeights()
	})

	It("composes rule/content/goal into final_raw and ranks descending", func() {
		fake := &keyedFakeClient{byProgramRef: map[string]string{
			"solar-fund":     `{"sector_match": 0.9, "stage_match": 0.8, "funding_match": 0.7, "goal_alignment": 0.9, "reasons": ["great fit"], "improvements": ["clarify timeline"]}`,
			"unrelated-fund": `{"sector_match": 0.2, "stage_match": 0.2, "funding_match": 0.2, "goal_alignment": 0.1, "reasons": ["weak fit"], "improvements": ["expand scope"]}`,
		}}
		scorer := scoring.NewScorer(fake, "claude-3-5-sonnet", 42, 4, logger)

		candidates := []types.Candidate{
			{ProgramRef: "solar-fund", Distance: 0.1, Metadata: map[string]interface{}{"name": "Solar Fund"}},
			{ProgramRef: "unrelated-fund", Distance: 0.9, Metadata: map[string]interface{}{"name": "Unrelated Fund"}},
		}

		results, err := scorer.ScoreAll(context.Background(), project, candidates, weights)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Rank).To(Equal(1))
		Expect(results[0].ProgramRef).To(Equal("solar-fund"))
		Expect(results[0].Scores.FinalRaw).To(BeNumerically(">", results[1].Scores.FinalRaw))
	})

	It("returns an error when every candidate's LLM call fails", func() {
		fake := &llm.FakeClient{Err: errors.New("llm unavailable")}
		scorer := scoring.NewScorer(fake, "claude-3-5-sonnet", 42, 4, logger)

		candidates := []types.Candidate{
			{ProgramRef: "a", Distance: 0.1, Metadata: map[string]interface{}{}},
		}

		_, err := scorer.ScoreAll(context.Background(), project, candidates, weights)
		Expect(err).To(HaveOccurred())
		Expect(err.Error()).To(ContainSubstring("all 1 candidates failed scoring"))
	})

	It("returns an empty result set without error for zero candidates", func() {
		fake := &llm.FakeClient{}
		scorer := scoring.NewScorer(fake, "claude-3-5-sonnet", 42, 4, logger)

		results, err := scorer.ScoreAll(context.Background(), project, nil, weights)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(BeEmpty())
	})

	It("assigns ranks 1..N without gaps", func() {
		fake := &llm.FakeClient{Replies: []string{
			`{"sector_match": 0.5, "stage_match": 0.5, "funding_match": 0.5, "goal_alignment": 0.5, "reasons": ["a"], "improvements": ["b"]}`,
		}}
		scorer := scoring.NewScorer(fake, "claude-3-5-sonnet", 42, 2, logger)

		candidates := []types.Candidate{
			{ProgramRef: "a", Distance: 0.1, Metadata: map[string]interface{}{}},
			{ProgramRef: "b", Distance: 0.2, Metadata: map[string]interface{}{}},
			{ProgramRef: "c", Distance: 0.3, Metadata: map[string]interface{}{}},
		}

		results, err := scorer.ScoreAll(context.Background(), project, candidates, weights)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(3))
		for i, r := range results {
			Expect(r.Rank).To(Equal(i + 1))
		}
	})

	It("carries evidence capped at description plus a goals excerpt, at most two entries", func() {
		fake := &llm.FakeClient{Replies: []string{
			`{"sector_match": 0.5, "stage_match": 0.5, "funding_match": 0.5, "goal_alignment": 0.5, "reasons": ["a"], "improvements": ["b"]}`,
		}}
		scorer := scoring.NewScorer(fake, "claude-3-5-sonnet", 42, 2, logger)

		candidates := []types.Candidate{
			{ProgramRef: "a", Distance: 0.1, Metadata: map[string]interface{}{
				"description": "Funds solar micro-grids",
				"goals":       "electrify villages, train technicians",
			}},
		}

		results, err := scorer.ScoreAll(context.Background(), project, candidates, weights)
		Expect(err).NotTo(HaveOccurred())
		Expect(results[0].Evidence.Project).To(HaveLen(2))
		Expect(results[0].Evidence.Program).To(HaveLen(2))
	})
})

package extractor_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/extractor"
	"github.com/opportumatch/matcher/pkg/matcher/llm"
	"github.com/opportumatch/matcher/pkg/matcher/types"
)

var _ = Describe("Extractor", func() {
	var logger *logrus.Logger

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
	})

	It("applies a well-formed structured reply over the fallback", func() {
		fake := &llm.FakeClient{Replies: []string{
			`{"id": "health-fund", "name": "Health Fund", "description": "Backs digital health startups",
			  "goals": ["scale to 10 clinics"], "sector_tags": ["health"], "stage_tags": ["MVP"],
			  "funding_type": "grant", "funding_min": 10000, "funding_max": 50000}`,
		}}
		ext := extractor.NewExtractor(fake, "claude-3-5-sonnet", 42, logger)

		program, err := ext.Extract(context.Background(), "docs/health.md", sampleMarkdown)
		Expect(err).NotTo(HaveOccurred())
		Expect(program.ID).To(Equal("health-fund"))
		Expect(program.Name).To(Equal("Health Fund"))
		Expect(program.FundingType).To(Equal(types.FundingGrant))
		Expect(program.FundingMin).To(Equal(10000.0))
		Expect(program.SourcePath).To(Equal("docs/health.md"))
	})

	It("falls back fully to heuristic parsing when the LLM call fails", func() {
		fake := &llm.FakeClient{Err: errors.New("llm unavailable")}
		ext := extractor.NewExtractor(fake, "claude-3-5-sonnet", 42, logger)

		program, err := ext.Extract(context.Background(), "docs/health.md", sampleMarkdown)
		Expect(err).NotTo(HaveOccurred())
		Expect(program.Name).To(Equal("برنامج تمكين الصحة الرقمية"))
		Expect(program.Goals).To(HaveLen(2))
		Expect(program.FundingType).To(Equal(types.FundingInKind))
	})

	It("falls back to heuristic parsing when the reply has no JSON object", func() {
		fake := &llm.FakeClient{Replies: []string{"sorry, I cannot help with that"}}
		ext := extractor.NewExtractor(fake, "claude-3-5-sonnet", 42, logger)

		program, err := ext.Extract(context.Background(), "docs/health.md", sampleMarkdown)
		Expect(err).NotTo(HaveOccurred())
		Expect(program.Name).To(Equal("برنامج تمكين الصحة الرقمية"))
	})

	It("defaults funding_type to in-kind when the LLM omits it", func() {
		fake := &llm.FakeClient{Replies: []string{
			`{"id": "seed-fund", "name": "Seed Fund", "goals": ["x"]}`,
		}}
		ext := extractor.NewExtractor(fake, "claude-3-5-sonnet", 42, logger)

		program, err := ext.Extract(context.Background(), "docs/seed.md", sampleMarkdown)
		Expect(err).NotTo(HaveOccurred())
		Expect(program.FundingType).To(Equal(types.FundingInKind))
	})

	It("propagates context cancellation without calling the LLM", func() {
		fake := &llm.FakeClient{}
		ext := extractor.NewExtractor(fake, "claude-3-5-sonnet", 42, logger)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := ext.Extract(ctx, "docs/x.md", sampleMarkdown)
		Expect(err).To(HaveOccurred())
		Expect(fake.Calls).To(BeEmpty())
	})

	It("carries the LLM's free-form objectives narrative as-is", func() {
		fake := &llm.FakeClient{Replies: []string{
			`{"id": "x", "name": "X", "objectives": "هدف أول؛ هدف ثاني"}`,
		}}
		ext := extractor.NewExtractor(fake, "claude-3-5-sonnet", 42, logger)

		program, err := ext.Extract(context.Background(), "docs/x.md", sampleMarkdown)
		Expect(err).NotTo(HaveOccurred())
		Expect(program.Objectives).To(Equal("هدف أول؛ هدف ثاني"))
	})
})

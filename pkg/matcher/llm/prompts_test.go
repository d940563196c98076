package llm_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/llm"
)

var _ = Describe("BuildScoringPrompt", func() {
	It("renders the project text, program ref, and program text into the template", func() {
		rendered, err := llm.BuildScoringPrompt("GreenTech: solar micro-grids", "seed-fund", "Seed Fund: early-stage capital for climate startups")

		Expect(err).NotTo(HaveOccurred())
		Expect(rendered).To(ContainSubstring("GreenTech: solar micro-grids"))
		Expect(rendered).To(ContainSubstring("seed-fund"))
		Expect(rendered).To(ContainSubstring("Seed Fund: early-stage capital for climate startups"))
	})
})

var _ = Describe("ScoringSystemPrompt", func() {
	It("names all six required reply keys", func() {
		for _, key := range []string{"sector_match", "stage_match", "funding_match", "goal_alignment", "reasons", "improvements"} {
			Expect(llm.ScoringSystemPrompt).To(ContainSubstring(key))
		}
	})
})

var _ = Describe("ExtractionSystemPrompt", func() {
	It("enumerates the stage ladder and funding types", func() {
		Expect(llm.ExtractionSystemPrompt).To(ContainSubstring("MVP"))
		Expect(llm.ExtractionSystemPrompt).To(ContainSubstring("in-kind"))
	})
})

package types_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/types"
)

var _ = Describe("Project", func() {
	Describe("Validate", func() {
		It("passes for a well-formed project", func() {
			p := types.Project{Name: "X", Sectors: []string{"fintech"}, Stage: "MVP", FundingNeed: 100000}
			Expect(p.Validate()).To(BeEmpty())
		})

		It("flags an empty name", func() {
			p := types.Project{Sectors: []string{"fintech"}}
			Expect(p.Validate()).To(ContainElement(ContainSubstring("name is required")))
		})

		It("flags empty sectors", func() {
			p := types.Project{Name: "X"}
			Expect(p.Validate()).To(ContainElement(ContainSubstring("sectors must not be empty")))
		})

		It("flags an unrecognized stage", func() {
			p := types.Project{Name: "X", Sectors: []string{"fintech"}, Stage: "made up"}
			Expect(p.Validate()).To(ContainElement(ContainSubstring("not a recognized stage")))
		})

		It("flags negative funding_need", func() {
			p := types.Project{Name: "X", Sectors: []string{"fintech"}, FundingNeed: -1}
			Expect(p.Validate()).To(ContainElement(ContainSubstring("funding_need must be >= 0")))
		})
	})

	Describe("QueryText", func() {
		It("concatenates name, description, sectors, stage, funding need, and goals", func() {
			p := types.Project{
				Name:        "GreenTech",
				Description: "Solar micro-grids",
				Sectors:     []string{"energy"},
				Stage:       "نمو",
				FundingNeed: 250000,
				Goals:       []string{"scale to 3 regions"},
			}
			text := p.QueryText()
			Expect(text).To(ContainSubstring("GreenTech"))
			Expect(text).To(ContainSubstring("Solar micro-grids"))
			Expect(text).To(ContainSubstring("Sectors: energy"))
			Expect(text).To(ContainSubstring("Stage: نمو"))
			Expect(text).To(ContainSubstring("FundingNeed: 250000"))
			Expect(text).To(ContainSubstring("Goals: scale to 3 regions"))
		})
	})
})

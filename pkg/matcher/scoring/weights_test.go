package scoring_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/scoring"
)

var _ = Describe("RuleWeights", func() {
	It("sums sector, stage, and funding weights to 1.0", func() {
		total := scoring.GetRuleWeight("sector") + scoring.GetRuleWeight("stage") + scoring.GetRuleWeight("funding")
		Expect(total).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("returns 0.0 for an unknown dimension", func() {
		Expect(scoring.GetRuleWeight("unknown")).To(Equal(0.0))
	})

	It("weighs sector and stage equally, above funding", func() {
		Expect(scoring.GetRuleWeight("sector")).To(Equal(scoring.GetRuleWeight("stage")))
		Expect(scoring.GetRuleWeight("sector")).To(BeNumerically(">", scoring.GetRuleWeight("funding")))
	})
})

var _ = Describe("RuleScore", func() {
	It("computes 0.4*sector + 0.4*stage + 0.2*funding", func() {
		Expect(scoring.RuleScore(1.0, 0.5, 0.0)).To(BeNumerically("~", 0.6, 1e-9))
	})
})

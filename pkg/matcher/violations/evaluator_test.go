package violations_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/types"
	"github.com/opportumatch/matcher/pkg/matcher/violations"
)

var _ = Describe("Evaluator", func() {
	var (
		ctx context.Context
		ev  *violations.Evaluator
	)

	BeforeEach(func() {
		ctx = context.Background()
		logger := logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		var err error
		ev, err = violations.NewEvaluator(ctx, logger)
		Expect(err).NotTo(HaveOccurred())
	})

	It("flags sector_mismatch when the tag sets are disjoint", func() {
		project := &types.Project{Sectors: []string{"fintech"}}
		metadata := map[string]interface{}{"sector_tags": "health, medtech"}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		Expect(hasType(result, types.ViolationSectorMismatch)).To(BeTrue())
	})

	It("does not flag sector_mismatch when tags overlap", func() {
		project := &types.Project{Sectors: []string{"fintech", "health"}}
		metadata := map[string]interface{}{"sector_tags": "health, medtech"}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		Expect(hasType(result, types.ViolationSectorMismatch)).To(BeFalse())
	})

	It("flags stage_too_early with the integer gap when the project trails the program's earliest stage", func() {
		project := &types.Project{Stage: "فكرة"}
		metadata := map[string]interface{}{"stage_tags": "نمو, توسع"}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		v := find(result, types.ViolationStageTooEarly)
		Expect(v).NotTo(BeNil())
		Expect(v.Why).To(ContainSubstring("rung"))
		Expect(v.Evidence).To(Equal("min_required=5, project=0"))
	})

	It("flags funding_gap when the project's need exceeds the program's maximum", func() {
		project := &types.Project{FundingNeed: 100000}
		metadata := map[string]interface{}{"funding_max": 50000.0}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		Expect(hasType(result, types.ViolationFundingGap)).To(BeTrue())
	})

	It("flags funding_gap with the Arabic funding-ceiling phrase for the documented example", func() {
		project := &types.Project{FundingNeed: 500000}
		metadata := map[string]interface{}{"funding_max": 100000.0}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		v := find(result, types.ViolationFundingGap)
		Expect(v).NotTo(BeNil())
		Expect(v.Why).To(ContainSubstring("يتجاوز سقف البرنامج"))
	})

	It("flags in_kind_vs_cash when the program is in-kind but the project needs cash", func() {
		project := &types.Project{FundingNeed: 20000}
		metadata := map[string]interface{}{"funding_type": "in-kind"}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		Expect(hasType(result, types.ViolationInKindVsCash)).To(BeTrue())
	})

	It("flags eligibility_missing for a health-restricted requirement on a non-health project", func() {
		project := &types.Project{Sectors: []string{"fintech"}}
		metadata := map[string]interface{}{"eligibility_must": "must hold a valid health sector license"}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		Expect(hasType(result, types.ViolationEligibilityGap)).To(BeTrue())
	})

	It("does not flag eligibility_missing when the project is itself in the health sector", func() {
		project := &types.Project{Sectors: []string{"health"}}
		metadata := map[string]interface{}{"eligibility_must": "must hold a valid health sector license"}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		Expect(hasType(result, types.ViolationEligibilityGap)).To(BeFalse())
	})

	It("returns no violations for a well-aligned candidate", func() {
		project := &types.Project{Sectors: []string{"health"}, Stage: "نمو", FundingNeed: 10000}
		metadata := map[string]interface{}{
			"sector_tags": "health",
			"stage_tags":  "MVP",
			"funding_type": "grant",
			"funding_max": 100000.0,
		}

		result, err := ev.Derive(ctx, project, metadata)
		Expect(err).NotTo(HaveOccurred())
		Expect(result).To(BeEmpty())
	})
})

func hasType(vs []types.Violation, t types.ViolationType) bool {
	return find(vs, t) != nil
}

func find(vs []types.Violation, t types.ViolationType) *types.Violation {
	for i := range vs {
		if vs[i].Type == t {
			return &vs[i]
		}
	}
	return nil
}

package types_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/types"
)

var _ = Describe("Violation", func() {
	It("carries type, why, and evidence through JSON round trip", func() {
		v := types.Violation{
			Type:     types.ViolationStageTooEarly,
			Why:      "project is at MVP but the program targets growth-stage ventures",
			Evidence: "program stage_tags: [نمو, توسع]",
		}
		raw, err := json.Marshal(v)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(raw)).To(ContainSubstring(`"type":"stage_too_early"`))

		var decoded types.Violation
		Expect(json.Unmarshal(raw, &decoded)).To(Succeed())
		Expect(decoded).To(Equal(v))
	})

	It("defines the five canonical violation types distinctly", func() {
		kinds := []types.ViolationType{
			types.ViolationSectorMismatch,
			types.ViolationStageTooEarly,
			types.ViolationFundingGap,
			types.ViolationInKindVsCash,
			types.ViolationEligibilityGap,
		}
		seen := map[types.ViolationType]bool{}
		for _, k := range kinds {
			Expect(seen[k]).To(BeFalse(), "duplicate violation type %q", k)
			seen[k] = true
		}
		Expect(seen).To(HaveLen(5))
	})
})

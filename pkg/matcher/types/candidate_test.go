package types_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/types"
)

var _ = Describe("IdentifyProgram", func() {
	It("prefers id over every other key", func() {
		meta := map[string]interface{}{"id": "a", "program_id": "b", "slug": "c"}
		Expect(types.IdentifyProgram(meta)).To(Equal("a"))
	})

	It("falls through the priority order when earlier keys are absent", func() {
		meta := map[string]interface{}{"slug": "c", "uuid": "d"}
		Expect(types.IdentifyProgram(meta)).To(Equal("c"))
	})

	It("falls back to source_path when no identity key matches", func() {
		meta := map[string]interface{}{"source_path": "/docs/seed-fund.md"}
		Expect(types.IdentifyProgram(meta)).To(Equal("/docs/seed-fund.md"))
	})

	It("skips an empty string value and continues to the next key", func() {
		meta := map[string]interface{}{"id": "", "slug": "c"}
		Expect(types.IdentifyProgram(meta)).To(Equal("c"))
	})

	It("returns empty when nothing matches", func() {
		Expect(types.IdentifyProgram(map[string]interface{}{})).To(Equal(""))
	})
})

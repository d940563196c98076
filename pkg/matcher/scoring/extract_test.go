package scoring_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/scoring"
)

var _ = Describe("ExtractJSONObject", func() {
	It("extracts a clean JSON object unchanged", func() {
		raw := `{"sector_match": 0.8}`
		obj, err := scoring.ExtractJSONObject(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(obj).To(Equal(raw))
	})

	It("strips leading and trailing prose", func() {
		raw := `Here is the result: {"sector_match": 0.8} Hope that helps!`
		obj, err := scoring.ExtractJSONObject(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(obj).To(Equal(`{"sector_match": 0.8}`))
	})

	It("does not treat braces inside string literals as structural", func() {
		raw := `{"reasons": "contains a { brace }"}`
		obj, err := scoring.ExtractJSONObject(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(obj).To(Equal(raw))
	})

	It("handles nested objects", func() {
		raw := `prefix {"a": {"b": 1}} suffix`
		obj, err := scoring.ExtractJSONObject(raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(obj).To(Equal(`{"a": {"b": 1}}`))
	})

	It("errors when no object is present", func() {
		_, err := scoring.ExtractJSONObject("no braces here")
		Expect(err).To(HaveOccurred())
	})

	It("errors on an unbalanced object", func() {
		_, err := scoring.ExtractJSONObject(`{"a": 1`)
		Expect(err).To(HaveOccurred())
	})
})

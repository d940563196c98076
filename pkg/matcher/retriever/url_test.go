package retriever_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/retriever"
)

var _ = Describe("CleanSourceURL", func() {
	It("prefers a Markdown-link target over bare text around it", func() {
		raw := "See [the program](https://example.org/program) for details, or visit https://example.org/old"
		Expect(retriever.CleanSourceURL(raw)).To(Equal("https://example.org/program"))
	})

	It("falls back to the last bare URL when there is no Markdown link", func() {
		raw := "Old: https://example.org/old New: https://example.org/new"
		Expect(retriever.CleanSourceURL(raw)).To(Equal("https://example.org/new"))
	})

	It("returns empty when no URL is present", func() {
		Expect(retriever.CleanSourceURL("no links here")).To(Equal(""))
	})
})

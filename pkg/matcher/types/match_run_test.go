package types_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/opportumatch/matcher/pkg/matcher/types"
)

var _ = Describe("Weights", func() {
	It("BalancedWeights sums to 1.0", func() {
		w := types.BalancedWeights()
		Expect(w.Sum()).To(BeNumerically("~", 1.0, 1e-9))
	})

	It("ContentHeavyWeights sums to 1.0", func() {
		w := types.ContentHeavyWeights()
		Expect(w.Sum()).To(BeNumerically("~", 1.0, 1e-9))
	})
})

var _ = Describe("RunMeta.RunAtString", func() {
	It("renders an ISO-8601 UTC instant with a trailing Z", func() {
		meta := types.RunMeta{RunAt: time.Date(2026, 3, 5, 12, 30, 0, 0, time.UTC)}
		Expect(meta.RunAtString()).To(Equal("2026-03-05T12:30:00.000Z"))
	})

	It("normalizes a non-UTC timestamp to UTC before formatting", func() {
		loc := time.FixedZone("UTC+3", 3*60*60)
		meta := types.RunMeta{RunAt: time.Date(2026, 3, 5, 15, 30, 0, 0, loc)}
		Expect(meta.RunAtString()).To(Equal("2026-03-05T12:30:00.000Z"))
	})
})

var _ = Describe("FromRankedResult", func() {
	It("builds a MatchRun row carrying the run's shared run_at", func() {
		runAt := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)
		result := types.RankedResult{
			Rank:        1,
			ProgramRef:  "seed-fund",
			Program:     &types.Program{ID: "seed-fund", Name: "Seed Fund", URL: "https://example.org/seed-fund"},
			RawDistance: 0.2,
			Subscores:   types.Subscores{Sector: 1.0, Stage: 0.8, Funding: 0.6},
			Scores:      types.Scores{Rule: 0.84, Content: 0.8, Goal: 0.7, FinalRaw: 0.8, FinalCal: 0.72},
			Reasons:     []string{"matches sector"},
			Evidence:    types.Evidence{Project: []string{"a", "b", "c"}, Program: []string{"x"}},
		}

		row := types.FromRankedResult("proj-1", "proj-1-slug", result, runAt)

		Expect(row.ProjectID).To(Equal("proj-1"))
		Expect(row.ProgramID).To(Equal("seed-fund"))
		Expect(row.ProgramName).To(Equal("Seed Fund"))
		Expect(row.SourceURL).To(Equal("https://example.org/seed-fund"))
		Expect(row.RunAt).To(Equal(runAt))
		Expect(row.EvidenceProj).To(HaveLen(2))
	})

	It("falls back to ProgramRef when no Program snapshot is attached", func() {
		runAt := time.Now().UTC()
		result := types.RankedResult{Rank: 1, ProgramRef: "unresolved-ref"}
		row := types.FromRankedResult("proj-1", "proj-1-slug", result, runAt)
		Expect(row.ProgramID).To(Equal("unresolved-ref"))
	})
})

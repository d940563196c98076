package retriever_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/retriever"
	"github.com/opportumatch/matcher/pkg/matcher/types"
	"github.com/opportumatch/matcher/pkg/storage/vector"
)

var _ = Describe("Retriever", func() {
	var (
		logger   *logrus.Logger
		embedder *vector.LocalEmbeddingService
		store    *vector.MemoryVectorStore
	)

	BeforeEach(func() {
		logger = logrus.New()
		logger.SetLevel(logrus.FatalLevel)
		embedder = vector.NewLocalEmbeddingService(16)
		store = vector.NewMemoryVectorStore(logger)
	})

	It("computes the retrieval pool as max(top_k*10, 50)", func() {
		Expect(retriever.PoolSize(3)).To(Equal(50))
		Expect(retriever.PoolSize(10)).To(Equal(100))
	})

	It("embeds the project query and returns candidates carrying program_ref and distance", func() {
		ctx := context.Background()
		vec, err := embedder.GenerateTextEmbedding(ctx, "solar micro-grids energy MVP")
		Expect(err).NotTo(HaveOccurred())
		Expect(store.Upsert(ctx, &vector.ProgramVector{
			ID:        "solar-fund",
			Text:      "solar micro-grids energy MVP",
			Embedding: vec,
			Metadata:  map[string]interface{}{"name": "Solar Fund"},
		})).To(Succeed())

		r := retriever.NewRetriever(store, embedder, logger)
		project := &types.Project{
			Name:        "GreenTech",
			Description: "solar micro-grids energy MVP",
			Sectors:     []string{"energy"},
			Stage:       "MVP",
		}

		candidates, err := r.Retrieve(ctx, project, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
		Expect(candidates[0].ProgramRef).To(Equal("solar-fund"))
		Expect(candidates[0].Distance).To(BeNumerically("<", 0.1))
	})

	It("uses the vector id as program_ref for a vector whose metadata carries the same slug", func() {
		ctx := context.Background()
		Expect(store.Upsert(ctx, &vector.ProgramVector{
			ID:        "fallback-ref",
			Embedding: []float64{0.1, 0.2, 0.3},
			Metadata:  map[string]interface{}{"slug": "fallback-ref"},
		})).To(Succeed())

		r := retriever.NewRetriever(store, embedder, logger)
		project := &types.Project{Name: "X", Sectors: []string{"energy"}}

		candidates, err := r.Retrieve(ctx, project, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(HaveLen(1))
		Expect(candidates[0].ProgramRef).To(Equal("fallback-ref"))
	})

	It("returns an empty slice without error against an empty store", func() {
		r := retriever.NewRetriever(store, embedder, logger)
		project := &types.Project{Name: "X", Sectors: []string{"energy"}}

		candidates, err := r.Retrieve(context.Background(), project, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(candidates).To(BeEmpty())
	})
})

// Package retriever builds a query from a project, fetches a broad
// candidate pool from the vector store, and normalizes it into the
// Candidate shape the scorer expects.
package retriever

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/opportumatch/matcher/pkg/matcher/types"
	sharedlogging "github.com/opportumatch/matcher/pkg/shared/logging"
	"github.com/opportumatch/matcher/pkg/storage/vector"
)

// MinPoolSize is the floor on the number of candidates retrieved, even
// when top_k is small, so the ranking stage has headroom.
const MinPoolSize = 50

// PoolMultiplier scales top_k into a broader retrieval pool.
const PoolMultiplier = 10

// Retriever wraps a vector store and its embedding service behind the
// project-to-candidates operation.
type Retriever struct {
	store    vector.VectorStore
	embedder vector.EmbeddingService
	logger   *logrus.Logger

	// PoolMultiplier overrides the package-level PoolMultiplier for this
	// Retriever when non-zero, set from config.RetrievalConfig.RetrievalMultiplier.
	PoolMultiplier int
}

// NewRetriever constructs a Retriever using the default PoolMultiplier.
func NewRetriever(store vector.VectorStore, embedder vector.EmbeddingService, logger *logrus.Logger) *Retriever {
	return &Retriever{store: store, embedder: embedder, logger: logger}
}

// PoolSize computes the retrieval pool size for a requested top_k using the
// package-default PoolMultiplier: max(top_k * PoolMultiplier, MinPoolSize).
func PoolSize(topK int) int {
	return poolSize(topK, PoolMultiplier)
}

func poolSize(topK, multiplier int) int {
	pool := topK * multiplier
	if pool < MinPoolSize {
		return MinPoolSize
	}
	return pool
}

// poolMultiplier returns r.PoolMultiplier when configured, falling back to
// the package-level default.
func (r *Retriever) poolMultiplier() int {
	if r.PoolMultiplier > 0 {
		return r.PoolMultiplier
	}
	return PoolMultiplier
}

// EffectivePoolMultiplier reports the multiplier r actually retrieves with,
// for callers that need to record it (e.g. in run metadata).
func (r *Retriever) EffectivePoolMultiplier() int {
	return r.poolMultiplier()
}

// Retrieve builds the query text from project, embeds it, and returns up
// to PoolSize(topK) candidates. The returned order reflects ascending
// raw distance (closest first), but callers must not depend on that
// ordering for final ranking.
func (r *Retriever) Retrieve(ctx context.Context, project *types.Project, topK int) ([]types.Candidate, error) {
	queryText := project.QueryText()

	queryVector, err := r.embedder.GenerateTextEmbedding(ctx, queryText)
	if err != nil {
		return nil, err
	}

	results, err := r.store.Search(ctx, vector.SearchQuery{
		QueryVector: queryVector,
		Limit:       poolSize(topK, r.poolMultiplier()),
	})
	if err != nil {
		return nil, err
	}

	candidates := make([]types.Candidate, 0, len(results))
	for _, res := range results {
		cand, ok := toCandidate(res)
		if !ok {
			if r.logger != nil {
				r.logger.WithFields(sharedlogging.NewFields().
					Component("retriever").
					Operation("retrieve").
					ToLogrus()).Warn("dropping malformed search result")
			}
			continue
		}
		candidates = append(candidates, cand)
	}

	return candidates, nil
}

func toCandidate(res vector.SearchResult) (types.Candidate, bool) {
	if res.Vector == nil {
		return types.Candidate{}, false
	}
	ref := res.Vector.ID
	if ref == "" {
		ref = types.IdentifyProgram(res.Vector.Metadata)
	}
	if ref == "" {
		return types.Candidate{}, false
	}
	return types.Candidate{
		ProgramRef: ref,
		Metadata:   res.Vector.Metadata,
		Distance:   res.Distance,
	}, true
}

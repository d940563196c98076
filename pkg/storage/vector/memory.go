package vector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	sharedmath "github.com/opportumatch/matcher/pkg/shared/math"
)

// MemoryVectorStore is an in-process VectorStore backed by a map and brute
// -force cosine-distance search. It backs unit tests and the "disabled"
// vector-database configuration path.
type MemoryVectorStore struct {
	mu     sync.RWMutex
	byID   map[string]*ProgramVector
	logger *logrus.Logger
}

// NewMemoryVectorStore constructs an empty store.
func NewMemoryVectorStore(logger *logrus.Logger) *MemoryVectorStore {
	return &MemoryVectorStore{
		byID:   make(map[string]*ProgramVector),
		logger: logger,
	}
}

// Count returns the number of stored vectors.
func (m *MemoryVectorStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID), nil
}

// Upsert stores or replaces v. An empty ID or embedding is rejected.
func (m *MemoryVectorStore) Upsert(_ context.Context, v *ProgramVector) error {
	if v.ID == "" {
		return fmt.Errorf("vector ID cannot be empty")
	}
	if len(v.Embedding) == 0 {
		return fmt.Errorf("vector embedding cannot be empty")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if existing, ok := m.byID[v.ID]; ok {
		v.CreatedAt = existing.CreatedAt
	} else {
		v.CreatedAt = now
	}
	v.UpdatedAt = now

	cp := *v
	m.byID[v.ID] = &cp
	return nil
}

// Get returns the stored vector for id, or nil if it does not exist.
func (m *MemoryVectorStore) Get(_ context.Context, id string) (*ProgramVector, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *v
	return &cp, nil
}

// Search returns the stored vectors closest to query.QueryVector, ordered
// by ascending cosine distance, respecting Limit and Threshold.
func (m *MemoryVectorStore) Search(_ context.Context, query SearchQuery) ([]SearchResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	results := make([]SearchResult, 0, len(m.byID))
	for _, v := range m.byID {
		distance := 1 - sharedmath.CosineSimilarity(query.QueryVector, v.Embedding)
		if query.Threshold > 0 && distance > query.Threshold {
			continue
		}
		cp := *v
		results = append(results, SearchResult{Vector: &cp, Distance: distance})
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})

	if query.Limit > 0 && len(results) > query.Limit {
		results = results[:query.Limit]
	}

	for i := range results {
		results[i].Rank = i + 1
	}

	return results, nil
}

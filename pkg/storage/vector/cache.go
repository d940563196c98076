package vector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// DefaultEmbeddingCacheTTL is how long a cached embedding stays valid.
const DefaultEmbeddingCacheTTL = 24 * time.Hour

const embeddingCacheKeyPrefix = "matcher:embedding:"

// EmbeddingCache is a content-addressed cache in front of an
// EmbeddingService, avoiding repeat embedding calls for identical text.
type EmbeddingCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewEmbeddingCache constructs a cache over client. ttl <= 0 uses
// DefaultEmbeddingCacheTTL.
func NewEmbeddingCache(client *redis.Client, ttl time.Duration, logger *logrus.Logger) *EmbeddingCache {
	if ttl <= 0 {
		ttl = DefaultEmbeddingCacheTTL
	}
	return &EmbeddingCache{client: client, ttl: ttl, logger: logger}
}

func embeddingCacheKey(modelID, text string) string {
	h := sha256.Sum256([]byte(modelID + "|" + text))
	return embeddingCacheKeyPrefix + hex.EncodeToString(h[:])
}

// Get returns the cached embedding for (modelID, text), or (nil, false) on
// a cache miss. A Redis error is logged and treated as a miss rather than
// propagated, so a cache outage degrades to always-compute instead of
// failing embedding generation.
func (c *EmbeddingCache) Get(ctx context.Context, modelID, text string) ([]float64, bool) {
	raw, err := c.client.Get(ctx, embeddingCacheKey(modelID, text)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) && c.logger != nil {
			c.logger.WithError(err).Warn("embedding cache get failed")
		}
		return nil, false
	}

	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Warn("embedding cache entry corrupt")
		}
		return nil, false
	}
	return vec, true
}

// Set stores vec for (modelID, text). A Redis error is logged and
// swallowed; caching is a performance optimization, not a correctness
// requirement.
func (c *EmbeddingCache) Set(ctx context.Context, modelID, text string, vec []float64) {
	raw, err := json.Marshal(vec)
	if err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Warn("failed to marshal embedding for cache")
		}
		return
	}
	if err := c.client.Set(ctx, embeddingCacheKey(modelID, text), raw, c.ttl).Err(); err != nil {
		if c.logger != nil {
			c.logger.WithError(err).Warn("embedding cache set failed")
		}
	}
}

// CachedEmbeddingService wraps an EmbeddingService with an EmbeddingCache,
// keyed by modelID so swapping models never serves stale vectors.
type CachedEmbeddingService struct {
	inner   EmbeddingService
	cache   *EmbeddingCache
	modelID string
}

// NewCachedEmbeddingService wraps inner with cache, keying entries by modelID.
func NewCachedEmbeddingService(inner EmbeddingService, cache *EmbeddingCache, modelID string) *CachedEmbeddingService {
	return &CachedEmbeddingService{inner: inner, cache: cache, modelID: modelID}
}

func (s *CachedEmbeddingService) GetEmbeddingDimension() int {
	return s.inner.GetEmbeddingDimension()
}

// GenerateTextEmbedding returns the cached embedding for text if present,
// otherwise computes it via inner and populates the cache.
func (s *CachedEmbeddingService) GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	if vec, ok := s.cache.Get(ctx, s.modelID, text); ok {
		return vec, nil
	}

	vec, err := s.inner.GenerateTextEmbedding(ctx, text)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, s.modelID, text, vec)
	return vec, nil
}

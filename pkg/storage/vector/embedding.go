package vector

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/sirupsen/logrus"
)

const defaultEmbeddingDimension = 256

// EmbeddingService turns text into a fixed-dimension embedding.
type EmbeddingService interface {
	GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error)
	GetEmbeddingDimension() int
}

// LocalEmbeddingService produces a deterministic embedding from a
// hash-projection of the input text. It needs no network access and
// backs offline tests and the "disabled" embedding-provider config path;
// its vectors are not semantically meaningful, only stable and comparable
// to each other.
type LocalEmbeddingService struct {
	dimension int
}

// NewLocalEmbeddingService constructs a LocalEmbeddingService with the
// given output dimension (defaultEmbeddingDimension if dim <= 0).
func NewLocalEmbeddingService(dim int) *LocalEmbeddingService {
	if dim <= 0 {
		dim = defaultEmbeddingDimension
	}
	return &LocalEmbeddingService{dimension: dim}
}

func (s *LocalEmbeddingService) GetEmbeddingDimension() int {
	return s.dimension
}

// GenerateTextEmbedding hashes each whitespace-separated token of the
// lowercased text into a signed bucket of a dimension-sized vector, then
// L2-normalizes it.
func (s *LocalEmbeddingService) GenerateTextEmbedding(_ context.Context, text string) ([]float64, error) {
	vec := make([]float64, s.dimension)
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return vec, nil
	}

	tokens := strings.Fields(normalized)
	for _, tok := range tokens {
		h := sha256.Sum256([]byte(tok))
		bucket := int(binary.BigEndian.Uint32(h[:4])) % s.dimension
		if bucket < 0 {
			bucket += s.dimension
		}
		sign := 1.0
		if h[4]%2 == 0 {
			sign = -1.0
		}
		vec[bucket] += sign
	}

	var sumSquares float64
	for _, x := range vec {
		sumSquares += x * x
	}
	if sumSquares <= 0 {
		return vec, nil
	}
	inv := 1.0 / math.Sqrt(sumSquares)
	for i := range vec {
		vec[i] *= inv
	}
	return vec, nil
}

// BedrockEmbeddingService generates embeddings via Amazon Bedrock's Titan
// text-embeddings models.
type BedrockEmbeddingService struct {
	client    *bedrockruntime.Client
	modelID   string
	dimension int
	logger    *logrus.Logger
}

// NewBedrockEmbeddingService constructs a BedrockEmbeddingService for modelID.
func NewBedrockEmbeddingService(client *bedrockruntime.Client, modelID string, dimension int, logger *logrus.Logger) *BedrockEmbeddingService {
	if dimension <= 0 {
		dimension = 1024
	}
	return &BedrockEmbeddingService{client: client, modelID: modelID, dimension: dimension, logger: logger}
}

func (s *BedrockEmbeddingService) GetEmbeddingDimension() int {
	return s.dimension
}

type titanEmbeddingRequest struct {
	InputText string `json:"inputText"`
}

type titanEmbeddingResponse struct {
	Embedding []float64 `json:"embedding"`
}

// GenerateTextEmbedding invokes the configured Titan model and returns its
// embedding vector.
func (s *BedrockEmbeddingService) GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	body, err := marshalJSON(titanEmbeddingRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal bedrock embedding request: %w", err)
	}

	out, err := s.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(s.modelID),
		Body:        body,
		ContentType: aws.String("application/json"),
		Accept:      aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke bedrock embedding model %s: %w", s.modelID, err)
	}

	var resp titanEmbeddingResponse
	if err := unmarshalJSON(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bedrock embedding response: %w", err)
	}
	return resp.Embedding, nil
}

// HybridEmbeddingService prefers a remote provider but can be switched to a
// local, network-free fallback for tests or degraded-mode operation.
type HybridEmbeddingService struct {
	remote   EmbeddingService
	local    *LocalEmbeddingService
	useLocal bool
	logger   *logrus.Logger
}

// NewHybridEmbeddingService constructs a HybridEmbeddingService, preferring
// remote unless SetUseLocal(true) is called.
func NewHybridEmbeddingService(remote EmbeddingService, local *LocalEmbeddingService, logger *logrus.Logger) *HybridEmbeddingService {
	return &HybridEmbeddingService{remote: remote, local: local, logger: logger}
}

// SetUseLocal toggles whether GenerateTextEmbedding uses the local fallback.
func (s *HybridEmbeddingService) SetUseLocal(useLocal bool) {
	s.useLocal = useLocal
}

func (s *HybridEmbeddingService) GetEmbeddingDimension() int {
	if s.useLocal || s.remote == nil {
		return s.local.GetEmbeddingDimension()
	}
	return s.remote.GetEmbeddingDimension()
}

// GenerateTextEmbedding uses the remote provider unless local mode is
// selected or the remote call fails, in which case it falls back to the
// local embedding and logs the degradation.
func (s *HybridEmbeddingService) GenerateTextEmbedding(ctx context.Context, text string) ([]float64, error) {
	if s.useLocal || s.remote == nil {
		return s.local.GenerateTextEmbedding(ctx, text)
	}

	vec, err := s.remote.GenerateTextEmbedding(ctx, text)
	if err != nil {
		if s.logger != nil {
			s.logger.WithError(err).Warn("remote embedding failed, falling back to local embedding")
		}
		return s.local.GenerateTextEmbedding(ctx, text)
	}
	return vec, nil
}

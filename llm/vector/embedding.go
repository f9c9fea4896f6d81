package vector

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"
)

// DefaultBatchSize is the number of texts sent per embedding request
const DefaultBatchSize = 32

// EmbeddingService wraps an embedding model for vector generation
type EmbeddingService struct {
	embedder  embedding.Embedder
	batchSize int
}

// NewEmbeddingService creates a new embedding service
func NewEmbeddingService(embedder embedding.Embedder, batchSize int) *EmbeddingService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &EmbeddingService{
		embedder:  embedder,
		batchSize: batchSize,
	}
}

// Embed generates an embedding vector for a single text
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty")
	}

	vectors, err := s.embedder.EmbedStrings(ctx, []string{text})
	if err != nil {
		return nil, fmt.Errorf("failed to generate embedding: %w", err)
	}

	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}

	return toFloat32(vectors[0]), nil
}

// EmbedBatch generates embedding vectors for multiple texts, one request per
// batch. The result is aligned with texts.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("texts cannot be empty")
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.batchSize {
		end := start + s.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := texts[start:end]
		for i, text := range batch {
			if text == "" {
				return nil, fmt.Errorf("text %d cannot be empty", start+i)
			}
		}

		vectors, err := s.embedder.EmbedStrings(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("failed to generate embeddings for batch %d-%d: %w", start, end, err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(batch))
		}

		for i, vec := range vectors {
			if len(vec) == 0 {
				return nil, fmt.Errorf("empty embedding returned for text %d", start+i)
			}
			result = append(result, toFloat32(vec))
		}
	}

	return result, nil
}

// BatchSize returns the configured batch size
func (s *EmbeddingService) BatchSize() int {
	return s.batchSize
}

func toFloat32(vec []float64) []float32 {
	out := make([]float32, len(vec))
	for i, v := range vec {
		out[i] = float32(v)
	}
	return out
}

package vector

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"pdfqa/llm"
)

// MemoryStore keeps vectors in process memory and ranks them by cosine similarity.
// It is the default store; its lifetime is bound to the index that owns it.
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	records []Record
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(dim int) *MemoryStore {
	return &MemoryStore{dim: dim}
}

// Index adds records to the store
func (s *MemoryStore) Index(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, rec := range records {
		if s.dim > 0 && len(rec.Vector) != s.dim {
			return fmt.Errorf("record %d has dimension %d, want %d", i, len(rec.Vector), s.dim)
		}
	}
	s.records = append(s.records, records...)
	return nil
}

// Search performs semantic search using cosine similarity
func (s *MemoryStore) Search(ctx context.Context, query []float32, k int) ([]llm.Hit, error) {
	if len(query) == 0 {
		return nil, fmt.Errorf("query vector cannot be empty")
	}
	if s.dim > 0 && len(query) != s.dim {
		return nil, fmt.Errorf("query has dimension %d, want %d", len(query), s.dim)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]llm.Hit, 0, len(s.records))
	for _, rec := range s.records {
		hits = append(hits, llm.Hit{
			Chunk: rec.Chunk,
			Score: cosineSimilarity(query, rec.Vector),
		})
	}

	// Stable so equal scores keep corpus order
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})

	if k > 0 && k < len(hits) {
		hits = hits[:k]
	}
	return hits, nil
}

// Len returns the number of indexed records
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close is a no-op; the records are released with the store
func (s *MemoryStore) Close() error {
	return nil
}

// cosineSimilarity calculates the cosine similarity between two vectors
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return float32(dotProduct / (math.Sqrt(normA) * math.Sqrt(normB)))
}

package vector

import (
	"context"

	"pdfqa/llm"
)

// Record is a chunk paired with its embedding
type Record struct {
	Chunk  llm.Chunk
	Vector []float32
}

// Store defines the interface for vector storage operations.
// A store is created fresh for every index build and discarded with it.
type Store interface {
	// Index adds records to the store
	Index(ctx context.Context, records []Record) error

	// Search returns the k records closest to the query vector, best first
	Search(ctx context.Context, query []float32, k int) ([]llm.Hit, error)

	// Len returns the number of indexed records
	Len() int

	// Close releases any resources held by the store
	Close() error
}

// StoreFactory creates an empty store for vectors of the given dimension
type StoreFactory func(ctx context.Context, dim int) (Store, error)

// MemoryStoreFactory creates in-memory stores
func MemoryStoreFactory() StoreFactory {
	return func(ctx context.Context, dim int) (Store, error) {
		return NewMemoryStore(dim), nil
	}
}

// RedisStoreFactory creates a RediSearch index per build
func RedisStoreFactory(cfg RedisConfig) StoreFactory {
	return func(ctx context.Context, dim int) (Store, error) {
		return NewRedisStore(ctx, cfg, dim)
	}
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"pdfqa/llm"
	"pdfqa/llm/vector"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/retriever"
	"github.com/cloudwego/eino/schema"
)

// DefaultTopK is the number of chunks retrieved when none is requested
const DefaultTopK = 4

// IndexOptions configures BuildIndex.
type IndexOptions struct {
	Embedder  embedding.Embedder
	NewStore  vector.StoreFactory // nil means in-memory
	TopK      int
	BatchSize int
	Dim       int // expected embedding dimension, 0 to accept any
}

// Index is a searchable view of one corpus. It is immutable once built.
type Index struct {
	embedder *vector.EmbeddingService
	store    vector.Store
	topK     int
	source   string
}

// BuildIndex embeds every chunk and loads the vectors into a fresh store.
// On failure the half-built store is closed and an *IndexBuildError returned.
func BuildIndex(ctx context.Context, corpus llm.Corpus, opts IndexOptions) (*Index, error) {
	if opts.Embedder == nil {
		return nil, &IndexBuildError{Stage: StageEmbed, Err: errors.New("embedding model is required")}
	}
	if len(corpus.Chunks) == 0 {
		return nil, &IndexBuildError{Stage: StageEmbed, Err: errors.New("corpus is empty")}
	}
	if opts.NewStore == nil {
		opts.NewStore = vector.MemoryStoreFactory()
	}
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}

	if corpus.IsDemo() {
		log.Printf("[index] building from demo corpus (%d chunks)", len(corpus.Chunks))
	} else {
		log.Printf("[index] building from %s (%d chunks)", corpus.Source, len(corpus.Chunks))
	}

	svc := vector.NewEmbeddingService(opts.Embedder, opts.BatchSize)
	log.Printf("[index] embedding in batches of %d", svc.BatchSize())

	texts := make([]string, len(corpus.Chunks))
	for i, c := range corpus.Chunks {
		texts[i] = c.Text
	}

	vectors, err := svc.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, &IndexBuildError{Stage: StageEmbed, Err: err}
	}

	dim := len(vectors[0])
	if opts.Dim > 0 && dim != opts.Dim {
		return nil, &IndexBuildError{Stage: StageEmbed, Err: fmt.Errorf("embedding dimension %d, configured %d", dim, opts.Dim)}
	}

	store, err := opts.NewStore(ctx, dim)
	if err != nil {
		return nil, &IndexBuildError{Stage: StageStore, Err: err}
	}

	records := make([]vector.Record, len(corpus.Chunks))
	for i, c := range corpus.Chunks {
		records[i] = vector.Record{Chunk: c, Vector: vectors[i]}
	}

	if err := store.Index(ctx, records); err != nil {
		if cerr := store.Close(); cerr != nil {
			log.Printf("[index] failed to close store after error: %v", cerr)
		}
		return nil, &IndexBuildError{Stage: StageStore, Err: err}
	}

	log.Printf("[index] vector store ready with %d records", store.Len())
	return &Index{
		embedder: svc,
		store:    store,
		topK:     opts.TopK,
		source:   corpus.Source,
	}, nil
}

// Retrieve returns the k chunks most similar to query, best first.
// k <= 0 uses the index default.
func (i *Index) Retrieve(ctx context.Context, query string, k int) (llm.RetrievalResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("query cannot be empty")
	}
	if k <= 0 {
		k = i.topK
	}

	qv, err := i.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	hits, err := i.store.Search(ctx, qv, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search vector store: %w", err)
	}
	return llm.RetrievalResult(hits), nil
}

// Source returns the path the index was built from, or "demo".
func (i *Index) Source() string {
	return i.source
}

// Len returns the number of indexed chunks
func (i *Index) Len() int {
	return i.store.Len()
}

// Close releases the underlying store.
func (i *Index) Close() error {
	return i.store.Close()
}

// AsRetriever exposes the index as an eino retriever so it can join eino graphs.
func (i *Index) AsRetriever() retriever.Retriever {
	return &indexRetriever{index: i}
}

type indexRetriever struct {
	index *Index
}

func (r *indexRetriever) Retrieve(ctx context.Context, query string, opts ...retriever.Option) ([]*schema.Document, error) {
	k := r.index.topK
	options := retriever.GetCommonOptions(&retriever.Options{TopK: &k}, opts...)
	if options.TopK != nil {
		k = *options.TopK
	}

	result, err := r.index.Retrieve(ctx, query, k)
	if err != nil {
		return nil, err
	}

	docs := make([]*schema.Document, 0, len(result))
	for n, hit := range result {
		if options.ScoreThreshold != nil && float64(hit.Score) < *options.ScoreThreshold {
			continue
		}
		doc := &schema.Document{
			ID:      fmt.Sprintf("%s#%d", hit.Chunk.Metadata.Source, n),
			Content: hit.Chunk.Text,
			MetaData: map[string]any{
				"source": hit.Chunk.Metadata.Source,
				"page":   hit.Chunk.Metadata.Page,
			},
		}
		docs = append(docs, doc.WithScore(float64(hit.Score)))
	}
	return docs, nil
}

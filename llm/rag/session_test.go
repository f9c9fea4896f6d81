package rag

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"pdfqa/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trackedIndex records use after Close
type trackedIndex struct {
	mu         sync.Mutex
	closed     bool
	closes     int
	afterClose *atomic.Int64
}

func (i *trackedIndex) check() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		i.afterClose.Add(1)
	}
}

func (i *trackedIndex) Retrieve(ctx context.Context, query string, k int) (llm.RetrievalResult, error) {
	i.check()
	time.Sleep(50 * time.Microsecond)
	i.check()
	return llm.RetrievalResult{{Chunk: llm.Chunk{Text: "context"}, Score: 1}}, nil
}

func (i *trackedIndex) Close() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.closed = true
	i.closes++
	return nil
}

// trackedEngine answers while checking that its index is still open
type trackedEngine struct {
	index *trackedIndex
}

func (e *trackedEngine) Answer(ctx context.Context, query string, result llm.RetrievalResult) string {
	e.index.check()
	return "answer"
}

func TestSwapNeverClosesIndexUnderQuery(t *testing.T) {
	var afterClose atomic.Int64
	var mu sync.Mutex
	var indexes []*trackedIndex

	newBinding := func() Binding {
		idx := &trackedIndex{afterClose: &afterClose}
		mu.Lock()
		indexes = append(indexes, idx)
		mu.Unlock()
		return Binding{Index: idx, Engine: &trackedEngine{index: idx}, Document: "doc.pdf"}
	}

	session := NewSession()
	session.Swap(newBinding())
	query := NewQueryController(session, 4)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var queries sync.WaitGroup
	var answered atomic.Int64
	for range 8 {
		queries.Add(1)
		go func() {
			defer queries.Done()
			for ctx.Err() == nil {
				reply, history := query.Query(ctx, "what is inside?", nil)
				if reply == "answer" && len(history) == 2 {
					answered.Add(1)
				}
			}
		}()
	}

	var swaps sync.WaitGroup
	for range 3 {
		swaps.Add(1)
		go func() {
			defer swaps.Done()
			for range 50 {
				session.Swap(newBinding())
				time.Sleep(100 * time.Microsecond)
			}
		}()
	}

	swaps.Wait()
	cancel()
	queries.Wait()
	require.NoError(t, session.Close())

	assert.Zero(t, afterClose.Load(), "query used an index after it was closed")
	assert.Positive(t, answered.Load())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, indexes, 151)
	for _, idx := range indexes {
		assert.Equal(t, 1, idx.closes)
	}
}

func TestIngestDuringQueriesKeepsRepliesConsistent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.True(t, h.ingest.Ingest(ctx, "/docs/alpha.pdf").OK)

	var wg sync.WaitGroup
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				reply, history := h.query.Query(ctx, "When does maintenance happen?", nil)
				assert.NotContains(t, reply, ErrorPrefix)
				assert.Len(t, history, 2)
			}
		}()
	}

	for _, path := range []string{"/docs/beta.pdf", "/docs/alpha.pdf", "/docs/beta.pdf"} {
		assert.True(t, h.ingest.Ingest(ctx, path).OK)
	}
	wg.Wait()

	assert.Equal(t, "/docs/beta.pdf", h.session.Document())
}

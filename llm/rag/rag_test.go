package rag

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"pdfqa/config"
	"pdfqa/llm"
	"pdfqa/llm/parser"
	"pdfqa/llm/vector"
	"pdfqa/pubsub"

	"github.com/cloudwego/eino/components/retriever"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type harness struct {
	session  *Session
	embedder *bagEmbedder
	model    *fakeChatModel
	parser   *fakeParser
	ingest   *IngestionController
	query    *QueryController
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		session:  NewSession(),
		embedder: &bagEmbedder{},
		model:    &fakeChatModel{reply: "It supports reports, manuals and research papers."},
		parser: &fakeParser{
			docs: map[string][]llm.Page{
				"/docs/alpha.pdf": {
					{Number: 1, Text: "Alpha turbines spin clockwise in the northern plant."},
					{Number: 2, Text: "Alpha maintenance happens every spring."},
				},
				"/docs/beta.pdf": {
					{Number: 1, Text: "Beta reactors cool with seawater pumps."},
				},
				"/docs/empty.pdf": {},
			},
			errs:   map[string]error{"/docs/locked.pdf": errors.New("file is encrypted")},
			panics: map[string]bool{"/docs/broken.pdf": true},
		},
	}

	chunker := NewDocumentChunker(h.parser, vector.ChunkConfig{ChunkSize: 1024, ChunkOverlap: 64}, nil)
	h.ingest = NewIngestionController(h.session, chunker, IngestOptions{
		Index: IndexOptions{
			Embedder: h.embedder,
			TopK:     4,
		},
		ChatModel:     h.model,
		AnswerTimeout: time.Second,
	})
	h.query = NewQueryController(h.session, 0)
	return h
}

func TestQueryBlankMessageIsNoop(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ingest.LoadDemo(context.Background()))

	history := llm.History{llm.AssistantTurn("hi")}
	for _, msg := range []string{"", "   ", "\n\t"} {
		reply, updated := h.query.Query(context.Background(), msg, history)
		assert.Equal(t, "", reply)
		assert.Equal(t, history, updated)
	}
	assert.Empty(t, h.model.prompts)
}

func TestQueryBeforeIngestion(t *testing.T) {
	h := newHarness(t)

	reply, history := h.query.Query(context.Background(), "What is this about?", nil)
	assert.Equal(t, StatusNoDocument, reply)
	require.Len(t, history, 2)
	assert.Equal(t, llm.UserTurn("What is this about?"), history[0])
	assert.Equal(t, llm.AssistantTurn(StatusNoDocument), history[1])
}

func TestIngestNoInputLeavesSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res := h.ingest.Ingest(ctx, "  ")
	assert.Equal(t, StatusNoInput, res.Status)
	assert.Nil(t, res.Welcome)
	assert.False(t, res.OK)
	assert.False(t, h.session.Loaded())

	require.Equal(t, "✅ Successfully processed 'alpha.pdf'! You can now ask questions about this document.",
		h.ingest.Ingest(ctx, "/docs/alpha.pdf").Status)

	h.ingest.Ingest(ctx, "")
	assert.Equal(t, "/docs/alpha.pdf", h.session.Document())
}

func TestIngestSuccessWelcome(t *testing.T) {
	h := newHarness(t)

	res := h.ingest.Ingest(context.Background(), "/docs/alpha.pdf")
	require.True(t, res.OK)
	require.NotNil(t, res.Welcome)
	assert.Equal(t, llm.RoleAssistant, res.Welcome.Role)
	assert.Equal(t,
		"Hello! I've successfully processed your PDF document 'alpha.pdf'. You can now ask me questions about its content. What would you like to know?",
		res.Welcome.Content)
	assert.False(t, h.session.IsDemo())
}

func TestIngestReplacesPreviousDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.True(t, h.ingest.Ingest(ctx, "/docs/alpha.pdf").OK)
	first, ok := h.session.Snapshot()
	require.True(t, ok)
	tracked := &closeCounter{Retriever: first.Index}
	first.Index = tracked
	h.session.Swap(first)

	require.True(t, h.ingest.Ingest(ctx, "/docs/beta.pdf").OK)
	assert.Equal(t, 1, tracked.closed)

	b, ok := h.session.Snapshot()
	require.True(t, ok)
	result, err := b.Index.Retrieve(ctx, "Alpha turbines maintenance", 10)
	require.NoError(t, err)
	require.NotEmpty(t, result)
	for _, hit := range result {
		assert.Equal(t, "/docs/beta.pdf", hit.Chunk.Metadata.Source)
		assert.NotContains(t, hit.Chunk.Text, "Alpha")
	}
}

func TestIngestBuildFailureKeepsPreviousDocument(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	require.True(t, h.ingest.Ingest(ctx, "/docs/alpha.pdf").OK)

	h.embedder.setFail(errors.New("429 rate limited"))
	res := h.ingest.Ingest(ctx, "/docs/beta.pdf")
	assert.False(t, res.OK)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Nil(t, res.Welcome)

	assert.Equal(t, "/docs/alpha.pdf", h.session.Document())

	h.embedder.setFail(nil)
	b, _ := h.session.Snapshot()
	result, err := b.Index.Retrieve(ctx, "Alpha turbines", 1)
	require.NoError(t, err)
	require.Len(t, result, 1)
	assert.Equal(t, "/docs/alpha.pdf", result[0].Chunk.Metadata.Source)
}

func TestDemoRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ingest.LoadDemo(ctx))
	assert.True(t, h.session.IsDemo())

	b, _ := h.session.Snapshot()
	result, err := b.Index.Retrieve(ctx, "What does the system support?", 0)
	require.NoError(t, err)
	require.Len(t, result, 4)
	assert.Contains(t, result[0].Chunk.Text, "reports, manuals, research papers")
	assert.Equal(t, llm.ChunkMetadata{Source: llm.DemoSource, Page: 4}, result[0].Chunk.Metadata)

	reply, history := h.query.Query(ctx, "What does the system support?", nil)
	assert.Equal(t, "It supports reports, manuals and research papers.", reply)
	require.Len(t, history, 2)
	assert.Equal(t, reply, history[1].Content)

	prompt := h.model.lastPrompt()
	assert.Contains(t, prompt, "reports, manuals, research papers")
	assert.Contains(t, prompt, "Question: What does the system support?")
	assert.True(t, strings.HasPrefix(prompt, "Use the following pieces of context"))
	require.NotNil(t, h.model.temperature)
	assert.Equal(t, float32(0), *h.model.temperature)
}

func TestQueryDoesNotSendHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ingest.LoadDemo(ctx))

	history := llm.History{llm.UserTurn("secret earlier question"), llm.AssistantTurn("earlier answer")}
	_, updated := h.query.Query(ctx, "What does the system support?", history)
	assert.Len(t, updated, 4)
	assert.NotContains(t, h.model.lastPrompt(), "secret earlier question")
}

func TestZeroPageDocumentFallsBackToDemo(t *testing.T) {
	h := newHarness(t)

	res := h.ingest.Ingest(context.Background(), "/docs/empty.pdf")
	assert.True(t, res.OK)
	assert.Equal(t, "✅ Successfully processed 'empty.pdf'! You can now ask questions about this document.", res.Status)
	assert.True(t, h.session.IsDemo())
}

func TestUnreadableDocumentsFallBackToDemo(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, path := range []string{"/docs/missing.pdf", "/docs/locked.pdf", "/docs/broken.pdf"} {
		res := h.ingest.Ingest(ctx, path)
		assert.True(t, res.OK, path)
		assert.True(t, h.session.IsDemo(), path)
	}
}

func TestModelTimeoutBecomesErrorReply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.ingest.opts.AnswerTimeout = 20 * time.Millisecond
	require.NoError(t, h.ingest.LoadDemo(ctx))

	h.model.mu.Lock()
	h.model.block = true
	h.model.mu.Unlock()

	history := llm.History{llm.AssistantTurn("welcome")}
	reply, updated := h.query.Query(ctx, "What does the system support?", history)

	assert.True(t, strings.HasPrefix(reply, ErrorPrefix), reply)
	assert.Contains(t, reply, "deadline exceeded")
	require.Len(t, updated, 3)
	assert.Equal(t, llm.RoleUser, updated[1].Role)
	assert.Equal(t, llm.AssistantTurn(reply), updated[2])
}

func TestModelErrorBecomesErrorReply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ingest.LoadDemo(ctx))
	h.model.err = errors.New("503 service unavailable")

	reply, updated := h.query.Query(ctx, "hello", nil)
	assert.True(t, strings.HasPrefix(reply, ErrorPrefix))
	assert.Contains(t, reply, "503 service unavailable")
	assert.Len(t, updated, 2)

	h.model.err = nil
	h.model.reply = "   "
	reply, _ = h.query.Query(ctx, "hello", nil)
	assert.Equal(t, ErrorPrefix+"empty response from model", reply)
}

func TestRetrievalErrorBecomesErrorReply(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	require.NoError(t, h.ingest.LoadDemo(ctx))

	h.embedder.setFail(errors.New("connection reset"))
	reply, updated := h.query.Query(ctx, "anything", nil)
	assert.True(t, strings.HasPrefix(reply, ErrorPrefix))
	assert.Contains(t, reply, "connection reset")
	assert.Len(t, updated, 2)
}

func TestChunkerLoadErrors(t *testing.T) {
	h := newHarness(t)
	chunker := NewDocumentChunker(h.parser, config.Default().ChunkConfig(), nil)
	ctx := context.Background()

	_, err := chunker.Load(ctx, "/docs/empty.pdf")
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.True(t, errors.Is(err, ErrNoContent))
	assert.Equal(t, "/docs/empty.pdf", parseErr.Path)

	_, err = chunker.Load(ctx, "/docs/broken.pdf")
	require.True(t, errors.As(err, &parseErr))
	assert.Contains(t, err.Error(), "corrupt xref table")

	corpus, err := chunker.Load(ctx, "/docs/alpha.pdf")
	require.NoError(t, err)
	assert.Equal(t, "/docs/alpha.pdf", corpus.Source)
	require.Len(t, corpus.Chunks, 2)
	assert.Equal(t, 2, corpus.Chunks[1].Metadata.Page)
}

func TestChunkerWithRealRegistry(t *testing.T) {
	dir := t.TempDir()
	empty := filepath.Join(dir, "blank.txt")
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(empty, []byte("  \n "), 0o644))
	require.NoError(t, os.WriteFile(notes, []byte("Pumps run at night.\n\nValves close at dawn."), 0o644))

	chunker := NewDocumentChunker(parser.DefaultRegistry(), config.Default().ChunkConfig(), nil)
	ctx := context.Background()

	assert.True(t, chunker.Chunk(ctx, empty).IsDemo())
	assert.True(t, chunker.Chunk(ctx, filepath.Join(dir, "missing.pdf")).IsDemo())
	assert.True(t, chunker.Chunk(ctx, filepath.Join(dir, "slides.pptx")).IsDemo())

	corpus := chunker.Chunk(ctx, notes)
	assert.False(t, corpus.IsDemo())
	require.Len(t, corpus.Chunks, 1)
	assert.Equal(t, llm.ChunkMetadata{Source: notes, Page: 1}, corpus.Chunks[0].Metadata)
}

func TestChunkPublishesEvents(t *testing.T) {
	h := newHarness(t)
	broker := NewEventBroker()
	defer broker.Shutdown()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := broker.Subscribe(ctx)

	chunker := NewDocumentChunker(h.parser, config.Default().ChunkConfig(), broker)
	chunker.Chunk(ctx, "/docs/alpha.pdf")
	chunker.Chunk(ctx, "/docs/locked.pdf")

	var types []pubsub.EventType
	var last IngestEvent
	for len(types) < 3 {
		select {
		case ev := <-events:
			types = append(types, ev.Type)
			last = ev.Payload
		case <-time.After(time.Second):
			t.Fatalf("timed out, got %v", types)
		}
	}

	assert.Equal(t, []pubsub.EventType{pubsub.ProgressEvent, pubsub.ProgressEvent, pubsub.FallbackEvent}, types)
	assert.Equal(t, "/docs/locked.pdf", last.Path)
	assert.Error(t, last.Err)
}

func TestDemoCorpus(t *testing.T) {
	corpus := DemoCorpus()
	assert.True(t, corpus.IsDemo())
	require.Len(t, corpus.Chunks, 5)
	for i, c := range corpus.Chunks {
		assert.Equal(t, llm.DemoSource, c.Metadata.Source)
		assert.Equal(t, i+1, c.Metadata.Page)
	}
	assert.Equal(t,
		"The system supports various types of documents including reports, manuals, research papers, and other text-based PDFs.",
		corpus.Chunks[3].Text)
}

type failingStore struct {
	vector.Store
	closed bool
}

func (s *failingStore) Index(ctx context.Context, records []vector.Record) error {
	return errors.New("OOM command not allowed")
}

func (s *failingStore) Close() error {
	s.closed = true
	return nil
}

func TestBuildIndexErrors(t *testing.T) {
	ctx := context.Background()
	corpus := DemoCorpus()

	_, err := BuildIndex(ctx, corpus, IndexOptions{})
	var buildErr *IndexBuildError
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, StageEmbed, buildErr.Stage)

	_, err = BuildIndex(ctx, corpus, IndexOptions{Embedder: &bagEmbedder{fail: errors.New("quota")}})
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, StageEmbed, buildErr.Stage)

	_, err = BuildIndex(ctx, corpus, IndexOptions{Embedder: &bagEmbedder{}, Dim: 3})
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, StageEmbed, buildErr.Stage)

	_, err = BuildIndex(ctx, corpus, IndexOptions{
		Embedder: &bagEmbedder{},
		NewStore: func(ctx context.Context, dim int) (vector.Store, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	})
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, StageStore, buildErr.Stage)

	store := &failingStore{}
	_, err = BuildIndex(ctx, corpus, IndexOptions{
		Embedder: &bagEmbedder{},
		NewStore: func(ctx context.Context, dim int) (vector.Store, error) { return store, nil },
	})
	require.True(t, errors.As(err, &buildErr))
	assert.Equal(t, StageStore, buildErr.Stage)
	assert.True(t, store.closed)
}

func TestIndexBatchesEmbeddings(t *testing.T) {
	emb := &bagEmbedder{}
	index, err := BuildIndex(context.Background(), DemoCorpus(), IndexOptions{Embedder: emb, BatchSize: 2})
	require.NoError(t, err)
	defer index.Close()

	assert.Equal(t, 3, emb.calls)
	assert.Equal(t, 5, index.Len())
	assert.Equal(t, llm.DemoSource, index.Source())
}

func TestIndexAsEinoRetriever(t *testing.T) {
	ctx := context.Background()
	index, err := BuildIndex(ctx, DemoCorpus(), IndexOptions{Embedder: &bagEmbedder{}})
	require.NoError(t, err)

	docs, err := index.AsRetriever().Retrieve(ctx, "What does the system support?", retriever.WithTopK(2))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Contains(t, docs[0].Content, "reports, manuals")
	assert.Equal(t, 4, docs[0].MetaData["page"])
	assert.Greater(t, docs[0].Score(), docs[1].Score())
}

func TestSessionClose(t *testing.T) {
	s := NewSession()
	assert.NoError(t, s.Close())

	idx := &closeCounter{}
	s.Swap(Binding{Index: idx, Document: "a.pdf"})
	assert.True(t, s.Loaded())

	s.Read(func(b *Binding) {
		require.NotNil(t, b)
		assert.Equal(t, "a.pdf", b.Document)
	})

	require.NoError(t, s.Close())
	assert.Equal(t, 1, idx.closed)
	assert.False(t, s.Loaded())

	s.Read(func(b *Binding) { assert.Nil(t, b) })
}

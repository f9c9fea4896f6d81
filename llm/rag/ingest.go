package rag

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"pdfqa/llm"
	"pdfqa/pubsub"

	"github.com/cloudwego/eino/components/model"
)

// Ingestion status messages
const (
	StatusNoInput = "⚠️ Please upload a PDF file first."
	StatusFailed  = "❌ Error processing PDF. Please try again."
)

// IngestResult is what the presentation layer shows after an ingestion.
type IngestResult struct {
	Status  string
	Welcome *llm.Turn // nil unless ingestion succeeded
	OK      bool
}

// IngestOptions configures the IngestionController.
type IngestOptions struct {
	Index         IndexOptions
	ChatModel     model.BaseChatModel
	AnswerTimeout time.Duration
	Events        EventSink
}

// IngestionController loads documents and swaps them into the session.
type IngestionController struct {
	session *Session
	chunker *DocumentChunker
	opts    IngestOptions
	events  EventSink
}

// NewIngestionController creates an ingestion controller bound to session.
func NewIngestionController(session *Session, chunker *DocumentChunker, opts IngestOptions) *IngestionController {
	return &IngestionController{
		session: session,
		chunker: chunker,
		opts:    opts,
		events:  sinkOrNop(opts.Events),
	}
}

// Ingest chunks and indexes the document at path and makes it the live
// document. The session is only changed when indexing succeeds.
func (c *IngestionController) Ingest(ctx context.Context, path string) IngestResult {
	path = strings.TrimSpace(path)
	if path == "" {
		return IngestResult{Status: StatusNoInput}
	}

	c.events.Publish(pubsub.StartedEvent, IngestEvent{Path: path, Message: "Processing document"})

	corpus := c.chunker.Chunk(ctx, path)

	binding, err := c.bind(ctx, corpus)
	if err != nil {
		log.Printf("[ingest] failed to index %s: %v", path, err)
		c.events.Publish(pubsub.FailedEvent, IngestEvent{Path: path, Message: "Indexing failed", Err: err})
		return IngestResult{Status: StatusFailed}
	}
	binding.Document = path
	c.session.Swap(binding)

	filename := filepath.Base(path)
	c.events.Publish(pubsub.FinishedEvent, IngestEvent{
		Path:    path,
		Message: "Ready",
		Chunks:  len(corpus.Chunks),
	})

	welcome := llm.AssistantTurn(fmt.Sprintf(
		"Hello! I've successfully processed your PDF document '%s'. You can now ask me questions about its content. What would you like to know?",
		filename))
	return IngestResult{
		Status:  fmt.Sprintf("✅ Successfully processed '%s'! You can now ask questions about this document.", filename),
		Welcome: &welcome,
		OK:      true,
	}
}

// LoadDemo makes the built-in demo corpus the live document.
func (c *IngestionController) LoadDemo(ctx context.Context) error {
	binding, err := c.bind(ctx, DemoCorpus())
	if err != nil {
		return err
	}
	binding.Document = llm.DemoSource
	c.session.Swap(binding)
	log.Printf("[ingest] demo corpus loaded")
	return nil
}

// bind builds a new index and answer engine for corpus without touching the session.
func (c *IngestionController) bind(ctx context.Context, corpus llm.Corpus) (Binding, error) {
	index, err := BuildIndex(ctx, corpus, c.opts.Index)
	if err != nil {
		return Binding{}, err
	}

	log.Printf("[ingest] indexed %d chunks from %s", index.Len(), index.Source())

	engine, err := NewAnswerEngine(ctx, c.opts.ChatModel, c.opts.AnswerTimeout)
	if err != nil {
		index.Close()
		return Binding{}, err
	}

	return Binding{
		Index:  index,
		Engine: engine,
		IsDemo: corpus.IsDemo(),
	}, nil
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"log"

	"pdfqa/llm"
	"pdfqa/llm/parser"
	"pdfqa/llm/vector"
	"pdfqa/pubsub"
)

// DocumentParser extracts pages from a file. *parser.Registry satisfies it.
type DocumentParser interface {
	ParseFile(ctx context.Context, filePath string) (*parser.Document, error)
}

// DocumentChunker turns a document on disk into a corpus of chunks.
type DocumentChunker struct {
	parser DocumentParser
	config vector.ChunkConfig
	events EventSink
}

// NewDocumentChunker creates a chunker. A nil parser uses the default registry.
func NewDocumentChunker(p DocumentParser, config vector.ChunkConfig, events EventSink) *DocumentChunker {
	if p == nil {
		p = parser.DefaultRegistry()
	}
	return &DocumentChunker{
		parser: p,
		config: config,
		events: sinkOrNop(events),
	}
}

// Load parses and splits the document. Every failure is a *ParseError.
func (c *DocumentChunker) Load(ctx context.Context, path string) (corpus llm.Corpus, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ParseError{Path: path, Err: fmt.Errorf("parser panic: %v", rec)}
		}
	}()

	log.Printf("[chunker] loading %s", path)
	doc, err := c.parser.ParseFile(ctx, path)
	if err != nil {
		return llm.Corpus{}, &ParseError{Path: path, Err: err}
	}

	log.Printf("[chunker] loaded %d pages from %s", len(doc.Pages), path)
	c.events.Publish(pubsub.ProgressEvent, IngestEvent{
		Path:    path,
		Message: fmt.Sprintf("Loaded %d pages", len(doc.Pages)),
		Pages:   len(doc.Pages),
	})

	if len(doc.Pages) > 0 {
		log.Printf("[chunker] first 200 characters: %s", preview(doc.Pages[0].Text, 200))
	}

	chunks := vector.SplitPages(path, doc.Pages, c.config)
	if len(chunks) == 0 {
		return llm.Corpus{}, &ParseError{Path: path, Err: ErrNoContent}
	}

	log.Printf("[chunker] split into %d chunks", len(chunks))
	c.events.Publish(pubsub.ProgressEvent, IngestEvent{
		Path:    path,
		Message: fmt.Sprintf("Split into %d chunks", len(chunks)),
		Pages:   len(doc.Pages),
		Chunks:  len(chunks),
	})

	return llm.Corpus{Source: path, Chunks: chunks}, nil
}

// Chunk loads the document, substituting the demo corpus for any parse failure.
// It never fails.
func (c *DocumentChunker) Chunk(ctx context.Context, path string) llm.Corpus {
	corpus, err := c.Load(ctx, path)
	if err == nil {
		return corpus
	}

	var parseErr *ParseError
	if !errors.As(err, &parseErr) {
		parseErr = &ParseError{Path: path, Err: err}
	}

	log.Printf("[chunker] falling back to demo corpus: %v", parseErr)
	c.events.Publish(pubsub.FallbackEvent, IngestEvent{
		Path:    path,
		Message: "Using demo content",
		Chunks:  len(demoTexts),
		Err:     parseErr,
	})
	return DemoCorpus()
}

func preview(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}

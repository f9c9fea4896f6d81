package rag

import (
	"context"
	"log"
	"sync"

	"pdfqa/llm"
)

// Answerer produces an answer string from retrieved chunks. *AnswerEngine satisfies it.
type Answerer interface {
	Answer(ctx context.Context, query string, result llm.RetrievalResult) string
}

// Retriever returns ranked chunks for a query. *Index satisfies it.
type Retriever interface {
	Retrieve(ctx context.Context, query string, k int) (llm.RetrievalResult, error)
	Close() error
}

// Binding is the live index/engine pair of a session.
type Binding struct {
	Index    Retriever
	Engine   Answerer
	IsDemo   bool
	Document string
}

// Session holds the single live document binding. Swap replaces the binding
// wholesale; an index is never closed while a query holds it.
type Session struct {
	mu      sync.RWMutex
	binding *Binding
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Snapshot returns the current binding, or false when nothing is loaded.
func (s *Session) Snapshot() (Binding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.binding == nil {
		return Binding{}, false
	}
	return *s.binding, true
}

// Read runs fn with the current binding (nil when nothing is loaded) under the
// read lock, so the binding cannot be swapped out and closed while fn runs.
func (s *Session) Read(fn func(b *Binding)) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.binding == nil {
		fn(nil)
		return
	}
	b := *s.binding
	fn(&b)
}

// Swap installs b and closes the index it replaces. It waits for readers in Read.
func (s *Session) Swap(b Binding) {
	s.mu.Lock()
	old := s.binding
	s.binding = &b
	s.mu.Unlock()

	if old != nil && old.Index != nil && old.Index != b.Index {
		if err := old.Index.Close(); err != nil {
			log.Printf("[session] failed to close previous index: %v", err)
		}
	}
}

// Loaded reports whether a document (or the demo corpus) is active.
func (s *Session) Loaded() bool {
	_, ok := s.Snapshot()
	return ok
}

// Document returns the name of the active document, empty when none is loaded.
func (s *Session) Document() string {
	b, _ := s.Snapshot()
	return b.Document
}

// IsDemo reports whether the demo corpus is active.
func (s *Session) IsDemo() bool {
	b, _ := s.Snapshot()
	return b.IsDemo
}

// Close releases the active index.
func (s *Session) Close() error {
	s.mu.Lock()
	old := s.binding
	s.binding = nil
	s.mu.Unlock()

	if old != nil && old.Index != nil {
		return old.Index.Close()
	}
	return nil
}

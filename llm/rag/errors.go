package rag

import (
	"errors"
	"fmt"
)

// ErrNoContent is returned when a document parses but yields no chunks.
var ErrNoContent = errors.New("document has no extractable text")

// ParseError reports a document that could not be turned into chunks.
// It never reaches the user: Chunk substitutes the demo corpus.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Index build stages
const (
	StageEmbed = "embed"
	StageStore = "store"
)

// IndexBuildError reports a failed embedding or vector store step.
// The active session is left untouched when it occurs.
type IndexBuildError struct {
	Stage string
	Err   error
}

func (e *IndexBuildError) Error() string {
	return fmt.Sprintf("index build failed at %s: %v", e.Stage, e.Err)
}

func (e *IndexBuildError) Unwrap() error { return e.Err }

// AnswerError reports a failed language model call.
type AnswerError struct {
	Err error
}

func (e *AnswerError) Error() string {
	return e.Err.Error()
}

func (e *AnswerError) Unwrap() error { return e.Err }

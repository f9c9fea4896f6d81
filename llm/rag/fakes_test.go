package rag

import (
	"context"
	"errors"
	"hash/fnv"
	"strings"
	"sync"
	"unicode"

	"pdfqa/llm"
	"pdfqa/llm/parser"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const fakeDim = 512

// bagEmbedder hashes word stems into a fixed-size count vector, so texts
// sharing words are close under cosine similarity.
type bagEmbedder struct {
	mu    sync.Mutex
	fail  error
	calls int
}

func (e *bagEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.calls++
	if e.fail != nil {
		return nil, e.fail
	}

	out := make([][]float64, len(texts))
	for i, text := range texts {
		vec := make([]float64, fakeDim)
		for _, word := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			if len(word) > 6 {
				word = word[:6]
			}
			h := fnv.New32a()
			h.Write([]byte(word))
			vec[h.Sum32()%fakeDim]++
		}
		out[i] = vec
	}
	return out, nil
}

func (e *bagEmbedder) setFail(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail = err
}

// fakeChatModel records prompts and replies with a fixed answer.
type fakeChatModel struct {
	mu          sync.Mutex
	reply       string
	err         error
	block       bool // wait for ctx cancellation
	prompts     []string
	temperature *float32
}

func (m *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	var parts []string
	for _, msg := range input {
		parts = append(parts, msg.Content)
	}
	m.prompts = append(m.prompts, strings.Join(parts, "\n"))
	m.temperature = model.GetCommonOptions(&model.Options{}, opts...).Temperature
	reply, err, block := m.reply, m.err, m.block
	m.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}
	return schema.AssistantMessage(reply, nil), nil
}

func (m *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *fakeChatModel) lastPrompt() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.prompts) == 0 {
		return ""
	}
	return m.prompts[len(m.prompts)-1]
}

// fakeParser serves documents from memory keyed by path.
type fakeParser struct {
	docs   map[string][]llm.Page
	errs   map[string]error
	panics map[string]bool
}

func (p *fakeParser) ParseFile(ctx context.Context, path string) (*parser.Document, error) {
	if p.panics[path] {
		panic("corrupt xref table")
	}
	if err, ok := p.errs[path]; ok {
		return nil, err
	}
	pages, ok := p.docs[path]
	if !ok {
		return nil, errors.New("open " + path + ": no such file or directory")
	}
	return &parser.Document{Title: path, Pages: pages}, nil
}

// closeCounter wraps a retriever to observe Close calls.
type closeCounter struct {
	Retriever
	closed int
}

func (c *closeCounter) Close() error {
	c.closed++
	return nil
}

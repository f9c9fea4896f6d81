package rag

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"pdfqa/llm"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
)

// ErrorPrefix marks answers that carry a failure instead of model output.
const ErrorPrefix = "⚠️ Error: "

const stuffPrompt = `Use the following pieces of context to answer the question at the end. If you don't know the answer, just say that you don't know, don't try to make up an answer.

{context}

Question: {question}
Helpful Answer:`

// AnswerEngine asks the language model to answer a question from retrieved chunks.
// Each call is independent: no conversation history reaches the model.
type AnswerEngine struct {
	chain   compose.Runnable[map[string]any, *schema.Message]
	timeout time.Duration
}

// NewAnswerEngine compiles the prompt and model into a chain.
func NewAnswerEngine(ctx context.Context, chatModel model.BaseChatModel, timeout time.Duration) (*AnswerEngine, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	tpl := prompt.FromMessages(schema.FString, schema.UserMessage(stuffPrompt))

	chain, err := compose.NewChain[map[string]any, *schema.Message]().
		AppendChatTemplate(tpl).
		AppendChatModel(chatModel).
		Compile(ctx, compose.WithGraphName("stuff_qa"))
	if err != nil {
		return nil, fmt.Errorf("failed to compile answer chain: %w", err)
	}

	return &AnswerEngine{chain: chain, timeout: timeout}, nil
}

// Answer returns the model's answer, or ErrorPrefix followed by the failure.
// It never returns an error.
func (e *AnswerEngine) Answer(ctx context.Context, query string, result llm.RetrievalResult) string {
	answer, err := e.generate(ctx, query, result)
	if err != nil {
		log.Printf("[answer] %v", err)
		return ErrorPrefix + err.Error()
	}
	return answer
}

func (e *AnswerEngine) generate(ctx context.Context, query string, result llm.RetrievalResult) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	msg, err := e.chain.Invoke(ctx, map[string]any{
		"context":  strings.Join(result.Texts(), "\n\n"),
		"question": query,
	}, compose.WithChatModelOption(model.WithTemperature(0)))
	if err != nil {
		return "", &AnswerError{Err: err}
	}

	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", &AnswerError{Err: errors.New("empty response from model")}
	}
	return strings.TrimSpace(msg.Content), nil
}

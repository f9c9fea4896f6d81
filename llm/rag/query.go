package rag

import (
	"context"
	"log"
	"strings"

	"pdfqa/llm"
)

// StatusNoDocument is the reply when a question arrives before any document is loaded.
const StatusNoDocument = "⚠️ No document loaded. Please upload a PDF file first."

// QueryController answers user messages against the live document.
type QueryController struct {
	session *Session
	topK    int
}

// NewQueryController creates a query controller. topK <= 0 uses the index default.
func NewQueryController(session *Session, topK int) *QueryController {
	return &QueryController{session: session, topK: topK}
}

// Query answers message and returns the reply together with history extended
// by the user and assistant turns. A blank message leaves history unchanged
// and returns an empty reply. Failures become the reply text; Query never errors.
func (c *QueryController) Query(ctx context.Context, message string, history llm.History) (string, llm.History) {
	if strings.TrimSpace(message) == "" {
		return "", history
	}

	var reply string
	c.session.Read(func(b *Binding) {
		if b == nil || b.Index == nil || b.Engine == nil {
			reply = StatusNoDocument
			return
		}

		log.Printf("[query] processing question: %s", message)
		result, err := b.Index.Retrieve(ctx, message, c.topK)
		if err != nil {
			log.Printf("[query] retrieval failed: %v", err)
			reply = ErrorPrefix + err.Error()
			return
		}

		reply = b.Engine.Answer(ctx, message, result)
		log.Printf("[query] generated answer: %s...", preview(reply, 100))
	})

	updated := make(llm.History, 0, len(history)+2)
	updated = append(updated, history...)
	updated = append(updated, llm.UserTurn(message), llm.AssistantTurn(reply))
	return reply, updated
}

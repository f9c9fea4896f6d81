package renderer

import (
	"strings"

	"pdfqa/llm"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
)

// ExampleQuestions are suggested when the conversation is empty
var ExampleQuestions = []string{
	"What are the main topics covered in this document?",
	"Can you summarize the key points from the document?",
	"What does the document say about [specific topic]?",
	"Are there any requirements, procedures, or guidelines mentioned?",
	"What are the important dates, numbers, or statistics in the document?",
	"Can you explain [specific section] in simple terms?",
}

// errorMarker prefixes replies that carry a failure
const errorMarker = "⚠️"

// MessageRenderer draws the conversation history
type MessageRenderer struct {
	markdownRenderer *glamour.TermRenderer
	styles           *MessageStyles
	renderedCache    []string // rendered turns, all but the last
	viewportWidth    int
}

// NewMessageRenderer creates a message renderer
func NewMessageRenderer(styles *MessageStyles) *MessageRenderer {
	if styles == nil {
		styles = DefaultMessageStyles()
	}

	markdownRenderer, _ := glamour.NewTermRenderer(
		glamour.WithStylePath("dracula"),
		glamour.WithWordWrap(0),
	)
	return &MessageRenderer{
		markdownRenderer: markdownRenderer,
		styles:           styles,
		renderedCache:    make([]string, 0),
	}
}

// SetViewportWidth sets the wrap width
func (r *MessageRenderer) SetViewportWidth(width int) {
	r.viewportWidth = width
}

// Reset drops cached renders
func (r *MessageRenderer) Reset() {
	r.renderedCache = r.renderedCache[:0]
}

// RenderWelcome draws the empty-conversation screen
func (r *MessageRenderer) RenderWelcome(document string) string {
	var sb strings.Builder

	sb.WriteString(r.styles.Title.Render("📄 AI PDF Assistant"))
	sb.WriteString("\n")
	if document == "" || document == llm.DemoSource {
		sb.WriteString(r.styles.System.Render("Demo content loaded. Load a document with /load <path> to ask about it."))
	} else {
		sb.WriteString(r.styles.System.Render("Current document: " + document))
	}
	sb.WriteString("\n\n")

	sb.WriteString(r.styles.Title.Render("💡 Example Questions to Try:"))
	sb.WriteString("\n")
	for _, q := range ExampleQuestions {
		sb.WriteString(r.styles.Indent.Render(r.styles.Example.Render("- " + q)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(r.styles.System.Render("Commands: /load <path>  /clear  /help  /quit"))
	return r.wrap(sb.String())
}

// RenderHistory draws every turn. Earlier turns are cached; the last is always re-rendered.
func (r *MessageRenderer) RenderHistory(history llm.History) string {
	if len(history) == 0 {
		r.Reset()
		return ""
	}

	if len(history)-1 < len(r.renderedCache) {
		r.Reset()
	}

	for i := len(r.renderedCache); i < len(history)-1; i++ {
		r.renderedCache = append(r.renderedCache, r.RenderTurn(history[i]))
	}

	var sb strings.Builder
	for _, cached := range r.renderedCache {
		if cached != "" {
			sb.WriteString(cached)
			sb.WriteString("\n\n")
		}
	}
	sb.WriteString(r.RenderTurn(history[len(history)-1]))

	return r.wrap(sb.String())
}

// RenderTurn draws a single turn
func (r *MessageRenderer) RenderTurn(turn llm.Turn) string {
	if turn.Content == "" {
		return ""
	}

	switch turn.Role {
	case llm.RoleUser:
		return r.styles.User.Render("User:") + " " + turn.Content
	case llm.RoleAssistant:
		header := r.styles.Assistant.Render("Assistant:")
		if strings.HasPrefix(turn.Content, errorMarker) {
			return header + "\n" + r.styles.Error.Render(turn.Content)
		}
		return header + "\n" + r.renderMarkdown(turn.Content)
	}
	return r.styles.System.Render(turn.Content)
}

func (r *MessageRenderer) renderMarkdown(content string) string {
	if r.markdownRenderer == nil {
		return content
	}
	rendered, err := r.markdownRenderer.Render(content)
	if err != nil {
		return content
	}
	// glamour pads output with blank lines
	return strings.TrimSpace(rendered)
}

func (r *MessageRenderer) wrap(content string) string {
	if r.viewportWidth > 0 {
		return lipgloss.NewStyle().Width(r.viewportWidth).Render(content)
	}
	return content
}

package llm

// DemoSource marks chunks that come from the built-in demo corpus.
const DemoSource = "demo"

// Page is the text of a single document page as returned by a parser.
// Numbers are 1-based.
type Page struct {
	Number int
	Text   string
}

// ChunkMetadata records where a chunk came from.
type ChunkMetadata struct {
	Source string `json:"source"`
	Page   int    `json:"page"`
}

// Chunk is a bounded span of document text, the unit of indexing and retrieval.
type Chunk struct {
	Text     string        `json:"text"`
	Metadata ChunkMetadata `json:"metadata"`
}

// Corpus is an ordered set of chunks sharing one source.
type Corpus struct {
	Source string
	Chunks []Chunk
}

// IsDemo reports whether the corpus is the built-in demo content.
func (c Corpus) IsDemo() bool {
	return c.Source == DemoSource
}

// Hit is a retrieved chunk with its similarity score.
type Hit struct {
	Chunk Chunk
	Score float32
}

// RetrievalResult is ranked by relevance, highest first.
type RetrievalResult []Hit

// Texts returns the chunk texts in rank order.
func (r RetrievalResult) Texts() []string {
	texts := make([]string, len(r))
	for i, h := range r {
		texts[i] = h.Chunk.Text
	}
	return texts
}

// Role identifies the speaker of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is a single message in the conversation history.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the append-only conversation owned by the presentation layer.
type History []Turn

// UserTurn builds a user turn.
func UserTurn(content string) Turn {
	return Turn{Role: RoleUser, Content: content}
}

// AssistantTurn builds an assistant turn.
func AssistantTurn(content string) Turn {
	return Turn{Role: RoleAssistant, Content: content}
}

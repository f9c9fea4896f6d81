package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"pdfqa/llm"
)

// FileType represents the type of document file
type FileType string

const (
	FileTypePDF     FileType = "pdf"
	FileTypeMD      FileType = "md"
	FileTypeHTML    FileType = "html"
	FileTypeTXT     FileType = "txt"
	FileTypeUnknown FileType = "unknown"
)

// ErrUnsupported is returned when no parser is registered for a file type.
var ErrUnsupported = errors.New("unsupported document type")

// Document represents a parsed document with its pages and metadata
type Document struct {
	Title    string
	Pages    []llm.Page
	Metadata map[string]interface{}
}

// Content joins the text of all pages.
func (d *Document) Content() string {
	parts := make([]string, 0, len(d.Pages))
	for _, p := range d.Pages {
		parts = append(parts, p.Text)
	}
	return strings.Join(parts, "\n\n")
}

// Parser defines the interface for document parsers
type Parser interface {
	// Parse reads and parses a document from the reader
	Parse(ctx context.Context, r io.Reader) (*Document, error)

	// ParseFile reads and parses a document from a file path
	ParseFile(ctx context.Context, filePath string) (*Document, error)

	// FileType returns the file type this parser handles
	FileType() FileType
}

// Registry holds all registered parsers
type Registry struct {
	parsers map[FileType]Parser
}

// NewRegistry creates a new parser registry
func NewRegistry() *Registry {
	return &Registry{
		parsers: make(map[FileType]Parser),
	}
}

// Register adds a parser to the registry
func (r *Registry) Register(p Parser) {
	r.parsers[p.FileType()] = p
}

// GetParser returns a parser for the given file type
func (r *Registry) GetParser(ft FileType) (Parser, bool) {
	p, ok := r.parsers[ft]
	return p, ok
}

// GetParserForPath returns a parser for the given file path
func (r *Registry) GetParserForPath(filePath string) (Parser, bool) {
	ext := strings.TrimPrefix(filepath.Ext(filePath), ".")
	return r.GetParser(FileTypeFromExt(ext))
}

// ParseFile parses a file using the appropriate parser
func (r *Registry) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	parser, ok := r.GetParserForPath(filePath)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, filePath)
	}

	return parser.ParseFile(ctx, filePath)
}

// FileTypeFromExt converts a file extension to FileType
func FileTypeFromExt(ext string) FileType {
	switch strings.ToLower(ext) {
	case "pdf":
		return FileTypePDF
	case "md", "markdown":
		return FileTypeMD
	case "html", "htm":
		return FileTypeHTML
	case "txt":
		return FileTypeTXT
	default:
		return FileTypeUnknown
	}
}

// String returns the string representation of the FileType
func (ft FileType) String() string {
	return string(ft)
}

// DefaultRegistry returns a registry with every supported parser registered
func DefaultRegistry() *Registry {
	reg := NewRegistry()
	reg.Register(NewPDFParser())
	reg.Register(NewTxtParser())
	reg.Register(NewMarkdownParser())
	reg.Register(NewHTMLParser())
	return reg
}

// singlePage wraps non-paginated content as page 1.
func singlePage(content string) []llm.Page {
	return []llm.Page{{Number: 1, Text: content}}
}

// readFile reads a whole file, wrapping the error the same way for every parser.
func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// ExtractTitle extracts a title from content (first line or heading)
func ExtractTitle(content, filePath string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return filepath.Base(filePath)
	}

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		line = strings.TrimSpace(strings.TrimLeft(line, "#"))
		if line != "" && len(line) < 100 {
			return line
		}
		break
	}

	return filepath.Base(filePath)
}

package parser

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// TxtParser handles plain text files
type TxtParser struct{}

// NewTxtParser creates a new plain text parser
func NewTxtParser() *TxtParser {
	return &TxtParser{}
}

// Parse reads and parses plain text from the reader
func (p *TxtParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read text: %w", err)
	}

	return p.parse(string(data), ""), nil
}

// ParseFile reads and parses a plain text file
func (p *TxtParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	data, err := readFile(filePath)
	if err != nil {
		return nil, err
	}

	return p.parse(string(data), filePath), nil
}

// FileType returns the file type this parser handles
func (p *TxtParser) FileType() FileType {
	return FileTypeTXT
}

func (p *TxtParser) parse(content, filePath string) *Document {
	doc := &Document{
		Title: ExtractTitle(content, filePath),
		Metadata: map[string]interface{}{
			"file_size":  len(content),
			"line_count": strings.Count(content, "\n") + 1,
		},
	}
	if strings.TrimSpace(content) != "" {
		doc.Pages = singlePage(content)
	}
	return doc
}

package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

// HTMLParser handles HTML files. The body is converted to markdown and then
// flattened to text, so headings and paragraphs survive as block breaks.
type HTMLParser struct {
	converter *md.Converter
}

// NewHTMLParser creates a new HTML parser
func NewHTMLParser() *HTMLParser {
	return &HTMLParser{
		converter: md.NewConverter("", true, nil),
	}
}

// Parse reads and parses HTML from the reader
func (p *HTMLParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	return p.parse(r, "")
}

// ParseFile reads and parses an HTML file
func (p *HTMLParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	data, err := readFile(filePath)
	if err != nil {
		return nil, err
	}

	return p.parse(bytes.NewReader(data), filePath)
}

// FileType returns the file type this parser handles
func (p *HTMLParser) FileType() FileType {
	return FileTypeHTML
}

func (p *HTMLParser) parse(r io.Reader, filePath string) (*Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		title = strings.TrimSpace(doc.Find("h1").First().Text())
	}
	if title == "" {
		if filePath != "" {
			title = fileStem(filePath)
		} else {
			title = "Untitled"
		}
	}

	doc.Find("script, style, noscript, nav, footer").Remove()
	tagCount := doc.Find("*").Length()

	text := cleanMarkdown(p.converter.Convert(doc.Find("body").First()))

	result := &Document{
		Title: title,
		Metadata: map[string]interface{}{
			"html_tag_count": tagCount,
		},
	}
	if text != "" {
		result.Pages = singlePage(text)
	}
	return result, nil
}

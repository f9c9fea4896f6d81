package parser

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"pdfqa/llm"

	"github.com/ledongthuc/pdf"
)

// PDFParser extracts plain text from PDF files page by page.
// Encrypted documents fail to open and are reported as errors.
type PDFParser struct {
	// skipBlankPages drops pages without extractable text
	skipBlankPages bool
}

// NewPDFParser creates a new PDF parser
func NewPDFParser() *PDFParser {
	return &PDFParser{
		skipBlankPages: true,
	}
}

// Parse reads and parses PDF from the reader
func (p *PDFParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF: %w", err)
	}

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to load PDF: %w", err)
	}

	return p.extract(ctx, reader, "", len(data))
}

// ParseFile reads and parses a PDF file
func (p *PDFParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	size := 0
	if info, err := f.Stat(); err == nil {
		size = int(info.Size())
	}

	return p.extract(ctx, reader, filePath, size)
}

// FileType returns the file type this parser handles
func (p *PDFParser) FileType() FileType {
	return FileTypePDF
}

// extract pulls the text of every page. The pdf library panics on some
// malformed inputs, so panics are turned into errors here.
func (p *PDFParser) extract(ctx context.Context, reader *pdf.Reader, filePath string, size int) (doc *Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc = nil
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	numPages := reader.NumPage()
	pages := make([]llm.Page, 0, numPages)

	for i := 1; i <= numPages; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract page %d: %w", i, err)
		}

		text = strings.TrimSpace(text)
		if text == "" && p.skipBlankPages {
			continue
		}
		pages = append(pages, llm.Page{Number: i, Text: text})
	}

	title := filePath
	if len(pages) > 0 {
		title = ExtractTitle(pages[0].Text, filePath)
	}

	return &Document{
		Title: title,
		Pages: pages,
		Metadata: map[string]interface{}{
			"page_count": numPages,
			"file_size":  size,
		},
	}, nil
}

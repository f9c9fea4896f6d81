package parser

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var (
	mdHeadingRe   = regexp.MustCompile(`(?m)^#+\s+(.*)$`)
	mdImageRe     = regexp.MustCompile(`!\[([^\]]*)\]\([^\)]+\)`)
	mdLinkRe      = regexp.MustCompile(`\[([^\]]+)\]\([^\)]+\)`)
	mdFenceRe     = regexp.MustCompile("```[\\s\\S]*?```")
	mdInlineRe    = regexp.MustCompile("`[^`]+`")
	mdEmphasisRep = strings.NewReplacer("**", "", "__", "")
)

// MarkdownParser handles markdown files
type MarkdownParser struct {
	// stripCodeBlocks whether to remove code blocks from content
	stripCodeBlocks bool
}

// NewMarkdownParser creates a new markdown parser
func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{
		stripCodeBlocks: false,
	}
}

// Parse reads and parses markdown from the reader
func (p *MarkdownParser) Parse(ctx context.Context, r io.Reader) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read markdown: %w", err)
	}

	return p.parse(string(data), "")
}

// ParseFile reads and parses a markdown file
func (p *MarkdownParser) ParseFile(ctx context.Context, filePath string) (*Document, error) {
	data, err := readFile(filePath)
	if err != nil {
		return nil, err
	}

	return p.parse(string(data), filePath)
}

// FileType returns the file type this parser handles
func (p *MarkdownParser) FileType() FileType {
	return FileTypeMD
}

func (p *MarkdownParser) parse(content, filePath string) (*Document, error) {
	frontmatter, body := splitFrontmatter(content)

	metadata := make(map[string]interface{})
	if frontmatter != "" {
		if err := yaml.Unmarshal([]byte(frontmatter), &metadata); err != nil {
			return nil, fmt.Errorf("invalid front matter: %w", err)
		}
	}

	if p.stripCodeBlocks {
		body = mdFenceRe.ReplaceAllString(body, "")
		body = mdInlineRe.ReplaceAllString(body, "")
	}

	title := markdownTitle(body, filePath)
	if t, ok := metadata["title"].(string); ok && t != "" {
		title = t
	}

	cleaned := cleanMarkdown(body)

	metadata["file_size"] = len(content)
	metadata["line_count"] = strings.Count(content, "\n") + 1
	metadata["has_frontmatter"] = frontmatter != ""

	doc := &Document{
		Title:    title,
		Metadata: metadata,
	}
	if cleaned != "" {
		doc.Pages = singlePage(cleaned)
	}
	return doc, nil
}

// splitFrontmatter separates a leading "---" delimited YAML block from the body.
func splitFrontmatter(content string) (string, string) {
	lines := strings.Split(content, "\n")
	if len(lines) < 2 || strings.TrimSpace(lines[0]) != "---" {
		return "", content
	}

	for i := 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			return strings.Join(lines[1:i], "\n"), strings.Join(lines[i+1:], "\n")
		}
	}
	return "", content
}

// cleanMarkdown strips formatting so only readable text is embedded.
// Paragraph breaks are preserved for the splitter.
func cleanMarkdown(content string) string {
	content = mdHeadingRe.ReplaceAllString(content, "$1")
	content = mdImageRe.ReplaceAllString(content, "$1")
	content = mdLinkRe.ReplaceAllString(content, "$1")
	content = mdEmphasisRep.Replace(content)

	var paragraphs []string
	for _, block := range strings.Split(content, "\n\n") {
		var lines []string
		for _, line := range strings.Split(block, "\n") {
			line = strings.TrimSpace(line)
			if line != "" && !strings.HasPrefix(line, "<") {
				lines = append(lines, line)
			}
		}
		if len(lines) > 0 {
			paragraphs = append(paragraphs, strings.Join(lines, "\n"))
		}
	}

	return strings.Join(paragraphs, "\n\n")
}

// markdownTitle prefers the first heading, then the first short line, then the file name.
func markdownTitle(content, filePath string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		title := strings.TrimSpace(strings.TrimLeft(line, "#"))
		if title != "" && len(title) < 100 {
			return title
		}
		break
	}

	if filePath != "" {
		return fileStem(filePath)
	}
	return "Untitled"
}

// fileStem returns the base name without extension
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

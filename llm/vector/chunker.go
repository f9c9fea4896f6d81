package vector

import (
	"strings"
	"unicode/utf8"

	"pdfqa/llm"
)

// ChunkConfig configures how documents are split into chunks
type ChunkConfig struct {
	ChunkSize    int      // Maximum chunk size in characters
	ChunkOverlap int      // Overlap between consecutive chunks in characters
	Separators   []string // Boundaries tried in order, coarsest first
}

// DefaultSeparators prefers paragraphs, then lines, then sentences, then words.
// The empty separator splits between characters as a last resort.
var DefaultSeparators = []string{"\n\n", "\n", "。", ". ", "! ", "? ", " ", ""}

func (c ChunkConfig) normalized() ChunkConfig {
	if c.ChunkSize <= 0 {
		c.ChunkSize = 1024
	}
	if c.ChunkOverlap < 0 {
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.ChunkSize {
		c.ChunkOverlap = c.ChunkSize / 2
	}
	if len(c.Separators) == 0 {
		c.Separators = DefaultSeparators
	}
	return c
}

// SplitPages splits every page independently so each chunk keeps the page it came from.
func SplitPages(source string, pages []llm.Page, config ChunkConfig) []llm.Chunk {
	config = config.normalized()

	var chunks []llm.Chunk
	for _, page := range pages {
		for _, text := range SplitText(page.Text, config) {
			chunks = append(chunks, llm.Chunk{
				Text: text,
				Metadata: llm.ChunkMetadata{
					Source: source,
					Page:   page.Number,
				},
			})
		}
	}
	return chunks
}

// SplitText splits content into overlapping windows no longer than ChunkSize
// characters, cutting at the coarsest separator that fits.
func SplitText(content string, config ChunkConfig) []string {
	config = config.normalized()

	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	return splitRecursive(content, config.Separators, config)
}

func splitRecursive(text string, separators []string, config ChunkConfig) []string {
	separator := separators[len(separators)-1]
	var rest []string
	for i, s := range separators {
		if s == "" {
			separator = s
			break
		}
		if strings.Contains(text, s) {
			separator = s
			rest = separators[i+1:]
			break
		}
	}

	var pieces []string
	if separator == "" {
		pieces = splitRunes(text)
	} else {
		pieces = strings.Split(text, separator)
	}

	var result, fitting []string
	for _, piece := range pieces {
		if piece == "" {
			continue
		}
		if runeLen(piece) < config.ChunkSize {
			fitting = append(fitting, piece)
			continue
		}

		if len(fitting) > 0 {
			result = append(result, mergePieces(fitting, separator, config)...)
			fitting = nil
		}
		if len(rest) == 0 {
			result = append(result, forceSplit(piece, config.ChunkSize, config.ChunkOverlap)...)
		} else {
			result = append(result, splitRecursive(piece, rest, config)...)
		}
	}

	if len(fitting) > 0 {
		result = append(result, mergePieces(fitting, separator, config)...)
	}
	return result
}

// mergePieces packs small pieces into windows of at most ChunkSize, carrying
// up to ChunkOverlap characters of trailing pieces into the next window.
func mergePieces(pieces []string, separator string, config ChunkConfig) []string {
	sepLen := runeLen(separator)

	var chunks []string
	var window []string
	total := 0

	joinedLen := func(extra int) int {
		if len(window) > 0 {
			return total + extra + sepLen
		}
		return total + extra
	}

	for _, piece := range pieces {
		n := runeLen(piece)

		if joinedLen(n) > config.ChunkSize && len(window) > 0 {
			if chunk := strings.TrimSpace(strings.Join(window, separator)); chunk != "" {
				chunks = append(chunks, chunk)
			}

			for len(window) > 0 && (total > config.ChunkOverlap || joinedLen(n) > config.ChunkSize) {
				total -= runeLen(window[0])
				if len(window) > 1 {
					total -= sepLen
				}
				window = window[1:]
			}
		}

		if len(window) > 0 {
			total += sepLen
		}
		window = append(window, piece)
		total += n
	}

	if chunk := strings.TrimSpace(strings.Join(window, separator)); chunk != "" {
		chunks = append(chunks, chunk)
	}
	return chunks
}

// forceSplit splits text into fixed-size windows
func forceSplit(text string, size, overlap int) []string {
	var chunks []string

	runes := []rune(text)
	step := size - overlap
	if step <= 0 {
		step = size
	}

	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		if chunk := strings.TrimSpace(string(runes[start:end])); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}

	return chunks
}

func splitRunes(text string) []string {
	out := make([]string, 0, len(text))
	for _, r := range text {
		out = append(out, string(r))
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}

package rag

import "pdfqa/llm"

var demoTexts = []string{
	"This is a demo document about general information. You can upload any PDF document to get started with real content.",
	"Sample content for demonstration purposes. The AI assistant can answer questions about any PDF document you upload.",
	"For best results, upload a PDF document and ask specific questions about its content, structure, or key information.",
	"The system supports various types of documents including reports, manuals, research papers, and other text-based PDFs.",
	"Upload your document using the file upload interface and start asking questions to get AI-powered insights.",
}

// DemoCorpus returns the built-in five-chunk corpus used at startup and
// whenever a document cannot be read.
func DemoCorpus() llm.Corpus {
	chunks := make([]llm.Chunk, len(demoTexts))
	for i, text := range demoTexts {
		chunks[i] = llm.Chunk{
			Text: text,
			Metadata: llm.ChunkMetadata{
				Source: llm.DemoSource,
				Page:   i + 1,
			},
		}
	}
	return llm.Corpus{Source: llm.DemoSource, Chunks: chunks}
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"pdfqa/config"
	"pdfqa/llm/parser"
	"pdfqa/llm/providers"
	"pdfqa/llm/rag"
	"pdfqa/llm/tracing"
	"pdfqa/llm/vector"
	"pdfqa/tui/chat"
	"pdfqa/watcher"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
)

func init() {
	// Load .env file if exists
	_ = godotenv.Load()
}

func main() {
	configPath := flag.String("config", config.DefaultPath, "path to the YAML config file")
	watchDir := flag.String("watch", "", "directory to watch for new documents")
	pattern := flag.String("pattern", watcher.DefaultPattern, "glob for watched documents, relative to -watch")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s [flags] [document]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// The UI owns the terminal, logs go to a file
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatalf("open log file: %v", err)
		}
		defer f.Close()
		log.SetOutput(f)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown, err := tracing.Setup(ctx, cfg.Tracing)
	if err != nil {
		log.Fatalf("setup tracing: %v", err)
	}
	defer shutdown()

	chatModel, err := providers.NewChatModel(ctx, cfg.LLM)
	if err != nil {
		log.Fatalf("create chat model: %v", err)
	}
	embedder, err := providers.NewEmbeddingModel(ctx, cfg.Embedding)
	if err != nil {
		log.Fatalf("create embedding model: %v", err)
	}

	newStore := vector.MemoryStoreFactory()
	if cfg.VectorStore.Type == config.StoreRedis {
		newStore = vector.RedisStoreFactory(cfg.VectorStore.Redis)
	}

	session := rag.NewSession()
	defer session.Close()

	broker := rag.NewEventBroker()
	defer broker.Shutdown()

	chunker := rag.NewDocumentChunker(parser.DefaultRegistry(), cfg.ChunkConfig(), broker)
	ingest := rag.NewIngestionController(session, chunker, rag.IngestOptions{
		Index: rag.IndexOptions{
			Embedder:  embedder,
			NewStore:  newStore,
			TopK:      cfg.Retriever.TopK,
			BatchSize: cfg.Embedding.BatchSize,
			Dim:       cfg.VectorStore.Dim,
		},
		ChatModel:     chatModel,
		AnswerTimeout: cfg.AnswerTimeout(),
		Events:        broker,
	})
	query := rag.NewQueryController(session, cfg.Retriever.TopK)

	// Questions before the first upload are answered from the demo corpus
	if err := ingest.LoadDemo(ctx); err != nil {
		log.Printf("[main] demo corpus unavailable: %v", err)
	}

	opts := chat.Options{
		Session: session,
		Ingest:  ingest,
		Query:   query,
		Events:  broker.Subscribe(ctx),
		Path:    flag.Arg(0),
	}

	if *watchDir != "" {
		w, err := watcher.New(*watchDir, *pattern, watcher.DefaultSettle)
		if err != nil {
			log.Fatalf("watch %s: %v", *watchDir, err)
		}
		defer w.Close()
		if opts.Path == "" {
			existing, err := w.Existing()
			if err != nil {
				log.Printf("[main] list %s: %v", *watchDir, err)
			} else if len(existing) > 0 {
				opts.Path = existing[len(existing)-1]
			}
		}
		opts.Watch = w.Watch(ctx)
		log.Printf("[main] watching %s for %s", *watchDir, *pattern)
	}

	program := tea.NewProgram(
		chat.InitialModel(ctx, opts),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := program.Run(); err != nil {
		log.Printf("[main] ui exited: %v", err)
	}
}

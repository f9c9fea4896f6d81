package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"pdfqa/llm/vector"

	"gopkg.in/yaml.v3"
)

// ErrMissingCredential is returned when a hosted API key is absent at startup
var ErrMissingCredential = errors.New("missing API credential")

// DefaultPath is the config file tried when none is given
const DefaultPath = "pdfqa.yaml"

// Supported LLM providers
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
	ProviderQwen   = "qwen"
)

// Supported vector stores
const (
	StoreMemory = "memory"
	StoreRedis  = "redis"
)

// LLMConfig configures the chat model used to answer questions.
type LLMConfig struct {
	Provider    string `yaml:"provider"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// EmbeddingConfig configures the OpenAI-compatible embedder.
type EmbeddingConfig struct {
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Model       string `yaml:"model"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// RetrieverConfig configures retrieval.
type RetrieverConfig struct {
	TopK int `yaml:"top_k"`
}

// VectorStoreConfig selects and configures the vector store implementation.
// Dim is the expected embedding dimension; 0 accepts whatever the embedder returns.
type VectorStoreConfig struct {
	Type  string             `yaml:"type"`
	Dim   int                `yaml:"dim"`
	Redis vector.RedisConfig `yaml:"redis"`
}

// AnswerConfig configures answer generation.
type AnswerConfig struct {
	TimeoutSecs int `yaml:"timeout_secs"`
}

// LogConfig configures where logs go while the UI owns the terminal.
type LogConfig struct {
	File string `yaml:"file"`
}

// TracingConfig holds optional cozeloop credentials.
type TracingConfig struct {
	CozeloopAPIToken    string `yaml:"cozeloop_api_token"`
	CozeloopWorkspaceID string `yaml:"cozeloop_workspace_id"`
}

// Config is the root application configuration structure.
type Config struct {
	LLM         LLMConfig         `yaml:"llm"`
	Embedding   EmbeddingConfig   `yaml:"embedding"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	Retriever   RetrieverConfig   `yaml:"retriever"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Answer      AnswerConfig      `yaml:"answer"`
	Log         LogConfig         `yaml:"log"`
	Tracing     TracingConfig     `yaml:"tracing"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:    ProviderOpenAI,
			TimeoutSecs: 60,
		},
		Embedding: EmbeddingConfig{
			BatchSize:   vector.DefaultBatchSize,
			TimeoutSecs: 30,
		},
		Chunker: ChunkerConfig{
			Size:    1024,
			Overlap: 64,
		},
		Retriever: RetrieverConfig{
			TopK: 4,
		},
		VectorStore: VectorStoreConfig{
			Type:  StoreMemory,
			Redis: vector.DefaultRedisConfig(),
		},
		Answer: AnswerConfig{
			TimeoutSecs: 60,
		},
		Log: LogConfig{
			File: "pdfqa.log",
		},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (a
// missing file is not an error), then environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	applyEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.LLM.Provider = strings.ToLower(getEnvString("LLM_PROVIDER", cfg.LLM.Provider))

	switch cfg.LLM.Provider {
	case ProviderGemini:
		cfg.LLM.APIKey = getEnvString("GEMINI_API_KEY", cfg.LLM.APIKey)
	case ProviderQwen:
		cfg.LLM.APIKey = getEnvString("DASHSCOPE_API_KEY", cfg.LLM.APIKey)
	default:
		cfg.LLM.APIKey = getEnvString("OPENAI_API_KEY", cfg.LLM.APIKey)
	}
	cfg.LLM.BaseURL = getEnvString("LLM_BASE_URL", cfg.LLM.BaseURL)
	cfg.LLM.Model = getEnvString("LLM_MODEL", cfg.LLM.Model)

	// Embeddings are always OpenAI-compatible
	cfg.Embedding.APIKey = getEnvString("EMBEDDING_API_KEY", cfg.Embedding.APIKey)
	if cfg.Embedding.APIKey == "" {
		cfg.Embedding.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.Embedding.BaseURL = getEnvString("EMBEDDING_BASE_URL", cfg.Embedding.BaseURL)
	cfg.Embedding.Model = getEnvString("EMBEDDING_MODEL", cfg.Embedding.Model)
	cfg.Embedding.BatchSize = getEnvInt("EMBED_BATCH_SIZE", cfg.Embedding.BatchSize)

	cfg.Chunker.Size = getEnvInt("CHUNK_SIZE", cfg.Chunker.Size)
	cfg.Chunker.Overlap = getEnvInt("CHUNK_OVERLAP", cfg.Chunker.Overlap)
	cfg.Retriever.TopK = getEnvInt("RETRIEVER_TOP_K", cfg.Retriever.TopK)

	cfg.VectorStore.Type = strings.ToLower(getEnvString("VECTOR_STORE", cfg.VectorStore.Type))
	cfg.VectorStore.Dim = getEnvInt("VECTOR_DIM", cfg.VectorStore.Dim)

	redis := &cfg.VectorStore.Redis
	redis.Addr = getEnvString("REDIS_ADDR", redis.Addr)
	redis.Password = getEnvString("REDIS_PASSWORD", redis.Password)
	redis.DB = getEnvInt("REDIS_DB", redis.DB)
	redis.PoolSize = getEnvInt("REDIS_POOL_SIZE", redis.PoolSize)
	redis.IndexPrefix = getEnvString("VECTOR_INDEX_PREFIX", redis.IndexPrefix)
	redis.EFConstruction = getEnvInt("HNSW_EF_CONSTRUCTION", redis.EFConstruction)
	redis.M = getEnvInt("HNSW_M", redis.M)

	cfg.Answer.TimeoutSecs = getEnvInt("ANSWER_TIMEOUT", cfg.Answer.TimeoutSecs)
	cfg.Log.File = getEnvString("LOG_FILE", cfg.Log.File)

	cfg.Tracing.CozeloopAPIToken = getEnvString("COZELOOP_API_TOKEN", cfg.Tracing.CozeloopAPIToken)
	cfg.Tracing.CozeloopWorkspaceID = getEnvString("COZELOOP_WORKSPACE_ID", cfg.Tracing.CozeloopWorkspaceID)
}

func applyDefaults(cfg *Config) {
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = ProviderOpenAI
	}
	if cfg.LLM.Model == "" {
		switch cfg.LLM.Provider {
		case ProviderGemini:
			cfg.LLM.Model = "gemini-2.0-flash"
		case ProviderQwen:
			cfg.LLM.Model = "qwen-plus"
		default:
			cfg.LLM.Model = "gpt-3.5-turbo"
		}
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-ada-002"
	}
	if cfg.Embedding.BatchSize <= 0 {
		cfg.Embedding.BatchSize = vector.DefaultBatchSize
	}
	if cfg.Chunker.Size <= 0 {
		cfg.Chunker.Size = 1024
	}
	if cfg.Chunker.Overlap < 0 {
		cfg.Chunker.Overlap = 0
	}
	if cfg.Retriever.TopK <= 0 {
		cfg.Retriever.TopK = 4
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = StoreMemory
	}
}

// Validate checks the configuration before any component is built.
func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("%w: set %s", ErrMissingCredential, llmKeyEnv(c.LLM.Provider))
	}
	if c.Embedding.APIKey == "" {
		return fmt.Errorf("%w: set EMBEDDING_API_KEY or OPENAI_API_KEY", ErrMissingCredential)
	}

	switch c.LLM.Provider {
	case ProviderOpenAI, ProviderGemini, ProviderQwen:
	default:
		return fmt.Errorf("unknown LLM provider %q", c.LLM.Provider)
	}

	switch c.VectorStore.Type {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("unknown vector store %q", c.VectorStore.Type)
	}

	if c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("chunk overlap %d must be smaller than chunk size %d", c.Chunker.Overlap, c.Chunker.Size)
	}
	return nil
}

// ChunkConfig returns the splitter settings
func (c *Config) ChunkConfig() vector.ChunkConfig {
	return vector.ChunkConfig{
		ChunkSize:    c.Chunker.Size,
		ChunkOverlap: c.Chunker.Overlap,
		Separators:   vector.DefaultSeparators,
	}
}

// AnswerTimeout returns the per-answer deadline, 0 meaning none
func (c *Config) AnswerTimeout() time.Duration {
	return seconds(c.Answer.TimeoutSecs)
}

func llmKeyEnv(provider string) string {
	switch provider {
	case ProviderGemini:
		return "GEMINI_API_KEY"
	case ProviderQwen:
		return "DASHSCOPE_API_KEY"
	default:
		return "OPENAI_API_KEY"
	}
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
}

// getEnvString reads a string from environment variable
func getEnvString(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt reads an integer from environment variable
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return n
		}
	}
	return defaultVal
}

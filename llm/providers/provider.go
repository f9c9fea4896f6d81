package providers

import (
	"context"
	"fmt"
	"time"

	"pdfqa/config"

	openaiEmbed "github.com/cloudwego/eino-ext/components/embedding/openai"
	geminiModel "github.com/cloudwego/eino-ext/components/model/gemini"
	openaiModel "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino-ext/components/model/qwen"
	einoEmbedding "github.com/cloudwego/eino/components/embedding"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultQwenBaseURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1"
)

// NewChatModel creates the chat model for the configured provider.
// Answers are deterministic, so temperature is pinned to 0 wherever the provider accepts it.
func NewChatModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	switch cfg.Provider {
	case config.ProviderGemini:
		return newGeminiModel(ctx, cfg)
	case config.ProviderQwen:
		return newQwenModel(ctx, cfg)
	case config.ProviderOpenAI, "":
		return newOpenAIModel(ctx, cfg)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

func newOpenAIModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "gpt-3.5-turbo"
	}

	var temperature float32
	return openaiModel.NewChatModel(ctx, &openaiModel.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
		Timeout:     timeout(cfg.TimeoutSecs),
	})
}

func newQwenModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultQwenBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "qwen-plus"
	}

	var temperature float32
	return qwen.NewChatModel(ctx, &qwen.ChatModelConfig{
		APIKey:      cfg.APIKey,
		BaseURL:     baseURL,
		Model:       modelName,
		Temperature: &temperature,
		Timeout:     timeout(cfg.TimeoutSecs),
	})
}

func newGeminiModel(ctx context.Context, cfg config.LLMConfig) (model.BaseChatModel, error) {
	modelName := cfg.Model
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: cfg.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return geminiModel.NewChatModel(ctx, &geminiModel.Config{
		Client: client,
		Model:  modelName,
	})
}

// NewEmbeddingModel creates an OpenAI-compatible embedding model from specific configuration.
func NewEmbeddingModel(ctx context.Context, cfg config.EmbeddingConfig) (einoEmbedding.Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required in config")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	modelName := cfg.Model
	if modelName == "" {
		modelName = "text-embedding-ada-002"
	}

	return openaiEmbed.NewEmbedder(ctx, &openaiEmbed.EmbeddingConfig{
		APIKey:  cfg.APIKey,
		BaseURL: baseURL,
		Model:   modelName,
		Timeout: timeout(cfg.TimeoutSecs),
	})
}

func timeout(secs int) time.Duration {
	if secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

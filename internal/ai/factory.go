package ai

import (
	"context"
	"fmt"
	"time"

	"secondbrain/internal/config"
)

// New builds the provider selected by provider.kind. The returned client is
// meant to be created once and shared for the life of the process.
func New(ctx context.Context, cfg *config.Config) (Provider, error) {
	switch cfg.Provider.Kind {
	case config.ProviderOpenAI:
		return NewOpenAICompatibleClient(OpenAIConfig{
			BaseURL:            cfg.LLM.BaseURL,
			APIKey:             cfg.LLM.APIKey,
			Model:              cfg.LLM.Model,
			EmbeddingModel:     cfg.LLM.EmbeddingModel,
			EmbeddingBatchSize: cfg.LLM.EmbeddingBatchSize,
			TranscriptionModel: cfg.LLM.TranscriptionModel,
			Timeout:            time.Duration(cfg.LLM.RequestTimeoutSecond) * time.Second,
		}), nil
	case config.ProviderGemini:
		return NewGeminiClient(ctx, GeminiConfig{
			APIKey:             cfg.Gemini.APIKey,
			Model:              cfg.Gemini.Model,
			EmbeddingModel:     cfg.Gemini.EmbeddingModel,
			TranscriptionModel: cfg.Gemini.TranscriptionModel,
			EmbeddingBatchSize: cfg.LLM.EmbeddingBatchSize,
		})
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider.Kind)
	}
}

package llm

import (
	"fmt"
	"strings"

	"github.com/hubenschmidt/go-wordcrack/core"
)

type UnifiedConfig struct {
	OpenAIKey     string
	OpenAIBaseURL string
	OllamaURL     string
	Model         string
	Dimension     int
}

// NewEmbedder picks a provider for cfg.Model. "ollama/<name>" goes to the
// Ollama instance at OllamaURL; everything else goes to OpenAI.
func NewEmbedder(cfg UnifiedConfig, opts ...Option) (Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = DefaultOpenAIModel
	}

	if strings.HasPrefix(model, "ollama/") {
		if cfg.OllamaURL == "" {
			return nil, fmt.Errorf("model %s needs an ollama url: %w", model, core.ErrInvalidConfig)
		}
		opts = append([]Option{WithDimension(cfg.Dimension)}, opts...)
		return NewOllamaEmbedder(cfg.OllamaURL, strings.TrimPrefix(model, "ollama/"), opts...), nil
	}

	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("model %s needs OPENAI_API_KEY: %w", model, core.ErrInvalidConfig)
	}
	base := []Option{WithModel(model)}
	if cfg.Dimension > 0 {
		base = append(base, WithDimension(cfg.Dimension))
	}
	if cfg.OpenAIBaseURL != "" {
		base = append(base, WithBaseURL(cfg.OpenAIBaseURL))
	}
	return NewOpenAIEmbedder(cfg.OpenAIKey, append(base, opts...)...), nil
}

package classifier

import (
	"context"
	"fmt"

	"news_sentiment/internal/config"
)

// NewLLM builds the backend selected by cfg.Provider.
func NewLLM(ctx context.Context, cfg config.ClassifierConfig) (LLM, error) {
	opts := Options{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: 0.1,
		MaxTokens:   cfg.MaxTokens,
	}

	if cfg.Temperature != nil {
		opts.Temperature = *cfg.Temperature
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAI(opts), nil
	case "anthropic":
		return NewAnthropic(opts), nil
	case "gemini":
		g, err := NewGemini(ctx, opts)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown classifier provider %q", cfg.Provider)
	}
}

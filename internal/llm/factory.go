package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dusk-indust/bizdoc/internal/config"
)

// NewGenerator builds the backend selected by cfg.Provider. With no provider
// set it picks chat when a base URL, API key or token URL is configured, then
// gemini when an API key is available, then bedrock when a region is set.
func NewGenerator(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	provider := cfg.Provider
	if provider == "" {
		switch {
		case cfg.TokenURL != "" || cfg.BaseURL != "":
			provider = "chat"
		case cfg.APIKey != "":
			provider = "gemini"
		case cfg.Region != "":
			provider = "bedrock"
		default:
			return nil, fmt.Errorf("no generation backend configured: set llm.provider or BIZDOC_LLM_* variables")
		}
	}

	switch provider {
	case "chat", "openai":
		opts := []ChatOption{
			WithTemperature(cfg.Temperature),
			WithRetries(cfg.MaxRetries, defaultRetryDelay),
			WithResourceGroup(cfg.ResourceGroup),
		}
		if cfg.TimeoutSecs > 0 {
			opts = append(opts, WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.TimeoutSecs) * time.Second}))
		}
		if cfg.TokenURL != "" {
			opts = append(opts, WithTokenSource(NewTokenCache(cfg.TokenURL, cfg.ClientID, cfg.ClientSecret)))
		}
		return NewChatGenerator(cfg.APIKey, cfg.Model, cfg.BaseURL, opts...), nil
	case "gemini":
		return NewGeminiGenerator(ctx, cfg.APIKey, cfg.Model, cfg.Temperature)
	case "bedrock":
		return NewBedrockGenerator(ctx, cfg.Region, cfg.Model)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

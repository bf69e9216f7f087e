package llm

import (
	"fmt"
	"time"

	"github.com/normanking/deskavatar/internal/config"
	"github.com/rs/zerolog"
)

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg config.LLMConfig, logger zerolog.Logger) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	switch cfg.Provider {
	case "ollama", "":
		return NewOllamaProvider(OllamaConfig{
			Endpoint: cfg.BaseURL,
			Model:    cfg.Model,
			Timeout:  timeout,
		}, logger), nil
	case "openai":
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: openai needs llm.api_key or OPENAI_API_KEY", ErrProviderUnavailable)
		}
		return NewOpenAIProvider(OpenAIConfig{
			BaseURL: cfg.BaseURL,
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: timeout,
		}, logger), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderUnavailable, cfg.Provider)
}

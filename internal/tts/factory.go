package tts

import (
	"fmt"
	"time"

	"github.com/normanking/deskavatar/internal/config"
	"github.com/rs/zerolog"
)

// NewProvider builds the provider named by cfg.Provider.
func NewProvider(cfg config.TTSConfig, logger zerolog.Logger) (Provider, error) {
	timeout := time.Duration(cfg.TimeoutMs) * time.Millisecond

	switch cfg.Provider {
	case "edge", "":
		return NewEdgeProvider(logger, &EdgeConfig{Timeout: timeout}), nil
	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: openai needs tts.api_key or OPENAI_API_KEY", ErrProviderUnavailable)
		}
		return NewOpenAIProvider(logger, &OpenAIConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.Model,
			Timeout: timeout,
		}), nil
	case "command":
		return NewCommandProvider(logger, &CommandConfig{Command: cfg.Command}), nil
	}
	return nil, fmt.Errorf("%w: unknown provider %q", ErrProviderUnavailable, cfg.Provider)
}

// ParamsFromConfig returns the initial voice settings.
func ParamsFromConfig(cfg config.TTSConfig) VoiceParams {
	return VoiceParams{
		Voice:  cfg.Voice,
		Rate:   cfg.Rate,
		Pitch:  cfg.Pitch,
		Volume: cfg.Volume,
	}
}

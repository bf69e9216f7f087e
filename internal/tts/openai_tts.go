package tts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// OpenAI TTS voices
const (
	VoiceAlloy   = "alloy"   // Neutral, balanced
	VoiceEcho    = "echo"    // Male, warm
	VoiceFable   = "fable"   // British, expressive
	VoiceOnyx    = "onyx"    // Male, deep
	VoiceNova    = "nova"    // Female, warm and natural
	VoiceShimmer = "shimmer" // Female, clear and bright
)

const openAISpeechURL = "https://api.openai.com/v1/audio/speech"

// OpenAIProvider implements TTS using OpenAI's TTS API
type OpenAIProvider struct {
	client *http.Client
	logger zerolog.Logger
	config *OpenAIConfig
}

// OpenAIConfig holds OpenAI TTS configuration
type OpenAIConfig struct {
	APIKey       string        `json:"api_key"`
	Model        string        `json:"model"`         // tts-1 or tts-1-hd
	DefaultVoice string        `json:"default_voice"` // used when the requested voice is not an OpenAI voice
	Endpoint     string        `json:"endpoint"`
	Timeout      time.Duration `json:"timeout"` // 0 means no timeout
}

// DefaultOpenAIConfig returns sensible defaults
func DefaultOpenAIConfig() *OpenAIConfig {
	return &OpenAIConfig{
		Model:        "tts-1",
		DefaultVoice: VoiceNova,
		Endpoint:     openAISpeechURL,
	}
}

// NewOpenAIProvider creates a new OpenAI TTS provider
func NewOpenAIProvider(logger zerolog.Logger, config *OpenAIConfig) *OpenAIProvider {
	if config == nil {
		config = DefaultOpenAIConfig()
	}
	if config.Endpoint == "" {
		config.Endpoint = openAISpeechURL
	}
	if config.DefaultVoice == "" {
		config.DefaultVoice = VoiceNova
	}
	if config.Model == "" {
		config.Model = "tts-1"
	}

	return &OpenAIProvider{
		client: &http.Client{Timeout: config.Timeout},
		logger: logger.With().Str("provider", "openai-tts").Logger(),
		config: config,
	}
}

// Name returns the provider identifier
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// openAITTSRequest is the request format for OpenAI TTS API
type openAITTSRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format,omitempty"`
	Speed          float64 `json:"speed,omitempty"`
}

// Synthesize converts text to audio using OpenAI TTS. Rate maps to speed;
// pitch and volume are not supported by the API and are ignored.
func (p *OpenAIProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	if p.config.APIKey == "" {
		return nil, fmt.Errorf("%w: OpenAI API key not configured", ErrProviderUnavailable)
	}

	startTime := time.Now()
	voice := p.mapVoice(req.Voice.Voice)

	ttsReq := openAITTSRequest{
		Model:          p.config.Model,
		Input:          req.Text,
		Voice:          voice,
		ResponseFormat: "mp3",
		Speed:          p.speed(req.Voice.Rate),
	}

	body, err := json.Marshal(ttsReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+p.config.APIKey)
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Debug().
		Str("voice", voice).
		Str("model", p.config.Model).
		Int("textLen", len(req.Text)).
		Msg("Sending TTS request to OpenAI")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		p.logger.Error().
			Int("status", resp.StatusCode).
			Str("body", string(bodyBytes)).
			Msg("OpenAI TTS request failed")
		return nil, fmt.Errorf("OpenAI TTS error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	processingTime := time.Since(startTime)
	p.logger.Info().
		Str("voice", voice).
		Int("audioBytes", len(audioData)).
		Dur("processingTime", processingTime).
		Msg("OpenAI TTS synthesis complete")

	return &SynthesizeResponse{
		Audio:          audioData,
		Format:         "mp3",
		ProcessingTime: processingTime,
		Voice:          voice,
		Provider:       p.Name(),
	}, nil
}

// speed converts a relative rate to OpenAI's 0.25-4.0 range.
func (p *OpenAIProvider) speed(rate string) float64 {
	pct, err := ParsePercent(rate)
	if err != nil {
		p.logger.Warn().Err(err).Msg("ignoring rate")
		return 1.0
	}
	return min(4.0, max(0.25, 1+pct/100))
}

// mapVoice passes OpenAI voice names through and falls back to the default.
func (p *OpenAIProvider) mapVoice(voiceID string) string {
	switch voiceID {
	case VoiceAlloy, VoiceEcho, VoiceFable, VoiceOnyx, VoiceNova, VoiceShimmer:
		return voiceID
	}
	return p.config.DefaultVoice
}

// Health checks if OpenAI TTS is configured
func (p *OpenAIProvider) Health(ctx context.Context) error {
	if p.config.APIKey == "" {
		return ErrProviderUnavailable
	}
	return nil
}

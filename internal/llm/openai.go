package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/rs/zerolog"
)

// OpenAIConfig configures an OpenAI-compatible chat backend.
type OpenAIConfig struct {
	BaseURL string // empty uses api.openai.com
	APIKey  string
	Model   string
	// Timeout bounds one chat call; 0 means no timeout.
	Timeout time.Duration
}

// OpenAIProvider implements Provider with the OpenAI chat completions API.
// Any server speaking that API (LM Studio, vLLM, llama.cpp) works through
// BaseURL.
type OpenAIProvider struct {
	client openai.Client
	config OpenAIConfig
	logger zerolog.Logger
}

// NewOpenAIProvider creates an OpenAI-compatible provider.
func NewOpenAIProvider(cfg OpenAIConfig, logger zerolog.Logger) *OpenAIProvider {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(1),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Model == "" {
		cfg.Model = openai.ChatModelGPT4oMini
	}

	return &OpenAIProvider{
		client: openai.NewClient(opts...),
		config: cfg,
		logger: logger.With().Str("provider", "openai").Logger(),
	}
}

// Name returns the provider identifier.
func (p *OpenAIProvider) Name() string {
	return "openai"
}

// Chat sends the exchange and returns the first choice.
func (p *OpenAIProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	model := req.Model
	if model == "" {
		model = p.config.Model
	}

	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemPrompt != "" {
		messages = append(messages, openai.SystemMessage(req.SystemPrompt))
	}
	messages = append(messages, openai.UserMessage(req.UserText))

	p.logger.Debug().Str("model", model).Int("textLen", len(req.UserText)).Msg("sending chat request")

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: messages,
		Model:    model,
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	duration := time.Since(start)
	p.logger.Info().Str("model", model).Int("replyLen", len(content)).Dur("duration", duration).Msg("chat complete")

	return &ChatResponse{
		Content:  content,
		Model:    model,
		Duration: duration,
	}, nil
}

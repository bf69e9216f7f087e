package llm

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

// OllamaConfig configures the Ollama provider.
type OllamaConfig struct {
	Endpoint string
	Model    string
	// Timeout bounds one chat call; 0 means no timeout.
	Timeout time.Duration
}

// OllamaProvider implements the Provider interface for Ollama.
type OllamaProvider struct {
	config OllamaConfig
	client *http.Client
	logger zerolog.Logger
}

// NewOllamaProvider creates a provider for the Ollama HTTP API.
func NewOllamaProvider(cfg OllamaConfig, logger zerolog.Logger) *OllamaProvider {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://127.0.0.1:11434"
	}
	cfg.Endpoint = strings.TrimRight(cfg.Endpoint, "/")

	return &OllamaProvider{
		config: cfg,
		client: &http.Client{
			// No Client.Timeout: it would also cap reading the streamed body.
			// Cold model loads can take minutes; callers bound the call with ctx.
			Transport: &http.Transport{
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		logger: logger.With().Str("provider", "ollama").Logger(),
	}
}

// Name returns the provider identifier.
func (p *OllamaProvider) Name() string {
	return "ollama"
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatResponse struct {
	Model   string        `json:"model"`
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error,omitempty"`
}

// Chat sends a chat request to Ollama and collects the streamed reply.
func (p *OllamaProvider) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	start := time.Now()
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	ollamaReq := ollamaChatRequest{
		Model:  req.Model,
		Stream: true,
	}
	if ollamaReq.Model == "" {
		ollamaReq.Model = p.config.Model
	}
	if req.SystemPrompt != "" {
		ollamaReq.Messages = append(ollamaReq.Messages, ollamaMessage{Role: "system", Content: req.SystemPrompt})
	}
	ollamaReq.Messages = append(ollamaReq.Messages, ollamaMessage{Role: "user", Content: req.UserText})

	body, err := json.Marshal(ollamaReq)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", p.config.Endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	p.logger.Debug().Str("model", ollamaReq.Model).Int("textLen", len(req.UserText)).Msg("sending chat request")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := readLimitedBody(resp.Body, MaxErrorBodySize)
		return nil, fmt.Errorf("ollama error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	content, err := p.readStream(resp.Body)
	if err != nil {
		return nil, err
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyResponse
	}

	duration := time.Since(start)
	p.logger.Info().Str("model", ollamaReq.Model).Int("replyLen", len(content)).Dur("duration", duration).Msg("chat complete")

	return &ChatResponse{
		Content:  content,
		Model:    ollamaReq.Model,
		Duration: duration,
	}, nil
}

// readStream concatenates message chunks from Ollama's NDJSON stream.
func (p *OllamaProvider) readStream(body io.Reader) (string, error) {
	var sb strings.Builder
	decoder := json.NewDecoder(body)
	for {
		var chunk ollamaChatResponse
		if err := decoder.Decode(&chunk); err != nil {
			if err == io.EOF {
				return sb.String(), nil
			}
			return "", fmt.Errorf("decode stream: %w", err)
		}
		if chunk.Error != "" {
			return "", fmt.Errorf("ollama error: %s", chunk.Error)
		}
		sb.WriteString(chunk.Message.Content)
		if chunk.Done {
			return sb.String(), nil
		}
	}
}

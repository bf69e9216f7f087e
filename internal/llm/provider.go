// Package llm talks to language model backends.
package llm

import (
	"context"
	"errors"
	"io"
	"time"
)

const (
	// MaxErrorBodySize limits how much error response body we read (1MB)
	MaxErrorBodySize = 1 * 1024 * 1024
)

// Common errors
var (
	ErrEmptyResponse       = errors.New("model returned an empty reply")
	ErrProviderUnavailable = errors.New("LLM provider unavailable")
)

// readLimitedBody reads up to maxBytes from r, returning the bytes read.
func readLimitedBody(r io.Reader, maxBytes int64) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxBytes))
}

// Provider defines the interface for LLM providers.
type Provider interface {
	// Name returns the provider identifier.
	Name() string

	// Chat sends one system+user exchange and returns the reply.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)
}

// ChatRequest is a single-turn chat.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserText     string
}

// ChatResponse is the model's reply.
type ChatResponse struct {
	Content  string
	Model    string
	Duration time.Duration
}

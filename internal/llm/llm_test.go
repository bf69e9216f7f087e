package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/normanking/deskavatar/internal/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOllamaChat_StreamsReply(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/chat", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/x-ndjson")
		enc := json.NewEncoder(w)
		for i, tok := range []string{"Hello", ", ", "world "} {
			enc.Encode(ollamaChatResponse{
				Model:   got.Model,
				Message: ollamaMessage{Role: "assistant", Content: tok},
				Done:    i == 2,
			})
		}
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{Endpoint: server.URL + "/", Model: "default-model"}, zerolog.Nop())
	resp, err := p.Chat(context.Background(), &ChatRequest{
		Model:        "qwen2.5:3b",
		SystemPrompt: "be brief",
		UserText:     "hi",
	})
	require.NoError(t, err)

	assert.Equal(t, "Hello, world", resp.Content)
	assert.Equal(t, "qwen2.5:3b", resp.Model)
	assert.True(t, got.Stream)
	assert.Equal(t, []ollamaMessage{
		{Role: "system", Content: "be brief"},
		{Role: "user", Content: "hi"},
	}, got.Messages)
}

func TestOllamaChat_DefaultModelAndNoSystemPrompt(t *testing.T) {
	var got ollamaChatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "ok"}, Done: true})
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{Endpoint: server.URL, Model: "llama3"}, zerolog.Nop())
	_, err := p.Chat(context.Background(), &ChatRequest{UserText: "hi"})
	require.NoError(t, err)

	assert.Equal(t, "llama3", got.Model)
	assert.Len(t, got.Messages, 1)
}

func TestOllamaChat_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"model 'nope' not found, try pulling it first"}`, http.StatusNotFound)
	}))
	defer server.Close()

	p := NewOllamaProvider(OllamaConfig{Endpoint: server.URL}, zerolog.Nop())
	_, err := p.Chat(context.Background(), &ChatRequest{Model: "nope", UserText: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
	assert.Contains(t, err.Error(), "try pulling it first")
}

func TestOllamaChat_StreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{Error: "out of memory"})
	}))
	defer server.Close()

	_, err := NewOllamaProvider(OllamaConfig{Endpoint: server.URL}, zerolog.Nop()).
		Chat(context.Background(), &ChatRequest{UserText: "hi"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of memory")
}

func TestOllamaChat_EmptyReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaChatResponse{Message: ollamaMessage{Content: "  \n"}, Done: true})
	}))
	defer server.Close()

	_, err := NewOllamaProvider(OllamaConfig{Endpoint: server.URL}, zerolog.Nop()).
		Chat(context.Background(), &ChatRequest{UserText: "hi"})

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOllamaChat_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	p := NewOllamaProvider(OllamaConfig{Endpoint: server.URL, Timeout: 50 * time.Millisecond}, zerolog.Nop())
	_, err := p.Chat(context.Background(), &ChatRequest{UserText: "hi"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenAIChat(t *testing.T) {
	var body map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"id": "chatcmpl-1",
			"object": "chat.completion",
			"created": 1700000000,
			"model": "gpt-4o-mini",
			"choices": [{
				"index": 0,
				"message": {"role": "assistant", "content": " Nya~ hello! "},
				"finish_reason": "stop"
			}]
		}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL + "/v1/", APIKey: "sk-test"}, zerolog.Nop())
	resp, err := p.Chat(context.Background(), &ChatRequest{SystemPrompt: "persona", UserText: "hello"})
	require.NoError(t, err)

	assert.Equal(t, "Nya~ hello!", resp.Content)
	assert.Equal(t, "gpt-4o-mini", body["model"])
	msgs, ok := body["messages"].([]any)
	require.True(t, ok)
	assert.Len(t, msgs, 2)
}

func TestOpenAIChat_NoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`))
	}))
	defer server.Close()

	p := NewOpenAIProvider(OpenAIConfig{BaseURL: server.URL + "/v1/", APIKey: "k", Model: "m"}, zerolog.Nop())
	_, err := p.Chat(context.Background(), &ChatRequest{UserText: "hello"})

	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(config.LLMConfig{Provider: "ollama"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())

	p, err = NewProvider(config.LLMConfig{Provider: "openai", APIKey: "k"}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai", p.Name())

	_, err = NewProvider(config.LLMConfig{Provider: "openai"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrProviderUnavailable)

	_, err = NewProvider(config.LLMConfig{Provider: "gpt-local"}, zerolog.Nop())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

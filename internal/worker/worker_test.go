package worker

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/normanking/deskavatar/internal/bus"
	"github.com/normanking/deskavatar/internal/llm"
	"github.com/normanking/deskavatar/internal/tts"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSender struct {
	mu     sync.Mutex
	events []bus.Event
}

func (r *recordingSender) Send(ev bus.Event) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return true
}

func (r *recordingSender) talking() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []bool
	for _, ev := range r.events {
		if st, ok := ev.(bus.SetTalking); ok {
			out = append(out, st.Talking)
		}
	}
	return out
}

type fakeTTS struct {
	err   error
	panic bool
	got   *tts.SynthesizeRequest
}

func (f *fakeTTS) Name() string                     { return "fake" }
func (f *fakeTTS) Health(ctx context.Context) error { return nil }

func (f *fakeTTS) Synthesize(ctx context.Context, req *tts.SynthesizeRequest) (*tts.SynthesizeResponse, error) {
	f.got = req
	if f.panic {
		panic("decoder exploded")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &tts.SynthesizeResponse{Audio: []byte("mp3"), Format: "mp3"}, nil
}

type fakePlayer struct {
	err     error
	played  string
	existed bool
}

func (f *fakePlayer) Name() string { return "fake" }

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	f.played = path
	_, err := os.Stat(path)
	f.existed = err == nil
	return f.err
}

func TestSpeak_BracketsWithTalkingEvents(t *testing.T) {
	sender := &recordingSender{}
	provider := &fakeTTS{}
	player := &fakePlayer{}
	s := NewSpeech(provider, player, sender, zerolog.Nop())

	params := tts.VoiceParams{Voice: "ja-JP-NanamiNeural", Rate: "+10%", Pitch: "+25Hz"}
	ok, msg := s.Speak(context.Background(), "  hello  ", params)

	assert.True(t, ok)
	assert.Empty(t, msg)
	assert.Equal(t, []bool{true, false}, sender.talking())
	assert.Equal(t, "hello", provider.got.Text)
	assert.Equal(t, params, provider.got.Voice)
	assert.True(t, player.existed)

	_, err := os.Stat(player.played)
	assert.True(t, os.IsNotExist(err), "temp audio is removed after playback")
}

func TestSpeak_EmptyTextSendsNothing(t *testing.T) {
	sender := &recordingSender{}
	provider := &fakeTTS{}
	s := NewSpeech(provider, &fakePlayer{}, sender, zerolog.Nop())

	for _, text := range []string{"", "   ", "\n\t"} {
		ok, msg := s.Speak(context.Background(), text, tts.VoiceParams{})
		assert.True(t, ok)
		assert.Empty(t, msg)
	}
	assert.Empty(t, sender.events)
	assert.Nil(t, provider.got)
}

func TestSpeak_FailuresStillEndTalking(t *testing.T) {
	tests := []struct {
		name     string
		provider *fakeTTS
		player   *fakePlayer
		wantMsg  string
	}{
		{"synthesis error", &fakeTTS{err: errors.New("service down")}, &fakePlayer{}, "service down"},
		{"synthesis panic", &fakeTTS{panic: true}, &fakePlayer{}, "decoder exploded"},
		{"player missing", &fakeTTS{}, &fakePlayer{err: errors.New("mpv is not installed")}, "mpv is not installed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			s := NewSpeech(tt.provider, tt.player, sender, zerolog.Nop())

			ok, msg := s.Speak(context.Background(), "hello", tts.VoiceParams{})

			assert.False(t, ok)
			assert.Contains(t, msg, tt.wantMsg)
			assert.Equal(t, []bool{true, false}, sender.talking())
		})
	}
}

type fakeLLM struct {
	name  string
	reply string
	err   error
	panic bool
	got   *llm.ChatRequest
}

func (f *fakeLLM) Name() string { return f.name }

func (f *fakeLLM) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	f.got = req
	if f.panic {
		panic("backend blew up")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &llm.ChatResponse{Content: f.reply, Model: req.Model}, nil
}

func TestReply(t *testing.T) {
	provider := &fakeLLM{name: "ollama", reply: "<think>the user greets me</think>\nHi there, nya~ "}
	w := NewInference(provider, "persona", zerolog.Nop())

	got := w.Reply(context.Background(), " hello ", "qwen2.5:3b")

	assert.Equal(t, "Hi there, nya~", got)
	require.NotNil(t, provider.got)
	assert.Equal(t, "qwen2.5:3b", provider.got.Model)
	assert.Equal(t, "persona", provider.got.SystemPrompt)
	assert.Equal(t, "hello", provider.got.UserText)
}

func TestReply_EmptyPromptSkipsModel(t *testing.T) {
	provider := &fakeLLM{name: "ollama"}
	w := NewInference(provider, "", zerolog.Nop())

	assert.Equal(t, EmptyPromptReply, w.Reply(context.Background(), "  ", "m"))
	assert.Nil(t, provider.got)
}

func TestReply_FailureBecomesTroubleshootingText(t *testing.T) {
	w := NewInference(&fakeLLM{name: "ollama", err: errors.New("connection refused")}, "", zerolog.Nop())

	got := w.Reply(context.Background(), "hello", "llama3.1:8b")

	assert.Contains(t, got, "Ollama")
	assert.Contains(t, got, "ollama pull llama3.1:8b")
	assert.Contains(t, got, "connection refused")

	w = NewInference(&fakeLLM{name: "openai", err: errors.New("401")}, "", zerolog.Nop())
	got = w.Reply(context.Background(), "hello", "gpt-4o-mini")
	assert.Contains(t, got, "llm.api_key")
	assert.Contains(t, got, "401")
}

func TestReply_PanicBecomesTroubleshootingText(t *testing.T) {
	w := NewInference(&fakeLLM{name: "ollama", panic: true}, "", zerolog.Nop())

	var got string
	require.NotPanics(t, func() {
		got = w.Reply(context.Background(), "hi", "qwen2.5:3b")
	})

	assert.Contains(t, got, "ollama pull qwen2.5:3b")
	assert.Contains(t, got, "internal error: backend blew up")
}

func TestSpeakableText(t *testing.T) {
	in := "<thinking>plan</thinking>\n# Title\n**Bold** and `code`\n- see [docs](http://x)\n\n• done"
	assert.Equal(t, "Title Bold and code see docs done", SpeakableText(in))
}

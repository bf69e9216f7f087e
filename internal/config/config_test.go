package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeJSON(t *testing.T, path string, doc map[string]any) {
	t.Helper()
	data, err := json.MarshalIndent(doc, "", "  ")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, 110*time.Millisecond, cfg.TickInterval())
	assert.Equal(t, "bottom_right", cfg.Position)
	assert.Equal(t, avatar.DefaultBlinkConfig(), cfg.AvatarBlink())

	x, y := cfg.MarginXY()
	assert.Equal(t, 20, x)
	assert.Equal(t, 20, y)
}

func TestLoad_WritesDefaultsWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	l := NewLoader(path, zerolog.Nop())

	cfg, err := l.Load()
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err, "default config file should be created")

	assert.Equal(t, 0.55, cfg.Scale)
	assert.True(t, cfg.AlwaysOnTop)
	assert.Equal(t, []string{"assets/Open Eyes Closed Mouth.png"}, cfg.Frames.Idle)
	assert.Len(t, cfg.Frames.Talk, 2)
	assert.Equal(t, 2500, cfg.Blink.MinMs)

	// Load again to test reading existing file
	cfg2, err := NewLoader(path, zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Equal(t, cfg, cfg2)
}

func TestLoad_DefaultsDoNotCaptureEnvironment(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "sk-secret")
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := NewLoader(path, zerolog.Nop()).Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-secret", cfg.LLM.APIKey)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "sk-secret")
}

func TestLoad_PartialFileUsesDefaultsAndBlinkFallback(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeJSON(t, path, map[string]any{
		"scale": 1.0,
		"frames": map[string]any{
			"idle":  []string{"idle.png"},
			"blink": []string{"blink.png"},
		},
	})

	cfg, err := NewLoader(path, zerolog.Nop()).Load()
	require.NoError(t, err)

	assert.Equal(t, 1.0, cfg.Scale)
	assert.Equal(t, 110, cfg.FPSMs)
	assert.Empty(t, cfg.Frames.Talk)

	idle, talk := cfg.Frames.ResolvedBlink()
	assert.Equal(t, []string{"blink.png"}, idle)
	assert.Equal(t, []string{"blink.png"}, talk)
}

func TestResolvedBlink_SpecificListsWin(t *testing.T) {
	f := FramesConfig{
		Blink:     []string{"generic.png"},
		BlinkTalk: []string{"talk.png"},
	}

	idle, talk := f.ResolvedBlink()
	assert.Equal(t, []string{"generic.png"}, idle)
	assert.Equal(t, []string{"talk.png"}, talk)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	t.Setenv("DESKAVATAR_SCALE", "0.8")
	t.Setenv("DESKAVATAR_LLM_MODEL", "llama3.1:8b")

	cfg, err := NewLoader(path, zerolog.Nop()).Load()
	require.NoError(t, err)

	assert.Equal(t, 0.8, cfg.Scale)
	assert.Equal(t, "llama3.1:8b", cfg.LLM.Model)
}

func TestLoad_InvalidBlinkRange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeJSON(t, path, map[string]any{
		"frames": map[string]any{"idle": []string{"idle.png"}},
		"blink":  map[string]any{"enabled": true, "min_ms": 5000, "max_ms": 1000, "duration_ms": 120},
	})

	_, err := NewLoader(path, zerolog.Nop()).Load()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalid)
	assert.ErrorIs(t, err, avatar.ErrInvalidBlink)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero scale", func(c *Config) { c.Scale = 0 }},
		{"zero fps", func(c *Config) { c.FPSMs = 0 }},
		{"unknown position", func(c *Config) { c.Position = "center" }},
		{"short margin", func(c *Config) { c.Margin = []int{5} }},
		{"negative duration", func(c *Config) { c.Blink.DurationMs = -1 }},
		{"unknown tts provider", func(c *Config) { c.TTS.Provider = "nope" }},
		{"unknown player", func(c *Config) { c.TTS.Player = "vlc" }},
		{"unknown llm provider", func(c *Config) { c.LLM.Provider = "nope" }},
		{"negative timeout", func(c *Config) { c.LLM.TimeoutMs = -5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
		})
	}
}

func TestBlinkConfig_Avatar(t *testing.T) {
	b := BlinkConfig{Enabled: true, MinMs: 1000, MaxMs: 1000, DurationMs: 80}

	assert.Equal(t, avatar.BlinkConfig{
		Enabled:     true,
		MinInterval: time.Second,
		MaxInterval: time.Second,
		Duration:    80 * time.Millisecond,
	}, b.Avatar())
}

func TestWatch_ReportsChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	l := NewLoader(path, zerolog.Nop())
	_, err := l.Load()
	require.NoError(t, err)

	var latest atomic.Pointer[Config]
	l.Watch(func(cfg *Config, err error) {
		if err == nil {
			latest.Store(cfg)
		}
	})

	writeJSON(t, path, map[string]any{
		"frames": map[string]any{"idle": []string{"idle.png"}},
		"blink":  map[string]any{"enabled": false, "min_ms": 100, "max_ms": 200, "duration_ms": 50},
	})

	assert.Eventually(t, func() bool {
		cfg := latest.Load()
		return cfg != nil && !cfg.Blink.Enabled && cfg.Blink.MaxMs == 200
	}, 5*time.Second, 20*time.Millisecond)
}

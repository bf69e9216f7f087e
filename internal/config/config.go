// Package config provides configuration management for deskavatar
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
)

// DefaultPath is the config file read when no path is given.
const DefaultPath = "config.json"

// EnvPrefix prefixes environment overrides, e.g. DESKAVATAR_SCALE=0.8.
const EnvPrefix = "DESKAVATAR"

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Positions accepted by the position field.
var Positions = []string{"bottom_right", "bottom_left", "top_right", "top_left"}

// Config holds all application configuration
type Config struct {
	Scale        float64      `mapstructure:"scale"`
	ClickThrough bool         `mapstructure:"click_through"`
	AlwaysOnTop  bool         `mapstructure:"always_on_top"`
	Position     string       `mapstructure:"position"`
	Margin       []int        `mapstructure:"margin"`
	FPSMs        int          `mapstructure:"fps_ms"`
	Frames       FramesConfig `mapstructure:"frames"`
	Blink        BlinkConfig  `mapstructure:"blink"`
	Log          LogConfig    `mapstructure:"log"`
	TTS          TTSConfig    `mapstructure:"tts"`
	LLM          LLMConfig    `mapstructure:"llm"`
	IPC          IPCConfig    `mapstructure:"ipc"`
}

// FramesConfig lists image paths per frame category. Blink is a shared
// fallback for BlinkIdle and BlinkTalk.
type FramesConfig struct {
	Idle      []string `mapstructure:"idle"`
	Talk      []string `mapstructure:"talk"`
	Blink     []string `mapstructure:"blink"`
	BlinkIdle []string `mapstructure:"blink_idle"`
	BlinkTalk []string `mapstructure:"blink_talk"`
}

// BlinkConfig configures random blinking
type BlinkConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	MinMs      int  `mapstructure:"min_ms"`
	MaxMs      int  `mapstructure:"max_ms"`
	DurationMs int  `mapstructure:"duration_ms"`
}

// LogConfig configures logging
type LogConfig struct {
	Level   string `mapstructure:"level"`
	Dir     string `mapstructure:"dir"` // empty disables the log file
	Console bool   `mapstructure:"console"`
}

// TTSConfig configures text-to-speech and playback
type TTSConfig struct {
	Provider string `mapstructure:"provider"` // edge, openai, command
	Voice    string `mapstructure:"voice"`
	Rate     string `mapstructure:"rate"`   // e.g. +10%
	Pitch    string `mapstructure:"pitch"`  // e.g. +25Hz
	Volume   string `mapstructure:"volume"` // e.g. +0%
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`   // openai only
	Command  string `mapstructure:"command"` // command provider binary, empty picks say or espeak-ng
	Player   string `mapstructure:"player"`  // auto, beep, mpv
	// TimeoutMs bounds one synthesis call; 0 means no timeout.
	TimeoutMs int `mapstructure:"timeout_ms"`
}

// LLMConfig configures the language model backend
type LLMConfig struct {
	Provider     string `mapstructure:"provider"` // ollama, openai
	Model        string `mapstructure:"model"`
	BaseURL      string `mapstructure:"base_url"` // empty picks the provider default
	APIKey       string `mapstructure:"api_key"`
	SystemPrompt string `mapstructure:"system_prompt"`
	// TimeoutMs bounds one chat call; 0 means no timeout.
	TimeoutMs int `mapstructure:"timeout_ms"`
}

// IPCConfig configures the local control socket
type IPCConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	SocketPath string `mapstructure:"socket_path"`
}

// DefaultSystemPrompt is the persona used when none is configured.
const DefaultSystemPrompt = `You are Nya, an anime-style desktop assistant.
Personality: cute, direct, helpful, lightly humorous.
Rules:
- Keep answers short (at most 6 lines) unless asked for detail.
- If asked to run something on the computer, ask for confirmation first.`

// DefaultConfig returns sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Scale:        0.55,
		ClickThrough: false,
		AlwaysOnTop:  true,
		Position:     "bottom_right",
		Margin:       []int{20, 20},
		FPSMs:        110,
		Frames: FramesConfig{
			Idle: []string{"assets/Open Eyes Closed Mouth.png"},
			Talk: []string{
				"assets/Open Eyes Open Mouth.png",
				"assets/Open Eyes Closed Mouth.png",
			},
			BlinkIdle: []string{"assets/Closed Eyes Closed Mouth.png"},
			BlinkTalk: []string{"assets/Closed Eyes Open Mouth.png"},
		},
		Blink: BlinkConfig{
			Enabled:    true,
			MinMs:      2500,
			MaxMs:      6000,
			DurationMs: 120,
		},
		Log: LogConfig{
			Level:   "info",
			Dir:     defaultLogDir(),
			Console: true,
		},
		TTS: TTSConfig{
			Provider: "edge",
			Voice:    "ja-JP-NanamiNeural",
			Rate:     "+10%",
			Pitch:    "+25Hz",
			Volume:   "+0%",
			Model:    "tts-1",
			Player:   "auto",
		},
		LLM: LLMConfig{
			Provider:     "ollama",
			Model:        "qwen2.5:3b",
			SystemPrompt: DefaultSystemPrompt,
		},
		IPC: IPCConfig{
			Enabled:    true,
			SocketPath: filepath.Join(os.TempDir(), "deskavatar.sock"),
		},
	}
}

func defaultLogDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(homeDir, ".deskavatar", "logs")
}

// TickInterval returns fps_ms as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.FPSMs) * time.Millisecond
}

// MarginXY returns the x and y margins.
func (c *Config) MarginXY() (int, int) {
	if len(c.Margin) < 2 {
		return 20, 20
	}
	return c.Margin[0], c.Margin[1]
}

// AvatarBlink converts blink settings for the state machine.
func (c *Config) AvatarBlink() avatar.BlinkConfig {
	return c.Blink.Avatar()
}

// Avatar converts blink settings for the state machine.
func (b BlinkConfig) Avatar() avatar.BlinkConfig {
	return avatar.BlinkConfig{
		Enabled:     b.Enabled,
		MinInterval: time.Duration(b.MinMs) * time.Millisecond,
		MaxInterval: time.Duration(b.MaxMs) * time.Millisecond,
		Duration:    time.Duration(b.DurationMs) * time.Millisecond,
	}
}

// ResolvedBlink returns the blink paths per mode with the generic blink list
// filling in whichever mode-specific list is empty.
func (f FramesConfig) ResolvedBlink() (idle, talk []string) {
	idle, talk = f.BlinkIdle, f.BlinkTalk
	if len(idle) == 0 {
		idle = f.Blink
	}
	if len(talk) == 0 {
		talk = f.Blink
	}
	return idle, talk
}

// Validate checks field ranges and enumerations.
func (c *Config) Validate() error {
	var errs []error
	if c.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale must be positive, got %v", c.Scale))
	}
	if c.FPSMs <= 0 {
		errs = append(errs, fmt.Errorf("fps_ms must be positive, got %d", c.FPSMs))
	}
	if !slices.Contains(Positions, c.Position) {
		errs = append(errs, fmt.Errorf("position %q is not one of %s", c.Position, strings.Join(Positions, ", ")))
	}
	if len(c.Margin) != 2 {
		errs = append(errs, fmt.Errorf("margin must have 2 values, got %d", len(c.Margin)))
	}
	if err := c.AvatarBlink().Validate(); err != nil {
		errs = append(errs, fmt.Errorf("blink: %w", err))
	}
	if !slices.Contains([]string{"edge", "openai", "command"}, c.TTS.Provider) {
		errs = append(errs, fmt.Errorf("tts.provider %q is not supported", c.TTS.Provider))
	}
	if !slices.Contains([]string{"auto", "beep", "mpv"}, c.TTS.Player) {
		errs = append(errs, fmt.Errorf("tts.player %q is not supported", c.TTS.Player))
	}
	if !slices.Contains([]string{"ollama", "openai"}, c.LLM.Provider) {
		errs = append(errs, fmt.Errorf("llm.provider %q is not supported", c.LLM.Provider))
	}
	if c.TTS.TimeoutMs < 0 || c.LLM.TimeoutMs < 0 {
		errs = append(errs, errors.New("timeouts must not be negative"))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
}

// Loader reads, writes and watches one config file.
type Loader struct {
	v      *viper.Viper
	path   string
	logger zerolog.Logger
}

// NewLoader creates a loader for path; empty path means DefaultPath.
func NewLoader(path string, logger zerolog.Logger) *Loader {
	if path == "" {
		path = DefaultPath
	}
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	// Environment variable overrides
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("llm.api_key", EnvPrefix+"_LLM_API_KEY", "OPENAI_API_KEY")
	_ = v.BindEnv("tts.api_key", EnvPrefix+"_TTS_API_KEY", "OPENAI_API_KEY")

	setDefaults(v, DefaultConfig(), false)

	return &Loader{
		v:      v,
		path:   path,
		logger: logger.With().Str("component", "config").Logger(),
	}
}

// Path returns the config file path.
func (l *Loader) Path() string {
	return l.path
}

// Load reads the config file, writing defaults first if it does not exist.
func (l *Loader) Load() (*Config, error) {
	if _, err := os.Stat(l.path); errors.Is(err, os.ErrNotExist) {
		if err := l.writeDefaults(); err != nil {
			return nil, err
		}
		l.logger.Info().Str("path", l.path).Msg("wrote default config")
	}

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", l.path, err)
	}
	return l.decode()
}

// AllSettings returns the merged settings as a nested map.
func (l *Loader) AllSettings() map[string]any {
	return l.v.AllSettings()
}

// Watch calls fn with the re-read config after every change to the file.
// fn runs on the watcher goroutine.
func (l *Loader) Watch(fn func(*Config, error)) {
	l.v.OnConfigChange(func(e fsnotify.Event) {
		l.logger.Debug().Str("file", e.Name).Str("op", e.Op.String()).Msg("config file changed")
		fn(l.decode())
	})
	l.v.WatchConfig()
}

func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	if err := l.v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (l *Loader) writeDefaults() error {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create config dir: %w", err)
		}
	}
	// A separate instance keeps environment overrides out of the file.
	w := viper.New()
	w.SetConfigType("json")
	setDefaults(w, DefaultConfig(), true)
	if err := w.WriteConfigAs(l.path); err != nil {
		return fmt.Errorf("write default config: %w", err)
	}
	return nil
}

// setDefaults registers every key. Frame lists are only written to a fresh
// file: a config that names its own frames must not inherit default paths,
// or the generic blink fallback would never apply.
func setDefaults(v *viper.Viper, cfg *Config, withFrames bool) {
	v.SetDefault("scale", cfg.Scale)
	v.SetDefault("click_through", cfg.ClickThrough)
	v.SetDefault("always_on_top", cfg.AlwaysOnTop)
	v.SetDefault("position", cfg.Position)
	v.SetDefault("margin", cfg.Margin)
	v.SetDefault("fps_ms", cfg.FPSMs)

	if withFrames {
		v.SetDefault("frames.idle", cfg.Frames.Idle)
		v.SetDefault("frames.talk", cfg.Frames.Talk)
		v.SetDefault("frames.blink_idle", cfg.Frames.BlinkIdle)
		v.SetDefault("frames.blink_talk", cfg.Frames.BlinkTalk)
	}

	v.SetDefault("blink.enabled", cfg.Blink.Enabled)
	v.SetDefault("blink.min_ms", cfg.Blink.MinMs)
	v.SetDefault("blink.max_ms", cfg.Blink.MaxMs)
	v.SetDefault("blink.duration_ms", cfg.Blink.DurationMs)

	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.dir", cfg.Log.Dir)
	v.SetDefault("log.console", cfg.Log.Console)

	v.SetDefault("tts.provider", cfg.TTS.Provider)
	v.SetDefault("tts.voice", cfg.TTS.Voice)
	v.SetDefault("tts.rate", cfg.TTS.Rate)
	v.SetDefault("tts.pitch", cfg.TTS.Pitch)
	v.SetDefault("tts.volume", cfg.TTS.Volume)
	v.SetDefault("tts.model", cfg.TTS.Model)
	v.SetDefault("tts.command", cfg.TTS.Command)
	v.SetDefault("tts.player", cfg.TTS.Player)
	v.SetDefault("tts.timeout_ms", cfg.TTS.TimeoutMs)

	v.SetDefault("llm.provider", cfg.LLM.Provider)
	v.SetDefault("llm.model", cfg.LLM.Model)
	v.SetDefault("llm.base_url", cfg.LLM.BaseURL)
	v.SetDefault("llm.system_prompt", cfg.LLM.SystemPrompt)
	v.SetDefault("llm.timeout_ms", cfg.LLM.TimeoutMs)

	v.SetDefault("ipc.enabled", cfg.IPC.Enabled)
	v.SetDefault("ipc.socket_path", cfg.IPC.SocketPath)
}

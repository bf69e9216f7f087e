// Package tts provides Text-to-Speech synthesis services for deskavatar.
package tts

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Common errors
var (
	ErrProviderUnavailable = errors.New("TTS provider unavailable")
	ErrEmptyAudio          = errors.New("synthesis produced no audio")
	ErrEmptyText           = errors.New("nothing to synthesize")
)

// Provider is the interface all TTS providers must implement
type Provider interface {
	// Name returns the provider identifier (e.g., "edge", "openai")
	Name() string

	// Synthesize converts text to audio
	Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error)

	// Health checks if the provider is available
	Health(ctx context.Context) error
}

// VoiceParams are the speech settings owned by the controller and
// snapshotted into every request. Rate, Pitch and Volume use relative
// notation: "+10%", "-5%", "+25Hz".
type VoiceParams struct {
	Voice  string `json:"voice"`
	Rate   string `json:"rate"`
	Pitch  string `json:"pitch"`
	Volume string `json:"volume"`
}

// With returns a copy with every non-empty field of patch applied.
func (v VoiceParams) With(patch VoiceParams) VoiceParams {
	if patch.Voice != "" {
		v.Voice = patch.Voice
	}
	if patch.Rate != "" {
		v.Rate = patch.Rate
	}
	if patch.Pitch != "" {
		v.Pitch = patch.Pitch
	}
	if patch.Volume != "" {
		v.Volume = patch.Volume
	}
	return v
}

// SynthesizeRequest represents a synthesis request
type SynthesizeRequest struct {
	Text  string      `json:"text"`
	Voice VoiceParams `json:"voice"`
}

// SynthesizeResponse represents a synthesis result
type SynthesizeResponse struct {
	Audio          []byte        `json:"audio"`           // Encoded audio
	Format         string        `json:"format"`          // mp3, wav
	ProcessingTime time.Duration `json:"processing_time"` // How long synthesis took
	Voice          string        `json:"voice"`           // Voice used
	Provider       string        `json:"provider"`        // Provider name
}

// WriteTemp stores the audio in a new temporary file named after its format
// and returns the path. The caller removes it.
func (r *SynthesizeResponse) WriteTemp() (string, error) {
	if len(r.Audio) == 0 {
		return "", ErrEmptyAudio
	}
	f, err := os.CreateTemp("", "deskavatar-tts-*."+r.Format)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	path := f.Name()
	if _, err := f.Write(r.Audio); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("close temp file: %w", err)
	}
	return path, nil
}

// ParsePercent parses "+10%" or "-5" into 10 or -5. Empty means 0.
func ParsePercent(s string) (float64, error) {
	return parseRelative(s, "%")
}

// ParseHertz parses "+25Hz" into 25. Empty means 0.
func ParseHertz(s string) (float64, error) {
	return parseRelative(s, "Hz")
}

func parseRelative(s, unit string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	s = strings.TrimSuffix(s, unit)
	s = strings.TrimSuffix(s, strings.ToLower(unit))
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %q as relative %s: %w", s, unit, err)
	}
	return v, nil
}

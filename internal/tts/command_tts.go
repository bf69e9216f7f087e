package tts

import (
	"context"
	"fmt"
	"math"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// CommandProvider implements TTS with a local speech command: macOS 'say'
// or espeak-ng elsewhere. It works offline and writes WAV.
type CommandProvider struct {
	logger zerolog.Logger
	config *CommandConfig
}

// CommandConfig holds command TTS configuration
type CommandConfig struct {
	Command  string `json:"command"`   // say or espeak-ng; empty picks by OS
	BaseRate int    `json:"base_rate"` // Words per minute at rate +0%
}

// DefaultCommandConfig returns the platform command with a natural rate.
func DefaultCommandConfig() *CommandConfig {
	cmd := "espeak-ng"
	if runtime.GOOS == "darwin" {
		cmd = "say"
	}
	return &CommandConfig{
		Command:  cmd,
		BaseRate: 175,
	}
}

// NewCommandProvider creates a new command TTS provider
func NewCommandProvider(logger zerolog.Logger, config *CommandConfig) *CommandProvider {
	def := DefaultCommandConfig()
	if config == nil {
		config = def
	}
	if config.Command == "" {
		config.Command = def.Command
	}
	if config.BaseRate <= 0 {
		config.BaseRate = def.BaseRate
	}

	return &CommandProvider{
		logger: logger.With().Str("provider", "command-tts").Str("command", config.Command).Logger(),
		config: config,
	}
}

// Name returns the provider identifier
func (p *CommandProvider) Name() string {
	return "command"
}

// Health checks that the command is on PATH
func (p *CommandProvider) Health(ctx context.Context) error {
	if _, err := exec.LookPath(p.config.Command); err != nil {
		return fmt.Errorf("%w: %s not found on PATH", ErrProviderUnavailable, p.config.Command)
	}
	return nil
}

// Synthesize runs the command into a temporary WAV file and returns its bytes.
func (p *CommandProvider) Synthesize(ctx context.Context, req *SynthesizeRequest) (*SynthesizeResponse, error) {
	if err := p.Health(ctx); err != nil {
		return nil, err
	}

	startTime := time.Now()

	tmpFile, err := os.CreateTemp("", "deskavatar-cmd-*.wav")
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	args := p.args(req, tmpPath)

	p.logger.Debug().
		Str("voice", req.Voice.Voice).
		Int("textLen", len(req.Text)).
		Msg("Synthesizing with command TTS")

	cmd := exec.CommandContext(ctx, p.config.Command, args...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		p.logger.Error().
			Err(err).
			Str("output", string(output)).
			Msg("command TTS failed")
		return nil, fmt.Errorf("%s failed: %w", p.config.Command, err)
	}

	audioData, err := os.ReadFile(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("read audio file: %w", err)
	}
	if len(audioData) == 0 {
		return nil, ErrEmptyAudio
	}

	processingTime := time.Since(startTime)
	p.logger.Info().
		Int("audioBytes", len(audioData)).
		Dur("processingTime", processingTime).
		Msg("command TTS synthesis complete")

	return &SynthesizeResponse{
		Audio:          audioData,
		Format:         "wav",
		ProcessingTime: processingTime,
		Voice:          req.Voice.Voice,
		Provider:       p.Name(),
	}, nil
}

// args builds the command line. Edge-style voice names such as
// ja-JP-NanamiNeural are not passed to 'say', which would reject them.
func (p *CommandProvider) args(req *SynthesizeRequest, out string) []string {
	wpm := p.wordsPerMinute(req.Voice.Rate)

	if p.config.Command == "say" {
		args := []string{"--file-format=WAVE", "--data-format=LEI16@22050", "-o", out}
		if v := req.Voice.Voice; v != "" && !isEdgeVoice(v) {
			args = append(args, "-v", v)
		}
		if wpm != p.config.BaseRate {
			args = append(args, "-r", strconv.Itoa(wpm))
		}
		return append(args, "--", req.Text)
	}

	args := []string{"-w", out, "-s", strconv.Itoa(wpm)}
	if v := req.Voice.Voice; v != "" && !isEdgeVoice(v) {
		args = append(args, "-v", v)
	}
	if hz, err := ParseHertz(req.Voice.Pitch); err == nil && hz != 0 {
		// espeak pitch is 0-99 around 50; treat 1 Hz as one step.
		args = append(args, "-p", strconv.Itoa(min(99, max(0, 50+int(hz)))))
	}
	return append(args, "--", req.Text)
}

func (p *CommandProvider) wordsPerMinute(rate string) int {
	pct, err := ParsePercent(rate)
	if err != nil {
		p.logger.Warn().Err(err).Msg("ignoring rate")
		return p.config.BaseRate
	}
	return max(80, int(math.Round(float64(p.config.BaseRate)*(1+pct/100))))
}

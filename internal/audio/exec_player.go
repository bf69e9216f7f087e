package audio

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"

	"github.com/rs/zerolog"
)

// DefaultMPVArgs play audio only, without terminal output.
var DefaultMPVArgs = []string{"--no-video", "--really-quiet"}

// ExecPlayer plays files with an external command, mpv by default.
type ExecPlayer struct {
	logger zerolog.Logger
	config *ExecConfig
}

// ExecConfig holds external player configuration
type ExecConfig struct {
	Command string   `json:"command"`
	Args    []string `json:"args"` // placed before the file path
}

// NewExecPlayer creates an external command player; nil config means mpv.
func NewExecPlayer(logger zerolog.Logger, config *ExecConfig) *ExecPlayer {
	if config == nil {
		config = &ExecConfig{Command: "mpv", Args: DefaultMPVArgs}
	}
	return &ExecPlayer{
		logger: logger.With().Str("player", config.Command).Logger(),
		config: config,
	}
}

// Name returns the player identifier
func (p *ExecPlayer) Name() string {
	return p.config.Command
}

// Play runs the command on path and waits for it to exit.
func (p *ExecPlayer) Play(ctx context.Context, path string) error {
	bin, err := exec.LookPath(p.config.Command)
	if err != nil {
		return fmt.Errorf("%w: %s is not installed (%s)", ErrPlayerNotFound, p.config.Command, installHint(p.config.Command))
	}

	args := append(append([]string(nil), p.config.Args...), path)
	cmd := exec.CommandContext(ctx, bin, args...)

	p.logger.Debug().Str("path", path).Msg("playing")

	output, err := cmd.CombinedOutput()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		p.logger.Error().Err(err).Str("output", string(output)).Msg("player failed")
		return fmt.Errorf("%s failed: %w", p.config.Command, err)
	}
	return nil
}

func installHint(command string) string {
	if command != "mpv" {
		return "install it and make sure it is on PATH"
	}
	switch runtime.GOOS {
	case "windows":
		return "install with: winget install mpv"
	case "darwin":
		return "install with: brew install mpv"
	}
	return "install with your package manager, e.g. sudo apt install mpv"
}

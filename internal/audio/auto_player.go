package audio

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

// AutoPlayer plays with primary and falls back when primary cannot handle
// the file or has no device. Playback errors and cancellation are returned
// as is.
type AutoPlayer struct {
	primary  Player
	fallback Player
	logger   zerolog.Logger
}

// NewAutoPlayer creates a player with a fallback
func NewAutoPlayer(logger zerolog.Logger, primary, fallback Player) *AutoPlayer {
	return &AutoPlayer{
		primary:  primary,
		fallback: fallback,
		logger:   logger.With().Str("player", "auto").Logger(),
	}
}

// Name returns the player identifier
func (p *AutoPlayer) Name() string {
	return "auto"
}

// Play implements Player.
func (p *AutoPlayer) Play(ctx context.Context, path string) error {
	err := p.primary.Play(ctx, path)
	if err == nil || !(errors.Is(err, ErrUnsupportedFormat) || errors.Is(err, ErrDeviceUnavailable)) {
		return err
	}
	p.logger.Warn().Err(err).Str("fallback", p.fallback.Name()).Msg("primary player unavailable")
	return p.fallback.Play(ctx, path)
}

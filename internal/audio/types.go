// Package audio plays synthesized speech files for deskavatar.
package audio

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Common errors
var (
	ErrPlayerNotFound    = errors.New("audio player not found")
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	ErrDeviceUnavailable = errors.New("audio device unavailable")
)

// Player plays an audio file to completion. Play blocks until playback ends
// or ctx is done, whichever is first.
type Player interface {
	Name() string
	Play(ctx context.Context, path string) error
}

// NewPlayer builds the player named by kind: beep, mpv or auto.
func NewPlayer(kind string, logger zerolog.Logger) (Player, error) {
	switch kind {
	case "beep":
		return NewBeepPlayer(logger), nil
	case "mpv":
		return NewExecPlayer(logger, nil), nil
	case "auto", "":
		return NewAutoPlayer(logger, NewBeepPlayer(logger), NewExecPlayer(logger, nil)), nil
	}
	return nil, fmt.Errorf("%w: unknown player %q", ErrPlayerNotFound, kind)
}

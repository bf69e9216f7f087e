// Package worker runs speech and inference off the UI thread. Workers talk
// to the UI only by sending events.
package worker

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/normanking/deskavatar/internal/audio"
	"github.com/normanking/deskavatar/internal/bus"
	"github.com/normanking/deskavatar/internal/tts"
	"github.com/rs/zerolog"
)

// Sender accepts events for the UI thread. *bus.Bridge implements it.
type Sender interface {
	Send(ev bus.Event) bool
}

// Speech synthesizes text and plays it, bracketing playback with
// SetTalking events.
type Speech struct {
	provider tts.Provider
	player   audio.Player
	sender   Sender
	logger   zerolog.Logger
}

// NewSpeech creates a speech worker
func NewSpeech(provider tts.Provider, player audio.Player, sender Sender, logger zerolog.Logger) *Speech {
	return &Speech{
		provider: provider,
		player:   player,
		sender:   sender,
		logger:   logger.With().Str("component", "speech").Logger(),
	}
}

// Speak blocks until playback ends. Empty text is a successful no-op that
// sends nothing. Otherwise exactly one SetTalking{true} is sent before any
// work and one SetTalking{false} after, even if synthesis or playback fails
// or panics. On failure ok is false and msg describes the problem.
func (s *Speech) Speak(ctx context.Context, text string, params tts.VoiceParams) (ok bool, msg string) {
	text = strings.TrimSpace(text)
	if text == "" {
		return true, ""
	}

	jobID := uuid.NewString()[:8]
	log := s.logger.With().Str("job", jobID).Logger()

	s.sender.Send(bus.SetTalking{Talking: true})
	defer s.sender.Send(bus.SetTalking{Talking: false})
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("speech worker panicked")
			ok, msg = false, fmt.Sprintf("internal error: %v", r)
		}
	}()

	start := time.Now()
	if err := s.speak(ctx, log, text, params); err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("speech failed")
		return false, err.Error()
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("speech complete")
	return true, ""
}

func (s *Speech) speak(ctx context.Context, log zerolog.Logger, text string, params tts.VoiceParams) error {
	log.Debug().
		Str("voice", params.Voice).
		Str("provider", s.provider.Name()).
		Int("textLen", len(text)).
		Msg("Starting TTS synthesis")

	resp, err := s.provider.Synthesize(ctx, &tts.SynthesizeRequest{Text: text, Voice: params})
	if err != nil {
		return fmt.Errorf("synthesize: %w", err)
	}

	path, err := resp.WriteTemp()
	if err != nil {
		return err
	}
	defer os.Remove(path)

	if err := s.player.Play(ctx, path); err != nil {
		return fmt.Errorf("play: %w", err)
	}
	return nil
}

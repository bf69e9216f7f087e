package audio

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/mp3"
	"github.com/gopxl/beep/speaker"
	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog"
)

const (
	sampleRate = beep.SampleRate(48000)
	// bufferLatency is the speaker buffer. Samples are mixed this far ahead
	// of what is heard.
	bufferLatency = 100 * time.Millisecond
)

// BeepPlayer decodes MP3 and WAV in process and plays through the default
// output device. The speaker is initialized on first use.
type BeepPlayer struct {
	logger zerolog.Logger

	initOnce sync.Once
	initErr  error
}

// NewBeepPlayer creates an in-process player
func NewBeepPlayer(logger zerolog.Logger) *BeepPlayer {
	return &BeepPlayer{
		logger: logger.With().Str("player", "beep").Logger(),
	}
}

// Name returns the player identifier
func (p *BeepPlayer) Name() string {
	return "beep"
}

func (p *BeepPlayer) initialize() error {
	p.initOnce.Do(func() {
		if err := speaker.Init(sampleRate, sampleRate.N(bufferLatency)); err != nil {
			p.initErr = fmt.Errorf("%w: %v", ErrDeviceUnavailable, err)
		}
	})
	return p.initErr
}

// Play decodes path and blocks until the last sample has left the speaker
// buffer or ctx is done.
func (p *BeepPlayer) Play(ctx context.Context, path string) error {
	streamer, format, err := decodeFile(path)
	if err != nil {
		return err
	}
	defer streamer.Close()

	if err := p.initialize(); err != nil {
		return err
	}

	var source beep.Streamer = streamer
	if format.SampleRate != sampleRate {
		source = beep.Resample(4, format.SampleRate, sampleRate, streamer)
	}

	done := make(chan struct{})
	ctrl := &beep.Ctrl{Streamer: source}
	speaker.Play(beep.Seq(ctrl, beep.Callback(func() { close(done) })))

	p.logger.Debug().
		Str("path", path).
		Int("sampleRate", int(format.SampleRate)).
		Int("samples", streamer.Len()).
		Msg("playing")

	select {
	case <-done:
		return waitTail(ctx, bufferLatency)
	case <-ctx.Done():
		// A nil streamer ends the Ctrl, which lets the callback run.
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
		<-done
		return ctx.Err()
	}
}

// waitTail waits for audio still in the device buffer once the mixer has
// consumed the last sample.
func waitTail(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// decodeFile opens path with the decoder matching its extension.
func decodeFile(path string) (beep.StreamSeekCloser, beep.Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".mp3" && ext != ".wav" {
		return nil, beep.Format{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, beep.Format{}, fmt.Errorf("open audio: %w", err)
	}

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	if ext == ".mp3" {
		streamer, format, err = mp3.Decode(f)
	} else {
		streamer, format, err = wav.Decode(f)
	}
	if err != nil {
		f.Close()
		return nil, beep.Format{}, fmt.Errorf("decode %s: %w", ext, err)
	}
	return streamer, format, nil
}

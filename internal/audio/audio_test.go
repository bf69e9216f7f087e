package audio

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/wav"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSilence(t *testing.T, samples int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "silence.wav")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	format := beep.Format{SampleRate: 22050, NumChannels: 1, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(samples), format))
	return path
}

func TestDecodeFile_WAV(t *testing.T) {
	path := writeSilence(t, 2205)

	streamer, format, err := decodeFile(path)
	require.NoError(t, err)
	defer streamer.Close()

	assert.Equal(t, beep.SampleRate(22050), format.SampleRate)
	assert.Equal(t, 2205, streamer.Len())
}

func TestDecodeFile_Unsupported(t *testing.T) {
	_, _, err := decodeFile("speech.ogg")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestDecodeFile_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.wav")
	require.NoError(t, os.WriteFile(path, []byte("not a riff file"), 0o644))

	_, _, err := decodeFile(path)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnsupportedFormat)
}

func TestWaitTail(t *testing.T) {
	start := time.Now()
	require.NoError(t, waitTail(context.Background(), bufferLatency))
	assert.GreaterOrEqual(t, time.Since(start), bufferLatency)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, waitTail(ctx, time.Hour), context.Canceled)
}

func TestExecPlayer_NotInstalled(t *testing.T) {
	p := NewExecPlayer(zerolog.Nop(), &ExecConfig{Command: "deskavatar-no-such-player"})
	err := p.Play(context.Background(), "a.mp3")

	assert.ErrorIs(t, err, ErrPlayerNotFound)
	assert.Contains(t, err.Error(), "deskavatar-no-such-player")
}

func TestExecPlayer_InstallHint(t *testing.T) {
	assert.Contains(t, installHint("mpv"), "mpv")
	assert.Contains(t, installHint("ffplay"), "PATH")
}

func TestExecPlayer_Cancel(t *testing.T) {
	if _, err := exec.LookPath("sleep"); err != nil {
		t.Skip("sleep not available")
	}
	p := NewExecPlayer(zerolog.Nop(), &ExecConfig{Command: "sleep"})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	err := p.Play(ctx, "5")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 3*time.Second)
}

type fakePlayer struct {
	name  string
	err   error
	calls int
}

func (f *fakePlayer) Name() string { return f.name }

func (f *fakePlayer) Play(ctx context.Context, path string) error {
	f.calls++
	return f.err
}

func TestAutoPlayer(t *testing.T) {
	tests := []struct {
		name          string
		primaryErr    error
		wantFallback  bool
		wantErrTarget error
	}{
		{"primary succeeds", nil, false, nil},
		{"unsupported format falls back", ErrUnsupportedFormat, true, nil},
		{"no device falls back", ErrDeviceUnavailable, true, nil},
		{"cancellation is returned", context.Canceled, false, context.Canceled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary := &fakePlayer{name: "beep", err: tt.primaryErr}
			fallback := &fakePlayer{name: "mpv"}
			p := NewAutoPlayer(zerolog.Nop(), primary, fallback)

			err := p.Play(context.Background(), "a.mp3")

			if tt.wantErrTarget != nil {
				assert.ErrorIs(t, err, tt.wantErrTarget)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, 1, primary.calls)
			assert.Equal(t, tt.wantFallback, fallback.calls == 1)
		})
	}
}

func TestNewPlayer(t *testing.T) {
	for kind, name := range map[string]string{"beep": "beep", "mpv": "mpv", "auto": "auto", "": "auto"} {
		p, err := NewPlayer(kind, zerolog.Nop())
		require.NoError(t, err)
		assert.Equal(t, name, p.Name())
	}

	_, err := NewPlayer("vlc", zerolog.Nop())
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

package avatar

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFrame string

func (f fakeFrame) Size() (int, int) { return 64, 96 }

type recordingDisplay struct {
	shown []Frame
}

func (d *recordingDisplay) Show(f Frame) { d.shown = append(d.shown, f) }

func (d *recordingDisplay) names() []string {
	out := make([]string, len(d.shown))
	for i, f := range d.shown {
		out[i] = string(f.(fakeFrame))
	}
	return out
}

func frames(names ...string) []Frame {
	out := make([]Frame, len(names))
	for i, n := range names {
		out[i] = fakeFrame(n)
	}
	return out
}

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestMachine(t *testing.T, fs *FrameSet, blink BlinkConfig) (*Machine, *recordingDisplay) {
	t.Helper()
	d := &recordingDisplay{}
	m := NewMachine(fs, d, Options{
		TickInterval: 100 * time.Millisecond,
		Blink:        blink,
		Rand:         rand.NewPCG(1, 2),
		Logger:       zerolog.Nop(),
	})
	return m, d
}

func mustFrameSet(t *testing.T, idle, talk, blinkIdle, blinkTalk []Frame) *FrameSet {
	t.Helper()
	fs, err := NewFrameSet(idle, talk, blinkIdle, blinkTalk)
	require.NoError(t, err)
	return fs
}

func fixedBlink(interval, duration time.Duration) BlinkConfig {
	return BlinkConfig{Enabled: true, MinInterval: interval, MaxInterval: interval, Duration: duration}
}

func TestNewFrameSet_RequiresIdle(t *testing.T) {
	_, err := NewFrameSet(nil, frames("B"), nil, nil)
	assert.ErrorIs(t, err, ErrNoIdleFrames)
}

func TestNewFrameSet_TalkAliasesIdle(t *testing.T) {
	fs := mustFrameSet(t, frames("A1", "A2"), nil, nil, frames("X"))

	assert.Equal(t, fs.Get(CategoryIdle), fs.Get(CategoryTalk))
	assert.Equal(t, frames("A1", "A2"), fs.Sequence(ModeTalking))
	assert.Empty(t, fs.BlinkSequence(ModeIdle))
	assert.Equal(t, frames("X"), fs.BlinkSequence(ModeTalking))
	assert.True(t, fs.CanBlink())
}

func TestNewFrameSet_CopiesInput(t *testing.T) {
	idle := frames("A")
	fs := mustFrameSet(t, idle, nil, nil, nil)
	idle[0] = fakeFrame("Z")

	assert.Equal(t, fakeFrame("A"), fs.Sequence(ModeIdle)[0])
}

func TestMachine_TalkingTicksCycleFrames(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), frames("B", "C"), nil, nil)
	m, d := newTestMachine(t, fs, BlinkConfig{})

	m.SetTalking(true)
	m.Tick()
	m.Tick()
	m.Tick()

	assert.Equal(t, []string{"B", "C", "B"}, d.names())
	assert.Equal(t, ModeTalking, m.State().Mode)
}

func TestMachine_TalkingScenarioOnTimerWheel(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), frames("B", "C"), nil, nil)
	m, d := newTestMachine(t, fs, BlinkConfig{Enabled: false, MinInterval: time.Hour, MaxInterval: time.Hour})

	m.Start(t0)
	require.Equal(t, []string{"A"}, d.names())

	m.SetTalking(true)
	for i := 1; i <= 3; i++ {
		m.Advance(t0.Add(time.Duration(i) * 100 * time.Millisecond))
		assert.Equal(t, ModeTalking, m.State().Mode)
	}

	assert.Equal(t, []string{"A", "B", "C", "B"}, d.names())
}

func TestMachine_SetTalkingOnOffResetsIndex(t *testing.T) {
	fs := mustFrameSet(t, frames("A1", "A2", "A3"), frames("B", "C"), nil, nil)
	m, _ := newTestMachine(t, fs, BlinkConfig{})

	m.Tick()
	m.Tick()
	require.Equal(t, 1, m.State().FrameIndex)

	m.SetTalking(true)
	m.SetTalking(false)

	assert.Equal(t, State{Mode: ModeIdle, FrameIndex: 0}, m.State())
}

func TestMachine_BeginBlinkWithoutBlinkFramesIsSkipped(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), frames("B"), nil, frames("X"))
	m, d := newTestMachine(t, fs, fixedBlink(time.Second, 120*time.Millisecond))

	before := m.State()
	m.BeginBlink(t0)

	assert.Equal(t, before, m.State())
	assert.Empty(t, d.shown)

	due, begin, ok := m.PendingBlink()
	require.True(t, ok, "next attempt must still be scheduled")
	assert.True(t, begin)
	assert.Equal(t, t0.Add(time.Second), due)
}

func TestMachine_BeginBlinkDisabledStillReschedules(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), nil, frames("X"), nil)
	cfg := fixedBlink(500*time.Millisecond, 100*time.Millisecond)
	cfg.Enabled = false
	m, d := newTestMachine(t, fs, cfg)

	m.BeginBlink(t0)

	assert.False(t, m.State().Blinking)
	assert.Empty(t, d.shown)
	due, begin, ok := m.PendingBlink()
	require.True(t, ok)
	assert.True(t, begin)
	assert.Equal(t, t0.Add(500*time.Millisecond), due)

	cfg.Enabled = true
	m.SetBlinkConfig(cfg)
	m.Advance(due)
	assert.True(t, m.State().Blinking, "re-enabled blinking resumes on the pending attempt")
}

func TestMachine_BlinkCycle(t *testing.T) {
	fs := mustFrameSet(t, frames("A1", "A2"), nil, frames("X"), nil)
	m, d := newTestMachine(t, fs, fixedBlink(time.Second, 120*time.Millisecond))

	m.Tick() // A1
	m.BeginBlink(t0)
	require.True(t, m.State().Blinking)

	m.Tick()
	m.Tick()
	assert.Equal(t, []string{"A1", "X"}, d.names(), "ticks are suppressed while blinking")

	due, begin, ok := m.PendingBlink()
	require.True(t, ok)
	assert.False(t, begin)
	assert.Equal(t, t0.Add(120*time.Millisecond), due)

	m.EndBlink(due)
	assert.False(t, m.State().Blinking)
	assert.Equal(t, []string{"A1", "X", "A1"}, d.names())

	due, begin, ok = m.PendingBlink()
	require.True(t, ok)
	assert.True(t, begin)
	assert.Equal(t, t0.Add(1120*time.Millisecond), due)
}

func TestMachine_SetTalkingDuringBlinkKeepsBlinkFrame(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), frames("B", "C"), frames("X"), frames("Y"))
	m, d := newTestMachine(t, fs, fixedBlink(time.Second, 120*time.Millisecond))

	m.BeginBlink(t0)
	m.SetTalking(true)

	assert.Equal(t, ModeTalking, m.State().Mode)
	assert.True(t, m.State().Blinking)
	assert.Equal(t, []string{"X"}, d.names(), "no frame change until the blink ends")

	m.EndBlink(t0.Add(120 * time.Millisecond))
	assert.Equal(t, []string{"X", "B"}, d.names())

	m.Tick()
	assert.Equal(t, []string{"X", "B", "C"}, d.names())
}

func TestMachine_EndBlinkRevalidatesIndex(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), frames("B", "C", "D"), frames("X"), frames("Y"))
	m, d := newTestMachine(t, fs, fixedBlink(time.Second, 50*time.Millisecond))

	m.SetTalking(true)
	m.Tick()
	m.Tick()
	m.Tick()
	require.Equal(t, 2, m.State().FrameIndex)

	m.BeginBlink(t0)
	m.SetTalking(false)
	m.EndBlink(t0.Add(50 * time.Millisecond))

	assert.Equal(t, 0, m.State().FrameIndex)
	assert.Equal(t, "A", d.names()[len(d.shown)-1])
}

func TestMachine_FixedIntervalBlinkSchedule(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), nil, frames("X"), nil)
	m, _ := newTestMachine(t, fs, fixedBlink(time.Second, 0))

	m.Start(t0)

	var begins []time.Time
	now := t0
	for len(begins) < 5 {
		due, begin, ok := m.PendingBlink()
		require.True(t, ok)
		if begin {
			begins = append(begins, due)
		}
		now = due
		m.Advance(now)
	}

	for i := 1; i < len(begins); i++ {
		assert.Equal(t, time.Second, begins[i].Sub(begins[i-1]))
	}
}

func TestMachine_AdvanceCatchesUpWithoutBurst(t *testing.T) {
	fs := mustFrameSet(t, frames("A1", "A2", "A3"), nil, nil, nil)
	m, d := newTestMachine(t, fs, BlinkConfig{MinInterval: time.Hour, MaxInterval: time.Hour})

	m.Start(t0)
	fired := m.Advance(t0.Add(time.Second))

	assert.Equal(t, 1, fired, "a stalled loop fires a single tick")
	assert.Len(t, d.shown, 2)

	next, ok := m.NextDeadline()
	require.True(t, ok)
	assert.Equal(t, t0.Add(1100*time.Millisecond), next)
}

func TestMachine_ZeroDurationBlinkDoesNotSpin(t *testing.T) {
	fs := mustFrameSet(t, frames("A"), nil, frames("X"), nil)
	m, _ := newTestMachine(t, fs, fixedBlink(0, 0))

	m.Start(t0)
	fired := m.Advance(t0)

	assert.LessOrEqual(t, fired, 2)
}

func TestMachine_RandomEventsStayInBounds(t *testing.T) {
	fs := mustFrameSet(t, frames("A1", "A2", "A3"), frames("B1", "B2"), frames("X"), nil)
	m, d := newTestMachine(t, fs, BlinkConfig{
		Enabled:     true,
		MinInterval: 10 * time.Millisecond,
		MaxInterval: 300 * time.Millisecond,
		Duration:    40 * time.Millisecond,
	})

	valid := map[Frame]bool{}
	for _, c := range []Category{CategoryIdle, CategoryTalk, CategoryBlinkIdle, CategoryBlinkTalk} {
		for _, f := range fs.Get(c) {
			valid[f] = true
		}
	}

	rng := rand.New(rand.NewPCG(7, 11))
	now := t0
	m.Start(now)

	for i := 0; i < 5000; i++ {
		switch rng.IntN(5) {
		case 0:
			m.SetTalking(rng.IntN(2) == 0)
		case 1:
			m.Tick()
		case 2:
			m.BeginBlink(now)
		case 3:
			m.EndBlink(now)
		default:
			now = now.Add(time.Duration(rng.IntN(200)) * time.Millisecond)
			m.Advance(now)
		}

		st := m.State()
		assert.Less(t, st.FrameIndex, len(fs.Sequence(st.Mode)))

		blinkEntries := 0
		for _, e := range m.wheel.Entries() {
			if e.Kind == timerBeginBlink || e.Kind == timerEndBlink {
				blinkEntries++
			}
		}
		require.LessOrEqual(t, blinkEntries, 1, "at most one pending blink timer")
	}

	for _, f := range d.shown {
		assert.True(t, valid[f])
	}
}

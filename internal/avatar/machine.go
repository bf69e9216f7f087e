package avatar

import (
	"math/rand/v2"
	"time"

	"github.com/normanking/deskavatar/internal/timer"
	"github.com/rs/zerolog"
)

// DefaultTickInterval is the animation period used when none is configured.
const DefaultTickInterval = 110 * time.Millisecond

type timerKind int

const (
	timerTick timerKind = iota
	timerBeginBlink
	timerEndBlink
)

func (k timerKind) String() string {
	switch k {
	case timerTick:
		return "tick"
	case timerBeginBlink:
		return "begin-blink"
	case timerEndBlink:
		return "end-blink"
	}
	return "unknown"
}

// Options configures a Machine.
type Options struct {
	TickInterval time.Duration
	Blink        BlinkConfig
	// Rand seeds the blink scheduler; nil uses a random seed.
	Rand   rand.Source
	Logger zerolog.Logger
}

// Machine is the avatar animation state machine. It owns a timer wheel that
// the UI loop drives through Advance; ticks and blink begin/end are entries
// on that wheel, so every mutation happens on the caller's goroutine.
type Machine struct {
	frames  *FrameSet
	display Display
	logger  zerolog.Logger

	tickInterval time.Duration
	blink        BlinkConfig
	scheduler    *BlinkScheduler
	wheel        *timer.Wheel[timerKind]

	state State
	// shown is false until the frame at state.FrameIndex has been displayed,
	// so the first tick after a mode change shows frame 0 instead of skipping it.
	shown   bool
	current Frame

	blinkID   timer.ID
	blinkLive bool
	started   bool
}

// NewMachine creates a machine in idle mode. Nothing is scheduled until Start.
func NewMachine(frames *FrameSet, display Display, opts Options) *Machine {
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	return &Machine{
		frames:       frames,
		display:      display,
		logger:       opts.Logger.With().Str("component", "avatar").Logger(),
		tickInterval: opts.TickInterval,
		blink:        opts.Blink,
		scheduler:    NewBlinkScheduler(opts.Blink.MinInterval, opts.Blink.MaxInterval, opts.Rand),
		wheel:        timer.New[timerKind](),
	}
}

// Start shows the first idle frame and arms the tick and the first blink
// attempt relative to now. Calling Start twice is a no-op.
func (m *Machine) Start(now time.Time) {
	if m.started {
		return
	}
	m.started = true

	if seq := m.frames.Sequence(m.state.Mode); len(seq) > 0 {
		m.state.FrameIndex %= len(seq)
		m.show(seq[m.state.FrameIndex])
		m.shown = true
	}

	m.wheel.After(now, m.tickInterval, timerTick)
	m.scheduleBlink(now)
}

// State returns a copy of the current animation state.
func (m *Machine) State() State {
	return m.state
}

// Current returns the frame most recently sent to the display.
func (m *Machine) Current() Frame {
	return m.current
}

// TickInterval returns the animation period.
func (m *Machine) TickInterval() time.Duration {
	return m.tickInterval
}

// SetTalking switches the base animation. The frame index restarts at 0.
// While a blink is showing the visible frame is left alone until EndBlink.
func (m *Machine) SetTalking(talking bool) {
	mode := ModeIdle
	if talking {
		mode = ModeTalking
	}
	m.state.Mode = mode
	m.state.FrameIndex = 0
	m.shown = false

	m.logger.Debug().Str("mode", mode.String()).Bool("blinking", m.state.Blinking).Msg("mode changed")
}

// Tick advances the base animation by one frame and shows it.
func (m *Machine) Tick() {
	if m.state.Blinking {
		return
	}
	seq := m.frames.Sequence(m.state.Mode)
	if len(seq) == 0 {
		return
	}

	if m.shown {
		m.state.FrameIndex = (m.state.FrameIndex + 1) % len(seq)
	} else {
		m.state.FrameIndex %= len(seq)
	}
	m.show(seq[m.state.FrameIndex])
	m.shown = true
}

// BeginBlink attempts a blink. When blinking is disabled, already in progress,
// or the current mode has no blink frames the attempt is skipped and the next
// one is scheduled; otherwise the first blink frame is shown immediately and
// EndBlink is scheduled after the blink duration.
func (m *Machine) BeginBlink(now time.Time) {
	m.cancelBlink()

	if m.state.Blinking {
		m.blinkID = m.wheel.After(now, m.blink.Duration, timerEndBlink)
		m.blinkLive = true
		return
	}

	blinkSeq := m.frames.BlinkSequence(m.state.Mode)
	if !m.blink.Enabled || len(blinkSeq) == 0 {
		m.scheduleBlink(now)
		return
	}

	m.state.Blinking = true
	m.show(blinkSeq[0])

	m.blinkID = m.wheel.After(now, m.blink.Duration, timerEndBlink)
	m.blinkLive = true
}

// EndBlink closes the blink cycle, restores the base frame for whatever mode
// is current now, and schedules the next attempt.
func (m *Machine) EndBlink(now time.Time) {
	m.cancelBlink()

	if m.state.Blinking {
		m.state.Blinking = false
		if seq := m.frames.Sequence(m.state.Mode); len(seq) > 0 {
			m.state.FrameIndex %= len(seq)
			m.show(seq[m.state.FrameIndex])
			m.shown = true
		}
	}

	m.scheduleBlink(now)
}

// SetBlinkConfig swaps blink settings at runtime. The pending attempt keeps
// its due time; the new range applies from the next reschedule.
func (m *Machine) SetBlinkConfig(cfg BlinkConfig) {
	m.blink = cfg
	m.scheduler.SetRange(cfg.MinInterval, cfg.MaxInterval)
	m.logger.Info().
		Bool("enabled", cfg.Enabled).
		Dur("min", cfg.MinInterval).
		Dur("max", cfg.MaxInterval).
		Dur("duration", cfg.Duration).
		Msg("blink settings updated")
}

// BlinkConfig returns the active blink settings.
func (m *Machine) BlinkConfig() BlinkConfig {
	return m.blink
}

// Advance fires every wheel entry due at or before now and returns how many
// fired. Entries scheduled while firing wait for the next call, so a zero
// blink duration cannot spin inside one Advance. Ticks are re-armed at a fixed
// period; a loop that fell more than one period behind resumes from now rather
// than replaying missed ticks.
func (m *Machine) Advance(now time.Time) int {
	var due []timer.Entry[timerKind]
	for {
		e, ok := m.wheel.PopDue(now)
		if !ok {
			break
		}
		due = append(due, e)
	}

	for _, e := range due {
		m.logger.Trace().Stringer("timer", e.Kind).Time("due", e.Due).Msg("timer fired")

		switch e.Kind {
		case timerTick:
			m.Tick()
			next := e.Due.Add(m.tickInterval)
			if !next.After(now) {
				next = now.Add(m.tickInterval)
			}
			m.wheel.Schedule(next, timerTick)
		case timerBeginBlink:
			if e.ID == m.blinkID {
				m.blinkLive = false
			}
			m.BeginBlink(e.Due)
		case timerEndBlink:
			if e.ID == m.blinkID {
				m.blinkLive = false
			}
			m.EndBlink(e.Due)
		}
	}
	return len(due)
}

// NextDeadline returns when Advance next has work to do.
func (m *Machine) NextDeadline() (time.Time, bool) {
	return m.wheel.NextDue()
}

// PendingBlink returns the due time of the pending blink entry, begin or end.
func (m *Machine) PendingBlink() (due time.Time, begin bool, ok bool) {
	if !m.blinkLive {
		return time.Time{}, false, false
	}
	for _, e := range m.wheel.Entries() {
		if e.ID == m.blinkID {
			return e.Due, e.Kind == timerBeginBlink, true
		}
	}
	return time.Time{}, false, false
}

func (m *Machine) scheduleBlink(now time.Time) {
	wait := m.scheduler.Next()
	m.blinkID = m.wheel.After(now, wait, timerBeginBlink)
	m.blinkLive = true
}

func (m *Machine) cancelBlink() {
	if m.blinkLive {
		m.wheel.Cancel(m.blinkID)
		m.blinkLive = false
	}
}

func (m *Machine) show(f Frame) {
	m.current = f
	if m.display != nil {
		m.display.Show(f)
	}
}

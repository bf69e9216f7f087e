// Package overlay hosts the avatar in a borderless, transparent, always-on-top
// window and runs the UI loop that owns the state machine.
package overlay

import (
	"context"
	"time"

	"github.com/normanking/deskavatar/internal/avatar"
	"github.com/normanking/deskavatar/internal/bus"
	"github.com/rs/zerolog"
)

// idleWait bounds a wait when nothing is scheduled.
const idleWait = time.Second

// Pump waits for window-system events and runs their callbacks.
type Pump interface {
	// WaitEvents returns when an event arrives, the bridge wakes the
	// loop or timeout passes.
	WaitEvents(timeout time.Duration)
	ShouldClose() bool
}

// LoopOptions configure a Loop.
type LoopOptions struct {
	// Now defaults to time.Now.
	Now    func() time.Time
	Logger zerolog.Logger
}

// Loop is the UI thread. Each pass drains the bridge into the router, fires
// due timers on the machine and sleeps until the next deadline.
type Loop struct {
	pump    Pump
	machine *avatar.Machine
	bridge  *bus.Bridge
	router  *bus.Router
	now     func() time.Time
	logger  zerolog.Logger

	stopped bool
	passes  int
}

// NewLoop creates a loop. Handlers must already be registered on router.
func NewLoop(pump Pump, machine *avatar.Machine, bridge *bus.Bridge, router *bus.Router, opts LoopOptions) *Loop {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Loop{
		pump:    pump,
		machine: machine,
		bridge:  bridge,
		router:  router,
		now:     opts.Now,
		logger:  opts.Logger.With().Str("component", "loop").Logger(),
	}
}

// Stop ends Run after the current pass. Call it on the UI thread, usually
// from a Quit handler.
func (l *Loop) Stop() {
	l.stopped = true
}

// Run blocks until Stop, the window closes or ctx is done. The bridge is
// closed on return, so later sends are dropped.
func (l *Loop) Run(ctx context.Context) error {
	defer l.bridge.Close()

	// Wake the pump so a cancelled ctx is noticed promptly.
	stopWake := context.AfterFunc(ctx, func() { l.bridge.Send(bus.Quit{}) })
	defer stopWake()

	l.machine.Start(l.now())
	l.logger.Info().Dur("tick", l.machine.TickInterval()).Msg("UI loop started")

	for !l.stopped && !l.pump.ShouldClose() {
		if err := ctx.Err(); err != nil {
			l.logger.Info().Err(err).Msg("UI loop cancelled")
			return err
		}

		l.bridge.Drain(l.dispatch)
		if l.stopped {
			break
		}

		now := l.now()
		l.machine.Advance(now)
		l.passes++
		l.pump.WaitEvents(l.waitFor(now))
	}

	l.logger.Info().Int("passes", l.passes).Msg("UI loop stopped")
	return nil
}

// dispatch drops events that follow a Stop in the same batch.
func (l *Loop) dispatch(ev bus.Event) {
	if l.stopped {
		l.logger.Debug().Str("type", string(ev.Type())).Msg("dropping event after stop")
		return
	}
	l.router.Dispatch(ev)
}

func (l *Loop) waitFor(now time.Time) time.Duration {
	next, ok := l.machine.NextDeadline()
	if !ok {
		return idleWait
	}
	return min(idleWait, max(time.Millisecond, next.Sub(now)))
}

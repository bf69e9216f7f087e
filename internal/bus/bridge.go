package bus

import (
	"sync"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog"
)

// Bridge is a multi-producer, single-consumer queue. Any goroutine may Send;
// only the UI thread calls Drain. Send never blocks on the consumer and the
// queue is unbounded, so nothing is dropped while the bridge is open.
type Bridge struct {
	mu     sync.Mutex
	queue  deque.Deque[Event]
	closed bool
	wake   func()
	logger zerolog.Logger
}

// NewBridge creates an open bridge.
func NewBridge(logger zerolog.Logger) *Bridge {
	return &Bridge{
		logger: logger.With().Str("component", "bus").Logger(),
	}
}

// SetWaker installs a function called after every accepted Send. The overlay
// uses it to interrupt its event wait. fn must be safe to call from any
// goroutine.
func (b *Bridge) SetWaker(fn func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.wake = fn
}

// Send enqueues an event. After Close it is accepted and discarded; the
// return value reports whether the event was queued.
func (b *Bridge) Send(ev Event) bool {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		b.logger.Debug().Str("event", string(ev.Type())).Msg("send after close ignored")
		return false
	}
	b.queue.PushBack(ev)
	wake := b.wake
	b.mu.Unlock()

	if wake != nil {
		wake()
	}
	return true
}

// Drain delivers every event queued at the time of the call, in send order,
// and returns how many were delivered. fn runs without the lock held, so it
// may Send; those events wait for the next Drain.
func (b *Bridge) Drain(fn func(Event)) int {
	b.mu.Lock()
	n := b.queue.Len()
	if n == 0 {
		b.mu.Unlock()
		return 0
	}
	batch := make([]Event, n)
	for i := range batch {
		batch[i] = b.queue.PopFront()
	}
	b.mu.Unlock()

	for _, ev := range batch {
		fn(ev)
	}
	return n
}

// Len returns the number of queued events.
func (b *Bridge) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.queue.Len()
}

// Close stops accepting events and discards anything still queued.
func (b *Bridge) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	if n := b.queue.Len(); n > 0 {
		b.logger.Debug().Int("pending", n).Msg("bridge closed with pending events")
	}
	b.queue.Clear()
	b.wake = nil
}

// Closed reports whether Close has been called.
func (b *Bridge) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

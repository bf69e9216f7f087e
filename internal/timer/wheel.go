// Package timer provides a single-threaded timer wheel for the UI loop.
//
// Entries carry a due time and a caller-defined kind. Nothing fires on its own:
// the owning loop polls PopDue with the current time and dispatches whatever is
// returned. The wheel is not safe for concurrent use.
package timer

import (
	"container/heap"
	"time"
)

// ID identifies a scheduled entry.
type ID uint64

// Entry is a scheduled task.
type Entry[K any] struct {
	ID   ID
	Due  time.Time
	Kind K
}

// Wheel orders entries by due time, ties broken by scheduling order.
type Wheel[K any] struct {
	h         entryHeap[K]
	cancelled map[ID]struct{}
	nextID    ID
}

// New creates an empty wheel.
func New[K any]() *Wheel[K] {
	return &Wheel[K]{cancelled: make(map[ID]struct{})}
}

// Schedule adds an entry due at the given time and returns its ID.
func (w *Wheel[K]) Schedule(due time.Time, kind K) ID {
	w.nextID++
	heap.Push(&w.h, Entry[K]{ID: w.nextID, Due: due, Kind: kind})
	return w.nextID
}

// After is Schedule relative to now.
func (w *Wheel[K]) After(now time.Time, d time.Duration, kind K) ID {
	if d < 0 {
		d = 0
	}
	return w.Schedule(now.Add(d), kind)
}

// Cancel removes a pending entry. It reports false if the entry already fired,
// was cancelled before, or never existed.
func (w *Wheel[K]) Cancel(id ID) bool {
	for _, e := range w.h {
		if e.ID == id {
			if _, done := w.cancelled[id]; done {
				return false
			}
			w.cancelled[id] = struct{}{}
			return true
		}
	}
	return false
}

// Len returns the number of live entries.
func (w *Wheel[K]) Len() int {
	return len(w.h) - len(w.cancelled)
}

// NextDue returns the due time of the earliest live entry.
func (w *Wheel[K]) NextDue() (time.Time, bool) {
	w.dropCancelled()
	if len(w.h) == 0 {
		return time.Time{}, false
	}
	return w.h[0].Due, true
}

// PopDue removes and returns the earliest entry whose due time is not after now.
func (w *Wheel[K]) PopDue(now time.Time) (Entry[K], bool) {
	w.dropCancelled()
	if len(w.h) == 0 || w.h[0].Due.After(now) {
		var zero Entry[K]
		return zero, false
	}
	return heap.Pop(&w.h).(Entry[K]), true
}

// Entries returns a snapshot of live entries in due order.
func (w *Wheel[K]) Entries() []Entry[K] {
	w.dropCancelled()
	cp := make(entryHeap[K], len(w.h))
	copy(cp, w.h)
	out := make([]Entry[K], 0, len(cp))
	for len(cp) > 0 {
		e := heap.Pop(&cp).(Entry[K])
		if _, dead := w.cancelled[e.ID]; dead {
			continue
		}
		out = append(out, e)
	}
	return out
}

func (w *Wheel[K]) dropCancelled() {
	for len(w.h) > 0 {
		if _, dead := w.cancelled[w.h[0].ID]; !dead {
			return
		}
		e := heap.Pop(&w.h).(Entry[K])
		delete(w.cancelled, e.ID)
	}
}

type entryHeap[K any] []Entry[K]

func (h entryHeap[K]) Len() int { return len(h) }

func (h entryHeap[K]) Less(i, j int) bool {
	if h[i].Due.Equal(h[j].Due) {
		return h[i].ID < h[j].ID
	}
	return h[i].Due.Before(h[j].Due)
}

func (h entryHeap[K]) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entryHeap[K]) Push(x any) { *h = append(*h, x.(Entry[K])) }

func (h *entryHeap[K]) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}

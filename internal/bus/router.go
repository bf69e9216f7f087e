package bus

import (
	"sync"
)

// Handler is a function that handles events
type Handler func(Event)

// Router dispatches drained events to handlers by type. Dispatch is
// synchronous and runs on the caller's goroutine, which is the UI thread.
type Router struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	fallback Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[EventType][]Handler),
	}
}

// Subscribe adds a handler for an event type
func (r *Router) Subscribe(eventType EventType, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.handlers[eventType] = append(r.handlers[eventType], handler)
}

// SubscribeMultiple adds a handler for multiple event types
func (r *Router) SubscribeMultiple(eventTypes []EventType, handler Handler) {
	for _, et := range eventTypes {
		r.Subscribe(et, handler)
	}
}

// Unhandled sets the handler for events nobody subscribed to.
func (r *Router) Unhandled(handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = handler
}

// Dispatch calls every handler subscribed to the event's type, in
// subscription order.
func (r *Router) Dispatch(ev Event) {
	r.mu.RLock()
	handlers := make([]Handler, len(r.handlers[ev.Type()]))
	copy(handlers, r.handlers[ev.Type()])
	fallback := r.fallback
	r.mu.RUnlock()

	if len(handlers) == 0 {
		if fallback != nil {
			fallback(ev)
		}
		return
	}
	for _, h := range handlers {
		h(ev)
	}
}

// Clear removes all handlers
func (r *Router) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = make(map[EventType][]Handler)
	r.fallback = nil
}

package serenity

import "sync"

// Event names shared by streaming sessions.
const (
	EventStart   = "start"
	EventContent = "content"
	EventError   = "error"
	EventStop    = "stop"
)

// Event names emitted by real-time sessions.
const (
	EventSessionCreated    = "session.created"
	EventSessionStopped    = "session.stopped"
	EventSpeechStarted     = "speech.started"
	EventSpeechStopped     = "speech.stopped"
	EventResponseDone      = "response.done"
	EventResponseProcessed = "response.processed"
)

// Handler is a listener registered on an EventEmitter. Argument shapes are
// documented per event name on the emitting session type.
type Handler func(args ...any)

// EventEmitter is the minimal publish/subscribe primitive used by every
// streaming and real-time session as its sole notification mechanism.
//
// Handlers run synchronously on the goroutine that calls Emit, in
// registration order. Events emitted before any listener is registered are
// dropped; there is no queue, no backpressure, and no unsubscribe.
type EventEmitter struct {
	mu        sync.Mutex
	listeners map[string][]Handler
}

// On registers a handler for the named event and returns the emitter so
// registrations chain.
func (e *EventEmitter) On(event string, handler Handler) *EventEmitter {
	if handler == nil {
		return e
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.listeners == nil {
		e.listeners = make(map[string][]Handler)
	}
	e.listeners[event] = append(e.listeners[event], handler)
	return e
}

// Emit invokes every handler registered for the named event, in
// registration order. Panics from handlers propagate to the caller.
func (e *EventEmitter) Emit(event string, args ...any) {
	e.mu.Lock()
	handlers := make([]Handler, len(e.listeners[event]))
	copy(handlers, e.listeners[event])
	e.mu.Unlock()

	for _, handler := range handlers {
		handler(args...)
	}
}

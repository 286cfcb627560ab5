package workspace

import (
	"sync"
	"time"
)

// EventHandler receives workspace notifications.
type EventHandler func(payload EventPayload)

// Unsubscribe removes a previously registered handler.
type Unsubscribe func()

type subscription struct {
	id      uint64
	handler EventHandler
}

// EventEmitter delivers workspace events to registered handlers. Handlers run
// synchronously on the emitting goroutine, in registration order. Events
// emitted by one goroutine arrive in order; events from concurrent mutations
// may interleave in either order.
type EventEmitter struct {
	mu        sync.RWMutex
	nextID    uint64
	listeners map[Event][]subscription
	wildcard  []subscription
}

// NewEventEmitter creates an emitter with no subscribers.
func NewEventEmitter() *EventEmitter {
	return &EventEmitter{
		listeners: make(map[Event][]subscription),
	}
}

// On registers handler for event.
func (e *EventEmitter) On(event Event, handler EventHandler) Unsubscribe {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.listeners[event] = append(e.listeners[event], subscription{id: id, handler: handler})

	return e.remover(func() {
		e.listeners[event] = without(e.listeners[event], id)
		if len(e.listeners[event]) == 0 {
			delete(e.listeners, event)
		}
	})
}

// OnAny registers handler for every event.
func (e *EventEmitter) OnAny(handler EventHandler) Unsubscribe {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextID++
	id := e.nextID
	e.wildcard = append(e.wildcard, subscription{id: id, handler: handler})

	return e.remover(func() {
		e.wildcard = without(e.wildcard, id)
	})
}

func (e *EventEmitter) remover(remove func()) Unsubscribe {
	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			remove()
		})
	}
}

func without(subs []subscription, id uint64) []subscription {
	out := make([]subscription, 0, len(subs))
	for _, s := range subs {
		if s.id != id {
			out = append(out, s)
		}
	}
	return out
}

// Emit delivers payload to the handlers of payload.Event.
func (e *EventEmitter) Emit(payload EventPayload) {
	if payload.Timestamp.IsZero() {
		payload.Timestamp = time.Now()
	}

	e.mu.RLock()
	handlers := make([]EventHandler, 0, len(e.listeners[payload.Event])+len(e.wildcard))
	for _, s := range e.listeners[payload.Event] {
		handlers = append(handlers, s.handler)
	}
	for _, s := range e.wildcard {
		handlers = append(handlers, s.handler)
	}
	e.mu.RUnlock()

	for _, handler := range handlers {
		handler(payload)
	}
}

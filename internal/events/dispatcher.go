// Package events distributes ledger and catalog events to observers
// such as the WebSocket hub and the debug log.
package events

import (
	"context"
	"log"
	"sync"
)

// Event represents a domain event that can be dispatched to observers.
type Event struct {
	// Type is the event type (e.g., "ledger:updated", "catalog:loaded")
	Type string

	// Data is the typed payload, one of the structs in messages.go.
	Data any

	// Context provides execution context for the event
	Context context.Context
}

// Observer defines the interface for objects that want to be notified of events.
type Observer interface {
	// OnEvent is called when an event is dispatched.
	OnEvent(event Event) error

	// Name returns a human-readable name for this observer (for logging/debugging).
	Name() string

	// ShouldHandle returns true if this observer should handle the given event type.
	ShouldHandle(eventType string) bool
}

// Publisher is implemented by anything that accepts events.
type Publisher interface {
	Dispatch(event Event)
}

// Dispatcher implements the Observer pattern for event distribution.
// Thread-safe for concurrent use.
type Dispatcher struct {
	observers []Observer
	mu        sync.RWMutex
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{
		observers: make([]Observer, 0),
	}
}

// Register adds an observer to the dispatcher.
func (d *Dispatcher) Register(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.observers = append(d.observers, observer)
	log.Printf("[Dispatcher] Registered observer: %s", observer.Name())
}

// Unregister removes an observer from the dispatcher.
func (d *Dispatcher) Unregister(observer Observer) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, obs := range d.observers {
		if obs == observer {
			d.observers = append(d.observers[:i], d.observers[i+1:]...)
			log.Printf("[Dispatcher] Unregistered observer: %s", observer.Name())
			return
		}
	}
}

// Dispatch sends an event to all registered observers in registration order.
// Observer errors are logged and do not stop delivery to the others.
func (d *Dispatcher) Dispatch(event Event) {
	if d == nil {
		return
	}

	d.mu.RLock()
	observers := make([]Observer, len(d.observers))
	copy(observers, d.observers)
	d.mu.RUnlock()

	for _, observer := range observers {
		if !observer.ShouldHandle(event.Type) {
			continue
		}
		if err := observer.OnEvent(event); err != nil {
			log.Printf("[Dispatcher] Observer %s failed to handle event %s: %v",
				observer.Name(), event.Type, err)
		}
	}
}

// ObserverCount returns the number of registered observers.
func (d *Dispatcher) ObserverCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.observers)
}

// New creates an Event with a typed payload.
func New[T any](ctx context.Context, eventType string, data T) Event {
	return Event{
		Type:    eventType,
		Data:    data,
		Context: ctx,
	}
}

// DataAs extracts the typed payload from an Event.
func DataAs[T any](event Event) (T, bool) {
	typed, ok := event.Data.(T)
	return typed, ok
}

package websocket

import (
	"log"

	"github.com/ramonehamilton/swu-binder/internal/events"
)

// Observer forwards ledger and catalog events to WebSocket clients.
type Observer struct {
	name string
	hub  *Hub
}

// NewObserver creates an observer that broadcasts events through hub.
func NewObserver(hub *Hub) *Observer {
	return &Observer{
		name: "WebSocketObserver",
		hub:  hub,
	}
}

// OnEvent broadcasts the event's typed payload.
func (o *Observer) OnEvent(event events.Event) error {
	if o.hub == nil {
		log.Printf("[%s] Cannot emit event %s: hub is nil", o.name, event.Type)
		return nil
	}

	if o.hub.BroadcastEvent(Event{Type: event.Type, Data: event.Data}) {
		log.Printf("[%s] Broadcast %s to %d clients", o.name, event.Type, o.hub.ClientCount())
	}
	return nil
}

// Name returns the observer's name.
func (o *Observer) Name() string {
	return o.name
}

// ShouldHandle returns true for all events.
func (o *Observer) ShouldHandle(eventType string) bool {
	return true
}

var _ events.Observer = (*Observer)(nil)

// Package events is a small in-process pub/sub bus connecting the booking
// flow to side effects (manager notifications, sheet sync) without the
// booking service knowing about them.
package events

import (
	"sync"
	"time"
)

// Event types published by the service.
const (
	AppointmentCreated   = "appointment.created"
	AppointmentCancelled = "appointment.cancelled"
	EbookDownloaded      = "ebook.downloaded"
)

// Event is a lightweight domain event.
type Event struct {
	Type      string
	Payload   any
	CreatedAt time.Time
}

// Handler reacts to an event. Handlers run synchronously on the publishing
// goroutine; slow work belongs behind the handler's own goroutine.
type Handler func(event Event)

// Bus provides in-process pub/sub.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]Handler
}

// NewBus constructs an empty bus.
func NewBus() *Bus {
	return &Bus{subscribers: make(map[string][]Handler)}
}

// Subscribe registers a handler for a given event type.
func (b *Bus) Subscribe(eventType string, handler Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *Bus) Publish(event Event) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		handler(event)
	}
}

package store

import (
	"sync"

	"clinic-app-server/internal/models"
)

// EventType classifies a change-feed event.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

// Event is a single appointment change pushed to feed subscribers.
// UpdateType is the semantic label the writer attached to an update
// ("cancelled", "rescheduled", ...); it is empty for writes performed
// outside the lifecycle manager.
type Event struct {
	Type       EventType
	UpdateType string
	Payload    models.Appointment
}

// Handler receives change-feed events. Handlers are invoked synchronously
// on the writer's goroutine and must not block.
type Handler func(Event)

// Feed is the in-process change feed for a collection. The service is the
// single writer of its collections, so publishing from each successful
// write makes the feed authoritative without polling.
type Feed struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]Handler
}

// NewFeed creates an empty change feed.
func NewFeed() *Feed {
	return &Feed{handlers: make(map[int]Handler)}
}

// Subscribe registers a handler and returns its teardown function.
// The teardown is idempotent.
func (f *Feed) Subscribe(h Handler) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.handlers[id] = h
	f.mu.Unlock()

	return func() {
		f.mu.Lock()
		delete(f.handlers, id)
		f.mu.Unlock()
	}
}

// Publish delivers the event to every subscribed handler.
func (f *Feed) Publish(e Event) {
	f.mu.RLock()
	handlers := make([]Handler, 0, len(f.handlers))
	for _, h := range f.handlers {
		handlers = append(handlers, h)
	}
	f.mu.RUnlock()

	for _, h := range handlers {
		h(e)
	}
}

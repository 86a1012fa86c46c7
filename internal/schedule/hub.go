package schedule

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
)

// SubscribeOptions filters which appointment changes a subscriber receives.
// Zero-value fields match everything.
type SubscribeOptions struct {
	UserID   string
	DoctorID string
}

func (o SubscribeOptions) key() string {
	return fmt.Sprintf("user=%s;doctor=%s", o.UserID, o.DoctorID)
}

func (o SubscribeOptions) matches(a models.Appointment) bool {
	if o.UserID != "" && a.UserID != o.UserID {
		return false
	}
	if o.DoctorID != "" && a.DoctorID != o.DoctorID {
		return false
	}
	return true
}

// AppointmentEvent is a classified appointment change delivered to hub
// subscribers.
type AppointmentEvent struct {
	Type        store.EventType    `json:"type"`
	UpdateType  string             `json:"update_type,omitempty"`
	Message     string             `json:"message"`
	Appointment models.Appointment `json:"appointment"`
}

// Callback receives classified appointment events.
type Callback func(AppointmentEvent)

// Subscription is the handle returned by Subscribe; pass it to Unsubscribe.
type Subscription struct {
	key string
	id  int
}

// Hub converts the store's raw change feed into classified appointment
// events and fans them out to registered callbacks. One underlying feed
// subscription is held per distinct options filter, shared by every callback
// registered under that filter. Construct one per composition root; there is
// no package-level instance.
type Hub struct {
	store  AppointmentStore
	logger zerolog.Logger

	mu      sync.Mutex
	entries map[string]*hubEntry
}

type hubEntry struct {
	options   SubscribeOptions
	teardown  func()
	nextID    int
	callbacks map[int]Callback
}

// NewHub creates a hub over the given store's change feed.
func NewHub(s AppointmentStore, logger zerolog.Logger) *Hub {
	return &Hub{
		store:   s,
		logger:  logger,
		entries: make(map[string]*hubEntry),
	}
}

// Subscribe registers a callback for appointment changes matching opts.
// Callbacks registered with equal options share one underlying feed
// subscription.
func (h *Hub) Subscribe(cb Callback, opts SubscribeOptions) *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	key := opts.key()
	entry, ok := h.entries[key]
	if !ok {
		entry = &hubEntry{options: opts, callbacks: make(map[int]Callback)}
		entry.teardown = h.store.Subscribe(func(e store.Event) {
			h.dispatch(key, e)
		})
		h.entries[key] = entry
		h.logger.Debug().Str("filter", key).Msg("opened appointment feed subscription")
	}

	id := entry.nextID
	entry.nextID++
	entry.callbacks[id] = cb

	return &Subscription{key: key, id: id}
}

// Unsubscribe removes the callback and tears down the underlying feed
// subscription once no callbacks remain under its filter. Calling it again
// with the same handle is a no-op.
func (h *Hub) Unsubscribe(sub *Subscription) {
	if sub == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	entry, ok := h.entries[sub.key]
	if !ok {
		return
	}
	if _, ok := entry.callbacks[sub.id]; !ok {
		return
	}
	delete(entry.callbacks, sub.id)

	if len(entry.callbacks) == 0 {
		entry.teardown()
		delete(h.entries, sub.key)
		h.logger.Debug().Str("filter", sub.key).Msg("closed appointment feed subscription")
	}
}

func (h *Hub) dispatch(key string, e store.Event) {
	h.mu.Lock()
	entry, ok := h.entries[key]
	if !ok {
		h.mu.Unlock()
		return
	}
	if !entry.options.matches(e.Payload) {
		h.mu.Unlock()
		return
	}
	callbacks := make([]Callback, 0, len(entry.callbacks))
	for _, cb := range entry.callbacks {
		callbacks = append(callbacks, cb)
	}
	h.mu.Unlock()

	event := classify(e)
	for _, cb := range callbacks {
		cb(event)
	}
}

func classify(e store.Event) AppointmentEvent {
	event := AppointmentEvent{Type: e.Type, Appointment: e.Payload}

	if e.Type == store.EventUpdated {
		event.UpdateType = e.UpdateType
		if event.UpdateType == "" {
			event.UpdateType = classifyUpdate(e.Payload)
		}
	}
	event.Message = eventMessage(event)
	return event
}

// classifyUpdate derives the semantic update type from the document shape,
// for updates written outside the lifecycle manager. Priority order matters:
// a cancelled appointment may still carry rescheduled_at from its history.
func classifyUpdate(a models.Appointment) string {
	switch {
	case a.Status == models.StatusCancelled:
		return UpdateCancelled
	case a.RescheduledAt != nil:
		return UpdateRescheduled
	case a.Status == models.StatusConfirmed:
		return UpdateConfirmed
	case a.Status == models.StatusCompleted:
		return UpdateCompleted
	default:
		return UpdateGeneralUpdate
	}
}

func eventMessage(e AppointmentEvent) string {
	date, slot := e.Appointment.Date, e.Appointment.TimeSlot

	switch e.Type {
	case store.EventCreated:
		return fmt.Sprintf("New appointment booked for %s at %s", date, slot)
	case store.EventDeleted:
		return fmt.Sprintf("Appointment on %s at %s was removed", date, slot)
	}

	switch e.UpdateType {
	case UpdateCancelled:
		return fmt.Sprintf("Appointment on %s at %s was cancelled", date, slot)
	case UpdateRescheduled:
		return fmt.Sprintf("Appointment moved to %s at %s", date, slot)
	case UpdateConfirmed:
		return fmt.Sprintf("Appointment on %s at %s was confirmed", date, slot)
	case UpdateCompleted:
		return fmt.Sprintf("Appointment on %s at %s was completed", date, slot)
	default:
		return fmt.Sprintf("Appointment on %s at %s was updated", date, slot)
	}
}

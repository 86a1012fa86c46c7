package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
)

// fakeStore is an in-memory AppointmentStore for tests. It interprets the
// query subset the scheduling core issues (equality, not-equal, limit) and
// publishes feed events exactly like the real collection client.
type fakeStore struct {
	mu           sync.Mutex
	nextID       int
	appointments map[string]models.Appointment
	feed         *store.Feed

	listErr error
	getErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		appointments: make(map[string]models.Appointment),
		feed:         store.NewFeed(),
	}
}

func fieldValue(a models.Appointment, field string) string {
	switch field {
	case "id":
		return a.ID
	case "user_id":
		return a.UserID
	case "doctor_id":
		return a.DoctorID
	case "date":
		return a.Date
	case "time_slot":
		return a.TimeSlot
	case "status":
		return string(a.Status)
	}
	return ""
}

func queryValue(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case models.AppointmentStatus:
		return string(s)
	}
	return fmt.Sprint(v)
}

func matchesQuery(a models.Appointment, q store.Query) bool {
	switch q.Op {
	case store.OpEqual:
		return fieldValue(a, q.Field) == queryValue(q.Value)
	case store.OpNotEqual:
		return fieldValue(a, q.Field) != queryValue(q.Value)
	case store.OpOr:
		for _, n := range q.Nested {
			if matchesQuery(a, n) {
				return true
			}
		}
		return false
	}
	return true
}

func (f *fakeStore) List(ctx context.Context, queries ...store.Query) ([]models.Appointment, int64, error) {
	if f.listErr != nil {
		return nil, 0, f.listErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	limit := -1
	var matched []models.Appointment
	for _, a := range f.appointments {
		keep := true
		for _, q := range queries {
			if q.Op == store.OpLimit {
				limit, _ = q.Value.(int)
				continue
			}
			if q.IsFilter() && !matchesQuery(a, q) {
				keep = false
				break
			}
		}
		if keep {
			matched = append(matched, a)
		}
	}

	total := int64(len(matched))
	if limit >= 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (*models.Appointment, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	a, ok := f.appointments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &a, nil
}

func (f *fakeStore) Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error) {
	f.mu.Lock()
	f.nextID++
	appointment.ID = fmt.Sprintf("appt-%d", f.nextID)
	appointment.CreatedAt = time.Now()
	f.appointments[appointment.ID] = *appointment
	f.mu.Unlock()

	f.feed.Publish(store.Event{Type: store.EventCreated, Payload: *appointment})
	return appointment, nil
}

func (f *fakeStore) Update(ctx context.Context, id string, changes map[string]interface{}, updateType string) (*models.Appointment, error) {
	f.mu.Lock()
	a, ok := f.appointments[id]
	if !ok {
		f.mu.Unlock()
		return nil, gorm.ErrRecordNotFound
	}
	for field, value := range changes {
		applyChange(&a, field, value)
	}
	a.UpdatedAt = time.Now()
	f.appointments[id] = a
	f.mu.Unlock()

	f.feed.Publish(store.Event{Type: store.EventUpdated, UpdateType: updateType, Payload: a})
	return &a, nil
}

func (f *fakeStore) Subscribe(h store.Handler) func() {
	return f.feed.Subscribe(h)
}

func applyChange(a *models.Appointment, field string, value interface{}) {
	timePtr := func() *time.Time {
		t, ok := value.(time.Time)
		if !ok {
			return nil
		}
		return &t
	}

	switch field {
	case "status":
		a.Status = value.(models.AppointmentStatus)
	case "date":
		a.Date = value.(string)
	case "time_slot":
		a.TimeSlot = value.(string)
	case "confirmed_at":
		a.ConfirmedAt = timePtr()
	case "confirmed_by":
		a.ConfirmedBy = value.(string)
	case "cancelled_at":
		a.CancelledAt = timePtr()
	case "cancellation_reason":
		a.CancellationReason = value.(string)
	case "cancelled_by":
		a.CancelledBy = value.(string)
	case "rescheduled_at":
		a.RescheduledAt = timePtr()
	case "reschedule_reason":
		a.RescheduleReason = value.(string)
	case "reschedule_count":
		a.RescheduleCount = value.(int)
	case "completed_at":
		a.CompletedAt = timePtr()
	case "completion_notes":
		a.CompletionNotes = value.(string)
	case "has_prescription":
		a.HasPrescription = value.(bool)
	case "no_show_at":
		a.NoShowAt = timePtr()
	case "no_show_reason":
		a.NoShowReason = value.(string)
	case "original_date":
		a.OriginalDate = value.(string)
	case "original_time_slot":
		a.OriginalTimeSlot = value.(string)
	case "original_status":
		a.OriginalStatus = value.(models.AppointmentStatus)
	default:
		panic("applyChange: unknown field " + field)
	}
}

package schedule

import (
	"context"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
)

// AppointmentStore is the slice of the appointments collection client the
// scheduling core depends on.
type AppointmentStore interface {
	List(ctx context.Context, queries ...store.Query) ([]models.Appointment, int64, error)
	Get(ctx context.Context, id string) (*models.Appointment, error)
	Create(ctx context.Context, appointment *models.Appointment) (*models.Appointment, error)
	Update(ctx context.Context, id string, changes map[string]interface{}, updateType string) (*models.Appointment, error)
	Subscribe(h store.Handler) func()
}

// AvailabilityResolver answers which time slots are taken for a doctor on a
// date, and whether one specific slot is free. A cancelled appointment frees
// its slot; Rescheduled, Completed and No Show appointments still occupy
// their current slot.
type AvailabilityResolver struct {
	store AppointmentStore
}

// NewAvailabilityResolver creates a resolver over the given store.
func NewAvailabilityResolver(s AppointmentStore) *AvailabilityResolver {
	return &AvailabilityResolver{store: s}
}

func slotFilters(doctorID, date, excludeAppointmentID string) []store.Query {
	queries := []store.Query{
		store.Equal("doctor_id", doctorID),
		store.Equal("date", date),
		store.NotEqual("status", string(models.StatusCancelled)),
	}
	if excludeAppointmentID != "" {
		queries = append(queries, store.NotEqual("id", excludeAppointmentID))
	}
	return queries
}

// GetBookedSlots returns the time-slot labels occupied for the doctor on the
// given date label. excludeAppointmentID, when non-empty, removes that
// appointment from consideration (used when an appointment checks around its
// own slot during a reschedule). Callers treat the result as a set.
func (r *AvailabilityResolver) GetBookedSlots(ctx context.Context, doctorID, date, excludeAppointmentID string) ([]string, error) {
	appointments, _, err := r.store.List(ctx, slotFilters(doctorID, date, excludeAppointmentID)...)
	if err != nil {
		return nil, err
	}

	slots := make([]string, 0, len(appointments))
	for _, a := range appointments {
		slots = append(slots, a.TimeSlot)
	}
	return slots, nil
}

// CheckSlotAvailability reports whether the (doctor, date, timeSlot) slot is
// free of non-cancelled appointments other than the excluded one. It runs as
// an existence query rather than fetching all booked slots.
func (r *AvailabilityResolver) CheckSlotAvailability(ctx context.Context, doctorID, date, timeSlot, excludeAppointmentID string) (bool, error) {
	queries := append(slotFilters(doctorID, date, excludeAppointmentID),
		store.Equal("time_slot", timeSlot),
		store.Limit(1),
	)
	appointments, _, err := r.store.List(ctx, queries...)
	if err != nil {
		return false, err
	}
	return len(appointments) == 0, nil
}

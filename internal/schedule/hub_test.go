package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-app-server/internal/models"
	"clinic-app-server/internal/store"
)

func collect(events *[]AppointmentEvent) Callback {
	return func(e AppointmentEvent) {
		*events = append(*events, e)
	}
}

func TestHub_DeliversClassifiedEvents(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	hub := NewHub(f, zerolog.Nop())
	m := newTestManager(f)

	var events []AppointmentEvent
	sub := hub.Subscribe(collect(&events), SubscribeOptions{})
	defer hub.Unsubscribe(sub)

	res, err := m.Book(ctx, BookingRequest{
		UserID: "user-1", DoctorID: "doctor-1",
		Date: "Wednesday, 15 Jan 2025", TimeSlot: "9:30 AM",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	id := res.Appointment.ID

	_, err = m.Confirm(ctx, id, "reception")
	require.NoError(t, err)
	_, err = m.Reschedule(ctx, id, "Thursday, 16 Jan 2025", "10:00 AM", "conflict")
	require.NoError(t, err)
	_, err = m.Cancel(ctx, id, "patient request", "patient")
	require.NoError(t, err)

	require.Len(t, events, 4)
	assert.Equal(t, store.EventCreated, events[0].Type)
	assert.Empty(t, events[0].UpdateType)
	assert.Contains(t, events[0].Message, "Wednesday, 15 Jan 2025")
	assert.Contains(t, events[0].Message, "9:30 AM")

	assert.Equal(t, store.EventUpdated, events[1].Type)
	assert.Equal(t, UpdateConfirmed, events[1].UpdateType)

	assert.Equal(t, UpdateRescheduled, events[2].UpdateType)
	assert.Contains(t, events[2].Message, "Thursday, 16 Jan 2025")
	assert.Contains(t, events[2].Message, "10:00 AM")

	assert.Equal(t, UpdateCancelled, events[3].UpdateType)
	assert.Contains(t, events[3].Message, "cancelled")
}

func TestHub_OptionsFilter(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	hub := NewHub(f, zerolog.Nop())
	m := newTestManager(f)

	var doctor1Events, doctor2Events []AppointmentEvent
	sub1 := hub.Subscribe(collect(&doctor1Events), SubscribeOptions{DoctorID: "doctor-1"})
	sub2 := hub.Subscribe(collect(&doctor2Events), SubscribeOptions{DoctorID: "doctor-2"})
	defer hub.Unsubscribe(sub1)
	defer hub.Unsubscribe(sub2)

	_, err := m.Book(ctx, BookingRequest{
		UserID: "user-1", DoctorID: "doctor-1",
		Date: "Wednesday, 15 Jan 2025", TimeSlot: "9:30 AM",
	})
	require.NoError(t, err)

	assert.Len(t, doctor1Events, 1)
	assert.Empty(t, doctor2Events)
}

func TestHub_SharedSubscriptionPerFilter(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	hub := NewHub(f, zerolog.Nop())
	m := newTestManager(f)

	var first, second []AppointmentEvent
	opts := SubscribeOptions{DoctorID: "doctor-1"}
	sub1 := hub.Subscribe(collect(&first), opts)
	sub2 := hub.Subscribe(collect(&second), opts)

	_, err := m.Book(ctx, BookingRequest{
		UserID: "user-1", DoctorID: "doctor-1",
		Date: "Wednesday, 15 Jan 2025", TimeSlot: "9:30 AM",
	})
	require.NoError(t, err)

	// Both callbacks fired from one underlying feed subscription.
	assert.Len(t, first, 1)
	assert.Len(t, second, 1)

	// Removing one callback keeps the other alive.
	hub.Unsubscribe(sub1)
	_, err = m.Book(ctx, BookingRequest{
		UserID: "user-1", DoctorID: "doctor-1",
		Date: "Wednesday, 15 Jan 2025", TimeSlot: "10:00 AM",
	})
	require.NoError(t, err)
	assert.Len(t, first, 1)
	assert.Len(t, second, 2)

	hub.Unsubscribe(sub2)
}

func TestHub_UnsubscribeIdempotent(t *testing.T) {
	f := newFakeStore()
	hub := NewHub(f, zerolog.Nop())

	sub := hub.Subscribe(func(AppointmentEvent) {}, SubscribeOptions{})
	hub.Unsubscribe(sub)
	hub.Unsubscribe(sub)
	hub.Unsubscribe(nil)
}

func TestClassifyUpdate(t *testing.T) {
	rescheduledAt := time.Date(2025, time.January, 10, 9, 0, 0, 0, time.Local)

	tests := []struct {
		name string
		appt models.Appointment
		want string
	}{
		{
			name: "cancelled wins over reschedule history",
			appt: models.Appointment{Status: models.StatusCancelled, RescheduledAt: &rescheduledAt},
			want: UpdateCancelled,
		},
		{
			name: "rescheduled",
			appt: models.Appointment{Status: models.StatusRescheduled, RescheduledAt: &rescheduledAt},
			want: UpdateRescheduled,
		},
		{
			name: "reschedule history wins over confirmed",
			appt: models.Appointment{Status: models.StatusConfirmed, RescheduledAt: &rescheduledAt},
			want: UpdateRescheduled,
		},
		{
			name: "confirmed",
			appt: models.Appointment{Status: models.StatusConfirmed},
			want: UpdateConfirmed,
		},
		{
			name: "completed",
			appt: models.Appointment{Status: models.StatusCompleted},
			want: UpdateCompleted,
		},
		{
			name: "no show is a general update",
			appt: models.Appointment{Status: models.StatusNoShow},
			want: UpdateGeneralUpdate,
		},
		{
			name: "booked is a general update",
			appt: models.Appointment{Status: models.StatusBooked},
			want: UpdateGeneralUpdate,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyUpdate(tt.appt))
		})
	}
}

func TestHub_UntaggedUpdateFallsBackToClassification(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	hub := NewHub(f, zerolog.Nop())

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusBooked)

	var events []AppointmentEvent
	sub := hub.Subscribe(collect(&events), SubscribeOptions{})
	defer hub.Unsubscribe(sub)

	// A write outside the lifecycle manager carries no semantic label; the
	// hub derives one from the document shape.
	_, err := f.Update(ctx, a.ID, map[string]interface{}{"status": models.StatusCancelled}, "")
	require.NoError(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, UpdateCancelled, events[0].UpdateType)
}

package schedule

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-app-server/internal/models"
)

func newTestManager(f *fakeStore) *LifecycleManager {
	m := NewLifecycleManager(f, NewAvailabilityResolver(f), zerolog.Nop())
	// Fixed clock well before the appointment dates used in these tests.
	m.now = func() time.Time {
		return time.Date(2025, time.January, 1, 12, 0, 0, 0, time.Local)
	}
	return m
}

func TestBook(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	res, err := m.Book(ctx, BookingRequest{
		UserID:      "user-1",
		DoctorID:    "doctor-1",
		DoctorName:  "Dr. Adams",
		ServiceName: "General Checkup",
		Date:        "Wednesday, 15 Jan 2025",
		TimeSlot:    "9:30 AM",
	})
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, models.StatusBooked, res.Appointment.Status)
	assert.NotEmpty(t, res.Appointment.ID)

	// The same slot is now taken for everyone else.
	res, err = m.Book(ctx, BookingRequest{
		UserID:   "user-2",
		DoctorID: "doctor-1",
		Date:     "Wednesday, 15 Jan 2025",
		TimeSlot: "9:30 AM",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not available")
}

func TestConfirm(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	booked := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusBooked)

	res, err := m.Confirm(ctx, booked.ID, "reception")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, models.StatusConfirmed, res.Appointment.Status)
	assert.Equal(t, "reception", res.Appointment.ConfirmedBy)
	require.NotNil(t, res.Appointment.ConfirmedAt)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	booked := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusBooked)

	res, err := m.Cancel(ctx, booked.ID, "patient request", "patient")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, models.StatusCancelled, res.Appointment.Status)
	assert.Equal(t, "patient request", res.Appointment.CancellationReason)
	assert.Equal(t, "patient", res.Appointment.CancelledBy)
	assert.Equal(t, models.StatusBooked, res.Appointment.OriginalStatus)
	require.NotNil(t, res.Appointment.CancelledAt)

	// Cancelling frees the slot.
	available, err := NewAvailabilityResolver(f).CheckSlotAvailability(ctx, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", "")
	require.NoError(t, err)
	assert.True(t, available)
}

func TestCancel_TerminalStates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		status  models.AppointmentStatus
		wantErr string
	}{
		{models.StatusCancelled, "cancelled"},
		{models.StatusCompleted, "completed"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFakeStore()
			m := newTestManager(f)
			a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", tt.status)

			res, err := m.Cancel(ctx, a.ID, "any", "patient")
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.wantErr)

			// Nothing was written.
			unchanged, err := f.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.status, unchanged.Status)
			assert.Empty(t, unchanged.CancellationReason)
		})
	}
}

func TestCancel_Cutoff(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusConfirmed)

	// 8:00 AM on the day: inside the two-hour window.
	m.now = func() time.Time {
		return time.Date(2025, time.January, 15, 8, 0, 0, 0, time.Local)
	}
	res, err := m.Cancel(ctx, a.ID, "overslept", "patient")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "2 hours")

	// 7:00 AM: still allowed, two and a half hours out.
	m.now = func() time.Time {
		return time.Date(2025, time.January, 15, 7, 0, 0, 0, time.Local)
	}
	res, err = m.Cancel(ctx, a.ID, "conflict came up", "patient")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestCancel_CutoffDisabled(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)
	m.CancellationCutoff = 0

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusBooked)

	// One minute before the appointment.
	m.now = func() time.Time {
		return time.Date(2025, time.January, 15, 9, 29, 0, 0, time.Local)
	}
	res, err := m.Cancel(ctx, a.ID, "last minute", "patient")
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestCancel_UnparseableDateSkipsCutoff(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "sometime next week", "morning-ish", models.StatusBooked)

	res, err := m.Cancel(ctx, a.ID, "bad data", "admin")
	require.NoError(t, err)
	assert.True(t, res.Success, "unparseable labels fall back to status-only validation")
}

func TestReschedule(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusConfirmed)

	res, err := m.Reschedule(ctx, a.ID, "Thursday, 16 Jan 2025", "10:00 AM", "doctor unavailable")
	require.NoError(t, err)
	require.True(t, res.Success)

	got := res.Appointment
	assert.Equal(t, models.StatusRescheduled, got.Status)
	assert.Equal(t, "Thursday, 16 Jan 2025", got.Date)
	assert.Equal(t, "10:00 AM", got.TimeSlot)
	assert.Equal(t, 1, got.RescheduleCount)
	assert.Equal(t, "Wednesday, 15 Jan 2025", got.OriginalDate)
	assert.Equal(t, "9:30 AM", got.OriginalTimeSlot)
	assert.Equal(t, models.StatusConfirmed, got.OriginalStatus)
	require.NotNil(t, got.RescheduledAt)

	// The old slot is free, the new one is taken.
	resolver := NewAvailabilityResolver(f)
	available, err := resolver.CheckSlotAvailability(ctx, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", "")
	require.NoError(t, err)
	assert.True(t, available)
	available, err = resolver.CheckSlotAvailability(ctx, "doctor-1", "Thursday, 16 Jan 2025", "10:00 AM", "")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestReschedule_ProvenanceSetOnce(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusBooked)

	res, err := m.Reschedule(ctx, a.ID, "Thursday, 16 Jan 2025", "10:00 AM", "first move")
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = m.Reschedule(ctx, a.ID, "Friday, 17 Jan 2025", "11:00 AM", "second move")
	require.NoError(t, err)
	require.True(t, res.Success)

	got := res.Appointment
	assert.Equal(t, 2, got.RescheduleCount)
	// Provenance still reflects the state before the first reschedule.
	assert.Equal(t, "Wednesday, 15 Jan 2025", got.OriginalDate)
	assert.Equal(t, "9:30 AM", got.OriginalTimeSlot)
	assert.Equal(t, models.StatusBooked, got.OriginalStatus)
	assert.Equal(t, "Friday, 17 Jan 2025", got.Date)
	assert.Equal(t, "11:00 AM", got.TimeSlot)
}

func TestReschedule_TerminalStates(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		status  models.AppointmentStatus
		wantErr string
	}{
		{models.StatusCancelled, "cancelled"},
		{models.StatusCompleted, "completed"},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFakeStore()
			m := newTestManager(f)
			a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", tt.status)

			res, err := m.Reschedule(ctx, a.ID, "Thursday, 16 Jan 2025", "10:00 AM", "any")
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, tt.wantErr)

			unchanged, err := f.Get(ctx, a.ID)
			require.NoError(t, err)
			assert.Equal(t, "Wednesday, 15 Jan 2025", unchanged.Date)
			assert.Equal(t, "9:30 AM", unchanged.TimeSlot)
			assert.Zero(t, unchanged.RescheduleCount)
		})
	}
}

func TestReschedule_SlotConflict(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusBooked)
	seedAppointment(t, f, "doctor-1", "Thursday, 16 Jan 2025", "10:00 AM", models.StatusBooked)

	res, err := m.Reschedule(ctx, a.ID, "Thursday, 16 Jan 2025", "10:00 AM", "try to collide")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "not available")

	unchanged, err := f.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusBooked, unchanged.Status)
	assert.Equal(t, "Wednesday, 15 Jan 2025", unchanged.Date)
}

func TestReschedule_OntoOwnSlot(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusBooked)

	// Same slot: the appointment does not conflict with itself.
	res, err := m.Reschedule(ctx, a.ID, "Wednesday, 15 Jan 2025", "9:30 AM", "keep slot, reset status")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 1, res.Appointment.RescheduleCount)
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusConfirmed)

	res, err := m.Complete(ctx, a.ID, "routine visit, all clear", true)
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, models.StatusCompleted, res.Appointment.Status)
	assert.Equal(t, "routine visit, all clear", res.Appointment.CompletionNotes)
	assert.True(t, res.Appointment.HasPrescription)
	require.NotNil(t, res.Appointment.CompletedAt)

	// A completed appointment still occupies its historical slot.
	available, err := NewAvailabilityResolver(f).CheckSlotAvailability(ctx, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", "")
	require.NoError(t, err)
	assert.False(t, available)
}

func TestMarkNoShow(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	a := seedAppointment(t, f, "doctor-1", "Wednesday, 15 Jan 2025", "9:30 AM", models.StatusConfirmed)

	res, err := m.MarkNoShow(ctx, a.ID, "patient did not arrive")
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.Equal(t, models.StatusNoShow, res.Appointment.Status)
	assert.Equal(t, "patient did not arrive", res.Appointment.NoShowReason)
	require.NotNil(t, res.Appointment.NoShowAt)
}

func TestLifecycle_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	_, err := m.Confirm(ctx, "missing-id", "reception")
	assert.Error(t, err)

	_, err = m.Cancel(ctx, "missing-id", "reason", "patient")
	assert.Error(t, err)

	_, err = m.Reschedule(ctx, "missing-id", "Thursday, 16 Jan 2025", "10:00 AM", "reason")
	assert.Error(t, err)
}

func TestSlotExclusivity(t *testing.T) {
	// After an arbitrary mix of successful operations, at most one
	// non-cancelled appointment occupies any (doctor, date, slot).
	ctx := context.Background()
	f := newFakeStore()
	m := newTestManager(f)

	dates := []string{"Wednesday, 15 Jan 2025", "Thursday, 16 Jan 2025"}
	slots := []string{"9:30 AM", "10:00 AM", "10:30 AM"}

	var ids []string
	for i := 0; i < 10; i++ {
		res, err := m.Book(ctx, BookingRequest{
			UserID:   "user-1",
			DoctorID: "doctor-1",
			Date:     dates[i%len(dates)],
			TimeSlot: slots[i%len(slots)],
		})
		require.NoError(t, err)
		if res.Success {
			ids = append(ids, res.Appointment.ID)
		}
	}
	for i, id := range ids {
		var err error
		switch i % 4 {
		case 0:
			_, err = m.Confirm(ctx, id, "reception")
		case 1:
			_, err = m.Cancel(ctx, id, "churn", "patient")
		case 2:
			_, err = m.Reschedule(ctx, id, dates[(i+1)%len(dates)], slots[(i+1)%len(slots)], "churn")
		case 3:
			_, err = m.Complete(ctx, id, "done", false)
		}
		require.NoError(t, err)
	}

	all, _, err := f.List(ctx)
	require.NoError(t, err)

	occupied := make(map[string]int)
	for _, a := range all {
		if a.Status == models.StatusCancelled {
			continue
		}
		occupied[a.DoctorID+"|"+a.Date+"|"+a.TimeSlot]++
	}
	for slot, n := range occupied {
		assert.LessOrEqual(t, n, 1, "slot %s double-booked", slot)
	}
}

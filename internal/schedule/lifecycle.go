package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"clinic-app-server/internal/models"
)

// Semantic labels attached to lifecycle writes and delivered to hub
// subscribers as the updateType of an update event.
const (
	UpdateConfirmed     = "confirmed"
	UpdateCancelled     = "cancelled"
	UpdateRescheduled   = "rescheduled"
	UpdateCompleted     = "completed"
	UpdateGeneralUpdate = "general_update"
)

// TransitionResult is the uniform outcome of a lifecycle operation.
// Business-rule rejections come back as Success=false with a human-readable
// Error; only store failures surface as Go errors.
type TransitionResult struct {
	Success     bool                `json:"success"`
	Error       string              `json:"error,omitempty"`
	Appointment *models.Appointment `json:"appointment,omitempty"`
}

func failure(format string, args ...interface{}) TransitionResult {
	return TransitionResult{Error: fmt.Sprintf(format, args...)}
}

func succeeded(a *models.Appointment) TransitionResult {
	return TransitionResult{Success: true, Appointment: a}
}

// BookingRequest carries everything the booking flow collected for a new
// appointment. Names are denormalized display copies.
type BookingRequest struct {
	UserID      string
	DoctorID    string
	DoctorName  string
	BranchID    string
	BranchName  string
	ServiceID   string
	ServiceName string
	Date        string
	TimeSlot    string
}

// LifecycleManager is the appointment state machine. Every operation reads
// the current document fresh, performs at most one availability check, and
// issues a single atomic write tagged with its semantic update type.
//
// The availability check and the write are separate round-trips with no
// cross-document transaction; two concurrent bookings for the same slot can
// both pass the check before either writes. See DESIGN.md.
type LifecycleManager struct {
	store    AppointmentStore
	resolver *AvailabilityResolver
	logger   zerolog.Logger

	// CancellationCutoff is the minimum lead time before the appointment at
	// which a cancellation is still accepted. Zero disables the check.
	CancellationCutoff time.Duration

	now func() time.Time
}

// NewLifecycleManager creates a manager with the default two-hour
// cancellation cutoff.
func NewLifecycleManager(s AppointmentStore, resolver *AvailabilityResolver, logger zerolog.Logger) *LifecycleManager {
	return &LifecycleManager{
		store:              s,
		resolver:           resolver,
		logger:             logger,
		CancellationCutoff: 2 * time.Hour,
		now:                time.Now,
	}
}

// Book checks the requested slot and creates the appointment with status
// Booked.
func (m *LifecycleManager) Book(ctx context.Context, req BookingRequest) (TransitionResult, error) {
	available, err := m.resolver.CheckSlotAvailability(ctx, req.DoctorID, req.Date, req.TimeSlot, "")
	if err != nil {
		return TransitionResult{}, err
	}
	if !available {
		return failure("selected time slot is not available"), nil
	}

	appointment := &models.Appointment{
		UserID:      req.UserID,
		DoctorID:    req.DoctorID,
		DoctorName:  req.DoctorName,
		BranchID:    req.BranchID,
		BranchName:  req.BranchName,
		ServiceID:   req.ServiceID,
		ServiceName: req.ServiceName,
		Date:        req.Date,
		TimeSlot:    req.TimeSlot,
		Status:      models.StatusBooked,
	}
	created, err := m.store.Create(ctx, appointment)
	if err != nil {
		return TransitionResult{}, err
	}

	m.logger.Info().Str("appointment_id", created.ID).Str("doctor_id", req.DoctorID).
		Str("date", req.Date).Str("time_slot", req.TimeSlot).Msg("appointment booked")
	return succeeded(created), nil
}

// Confirm marks the appointment as Confirmed and records who confirmed it.
func (m *LifecycleManager) Confirm(ctx context.Context, id, confirmedBy string) (TransitionResult, error) {
	if _, err := m.store.Get(ctx, id); err != nil {
		return TransitionResult{}, err
	}

	updated, err := m.store.Update(ctx, id, map[string]interface{}{
		"status":       models.StatusConfirmed,
		"confirmed_at": m.now(),
		"confirmed_by": confirmedBy,
	}, UpdateConfirmed)
	if err != nil {
		return TransitionResult{}, err
	}
	return succeeded(updated), nil
}

// Cancel marks the appointment as Cancelled. It rejects appointments already
// in a terminal state and, when a cutoff is configured, cancellations inside
// the cutoff window. An unparseable date label skips the cutoff check.
func (m *LifecycleManager) Cancel(ctx context.Context, id, reason, cancelledBy string) (TransitionResult, error) {
	appointment, err := m.store.Get(ctx, id)
	if err != nil {
		return TransitionResult{}, err
	}

	switch appointment.Status {
	case models.StatusCancelled:
		return failure("appointment is already cancelled"), nil
	case models.StatusCompleted:
		return failure("appointment is already completed and can no longer be cancelled"), nil
	case models.StatusBooked, models.StatusConfirmed, models.StatusRescheduled, models.StatusNoShow:
	}

	if m.CancellationCutoff > 0 {
		if startsAt, parseErr := ParseAppointmentDate(appointment.Date, appointment.TimeSlot); parseErr == nil {
			if m.now().After(startsAt.Add(-m.CancellationCutoff)) {
				return failure("appointments can only be cancelled at least %d hours in advance",
					int(m.CancellationCutoff.Hours())), nil
			}
		} else {
			// Legacy labels can be malformed; the cutoff cannot be
			// evaluated, so the cancellation proceeds on status alone.
			m.logger.Warn().Str("appointment_id", id).Str("date", appointment.Date).
				Str("time_slot", appointment.TimeSlot).Msg("unparseable appointment date, skipping cancellation cutoff")
		}
	}

	changes := map[string]interface{}{
		"status":              models.StatusCancelled,
		"cancelled_at":        m.now(),
		"cancellation_reason": reason,
		"cancelled_by":        cancelledBy,
	}
	if appointment.OriginalStatus == "" {
		changes["original_status"] = appointment.Status
	}

	updated, err := m.store.Update(ctx, id, changes, UpdateCancelled)
	if err != nil {
		return TransitionResult{}, err
	}

	m.logger.Info().Str("appointment_id", id).Str("cancelled_by", cancelledBy).Msg("appointment cancelled")
	return succeeded(updated), nil
}

// Reschedule moves the appointment to a new slot. The source must not be in
// a terminal state and the target slot must be free, not counting this
// appointment's own current slot. The pre-reschedule date, slot and status
// are captured once, on the first reschedule only.
func (m *LifecycleManager) Reschedule(ctx context.Context, id, newDate, newTimeSlot, reason string) (TransitionResult, error) {
	appointment, err := m.store.Get(ctx, id)
	if err != nil {
		return TransitionResult{}, err
	}

	switch appointment.Status {
	case models.StatusCancelled:
		return failure("cannot reschedule a cancelled appointment"), nil
	case models.StatusCompleted:
		return failure("cannot reschedule a completed appointment"), nil
	case models.StatusBooked, models.StatusConfirmed, models.StatusRescheduled, models.StatusNoShow:
	}

	available, err := m.resolver.CheckSlotAvailability(ctx, appointment.DoctorID, newDate, newTimeSlot, appointment.ID)
	if err != nil {
		return TransitionResult{}, err
	}
	if !available {
		return failure("selected time slot is not available"), nil
	}

	changes := map[string]interface{}{
		"status":            models.StatusRescheduled,
		"date":              newDate,
		"time_slot":         newTimeSlot,
		"rescheduled_at":    m.now(),
		"reschedule_reason": reason,
		"reschedule_count":  appointment.RescheduleCount + 1,
	}
	if appointment.OriginalDate == "" && appointment.OriginalTimeSlot == "" {
		changes["original_date"] = appointment.Date
		changes["original_time_slot"] = appointment.TimeSlot
		changes["original_status"] = appointment.Status
	}

	updated, err := m.store.Update(ctx, id, changes, UpdateRescheduled)
	if err != nil {
		return TransitionResult{}, err
	}

	m.logger.Info().Str("appointment_id", id).Str("new_date", newDate).
		Str("new_time_slot", newTimeSlot).Int("reschedule_count", updated.RescheduleCount).
		Msg("appointment rescheduled")
	return succeeded(updated), nil
}

// Complete marks the appointment as Completed and records the visit outcome.
func (m *LifecycleManager) Complete(ctx context.Context, id, notes string, hasPrescription bool) (TransitionResult, error) {
	if _, err := m.store.Get(ctx, id); err != nil {
		return TransitionResult{}, err
	}

	updated, err := m.store.Update(ctx, id, map[string]interface{}{
		"status":           models.StatusCompleted,
		"completed_at":     m.now(),
		"completion_notes": notes,
		"has_prescription": hasPrescription,
	}, UpdateCompleted)
	if err != nil {
		return TransitionResult{}, err
	}
	return succeeded(updated), nil
}

// MarkNoShow records that the patient did not attend.
func (m *LifecycleManager) MarkNoShow(ctx context.Context, id, reason string) (TransitionResult, error) {
	if _, err := m.store.Get(ctx, id); err != nil {
		return TransitionResult{}, err
	}

	updated, err := m.store.Update(ctx, id, map[string]interface{}{
		"status":         models.StatusNoShow,
		"no_show_at":     m.now(),
		"no_show_reason": reason,
	}, UpdateGeneralUpdate)
	if err != nil {
		return TransitionResult{}, err
	}
	return succeeded(updated), nil
}

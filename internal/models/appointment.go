package models

import (
	"time"
)

// AppointmentStatus represents the status of an appointment
type AppointmentStatus string

const (
	StatusBooked      AppointmentStatus = "Booked"
	StatusConfirmed   AppointmentStatus = "Confirmed"
	StatusRescheduled AppointmentStatus = "Rescheduled"
	StatusCancelled   AppointmentStatus = "Cancelled"
	StatusCompleted   AppointmentStatus = "Completed"
	StatusNoShow      AppointmentStatus = "No Show"
)

// IsValid reports whether s is one of the known appointment statuses.
func (s AppointmentStatus) IsValid() bool {
	switch s {
	case StatusBooked, StatusConfirmed, StatusRescheduled, StatusCancelled, StatusCompleted, StatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further lifecycle transition may be applied.
// Cancelled and Completed are terminal; every other status can still move.
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case StatusCancelled, StatusCompleted:
		return true
	case StatusBooked, StatusConfirmed, StatusRescheduled, StatusNoShow:
		return false
	}
	return false
}

// Appointment represents a scheduled clinic appointment.
// Date and TimeSlot are the display labels the scheduling core keys on
// ("Monday, 15 Jan 2025" / "9:30 AM"); doctor/branch/service names are
// denormalized copies for display only.
type Appointment struct {
	BaseModel
	UserID      string `gorm:"size:36;index" json:"user_id"`
	DoctorID    string `gorm:"size:36;index" json:"doctor_id"`
	DoctorName  string `gorm:"size:255" json:"doctor_name"`
	BranchID    string `gorm:"size:36" json:"branch_id"`
	BranchName  string `gorm:"size:255" json:"branch_name"`
	ServiceID   string `gorm:"size:36" json:"service_id"`
	ServiceName string `gorm:"size:255" json:"service_name"`

	Date     string            `gorm:"size:64;index" json:"date"`
	TimeSlot string            `gorm:"size:16" json:"time_slot"`
	Status   AppointmentStatus `gorm:"size:20;default:'Booked'" json:"status"`

	// Lifecycle audit fields, populated only by the matching transition.
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ConfirmedBy string     `gorm:"size:64" json:"confirmed_by,omitempty"`

	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `gorm:"size:255" json:"cancellation_reason,omitempty"`
	CancelledBy        string     `gorm:"size:64" json:"cancelled_by,omitempty"`

	RescheduledAt    *time.Time `json:"rescheduled_at,omitempty"`
	RescheduleReason string     `gorm:"size:255" json:"reschedule_reason,omitempty"`
	RescheduleCount  int        `gorm:"default:0" json:"reschedule_count"`

	CompletedAt     *time.Time `json:"completed_at,omitempty"`
	CompletionNotes string     `gorm:"type:text" json:"completion_notes,omitempty"`
	HasPrescription bool       `gorm:"default:false" json:"has_prescription"`

	NoShowAt     *time.Time `json:"no_show_at,omitempty"`
	NoShowReason string     `gorm:"size:255" json:"no_show_reason,omitempty"`

	// Set once on the first reschedule and never overwritten; they always
	// reflect the appointment as it was before any rescheduling.
	OriginalDate     string            `gorm:"size:64" json:"original_date,omitempty"`
	OriginalTimeSlot string            `gorm:"size:16" json:"original_time_slot,omitempty"`
	OriginalStatus   AppointmentStatus `gorm:"size:20" json:"original_status,omitempty"`
}

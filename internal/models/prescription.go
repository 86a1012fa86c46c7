package models

import (
	"time"
)

// Prescription is issued by a clinician when an appointment is completed.
type Prescription struct {
	BaseModel
	AppointmentID string `gorm:"size:36;index" json:"appointment_id"`
	PatientID     string `gorm:"size:36;index" json:"patient_id"`
	DoctorID      string `gorm:"size:36;index" json:"doctor_id"`
	DoctorName    string `gorm:"size:255" json:"doctor_name"`
	Notes         string `gorm:"type:text" json:"notes,omitempty"`

	Items []PrescriptionItem `gorm:"foreignKey:PrescriptionID" json:"items"`

	Appointment Appointment `gorm:"foreignKey:AppointmentID" json:"-"`
}

// PrescriptionItem is a single medication line on a prescription.
type PrescriptionItem struct {
	BaseModel
	PrescriptionID string     `gorm:"size:36;index" json:"prescription_id"`
	MedicationName string     `gorm:"size:255;not null" json:"medication_name"`
	Dosage         string     `gorm:"size:100" json:"dosage"`
	Frequency      string     `gorm:"size:100" json:"frequency"`
	DurationDays   int        `gorm:"default:0" json:"duration_days"`
	Instructions   string     `gorm:"size:255" json:"instructions,omitempty"`
	StartDate      *time.Time `json:"start_date,omitempty"`
}

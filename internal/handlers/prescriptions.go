package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/schedule"
	"clinic-app-server/internal/utils"
)

// PrescriptionHandler handles prescriptions issued from completed appointments.
type PrescriptionHandler struct {
	DB    *gorm.DB
	Store schedule.AppointmentStore
}

// NewPrescriptionHandler creates a new PrescriptionHandler.
func NewPrescriptionHandler(db *gorm.DB, s schedule.AppointmentStore) *PrescriptionHandler {
	return &PrescriptionHandler{DB: db, Store: s}
}

// PrescriptionItemRequest is one medication line in a create request.
type PrescriptionItemRequest struct {
	MedicationName string `json:"medication_name" binding:"required"`
	Dosage         string `json:"dosage"`
	Frequency      string `json:"frequency"`
	DurationDays   int    `json:"duration_days"`
	Instructions   string `json:"instructions"`
}

// CreatePrescriptionRequest represents the request body for issuing a prescription.
type CreatePrescriptionRequest struct {
	AppointmentID string                    `json:"appointment_id" binding:"required,uuid"`
	Notes         string                    `json:"notes"`
	Items         []PrescriptionItemRequest `json:"items" binding:"required,min=1,dive"`
}

// CreatePrescription issues a prescription against a completed appointment.
// Doctors issue for their own appointments; admins for any.
func (h *PrescriptionHandler) CreatePrescription(c *gin.Context) {
	var req CreatePrescriptionRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	appointment, err := h.Store.Get(c.Request.Context(), req.AppointmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	if userRole != models.RoleAdmin && appointment.DoctorID != userID {
		utils.Forbidden(c, "You can only issue prescriptions for your own appointments.")
		return
	}
	if appointment.Status != models.StatusCompleted {
		utils.Conflict(c, "Prescriptions can only be issued for completed appointments")
		return
	}

	prescription := models.Prescription{
		AppointmentID: appointment.ID,
		PatientID:     appointment.UserID,
		DoctorID:      appointment.DoctorID,
		DoctorName:    appointment.DoctorName,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		prescription.Items = append(prescription.Items, models.PrescriptionItem{
			MedicationName: item.MedicationName,
			Dosage:         item.Dosage,
			Frequency:      item.Frequency,
			DurationDays:   item.DurationDays,
			Instructions:   item.Instructions,
		})
	}

	if err := h.DB.Create(&prescription).Error; err != nil {
		utils.InternalServerError(c, "Failed to create prescription: "+err.Error())
		return
	}

	if !appointment.HasPrescription {
		if _, err := h.Store.Update(c.Request.Context(), appointment.ID,
			map[string]interface{}{"has_prescription": true}, schedule.UpdateGeneralUpdate); err != nil {
			utils.InternalServerError(c, "Failed to flag appointment: "+err.Error())
			return
		}
	}

	utils.Created(c, "Prescription created successfully", prescription)
}

// GetPrescriptionsForPatient lists prescriptions for a patient. Patients see
// their own; doctors see the ones they issued for that patient; admins all.
func (h *PrescriptionHandler) GetPrescriptionsForPatient(c *gin.Context) {
	patientID := c.Param("patientId")

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	query := h.DB.Preload("Items").Order("created_at desc").Where("patient_id = ?", patientID)
	switch userRole {
	case models.RolePatient:
		if userID != patientID {
			utils.Forbidden(c, "Patients can only view their own prescriptions.")
			return
		}
	case models.RoleDoctor:
		query = query.Where("doctor_id = ?", userID)
	case models.RoleAdmin:
	default:
		utils.Forbidden(c, "User role not permitted to view prescriptions")
		return
	}

	var prescriptions []models.Prescription
	if err := query.Find(&prescriptions).Error; err != nil {
		utils.InternalServerError(c, "Failed to fetch prescriptions: "+err.Error())
		return
	}
	utils.Success(c, "Prescriptions fetched successfully", prescriptions)
}

// GetPrescriptionByID fetches a single prescription, for the patient it
// belongs to, the issuing doctor, or an admin.
func (h *PrescriptionHandler) GetPrescriptionByID(c *gin.Context) {
	var prescription models.Prescription
	if err := h.DB.Preload("Items").First(&prescription, "id = ?", c.Param("id")).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Prescription not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole != models.RoleAdmin && userID != prescription.PatientID && userID != prescription.DoctorID {
		utils.Forbidden(c, "You are not authorized to view this prescription")
		return
	}

	utils.Success(c, "Prescription fetched successfully", prescription)
}

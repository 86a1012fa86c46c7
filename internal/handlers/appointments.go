package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/schedule"
	"clinic-app-server/internal/store"
	"clinic-app-server/internal/utils"
)

// AppointmentHandler handles appointment related requests. All lifecycle
// transitions go through the schedule.LifecycleManager; the handler only
// does authorization and request shaping.
type AppointmentHandler struct {
	DB       *gorm.DB
	Store    schedule.AppointmentStore
	Manager  *schedule.LifecycleManager
	Resolver *schedule.AvailabilityResolver
}

// NewAppointmentHandler creates a new AppointmentHandler.
func NewAppointmentHandler(db *gorm.DB, s schedule.AppointmentStore, manager *schedule.LifecycleManager, resolver *schedule.AvailabilityResolver) *AppointmentHandler {
	return &AppointmentHandler{DB: db, Store: s, Manager: manager, Resolver: resolver}
}

func (h *AppointmentHandler) respondTransition(c *gin.Context, message string, res schedule.TransitionResult, err error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return
	}
	if !res.Success {
		utils.Conflict(c, res.Error)
		return
	}
	utils.Success(c, message, res.Appointment)
}

// BookAppointmentRequest represents the request body for booking an appointment.
type BookAppointmentRequest struct {
	DoctorID    string `json:"doctor_id" binding:"required,uuid"`
	BranchID    string `json:"branch_id"`
	BranchName  string `json:"branch_name"`
	ServiceID   string `json:"service_id"`
	ServiceName string `json:"service_name"`
	Date        string `json:"date" binding:"required"`
	TimeSlot    string `json:"time_slot" binding:"required"`
}

// BookAppointment books a new appointment for the authenticated user.
func (h *AppointmentHandler) BookAppointment(c *gin.Context) {
	var req BookAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}

	// Verify doctor exists and is a doctor; denormalize the display name.
	var doctor models.User
	if err := h.DB.Where("id = ? AND role = ?", req.DoctorID, models.RoleDoctor).First(&doctor).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Doctor not found or user is not a doctor")
		} else {
			utils.InternalServerError(c, "Database error verifying doctor: "+err.Error())
		}
		return
	}

	if _, err := schedule.ParseAppointmentDate(req.Date, req.TimeSlot); err != nil {
		utils.BadRequest(c, "Invalid date or time slot format: "+err.Error())
		return
	}

	res, err := h.Manager.Book(c.Request.Context(), schedule.BookingRequest{
		UserID:      userID,
		DoctorID:    req.DoctorID,
		DoctorName:  doctor.FirstName + " " + doctor.LastName,
		BranchID:    req.BranchID,
		BranchName:  req.BranchName,
		ServiceID:   req.ServiceID,
		ServiceName: req.ServiceName,
		Date:        req.Date,
		TimeSlot:    req.TimeSlot,
	})
	if err != nil {
		utils.InternalServerError(c, "Failed to book appointment: "+err.Error())
		return
	}
	if !res.Success {
		utils.Conflict(c, res.Error)
		return
	}
	utils.Created(c, "Appointment booked successfully", res.Appointment)
}

// GetAppointmentsForUser fetches appointments for the logged-in user:
// patients see their bookings, doctors their schedule, admins everything.
func (h *AppointmentHandler) GetAppointmentsForUser(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	queries := []store.Query{store.OrderDesc("created_at")}
	switch userRole {
	case models.RolePatient:
		queries = append(queries, store.Equal("user_id", userID))
	case models.RoleDoctor:
		queries = append(queries, store.Equal("doctor_id", userID))
	case models.RoleAdmin:
	default:
		utils.Forbidden(c, "User role not permitted to view appointments")
		return
	}

	appointments, total, err := h.Store.List(c.Request.Context(), queries...)
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch appointments: "+err.Error())
		return
	}
	utils.Success(c, "Appointments fetched successfully", gin.H{
		"appointments": appointments,
		"total":        total,
	})
}

func (h *AppointmentHandler) loadAuthorized(c *gin.Context) (*models.Appointment, bool) {
	appointment, err := h.Store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.NotFound(c, "Appointment not found")
		} else {
			utils.InternalServerError(c, "Database error: "+err.Error())
		}
		return nil, false
	}

	userID, _ := middleware.GetUserIDFromContext(c)
	userRole, _ := middleware.GetUserRoleFromContext(c)

	if userRole != models.RoleAdmin && userID != appointment.UserID && userID != appointment.DoctorID {
		utils.Forbidden(c, "You are not authorized to access this appointment")
		return nil, false
	}
	return appointment, true
}

// GetAppointmentByID fetches a single appointment, for involved users or admins.
func (h *AppointmentHandler) GetAppointmentByID(c *gin.Context) {
	appointment, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	utils.Success(c, "Appointment fetched successfully", appointment)
}

// GetBookedSlots returns the occupied time slots for a doctor and date.
func (h *AppointmentHandler) GetBookedSlots(c *gin.Context) {
	doctorID := c.Query("doctorId")
	date := c.Query("date")
	if doctorID == "" || date == "" {
		utils.BadRequest(c, "doctorId and date query parameters are required")
		return
	}

	slots, err := h.Resolver.GetBookedSlots(c.Request.Context(), doctorID, date, c.Query("exclude"))
	if err != nil {
		utils.InternalServerError(c, "Failed to fetch booked slots: "+err.Error())
		return
	}
	utils.Success(c, "Booked slots fetched successfully", gin.H{"booked_slots": slots})
}

// CheckAvailability reports whether a single (doctor, date, time slot) is free.
func (h *AppointmentHandler) CheckAvailability(c *gin.Context) {
	doctorID := c.Query("doctorId")
	date := c.Query("date")
	timeSlot := c.Query("timeSlot")
	if doctorID == "" || date == "" || timeSlot == "" {
		utils.BadRequest(c, "doctorId, date and timeSlot query parameters are required")
		return
	}

	available, err := h.Resolver.CheckSlotAvailability(c.Request.Context(), doctorID, date, timeSlot, c.Query("exclude"))
	if err != nil {
		utils.InternalServerError(c, "Failed to check availability: "+err.Error())
		return
	}
	utils.Success(c, "Availability checked successfully", gin.H{"available": available})
}

// ConfirmAppointment marks an appointment as confirmed (doctor or admin).
func (h *AppointmentHandler) ConfirmAppointment(c *gin.Context) {
	appointment, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RolePatient {
		utils.Forbidden(c, "Patients cannot confirm appointments.")
		return
	}

	res, err := h.Manager.Confirm(c.Request.Context(), appointment.ID, string(userRole))
	h.respondTransition(c, "Appointment confirmed successfully", res, err)
}

// CancelAppointmentRequest represents the request body for a cancellation.
type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// CancelAppointment cancels an appointment (involved patient, doctor or admin).
func (h *AppointmentHandler) CancelAppointment(c *gin.Context) {
	var req CancelAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	appointment, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	res, err := h.Manager.Cancel(c.Request.Context(), appointment.ID, req.Reason, string(userRole))
	h.respondTransition(c, "Appointment cancelled successfully", res, err)
}

// RescheduleAppointmentRequest represents the request body for rescheduling.
type RescheduleAppointmentRequest struct {
	NewDate     string `json:"new_date" binding:"required"`
	NewTimeSlot string `json:"new_time_slot" binding:"required"`
	Reason      string `json:"reason"`
}

// RescheduleAppointment moves an appointment to a new slot.
func (h *AppointmentHandler) RescheduleAppointment(c *gin.Context) {
	var req RescheduleAppointmentRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}

	if _, err := schedule.ParseAppointmentDate(req.NewDate, req.NewTimeSlot); err != nil {
		utils.BadRequest(c, "Invalid date or time slot format: "+err.Error())
		return
	}

	appointment, ok := h.loadAuthorized(c)
	if !ok {
		return
	}

	res, err := h.Manager.Reschedule(c.Request.Context(), appointment.ID, req.NewDate, req.NewTimeSlot, req.Reason)
	h.respondTransition(c, "Appointment rescheduled successfully", res, err)
}

// CompleteAppointmentRequest represents the request body for completing a visit.
type CompleteAppointmentRequest struct {
	Notes           string `json:"notes"`
	HasPrescription bool   `json:"has_prescription"`
}

// CompleteAppointment marks an appointment as completed (doctor or admin).
func (h *AppointmentHandler) CompleteAppointment(c *gin.Context) {
	var req CompleteAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	appointment, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RolePatient {
		utils.Forbidden(c, "Patients cannot complete appointments.")
		return
	}

	res, err := h.Manager.Complete(c.Request.Context(), appointment.ID, req.Notes, req.HasPrescription)
	h.respondTransition(c, "Appointment completed successfully", res, err)
}

// MarkNoShowRequest represents the request body for recording a no-show.
type MarkNoShowRequest struct {
	Reason string `json:"reason"`
}

// MarkNoShow records that the patient did not attend (doctor or admin).
func (h *AppointmentHandler) MarkNoShow(c *gin.Context) {
	var req MarkNoShowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequest(c, "Invalid request payload: "+err.Error())
		return
	}

	appointment, ok := h.loadAuthorized(c)
	if !ok {
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)
	if userRole == models.RolePatient {
		utils.Forbidden(c, "Patients cannot mark appointments as no-show.")
		return
	}

	res, err := h.Manager.MarkNoShow(c.Request.Context(), appointment.ID, req.Reason)
	h.respondTransition(c, "Appointment marked as no-show", res, err)
}

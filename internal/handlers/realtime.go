package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"clinic-app-server/internal/middleware"
	"clinic-app-server/internal/models"
	"clinic-app-server/internal/schedule"
	"clinic-app-server/internal/utils"
)

// RealtimeHandler streams classified appointment events to clients over a
// websocket, replacing client-side polling.
type RealtimeHandler struct {
	Hub      *schedule.Hub
	Logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewRealtimeHandler creates a RealtimeHandler over the given hub.
func NewRealtimeHandler(hub *schedule.Hub, logger zerolog.Logger, origin string) *RealtimeHandler {
	return &RealtimeHandler{
		Hub:    hub,
		Logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				o := r.Header.Get("Origin")
				return o == "" || o == origin
			},
		},
	}
}

// StreamAppointments upgrades the connection and forwards hub events until
// the client disconnects. Patients are pinned to their own bookings and
// doctors to their own schedule; admins may filter via query parameters.
func (h *RealtimeHandler) StreamAppointments(c *gin.Context) {
	userID, exists := middleware.GetUserIDFromContext(c)
	if !exists {
		utils.Unauthorized(c, "User not authenticated")
		return
	}
	userRole, _ := middleware.GetUserRoleFromContext(c)

	var opts schedule.SubscribeOptions
	switch userRole {
	case models.RolePatient:
		opts.UserID = userID
	case models.RoleDoctor:
		opts.DoctorID = userID
	case models.RoleAdmin:
		opts.UserID = c.Query("userId")
		opts.DoctorID = c.Query("doctorId")
	default:
		utils.Forbidden(c, "User role not permitted to stream appointments")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	// Hub callbacks must not block; a slow consumer drops events rather
	// than stalling the writer.
	events := make(chan schedule.AppointmentEvent, 32)
	sub := h.Hub.Subscribe(func(e schedule.AppointmentEvent) {
		select {
		case events <- e:
		default:
			h.Logger.Warn().Str("user_id", userID).Msg("realtime client backlogged, dropping event")
		}
	}, opts)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer func() {
		h.Hub.Unsubscribe(sub)
		conn.Close()
	}()

	for {
		select {
		case <-done:
			return
		case e := <-events:
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		}
	}
}

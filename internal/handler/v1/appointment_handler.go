package v1

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/domain/appointment"
	"github.com/dmehra2102/prod-golang-projects/vetcare/internal/service"
	"github.com/gin-gonic/gin"
)

type AppointmentService interface {
	CreateAppointment(ctx context.Context, cmd *appointment.CreateAppointmentCommand, caller service.Caller) (*appointment.Appointment, error)
	ApproveAppointment(ctx context.Context, id int64, caller service.Caller) (*appointment.Appointment, error)
	RejectAppointment(ctx context.Context, id int64, caller service.Caller) (*appointment.Appointment, error)
	CompleteAppointment(ctx context.Context, id int64, caller service.Caller) (*appointment.Appointment, error)
	CancelAppointment(ctx context.Context, id int64, caller service.Caller) (*appointment.Appointment, error)
	GetAppointment(ctx context.Context, id int64, caller service.Caller) (*appointment.Appointment, error)
	ListAppointmentsByDate(ctx context.Context, date time.Time) ([]*appointment.Appointment, error)
}

type AppointmentHandler struct {
	svc AppointmentService
}

func NewAppointmentHandler(svc AppointmentService) *AppointmentHandler {
	return &AppointmentHandler{svc: svc}
}

const maxDurationMinutes = 24 * 60

type createAppointmentRequest struct {
	PetID             int64   `json:"pet_id" binding:"required"`
	Date              string  `json:"date" binding:"required"`
	Time              string  `json:"time" binding:"required"`
	DurationMinutes   *int    `json:"duration_minutes"`
	ServiceIDs        []int64 `json:"service_ids"`
	AppointmentStatus *int    `json:"appointment_status"`
	CreatedByAdmin    bool    `json:"created_by_admin"`
}

type appointmentResponse struct {
	ID              int64     `json:"id"`
	PetID           int64     `json:"pet_id"`
	Date            string    `json:"date"`
	Time            string    `json:"time"`
	DurationMinutes *int      `json:"duration_minutes"`
	Status          int       `json:"status"`
	StatusName      string    `json:"status_name"`
	NextStatuses    []string  `json:"next_statuses"`
	ServiceIDs      []int64   `json:"service_ids"`
	StartsAt        time.Time `json:"starts_at"`
	EndsAt          time.Time `json:"ends_at"`
	CreatedBy       int64     `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

func toResponse(a *appointment.Appointment) appointmentResponse {
	r := appointmentResponse{
		ID:           a.ID,
		PetID:        a.PetID,
		Date:         a.Date.Format(time.DateOnly),
		Time:         formatTimeOfDay(a.Time),
		Status:       int(a.Status),
		StatusName:   a.Status.String(),
		NextStatuses: make([]string, 0, 3),
		ServiceIDs:   a.ServiceIDs(),
		StartsAt:     a.StartsAt(),
		EndsAt:       a.EndsAt(),
		CreatedBy:    a.CreatedBy,
		CreatedAt:    a.CreatedAt,
	}
	for _, next := range appointment.AllowedTransitions(a.Status) {
		r.NextStatuses = append(r.NextStatuses, next.String())
	}
	if a.Duration != nil {
		m := int(*a.Duration / time.Minute)
		r.DurationMinutes = &m
	}
	return r
}

// Create handles POST /appointments.
func (h *AppointmentHandler) Create(c *gin.Context) {
	var req createAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	caller := callerFrom(c)
	cmd, fields := req.toCommand()
	if len(fields) > 0 {
		respondServiceError(c, &service.ValidationError{Fields: fields})
		return
	}
	// Only administrators may choose the initial status.
	cmd.CreatedByAdmin = req.CreatedByAdmin && caller.IsAdmin()
	if !caller.IsAdmin() {
		cmd.Status = nil
	}
	cmd.CreatedBy = caller.UserID

	a, err := h.svc.CreateAppointment(c.Request.Context(), cmd, caller)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondCreated(c, toResponse(a))
}

func (req *createAppointmentRequest) toCommand() (*appointment.CreateAppointmentCommand, []string) {
	var fields []string

	date, err := time.Parse(time.DateOnly, req.Date)
	if err != nil {
		fields = append(fields, "date must be formatted YYYY-MM-DD")
	}
	tod, err := parseTimeOfDay(req.Time)
	if err != nil {
		fields = append(fields, "time must be formatted HH:MM or HH:MM:SS")
	}

	cmd := &appointment.CreateAppointmentCommand{
		PetID:      req.PetID,
		Date:       date,
		Time:       tod,
		ServiceIDs: req.ServiceIDs,
		Status:     req.AppointmentStatus,
	}
	if req.DurationMinutes != nil {
		if m := *req.DurationMinutes; m < 0 || m > maxDurationMinutes {
			fields = append(fields, fmt.Sprintf("duration_minutes must be between 0 and %d", maxDurationMinutes))
		} else {
			d := time.Duration(m) * time.Minute
			cmd.Duration = &d
		}
	}
	return cmd, fields
}

func parseTimeOfDay(s string) (time.Duration, error) {
	layout := "15:04"
	if len(s) > 5 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second, nil
}

func formatTimeOfDay(d time.Duration) string {
	return time.Time{}.Add(d).Format("15:04")
}

// Get handles GET /appointments/:id.
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, err := h.svc.GetAppointment(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toResponse(a))
}

// List handles GET /appointments?date=YYYY-MM-DD.
func (h *AppointmentHandler) List(c *gin.Context) {
	date, err := time.Parse(time.DateOnly, c.Query("date"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "query parameter date must be formatted YYYY-MM-DD")
		return
	}
	list, err := h.svc.ListAppointmentsByDate(c.Request.Context(), date)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	out := make([]appointmentResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toResponse(a))
	}
	respondOK(c, out)
}

func (h *AppointmentHandler) Approve(c *gin.Context) { h.transition(c, h.svc.ApproveAppointment) }
func (h *AppointmentHandler) Reject(c *gin.Context) { h.transition(c, h.svc.RejectAppointment) }
func (h *AppointmentHandler) Complete(c *gin.Context) { h.transition(c, h.svc.CompleteAppointment) }
func (h *AppointmentHandler) Cancel(c *gin.Context) { h.transition(c, h.svc.CancelAppointment) }

type transitionFunc func(ctx context.Context, id int64, caller service.Caller) (*appointment.Appointment, error)

func (h *AppointmentHandler) transition(c *gin.Context, op transitionFunc) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	a, err := op(c.Request.Context(), id, callerFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondOK(c, toResponse(a))
}

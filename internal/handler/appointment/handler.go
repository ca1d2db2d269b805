package appointment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/appointment"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.POST("", h.BookAppointment)
		appointments.GET("", h.ListAppointments)
		appointments.GET("/:id", h.GetAppointment)
		appointments.GET("/:id/actions", h.AvailableActions)
		appointments.POST("/:id/cancel-request", h.RequestCancel)
		appointments.POST("/:id/cancel/approve", h.ApproveCancel)
		appointments.POST("/:id/cancel/reject", h.RejectCancel)
		appointments.POST("/:id/advance", h.Advance)
		appointments.POST("/:id/result", h.RecordResult)
		appointments.POST("/:id/sti-test", h.RequestSTITest)
	}
}

func (h *Handler) BookAppointment(c *gin.Context) {
	var req model.BookAppointmentRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	apt, err := h.service.Book(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, apt)
}

func (h *Handler) GetAppointment(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	apt, err := h.service.GetAppointment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, apt)
}

// ListAppointments filters by customer_id, slot_id and status. A code query looks up a
// single appointment by its booking reference instead.
func (h *Handler) ListAppointments(c *gin.Context) {
	if code := c.Query("code"); code != "" {
		apt, err := h.service.GetByCode(c.Request.Context(), code)
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, apt)
		return
	}

	filters := &model.AppointmentFilters{}
	var ok bool
	if filters.CustomerID, ok = httputil.ParseUUIDQuery(c, "customer_id"); !ok {
		return
	}
	if filters.SlotID, ok = httputil.ParseUUIDQuery(c, "slot_id"); !ok {
		return
	}
	if c.Query("status") != "" {
		raw, ok := httputil.IntQuery(c, "status", 0)
		if !ok {
			return
		}
		status := model.AppointmentStatus(raw)
		if !status.Valid() {
			httputil.RespondWithError(c, apperrors.Validation("unknown status", nil).WithDetail("status", raw))
			return
		}
		filters.Status = &status
	}

	appointments, err := h.service.ListAppointments(c.Request.Context(), filters)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, appointments)
}

func (h *Handler) AvailableActions(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	actions, err := h.service.AvailableActions(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"actions": actions})
}

func (h *Handler) RequestCancel(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.RequestCancelRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.RequestCancel(c.Request.Context(), id, req.CustomerID))
}

func (h *Handler) ApproveCancel(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.StaffActionRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.ApproveCancel(c.Request.Context(), id, req.StaffID))
}

func (h *Handler) RejectCancel(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.StaffActionRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.RejectCancel(c.Request.Context(), id, req.StaffID))
}

func (h *Handler) Advance(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.AdvanceRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.StaffAdvance(c.Request.Context(), id, &req))
}

func (h *Handler) RecordResult(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.RecordResultRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.RecordResult(c.Request.Context(), id, &req))
}

func (h *Handler) RequestSTITest(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.RequestSTITestRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	h.respond(c)(h.service.RequestSTITest(c.Request.Context(), id, &req))
}

func (h *Handler) respond(c *gin.Context) func(*model.Appointment, error) {
	return func(apt *model.Appointment, err error) {
		if err != nil {
			httputil.RespondWithError(c, err)
			return
		}
		httputil.RespondWithSuccess(c, http.StatusOK, apt)
	}
}

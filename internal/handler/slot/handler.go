package slot

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/slot"
	"github.com/jwalitptl/booking-engine/pkg/calendar"
	"github.com/jwalitptl/booking-engine/pkg/clock"
	"github.com/jwalitptl/booking-engine/pkg/httputil"
)

type Handler struct {
	service *slot.Service
	clock   clock.Clock
	loc     *time.Location
}

func NewHandler(service *slot.Service, clk clock.Clock, loc *time.Location) *Handler {
	return &Handler{service: service, clock: clk, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinic := r.Group("/clinics/:clinic_id/slots")
	{
		clinic.POST("", h.CreateSlot)
		clinic.GET("", h.ListSlots)
		clinic.GET("/week", h.WeekGrid)
	}

	slots := r.Group("/slots")
	{
		slots.GET("/:id", h.GetSlot)
		slots.PUT("/:id", h.UpdateSlot)
	}
}

func (h *Handler) CreateSlot(c *gin.Context) {
	clinicID, ok := httputil.ParseUUIDParam(c, "clinic_id")
	if !ok {
		return
	}
	var req model.CreateSlotRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	s, err := h.service.CreateSlot(c.Request.Context(), clinicID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, s)
}

// ListSlots returns the slots of ?date=, today when absent.
func (h *Handler) ListSlots(c *gin.Context) {
	clinicID, ok := httputil.ParseUUIDParam(c, "clinic_id")
	if !ok {
		return
	}
	date := c.DefaultQuery("date", h.clock.Now().In(h.loc).Format(model.DateLayout))

	slots, err := h.service.ListByDate(c.Request.Context(), clinicID, date)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, slots)
}

func (h *Handler) WeekGrid(c *gin.Context) {
	clinicID, ok := httputil.ParseUUIDParam(c, "clinic_id")
	if !ok {
		return
	}
	current := calendar.WeekOf(h.clock.Now().In(h.loc))
	week, ok := httputil.IntQuery(c, "week", current.Number)
	if !ok {
		return
	}
	year, ok := httputil.IntQuery(c, "year", current.Year)
	if !ok {
		return
	}

	grid, err := h.service.WeekGrid(c.Request.Context(), clinicID, week, year)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, grid)
}

func (h *Handler) GetSlot(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	s, err := h.service.GetSlot(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, s)
}

func (h *Handler) UpdateSlot(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.UpdateSlotRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	s, err := h.service.UpdateSlot(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, s)
}

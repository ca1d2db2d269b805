package assignment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/assignment"
	"github.com/jwalitptl/booking-engine/pkg/httputil"
)

type Handler struct {
	service *assignment.Service
}

func NewHandler(service *assignment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultants := r.Group("/slots/:id/consultants")
	{
		consultants.POST("", h.RegisterSlot)
		consultants.GET("", h.ListBySlot)
		consultants.DELETE("/:consultant_id", h.UnregisterSlot)
	}
	r.POST("/assignments/swap", h.SwapSlots)
	r.GET("/consultants/:consultant_id/assignments", h.ListByConsultant)
}

func (h *Handler) RegisterSlot(c *gin.Context) {
	slotID, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.RegisterSlotRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	a, err := h.service.RegisterSlot(c.Request.Context(), slotID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, a)
}

func (h *Handler) UnregisterSlot(c *gin.Context) {
	slotID, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	consultantID, ok := httputil.ParseUUIDParam(c, "consultant_id")
	if !ok {
		return
	}

	if err := h.service.UnregisterSlot(c.Request.Context(), consultantID, slotID); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) SwapSlots(c *gin.Context) {
	var req model.SwapSlotsRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	if err := h.service.SwapSlots(c.Request.Context(), &req); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, gin.H{"swapped": true})
}

func (h *Handler) ListBySlot(c *gin.Context) {
	slotID, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	assignments, err := h.service.ListBySlot(c.Request.Context(), slotID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, assignments)
}

// ListByConsultant takes an inclusive ?from=&to= date range.
func (h *Handler) ListByConsultant(c *gin.Context) {
	consultantID, ok := httputil.ParseUUIDParam(c, "consultant_id")
	if !ok {
		return
	}
	assignments, err := h.service.ListByConsultant(c.Request.Context(), consultantID, c.Query("from"), c.Query("to"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, assignments)
}

package catalog

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/catalog"
	"github.com/jwalitptl/booking-engine/pkg/httputil"
)

type Handler struct {
	service *catalog.Service
}

func NewHandler(service *catalog.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/clinics/:clinic_id/services", h.CreateService)
	r.GET("/clinics/:clinic_id/services", h.ListServices)
	r.GET("/services/:id", h.GetService)
}

func (h *Handler) CreateService(c *gin.Context) {
	clinicID, ok := httputil.ParseUUIDParam(c, "clinic_id")
	if !ok {
		return
	}
	var req model.CreateServiceRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	svc, err := h.service.CreateService(c.Request.Context(), clinicID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, svc)
}

func (h *Handler) ListServices(c *gin.Context) {
	clinicID, ok := httputil.ParseUUIDParam(c, "clinic_id")
	if !ok {
		return
	}
	services, err := h.service.ListServices(c.Request.Context(), clinicID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, services)
}

func (h *Handler) GetService(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	svc, err := h.service.GetService(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, svc)
}

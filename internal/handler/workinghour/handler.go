package workinghour

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/workinghour"
	"github.com/jwalitptl/booking-engine/pkg/httputil"
)

type Handler struct {
	service *workinghour.Service
}

func NewHandler(service *workinghour.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	clinic := r.Group("/clinics/:clinic_id/working-hours")
	{
		clinic.POST("", h.CreateWorkingHour)
		clinic.GET("", h.ListWorkingHours)
	}

	wh := r.Group("/working-hours")
	{
		wh.GET("/:id", h.GetWorkingHour)
		wh.PUT("/:id", h.UpdateWorkingHour)
		wh.POST("/:id/activate", h.ActivateWorkingHour)
		wh.POST("/:id/deactivate", h.DeactivateWorkingHour)
	}
}

func (h *Handler) CreateWorkingHour(c *gin.Context) {
	clinicID, ok := httputil.ParseUUIDParam(c, "clinic_id")
	if !ok {
		return
	}
	var req model.CreateWorkingHourRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	wh, err := h.service.CreateWorkingHour(c.Request.Context(), clinicID, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, wh)
}

// ListWorkingHours lists a clinic's windows, or only one weekday's with ?day_in_week=.
func (h *Handler) ListWorkingHours(c *gin.Context) {
	clinicID, ok := httputil.ParseUUIDParam(c, "clinic_id")
	if !ok {
		return
	}

	var (
		hours []*model.WorkingHour
		err   error
	)
	if c.Query("day_in_week") != "" {
		day, ok := httputil.IntQuery(c, "day_in_week", 0)
		if !ok {
			return
		}
		hours, err = h.service.WorkingHoursForDay(c.Request.Context(), clinicID, day)
	} else {
		hours, err = h.service.ListWorkingHours(c.Request.Context(), clinicID)
	}
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, hours)
}

func (h *Handler) GetWorkingHour(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	wh, err := h.service.GetWorkingHour(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, wh)
}

func (h *Handler) UpdateWorkingHour(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req model.UpdateWorkingHourRequest
	if !httputil.BindJSON(c, &req) {
		return
	}

	wh, err := h.service.UpdateWorkingHour(c.Request.Context(), id, &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, wh)
}

func (h *Handler) ActivateWorkingHour(c *gin.Context) {
	h.toggle(c, h.service.ActivateWorkingHour)
}

func (h *Handler) DeactivateWorkingHour(c *gin.Context) {
	h.toggle(c, h.service.DeactivateWorkingHour)
}

func (h *Handler) toggle(c *gin.Context, apply func(ctx context.Context, id uuid.UUID) (*model.WorkingHour, error)) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	wh, err := apply(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, wh)
}

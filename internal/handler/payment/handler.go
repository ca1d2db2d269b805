package payment

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/service/payment"
	"github.com/jwalitptl/booking-engine/pkg/httputil"
)

type Handler struct {
	service *payment.Service
}

func NewHandler(service *payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/appointments/:id/payments", h.InitiatePayment)
	r.POST("/payments/webhook", h.PaymentWebhook)
}

func (h *Handler) InitiatePayment(c *gin.Context) {
	id, ok := httputil.ParseUUIDParam(c, "id")
	if !ok {
		return
	}
	checkout, err := h.service.InitiatePayment(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, checkout)
}

// PaymentWebhook applies a provider callback. Redelivered events answer 200 with
// duplicate set so the provider stops retrying.
func (h *Handler) PaymentWebhook(c *gin.Context) {
	var req model.PaymentResultRequest
	if !httputil.BindJSON(c, &req) {
		return
	}
	result, err := h.service.OnPaymentResult(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, result)
}

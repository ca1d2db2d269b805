package httputil

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

// Response wraps all successful API responses
type Response struct {
	Status string      `json:"status"`
	Data   interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Status: "success", Data: data})
}

// RespondWithError hands err to the error middleware, which renders it.
func RespondWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ParseUUIDParam reads a path parameter as a UUID. On failure the error has already
// been reported and ok is false.
func ParseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		RespondWithError(c, apperrors.Validation("invalid "+name, err).WithDetail("field", name))
		return uuid.Nil, false
	}
	return id, true
}

// ParseUUIDQuery reads an optional query parameter as a UUID.
func ParseUUIDQuery(c *gin.Context, name string) (uuid.UUID, bool) {
	raw := c.Query(name)
	if raw == "" {
		return uuid.Nil, true
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		RespondWithError(c, apperrors.Validation("invalid "+name, err).WithDetail("field", name))
		return uuid.Nil, false
	}
	return id, true
}

// IntQuery reads an integer query parameter, falling back to def when absent.
func IntQuery(c *gin.Context, name string, def int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		RespondWithError(c, apperrors.Validation("invalid "+name, err).WithDetail("field", name))
		return 0, false
	}
	return v, true
}

// BindJSON decodes and validates the request body.
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		RespondWithError(c, apperrors.Validation("invalid request body", err))
		return false
	}
	return true
}

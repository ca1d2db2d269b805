package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Status    string                 `json:"status"`
	Code      apperrors.Kind         `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
}

// ErrorHandler renders the last error attached with c.Error. Application errors keep
// their kind and details; anything else becomes an opaque 500.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		lastErr := c.Errors.Last().Err

		status, body := render(lastErr, requestID)
		event := log.Warn()
		if status >= http.StatusInternalServerError {
			event = log.Error()
		}
		event.
			Err(lastErr).
			Str("request_id", requestID).
			Str("path", c.Request.URL.Path).
			Str("method", c.Request.Method).
			Str("code", string(body.Code)).
			Msg("Request error")

		if c.Writer.Written() {
			return
		}
		c.JSON(status, body)
	}
}

func render(err error, requestID string) (int, ErrorResponse) {
	var appErr *apperrors.AppError
	if !apperrors.As(err, &appErr) || appErr.Kind == apperrors.KindInternal {
		return http.StatusInternalServerError, ErrorResponse{
			Status:    "error",
			Code:      apperrors.KindInternal,
			Message:   "internal server error",
			RequestID: requestID,
		}
	}
	return appErr.StatusCode(), ErrorResponse{
		Status:    "error",
		Code:      appErr.Kind,
		Message:   appErr.Message,
		Details:   appErr.Details,
		RequestID: requestID,
	}
}

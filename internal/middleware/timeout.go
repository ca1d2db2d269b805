package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

// Timeout bounds the request context. Handlers pass the context to storage and the
// payment gateway, so a slow dependency fails the request instead of holding it open.
func Timeout(d time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if d <= 0 {
			c.Next()
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), d)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		if !c.Writer.Written() && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			c.AbortWithStatusJSON(http.StatusGatewayTimeout, ErrorResponse{
				Status:    "error",
				Code:      apperrors.KindInternal,
				Message:   "request timeout",
				RequestID: c.GetString(ContextRequestID),
			})
		}
	}
}

package httputil

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

func TestParseUUIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)
	id := uuid.New()

	var got uuid.UUID
	var errs []*gin.Error
	r := gin.New()
	r.GET("/x/:id", func(c *gin.Context) {
		got, _ = ParseUUIDParam(c, "id")
		errs = c.Errors
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/"+id.String(), nil))
	assert.Equal(t, id, got)
	assert.Empty(t, errs)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x/nope", nil))
	assert.Equal(t, uuid.Nil, got)
	require.Len(t, errs, 1)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(errs[0].Err))
}

func TestIntQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var got int
	var ok bool
	r := gin.New()
	r.GET("/x", func(c *gin.Context) { got, ok = IntQuery(c, "week", 7) })

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.True(t, ok)
	assert.Equal(t, 7, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?week=12", nil))
	assert.Equal(t, 12, got)

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/x?week=abc", nil))
	assert.False(t, ok)
}

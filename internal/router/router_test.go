package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appointmenthandler "github.com/jwalitptl/booking-engine/internal/handler/appointment"
	assignmenthandler "github.com/jwalitptl/booking-engine/internal/handler/assignment"
	calendarhandler "github.com/jwalitptl/booking-engine/internal/handler/calendar"
	cataloghandler "github.com/jwalitptl/booking-engine/internal/handler/catalog"
	healthhandler "github.com/jwalitptl/booking-engine/internal/handler/health"
	paymenthandler "github.com/jwalitptl/booking-engine/internal/handler/payment"
	slothandler "github.com/jwalitptl/booking-engine/internal/handler/slot"
	workinghourhandler "github.com/jwalitptl/booking-engine/internal/handler/workinghour"
	"github.com/jwalitptl/booking-engine/internal/middleware"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/repository/memory"
	"github.com/jwalitptl/booking-engine/internal/service/appointment"
	"github.com/jwalitptl/booking-engine/internal/service/assignment"
	"github.com/jwalitptl/booking-engine/internal/service/catalog"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	paymentservice "github.com/jwalitptl/booking-engine/internal/service/payment"
	"github.com/jwalitptl/booking-engine/internal/service/slot"
	"github.com/jwalitptl/booking-engine/internal/service/workinghour"
	"github.com/jwalitptl/booking-engine/pkg/clock"
	"github.com/jwalitptl/booking-engine/pkg/idempotency"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/payment"
)

type envelope struct {
	Status  string          `json:"status"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Details map[string]interface{}
}

type testAPI struct {
	t     *testing.T
	r     *gin.Engine
	repos *repository.Repositories
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos, _ := memory.NewRepositories()
	log := logger.Nop()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics("test", reg)
	events := event.NewEventService(repos.Outbox, log)
	clk := clock.Fixed{T: time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)}
	loc := time.UTC

	store := idempotency.NewMemoryStore(time.Hour, time.Minute)

	handlers := []Handler{
		workinghourhandler.NewHandler(workinghour.NewService(repos.Transactor, repos.WorkingHours, events, log)),
		calendarhandler.NewHandler(clk, loc),
		slothandler.NewHandler(slot.NewService(repos, events, clk, loc, log, m), clk, loc),
		cataloghandler.NewHandler(catalog.NewService(repos.Services, log)),
		assignmenthandler.NewHandler(assignment.NewService(repos, events, loc, log, m)),
		appointmenthandler.NewHandler(appointment.NewService(repos, events, clk, loc, log, m)),
		paymenthandler.NewHandler(paymentservice.NewService(repos, payment.NewStaticGateway(""), store, events,
			paymentservice.Config{}, log, m)),
	}

	rt := NewRouter(RouterConfig{
		ServiceName:    "booking-engine-test",
		RequestTimeout: 5 * time.Second,
		RateLimit:      false,
		SizeLimit:      middleware.DefaultSizeLimitConfig(),
	}, log, m, healthhandler.NewHandler(nil, reg), handlers...)

	return &testAPI{t: t, r: rt.Engine(), repos: repos}
}

func (a *testAPI) do(method, path string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.r.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (a *testAPI) id(env envelope) string {
	a.t.Helper()
	var obj struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &obj))
	require.NotEmpty(a.t, obj.ID)
	return obj.ID
}

func TestRouter_Health(t *testing.T) {
	api := newTestAPI(t)

	code, _ := api.do(http.MethodGet, "/api/v1/health/live", nil)
	assert.Equal(t, http.StatusOK, code)
	code, _ = api.do(http.MethodGet, "/api/v1/health/ready", nil)
	assert.Equal(t, http.StatusOK, code)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/metrics", nil)
	w := httptest.NewRecorder()
	api.r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test_http_requests_total")
}

func TestRouter_NotFoundAndBadIDs(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/v1/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "error", env.Status)

	code, env = api.do(http.MethodGet, "/api/v1/slots/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation", env.Code)

	code, env = api.do(http.MethodGet, "/api/v1/appointments/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NotFound", env.Code)
}

func TestRouter_Calendar(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodGet, "/api/v1/calendar/weeks/current", nil)
	require.Equal(t, http.StatusOK, code)
	var view calendarhandler.WeekView
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 2026, view.Year)
	assert.Equal(t, "2026-09-28", view.Start)
	assert.Len(t, view.Days, 7)

	code, env = api.do(http.MethodGet, "/api/v1/calendar/weeks/next?week=52&year=2026", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, 1, view.Week)
	assert.Equal(t, 2027, view.Year)

	code, env = api.do(http.MethodGet, "/api/v1/calendar/week-of?date=2026-10-14", nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &view))
	assert.Equal(t, "2026-10-12", view.Start)

	code, env = api.do(http.MethodGet, "/api/v1/calendar/weeks?year=0", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation", env.Code)
}

func TestRouter_BookingFlow(t *testing.T) {
	api := newTestAPI(t)
	clinicID := uuid.NewString()

	code, env := api.do(http.MethodPost, "/api/v1/clinics/"+clinicID+"/working-hours", gin.H{
		"day_in_week":  1,
		"shift":        "morning",
		"opening_time": "07:00",
		"closing_time": "12:00",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	whID := api.id(env)

	slotBody := func(start, end string) gin.H {
		return gin.H{
			"date":                 "2026-10-12",
			"working_hour_id":      whID,
			"start_time":           start,
			"end_time":             end,
			"max_consultant":       1,
			"max_test_appointment": 1,
		}
	}
	code, env = api.do(http.MethodPost, "/api/v1/clinics/"+clinicID+"/slots", slotBody("08:00", "09:00"))
	require.Equal(t, http.StatusCreated, code, env.Message)
	slotID := api.id(env)

	code, env = api.do(http.MethodPost, "/api/v1/clinics/"+clinicID+"/slots", slotBody("08:30", "09:30"))
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SlotOverlap", env.Code)
	assert.Equal(t, slotID, env.Details["conflicting_slot_id"])

	code, env = api.do(http.MethodPost, "/api/v1/clinics/"+clinicID+"/slots", slotBody("11:30", "12:30"))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "OutOfWorkingHours", env.Code)

	code, env = api.do(http.MethodGet, "/api/v1/clinics/"+clinicID+"/slots/week?week=41&year=2026", nil)
	require.Equal(t, http.StatusOK, code)
	var grid struct {
		Days []struct {
			Date  string            `json:"date"`
			Slots []json.RawMessage `json:"slots"`
		} `json:"days"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &grid))
	require.Len(t, grid.Days, 7)
	assert.Equal(t, "2026-10-12", grid.Days[0].Date)
	assert.Len(t, grid.Days[0].Slots, 1)

	consultant := uuid.NewString()
	code, env = api.do(http.MethodPost, "/api/v1/slots/"+slotID+"/consultants", gin.H{
		"consultant_id": consultant, "max_appointment": 3,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	code, env = api.do(http.MethodPost, "/api/v1/slots/"+slotID+"/consultants", gin.H{
		"consultant_id": uuid.NewString(), "max_appointment": 3,
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "SlotFull", env.Code)

	code, env = api.do(http.MethodPost, "/api/v1/clinics/"+clinicID+"/services", gin.H{
		"name": "Consultation", "type": "consultation", "price": 40,
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	serviceID := api.id(env)

	customer := uuid.NewString()
	code, env = api.do(http.MethodPost, "/api/v1/appointments", gin.H{
		"customer_id": customer, "slot_id": slotID, "service_ids": []string{serviceID},
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	aptID := api.id(env)

	// unpaid appointments cannot request cancellation
	code, env = api.do(http.MethodPost, "/api/v1/appointments/"+aptID+"/cancel-request", gin.H{"customer_id": customer})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "InvalidState", env.Code)

	code, env = api.do(http.MethodPost, "/api/v1/appointments/"+aptID+"/payments", nil)
	require.Equal(t, http.StatusCreated, code, env.Message)

	webhook := gin.H{"appointment_id": aptID, "event_id": "evt-1", "outcome": "succeeded"}
	code, env = api.do(http.MethodPost, "/api/v1/payments/webhook", webhook)
	require.Equal(t, http.StatusOK, code, env.Message)
	var result struct {
		Duplicate   bool `json:"duplicate"`
		Appointment struct {
			PaymentStatus int `json:"payment_status"`
		} `json:"appointment"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.False(t, result.Duplicate)
	assert.Equal(t, 2, result.Appointment.PaymentStatus)

	code, env = api.do(http.MethodPost, "/api/v1/payments/webhook", webhook)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &result))
	assert.True(t, result.Duplicate)

	code, env = api.do(http.MethodPost, "/api/v1/appointments/"+aptID+"/cancel-request", gin.H{"customer_id": customer})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = api.do(http.MethodGet, "/api/v1/appointments/"+aptID+"/actions", nil)
	require.Equal(t, http.StatusOK, code)
	var actions struct {
		Actions []string `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &actions))
	assert.ElementsMatch(t, []string{"approve_cancel", "reject_cancel"}, actions.Actions)

	code, env = api.do(http.MethodPost, "/api/v1/appointments/"+aptID+"/cancel/approve", gin.H{"staff_id": uuid.NewString()})
	require.Equal(t, http.StatusOK, code, env.Message)
	var apt struct {
		Status int    `json:"status"`
		Code   string `json:"appointment_code"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &apt))
	assert.Equal(t, 7, apt.Status)

	code, env = api.do(http.MethodPost, "/api/v1/payments/webhook", gin.H{
		"appointment_id": aptID, "event_id": "evt-2", "outcome": "refunded",
	})
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = api.do(http.MethodGet, "/api/v1/appointments?code="+apt.Code, nil)
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &apt))
	assert.Equal(t, 6, apt.Status)

	code, env = api.do(http.MethodPost, "/api/v1/appointments/"+aptID+"/advance", gin.H{
		"staff_id": uuid.NewString(), "next_status": 1,
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "TerminalState", env.Code)

	code, env = api.do(http.MethodGet, "/api/v1/appointments?customer_id="+customer, nil)
	require.Equal(t, http.StatusOK, code)
	var list []json.RawMessage
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Len(t, list, 1)
}

func TestRouter_SwapAndUnregister(t *testing.T) {
	api := newTestAPI(t)

	code, env := api.do(http.MethodPost, "/api/v1/assignments/swap", gin.H{
		"consultant_a": uuid.NewString(), "slot_a": uuid.Nil.String(),
		"consultant_b": uuid.NewString(), "slot_b": uuid.Nil.String(),
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Validation", env.Code)

	slotID := uuid.NewString()
	code, env = api.do(http.MethodPost, "/api/v1/assignments/swap", gin.H{
		"consultant_a": uuid.NewString(), "slot_a": slotID,
		"consultant_b": uuid.NewString(), "slot_b": slotID,
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "SameSlot", env.Code)

	code, _ = api.do(http.MethodDelete, "/api/v1/slots/"+slotID+"/consultants/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNoContent, code)

	code, env = api.do(http.MethodGet, "/api/v1/consultants/"+uuid.NewString()+"/assignments?from=2026-10-12&to=2026-10-11", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "InvalidRange", env.Code)
}

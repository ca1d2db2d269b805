// Package calendar exposes week navigation for the slot grid.
package calendar

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/pkg/calendar"
	"github.com/jwalitptl/booking-engine/pkg/clock"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/httputil"
)

// WeekView is a week as rendered to clients.
type WeekView struct {
	Week     int      `json:"week"`
	Year     int      `json:"year"`
	LastWeek int      `json:"last_week"`
	Start    string   `json:"start"`
	Days     []string `json:"days"`
}

type Handler struct {
	clock clock.Clock
	loc   *time.Location
}

func NewHandler(clk clock.Clock, loc *time.Location) *Handler {
	return &Handler{clock: clk, loc: loc}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	weeks := r.Group("/calendar/weeks")
	{
		weeks.GET("/current", h.CurrentWeek)
		weeks.GET("", h.GetWeek)
		weeks.GET("/next", h.NextWeek)
		weeks.GET("/prev", h.PrevWeek)
		weeks.GET("/shift", h.ShiftYear)
	}
	r.GET("/calendar/week-of", h.WeekOf)
}

func (h *Handler) CurrentWeek(c *gin.Context) {
	httputil.RespondWithSuccess(c, http.StatusOK, h.view(calendar.WeekOf(h.clock.Now().In(h.loc))))
}

func (h *Handler) GetWeek(c *gin.Context) {
	w, ok := h.week(c)
	if !ok {
		return
	}
	week := calendar.WeekOf(w.Start(h.loc))
	httputil.RespondWithSuccess(c, http.StatusOK, h.view(week))
}

func (h *Handler) NextWeek(c *gin.Context) {
	w, ok := h.week(c)
	if !ok {
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, h.view(w.Next()))
}

func (h *Handler) PrevWeek(c *gin.Context) {
	w, ok := h.week(c)
	if !ok {
		return
	}
	if w.Year <= 1 && w.Number <= 1 {
		httputil.RespondWithError(c, apperrors.New(apperrors.KindInvalidRange, "no week before the first week of year 1"))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, h.view(w.Prev()))
}

// ShiftYear keeps the week number and moves by ?delta= years.
func (h *Handler) ShiftYear(c *gin.Context) {
	w, ok := h.week(c)
	if !ok {
		return
	}
	delta, ok := httputil.IntQuery(c, "delta", 1)
	if !ok {
		return
	}
	shifted := w.ShiftYear(delta)
	if !validYear(shifted.Year) {
		httputil.RespondWithError(c, yearError(shifted.Year))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, h.view(shifted))
}

// WeekOf resolves ?date=YYYY-MM-DD to its week.
func (h *Handler) WeekOf(c *gin.Context) {
	date, err := time.ParseInLocation(model.DateLayout, c.Query("date"), h.loc)
	if err != nil {
		httputil.RespondWithError(c, apperrors.Validation("date must be YYYY-MM-DD", err).WithDetail("field", "date"))
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, h.view(calendar.WeekOf(date)))
}

// week reads ?week= and ?year=, defaulting to the current week.
func (h *Handler) week(c *gin.Context) (calendar.Week, bool) {
	current := calendar.WeekOf(h.clock.Now().In(h.loc))
	number, ok := httputil.IntQuery(c, "week", current.Number)
	if !ok {
		return calendar.Week{}, false
	}
	year, ok := httputil.IntQuery(c, "year", current.Year)
	if !ok {
		return calendar.Week{}, false
	}
	if !validYear(year) {
		httputil.RespondWithError(c, yearError(year))
		return calendar.Week{}, false
	}
	return calendar.Week{Number: number, Year: year}, true
}

func (h *Handler) view(w calendar.Week) WeekView {
	days := w.Days(h.loc)
	out := WeekView{
		Week:     w.Number,
		Year:     w.Year,
		LastWeek: calendar.LastWeek(w.Year),
		Start:    days[0].Format(model.DateLayout),
		Days:     make([]string, len(days)),
	}
	for i, d := range days {
		out.Days[i] = d.Format(model.DateLayout)
	}
	return out
}

func validYear(year int) bool {
	return year >= 1 && year <= 9999
}

func yearError(year int) *apperrors.AppError {
	return apperrors.Validation("year must be between 1 and 9999", nil).WithDetail("year", year)
}

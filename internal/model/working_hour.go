package model

import (
	"time"

	"github.com/google/uuid"
)

type Shift string

const (
	ShiftMorning   Shift = "morning"
	ShiftAfternoon Shift = "afternoon"
)

func (s Shift) Valid() bool {
	return s == ShiftMorning || s == ShiftAfternoon
}

// WorkingHour is the recurring weekly opening window of a clinic for one shift.
// DayInWeek follows time.Weekday: 0 is Sunday.
type WorkingHour struct {
	Base
	ClinicID    uuid.UUID `db:"clinic_id" json:"clinic_id"`
	DayInWeek   int       `db:"day_in_week" json:"day_in_week"`
	Shift       Shift     `db:"shift" json:"shift"`
	OpeningTime TimeOfDay `db:"opening_time" json:"opening_time"`
	ClosingTime TimeOfDay `db:"closing_time" json:"closing_time"`
	Active      bool      `db:"active" json:"active"`
}

// Contains reports whether [start, end) lies inside the opening window.
func (w *WorkingHour) Contains(start, end TimeOfDay) bool {
	return w.OpeningTime <= start && end <= w.ClosingTime
}

// AppliesTo reports whether the working hour is the template for the given date.
func (w *WorkingHour) AppliesTo(date time.Time) bool {
	return w.DayInWeek == int(date.Weekday())
}

type CreateWorkingHourRequest struct {
	DayInWeek   int       `json:"day_in_week" binding:"min=0,max=6" validate:"min=0,max=6"`
	Shift       Shift     `json:"shift" binding:"required,oneof=morning afternoon" validate:"required,oneof=morning afternoon"`
	OpeningTime TimeOfDay `json:"opening_time"`
	ClosingTime TimeOfDay `json:"closing_time"`
}

type UpdateWorkingHourRequest struct {
	OpeningTime TimeOfDay `json:"opening_time"`
	ClosingTime TimeOfDay `json:"closing_time"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// Slot is a concrete bookable window on one calendar date.
type Slot struct {
	Base
	ClinicID           uuid.UUID `db:"clinic_id" json:"clinic_id"`
	WorkingHourID      uuid.UUID `db:"working_hour_id" json:"working_hour_id"`
	SlotDate           time.Time `db:"slot_date" json:"slot_date"`
	StartTime          time.Time `db:"start_time" json:"start_time"`
	EndTime            time.Time `db:"end_time" json:"end_time"`
	MaxConsultant      int       `db:"max_consultant" json:"max_consultant"`
	MaxTestAppointment int       `db:"max_test_appointment" json:"max_test_appointment"`
}

// Overlaps reports whether s shares any open interval with [start, end).
// Touching endpoints do not overlap.
func (s *Slot) Overlaps(start, end time.Time) bool {
	return start.Before(s.EndTime) && end.After(s.StartTime)
}

// Covers reports whether s fully contains [start, end].
func (s *Slot) Covers(start, end time.Time) bool {
	return !start.Before(s.StartTime) && !end.After(s.EndTime)
}

type CreateSlotRequest struct {
	Date               string    `json:"date" binding:"required"`
	WorkingHourID      uuid.UUID `json:"working_hour_id" binding:"required"`
	StartTime          TimeOfDay `json:"start_time"`
	EndTime            TimeOfDay `json:"end_time"`
	MaxConsultant      int       `json:"max_consultant" binding:"required,min=1"`
	MaxTestAppointment int       `json:"max_test_appointment" binding:"required,min=1"`
}

type UpdateSlotRequest struct {
	StartTime          TimeOfDay `json:"start_time"`
	EndTime            TimeOfDay `json:"end_time"`
	MaxConsultant      int       `json:"max_consultant" binding:"required,min=1"`
	MaxTestAppointment int       `json:"max_test_appointment" binding:"required,min=1"`
}

// DaySlots is one column of the weekly grid.
type DaySlots struct {
	Date  string  `json:"date"`
	Slots []*Slot `json:"slots"`
}

// WeekGrid is the weekly slot calendar of a clinic.
type WeekGrid struct {
	ClinicID uuid.UUID  `json:"clinic_id"`
	Week     int        `json:"week"`
	Year     int        `json:"year"`
	Days     []DaySlots `json:"days"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

// ConsultantSlotAssignment binds a consultant to a slot with an appointment intake cap.
// The pair (ConsultantID, SlotID) is unique.
type ConsultantSlotAssignment struct {
	ConsultantID   uuid.UUID `db:"consultant_id" json:"consultant_id"`
	SlotID         uuid.UUID `db:"slot_id" json:"slot_id"`
	AssignedDate   time.Time `db:"assigned_date" json:"assigned_date"`
	MaxAppointment int       `db:"max_appointment" json:"max_appointment"`
}

type RegisterSlotRequest struct {
	ConsultantID   uuid.UUID `json:"consultant_id" binding:"required"`
	MaxAppointment int       `json:"max_appointment" binding:"required,min=1"`
}

type SwapSlotsRequest struct {
	ConsultantA uuid.UUID `json:"consultant_a" binding:"required"`
	SlotA       uuid.UUID `json:"slot_a" binding:"required"`
	ConsultantB uuid.UUID `json:"consultant_b" binding:"required"`
	SlotB       uuid.UUID `json:"slot_b" binding:"required"`
}

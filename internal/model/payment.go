package model

import "github.com/google/uuid"

type PaymentResultRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id" binding:"required"`
	EventID       string    `json:"event_id" binding:"required"`
	Outcome       string    `json:"outcome" binding:"required"`
	// Amount is only read for deposits and partial refunds.
	Amount float64 `json:"amount" binding:"min=0"`
}

type PaymentResult struct {
	Appointment *Appointment `json:"appointment"`
	Duplicate   bool         `json:"duplicate"`
}

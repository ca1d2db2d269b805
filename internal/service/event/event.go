package event

import (
	"context"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// Emitter records an engine event. Called inside a unit of work, the event commits or
// rolls back together with the mutation it describes.
type Emitter interface {
	Emit(ctx context.Context, eventType string, payload interface{}) error
}

type SlotPayload struct {
	Slot *model.Slot `json:"slot"`
}

type WorkingHourPayload struct {
	WorkingHour *model.WorkingHour `json:"working_hour"`
}

type AssignmentPayload struct {
	ConsultantID uuid.UUID `json:"consultant_id"`
	SlotID       uuid.UUID `json:"slot_id"`
}

type SwapPayload struct {
	ConsultantA uuid.UUID `json:"consultant_a"`
	SlotA       uuid.UUID `json:"slot_a"`
	ConsultantB uuid.UUID `json:"consultant_b"`
	SlotB       uuid.UUID `json:"slot_b"`
}

type BookedPayload struct {
	Appointment *model.Appointment `json:"appointment"`
}

type StatusChangedPayload struct {
	AppointmentID uuid.UUID               `json:"appointment_id"`
	Event         string                  `json:"event"`
	From          model.AppointmentStatus `json:"from"`
	To            model.AppointmentStatus `json:"to"`
	ActorID       uuid.UUID               `json:"actor_id"`
}

type PaymentChangedPayload struct {
	AppointmentID uuid.UUID           `json:"appointment_id"`
	EventID       string              `json:"event_id"`
	Outcome       string              `json:"outcome"`
	From          model.PaymentStatus `json:"from"`
	To            model.PaymentStatus `json:"to"`
}

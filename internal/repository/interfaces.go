package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
)

// Transactor runs a unit of work while holding a set of named locks. Repositories
// called with the ctx passed to fn take part in the same unit of work.
type Transactor interface {
	WithinLock(ctx context.Context, keys []string, fn func(ctx context.Context) error) error
}

// All repository interfaces in one file
type (
	WorkingHourRepository interface {
		Create(ctx context.Context, wh *model.WorkingHour) error
		Get(ctx context.Context, id uuid.UUID) (*model.WorkingHour, error)
		Update(ctx context.Context, wh *model.WorkingHour) error
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.WorkingHour, error)
		ListByDay(ctx context.Context, clinicID uuid.UUID, dayInWeek int) ([]*model.WorkingHour, error)
	}

	SlotRepository interface {
		Create(ctx context.Context, slot *model.Slot) error
		Get(ctx context.Context, id uuid.UUID) (*model.Slot, error)
		Update(ctx context.Context, slot *model.Slot) error
		// ListByDate returns the clinic's slots on date ordered by start time.
		ListByDate(ctx context.Context, clinicID uuid.UUID, date time.Time) ([]*model.Slot, error)
		// ListByRange returns slots with from <= slot_date < to ordered by date and start time.
		ListByRange(ctx context.Context, clinicID uuid.UUID, from, to time.Time) ([]*model.Slot, error)
	}

	AssignmentRepository interface {
		Create(ctx context.Context, a *model.ConsultantSlotAssignment) error
		Get(ctx context.Context, consultantID, slotID uuid.UUID) (*model.ConsultantSlotAssignment, error)
		// Delete reports whether a row was removed.
		Delete(ctx context.Context, consultantID, slotID uuid.UUID) (bool, error)
		ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*model.ConsultantSlotAssignment, error)
		ListByConsultant(ctx context.Context, consultantID uuid.UUID, from, to time.Time) ([]*model.ConsultantSlotAssignment, error)
		CountBySlot(ctx context.Context, slotID uuid.UUID) (int, error)
		// Swap exchanges the slots of a and b in one step; either both rows move or neither.
		Swap(ctx context.Context, a, b *model.ConsultantSlotAssignment) error
	}

	AppointmentRepository interface {
		// Create stores the appointment together with its detail lines.
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		GetByCode(ctx context.Context, code string) (*model.Appointment, error)
		// Update writes the appointment if its stored version still equals
		// appointment.Version and bumps the version; otherwise it fails with Conflict.
		Update(ctx context.Context, appointment *model.Appointment) error
		AddDetail(ctx context.Context, detail *model.AppointmentDetail) error
		List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error)
		CountCommittedBySlot(ctx context.Context, slotID uuid.UUID) (int, error)
	}

	ServiceRepository interface {
		Create(ctx context.Context, service *model.Service) error
		Get(ctx context.Context, id uuid.UUID) (*model.Service, error)
		ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*model.Service, error)
		ListByClinic(ctx context.Context, clinicID uuid.UUID) ([]*model.Service, error)
	}

	OutboxRepository interface {
		Create(ctx context.Context, event *model.OutboxEvent) error
		// GetPendingEvents returns pending or retryable events that are due.
		GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
		UpdateStatus(ctx context.Context, id uuid.UUID, status model.OutboxStatus, errorMessage *string, retryAt *time.Time) error
		DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
	}
)

// Repositories bundles one storage backend.
type Repositories struct {
	Transactor   Transactor
	WorkingHours WorkingHourRepository
	Slots        SlotRepository
	Assignments  AssignmentRepository
	Appointments AppointmentRepository
	Services     ServiceRepository
	Outbox       OutboxRepository
}

// Lock keys shared by every backend.

func SlotDateLock(clinicID uuid.UUID, date time.Time) string {
	return fmt.Sprintf("slots:%s:%s", clinicID, date.Format(model.DateLayout))
}

func AssignmentLock(slotID uuid.UUID) string {
	return "assignments:" + slotID.String()
}

func AppointmentLock(id uuid.UUID) string {
	return "appointment:" + id.String()
}

func WorkingHourLock(clinicID uuid.UUID) string {
	return "working_hours:" + clinicID.String()
}

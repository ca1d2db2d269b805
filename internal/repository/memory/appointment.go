package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

type appointmentRepository struct {
	s *Store
}

func NewAppointmentRepository(s *Store) repository.AppointmentRepository {
	return &appointmentRepository{s: s}
}

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, other := range r.s.appointments {
		if other.AppointmentCode == appointment.AppointmentCode {
			return apperrors.New(apperrors.KindConflict, "appointment code already in use")
		}
	}
	if appointment.ID == uuid.Nil {
		appointment.ID = uuid.New()
	}
	now := time.Now()
	appointment.CreatedAt, appointment.UpdatedAt = now, now
	appointment.Version = 1

	details := make([]model.AppointmentDetail, len(appointment.Details))
	for i, d := range appointment.Details {
		d.AppointmentID = appointment.ID
		appointment.Details[i].AppointmentID = appointment.ID
		details[i] = d
	}
	stored := *appointment
	stored.Details = nil
	r.s.appointments[appointment.ID] = stored
	r.s.details[appointment.ID] = details
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.appointments[id]
	if !ok {
		return nil, apperrors.NotFound("appointment", nil)
	}
	return r.withDetails(a), nil
}

func (r *appointmentRepository) GetByCode(ctx context.Context, code string) (*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, a := range r.s.appointments {
		if a.AppointmentCode == code {
			return r.withDetails(a), nil
		}
	}
	return nil, apperrors.NotFound("appointment", nil)
}

func (r *appointmentRepository) Update(ctx context.Context, appointment *model.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.appointments[appointment.ID]
	if !ok {
		return apperrors.NotFound("appointment", nil)
	}
	if stored.Version != appointment.Version {
		return apperrors.New(apperrors.KindConflict, "appointment was modified concurrently").
			WithDetail("appointment_id", appointment.ID)
	}
	appointment.Version++
	appointment.UpdatedAt = time.Now()
	next := *appointment
	next.Details = nil
	r.s.appointments[appointment.ID] = next
	return nil
}

func (r *appointmentRepository) AddDetail(ctx context.Context, detail *model.AppointmentDetail) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.appointments[detail.AppointmentID]; !ok {
		return apperrors.NotFound("appointment", nil)
	}
	r.s.details[detail.AppointmentID] = append(r.s.details[detail.AppointmentID], *detail)
	return nil
}

func (r *appointmentRepository) List(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*model.Appointment
	for _, a := range r.s.appointments {
		if filters != nil {
			if filters.CustomerID != uuid.Nil && a.CustomerID != filters.CustomerID {
				continue
			}
			if filters.SlotID != uuid.Nil && a.SlotID != filters.SlotID {
				continue
			}
			if filters.Status != nil && a.Status != *filters.Status {
				continue
			}
		}
		out = append(out, r.withDetails(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *appointmentRepository) CountCommittedBySlot(ctx context.Context, slotID uuid.UUID) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n := 0
	for _, a := range r.s.appointments {
		if a.SlotID == slotID && a.Committed() {
			n++
		}
	}
	return n, nil
}

// withDetails must be called with the store lock held.
func (r *appointmentRepository) withDetails(a model.Appointment) *model.Appointment {
	a.Details = append([]model.AppointmentDetail(nil), r.s.details[a.ID]...)
	return &a
}

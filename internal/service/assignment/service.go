package assignment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

type Service struct {
	tx          repository.Transactor
	slots       repository.SlotRepository
	assignments repository.AssignmentRepository
	events      event.Emitter
	loc         *time.Location
	logger      *logger.Logger
	metrics     *metrics.Metrics
}

func NewService(repos *repository.Repositories, events event.Emitter, loc *time.Location, logger *logger.Logger, metrics *metrics.Metrics) *Service {
	return &Service{
		tx:          repos.Transactor,
		slots:       repos.Slots,
		assignments: repos.Assignments,
		events:      events,
		loc:         loc,
		logger:      logger,
		metrics:     metrics,
	}
}

// RegisterSlot attaches a consultant to a slot. The number of distinct consultants on a
// slot never exceeds its MaxConsultant.
func (s *Service) RegisterSlot(ctx context.Context, slotID uuid.UUID, req *model.RegisterSlotRequest) (*model.ConsultantSlotAssignment, error) {
	a, err := s.registerSlot(ctx, slotID, req)
	s.metrics.Assignments.WithLabelValues("register", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Consultant registered for slot",
		"consultant_id", a.ConsultantID.String(),
		"slot_id", slotID.String(),
		"max_appointment", a.MaxAppointment)
	return a, nil
}

func (s *Service) registerSlot(ctx context.Context, slotID uuid.UUID, req *model.RegisterSlotRequest) (*model.ConsultantSlotAssignment, error) {
	if req.MaxAppointment < 1 {
		return nil, apperrors.Validation("max appointment must be at least 1", nil).
			WithDetail("max_appointment", req.MaxAppointment)
	}
	var a *model.ConsultantSlotAssignment
	err := s.tx.WithinLock(ctx, []string{repository.AssignmentLock(slotID)}, func(ctx context.Context) error {
		// capacity is read under the lock UpdateSlot also takes
		slot, err := s.slots.Get(ctx, slotID)
		if err != nil {
			return err
		}
		if _, err := s.assignments.Get(ctx, req.ConsultantID, slotID); err == nil {
			return apperrors.New(apperrors.KindAlreadyAssigned, "consultant already registered for this slot").
				WithDetail("consultant_id", req.ConsultantID.String()).
				WithDetail("slot_id", slotID.String())
		} else if apperrors.KindOf(err) != apperrors.KindNotFound {
			return fmt.Errorf("failed to get assignment: %w", err)
		}

		count, err := s.assignments.CountBySlot(ctx, slotID)
		if err != nil {
			return fmt.Errorf("failed to count assignments: %w", err)
		}
		if count >= slot.MaxConsultant {
			return apperrors.New(apperrors.KindSlotFull, "slot has no consultant capacity left").
				WithDetail("slot_id", slotID.String()).
				WithDetail("max_consultant", slot.MaxConsultant)
		}

		a = &model.ConsultantSlotAssignment{
			ConsultantID:   req.ConsultantID,
			SlotID:         slotID,
			AssignedDate:   slot.SlotDate,
			MaxAppointment: req.MaxAppointment,
		}
		if err := s.assignments.Create(ctx, a); err != nil {
			return err
		}
		return s.events.Emit(ctx, model.EventAssignmentRegistered, event.AssignmentPayload{
			ConsultantID: a.ConsultantID,
			SlotID:       slotID,
		})
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// UnregisterSlot removes the assignment if present. Removing a missing one is not an error.
func (s *Service) UnregisterSlot(ctx context.Context, consultantID, slotID uuid.UUID) error {
	err := s.tx.WithinLock(ctx, []string{repository.AssignmentLock(slotID)}, func(ctx context.Context) error {
		removed, err := s.assignments.Delete(ctx, consultantID, slotID)
		if err != nil {
			return fmt.Errorf("failed to delete assignment: %w", err)
		}
		if !removed {
			return nil
		}
		return s.events.Emit(ctx, model.EventAssignmentUnregistered, event.AssignmentPayload{
			ConsultantID: consultantID,
			SlotID:       slotID,
		})
	})
	s.metrics.Assignments.WithLabelValues("unregister", metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	s.logger.Ctx(ctx).Info("Consultant unregistered from slot",
		"consultant_id", consultantID.String(),
		"slot_id", slotID.String())
	return nil
}

// SwapSlots exchanges the slots of two consultants in one unit of work. Each consultant
// keeps its own MaxAppointment. Applying the same swap twice restores the original state.
func (s *Service) SwapSlots(ctx context.Context, req *model.SwapSlotsRequest) error {
	err := s.swapSlots(ctx, req)
	s.metrics.Swaps.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return err
	}

	s.logger.Ctx(ctx).Info("Consultant slots swapped",
		"consultant_a", req.ConsultantA.String(),
		"slot_a", req.SlotA.String(),
		"consultant_b", req.ConsultantB.String(),
		"slot_b", req.SlotB.String())
	return nil
}

func (s *Service) swapSlots(ctx context.Context, req *model.SwapSlotsRequest) error {
	if req.SlotA == req.SlotB {
		return apperrors.New(apperrors.KindSameSlot, "cannot swap a slot with itself").
			WithDetail("slot_id", req.SlotA.String())
	}
	if req.ConsultantA == req.ConsultantB {
		return apperrors.New(apperrors.KindSameConsultant, "cannot swap a consultant with itself").
			WithDetail("consultant_id", req.ConsultantA.String())
	}

	keys := []string{repository.AssignmentLock(req.SlotA), repository.AssignmentLock(req.SlotB)}
	return s.tx.WithinLock(ctx, keys, func(ctx context.Context) error {
		a, err := s.assignments.Get(ctx, req.ConsultantA, req.SlotA)
		if err != nil {
			return err
		}
		b, err := s.assignments.Get(ctx, req.ConsultantB, req.SlotB)
		if err != nil {
			return err
		}
		if err := s.assignments.Swap(ctx, a, b); err != nil {
			return err
		}
		return s.events.Emit(ctx, model.EventAssignmentSwapped, event.SwapPayload{
			ConsultantA: req.ConsultantA,
			SlotA:       req.SlotA,
			ConsultantB: req.ConsultantB,
			SlotB:       req.SlotB,
		})
	})
}

func (s *Service) ListBySlot(ctx context.Context, slotID uuid.UUID) ([]*model.ConsultantSlotAssignment, error) {
	assignments, err := s.assignments.ListBySlot(ctx, slotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

// ListByConsultant returns assignments with from <= slot date <= to, both YYYY-MM-DD.
func (s *Service) ListByConsultant(ctx context.Context, consultantID uuid.UUID, from, to string) ([]*model.ConsultantSlotAssignment, error) {
	start, err := time.ParseInLocation(model.DateLayout, from, s.loc)
	if err != nil {
		return nil, apperrors.Validation("from must be formatted as YYYY-MM-DD", err)
	}
	end, err := time.ParseInLocation(model.DateLayout, to, s.loc)
	if err != nil {
		return nil, apperrors.Validation("to must be formatted as YYYY-MM-DD", err)
	}
	if end.Before(start) {
		return nil, apperrors.New(apperrors.KindInvalidRange, "from must not be after to")
	}

	assignments, err := s.assignments.ListByConsultant(ctx, consultantID, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	return assignments, nil
}

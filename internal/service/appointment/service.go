// Package appointment orchestrates booking and the appointment lifecycle. Transition rules
// live in internal/statemachine; this package loads the appointment, applies a rule under
// the appointment lock and records the outcome.
package appointment

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	"github.com/jwalitptl/booking-engine/internal/statemachine"
	"github.com/jwalitptl/booking-engine/pkg/calendar"
	"github.com/jwalitptl/booking-engine/pkg/clock"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
)

type Service struct {
	tx           repository.Transactor
	appointments repository.AppointmentRepository
	slots        repository.SlotRepository
	services     repository.ServiceRepository
	events       event.Emitter
	clock        clock.Clock
	loc          *time.Location
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

func NewService(
	repos *repository.Repositories,
	events event.Emitter,
	clk clock.Clock,
	loc *time.Location,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		tx:           repos.Transactor,
		appointments: repos.Appointments,
		slots:        repos.Slots,
		services:     repos.Services,
		events:       events,
		clock:        clk,
		loc:          loc,
		logger:       logger,
		metrics:      metrics,
	}
}

// Book creates a Pending appointment awaiting payment. Committed appointments on a slot
// never exceed its MaxTestAppointment.
func (s *Service) Book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	apt, err := s.book(ctx, req)
	s.metrics.Bookings.WithLabelValues(metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Appointment booked",
		"appointment_id", apt.ID.String(),
		"appointment_code", apt.AppointmentCode,
		"slot_id", apt.SlotID.String(),
		"total_amount", apt.TotalAmount)
	return apt, nil
}

func (s *Service) book(ctx context.Context, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if len(req.ServiceIDs) == 0 {
		return nil, apperrors.Validation("at least one service is required", nil)
	}
	slot, err := s.slots.Get(ctx, req.SlotID)
	if err != nil {
		return nil, err
	}
	today := calendar.StartOfDay(s.clock.Now().In(s.loc))
	if calendar.DateIn(slot.SlotDate, s.loc).Before(today) {
		return nil, apperrors.New(apperrors.KindPastDate, "slot is in the past").
			WithDetail("slot_id", slot.ID.String())
	}

	details, total, err := s.resolveServices(ctx, slot, req.ServiceIDs)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	apt := &model.Appointment{
		Base:            model.Base{ID: id},
		AppointmentCode: model.NewAppointmentCode(slot.SlotDate, id),
		CustomerID:      req.CustomerID,
		SlotID:          slot.ID,
		AppointmentDate: slot.StartTime,
		Status:          model.StatusPending,
		PaymentStatus:   model.PaymentAwaiting,
		TotalAmount:     total,
		Details:         details,
	}

	err = s.tx.WithinLock(ctx, []string{repository.AssignmentLock(slot.ID)}, func(ctx context.Context) error {
		current, err := s.slots.Get(ctx, slot.ID)
		if err != nil {
			return err
		}
		committed, err := s.appointments.CountCommittedBySlot(ctx, slot.ID)
		if err != nil {
			return fmt.Errorf("failed to count appointments: %w", err)
		}
		if committed >= current.MaxTestAppointment {
			return apperrors.New(apperrors.KindSlotFull, "slot has no appointment capacity left").
				WithDetail("slot_id", slot.ID.String()).
				WithDetail("max_test_appointment", current.MaxTestAppointment)
		}
		if err := s.appointments.Create(ctx, apt); err != nil {
			return err
		}
		return s.events.Emit(ctx, model.EventAppointmentBooked, event.BookedPayload{Appointment: apt})
	})
	if err != nil {
		return nil, err
	}
	return apt, nil
}

func (s *Service) resolveServices(ctx context.Context, slot *model.Slot, ids []uuid.UUID) ([]model.AppointmentDetail, float64, error) {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	unique := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}

	services, err := s.services.ListByIDs(ctx, unique)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load services: %w", err)
	}
	if len(services) != len(unique) {
		return nil, 0, apperrors.NotFound("service", nil)
	}

	details := make([]model.AppointmentDetail, 0, len(services))
	var total float64
	for _, svc := range services {
		if err := checkBookable(svc, slot.ClinicID); err != nil {
			return nil, 0, err
		}
		details = append(details, model.AppointmentDetail{
			ServiceID:   svc.ID,
			ServiceType: svc.Type,
			Price:       svc.Price,
		})
		total += svc.Price
	}
	return details, total, nil
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.appointments.Get(ctx, id)
}

func (s *Service) GetByCode(ctx context.Context, code string) (*model.Appointment, error) {
	return s.appointments.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) ListAppointments(ctx context.Context, filters *model.AppointmentFilters) ([]*model.Appointment, error) {
	appointments, err := s.appointments.List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

// AvailableActions lists the lifecycle events that would currently succeed.
func (s *Service) AvailableActions(ctx context.Context, id uuid.UUID) ([]string, error) {
	apt, err := s.appointments.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	events := statemachine.Available(apt.Status, statemachine.GuardsFor(apt))
	names := make([]string, 0, len(events))
	for _, ev := range events {
		names = append(names, ev.Name())
	}
	return names, nil
}

// RequestCancel is the customer asking to cancel a fully paid appointment.
func (s *Service) RequestCancel(ctx context.Context, id, customerID uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, customerID, statemachine.RequestCancel{}, func(apt *model.Appointment) error {
		if apt.CustomerID != customerID {
			return apperrors.NotFound("appointment", nil)
		}
		return nil
	})
}

func (s *Service) StaffAdvance(ctx context.Context, id uuid.UUID, req *model.AdvanceRequest) (*model.Appointment, error) {
	return s.transition(ctx, id, req.StaffID, statemachine.StaffAdvance{Next: req.NextStatus}, nil)
}

// RecordResult stores the result note and completes the appointment in one step.
func (s *Service) RecordResult(ctx context.Context, id uuid.UUID, req *model.RecordResultRequest) (*model.Appointment, error) {
	note := strings.TrimSpace(req.Result)
	if note == "" {
		return nil, apperrors.New(apperrors.KindMissingResult, "result must not be empty")
	}
	return s.transition(ctx, id, req.StaffID, statemachine.StaffAdvance{Next: model.StatusCompleted}, func(apt *model.Appointment) error {
		apt.Result = note
		return nil
	})
}

func (s *Service) ApproveCancel(ctx context.Context, id, staffID uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, staffID, statemachine.ApproveCancel{}, nil)
}

func (s *Service) RejectCancel(ctx context.Context, id, staffID uuid.UUID) (*model.Appointment, error) {
	return s.transition(ctx, id, staffID, statemachine.RejectCancel{}, nil)
}

// RequestSTITest appends a doctor-ordered test to a consultation. The status does not
// change; a fully paid appointment drops back to Deposited until the balance is settled.
func (s *Service) RequestSTITest(ctx context.Context, id uuid.UUID, req *model.RequestSTITestRequest) (*model.Appointment, error) {
	svc, err := s.services.Get(ctx, req.ServiceID)
	if err != nil {
		return nil, err
	}
	if svc.Type != model.ServiceTypeTest {
		return nil, apperrors.Validation("ordered service must be a test", nil).
			WithDetail("service_id", svc.ID.String())
	}

	var updated *model.Appointment
	err = s.tx.WithinLock(ctx, []string{repository.AppointmentLock(id)}, func(ctx context.Context) error {
		apt, err := s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}
		if err := statemachine.CanRequestSTITest(apt.Status, statemachine.GuardsFor(apt)); err != nil {
			return err
		}
		slot, err := s.slots.Get(ctx, apt.SlotID)
		if err != nil {
			return err
		}
		if err := checkBookable(svc, slot.ClinicID); err != nil {
			return err
		}

		detail := &model.AppointmentDetail{
			AppointmentID: apt.ID,
			ServiceID:     svc.ID,
			ServiceType:   svc.Type,
			Price:         svc.Price,
		}
		if err := s.appointments.AddDetail(ctx, detail); err != nil {
			return fmt.Errorf("failed to add appointment detail: %w", err)
		}

		from := apt.PaymentStatus
		apt.Details = append(apt.Details, *detail)
		apt.TotalAmount += svc.Price
		if apt.PaymentStatus == model.PaymentPaid && apt.AmountDue() > 0 {
			apt.PaymentStatus = model.PaymentDeposited
		}
		if err := s.appointments.Update(ctx, apt); err != nil {
			return err
		}
		updated = apt

		return s.events.Emit(ctx, model.EventAppointmentPaymentChange, event.PaymentChangedPayload{
			AppointmentID: apt.ID,
			Outcome:       "test_ordered",
			From:          from,
			To:            apt.PaymentStatus,
		})
	})
	s.metrics.StateTransitions.WithLabelValues("request_sti_test", metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Test ordered for appointment",
		"appointment_id", id.String(),
		"service_id", svc.ID.String(),
		"total_amount", updated.TotalAmount,
		"payment_status", updated.PaymentStatus.String())
	return updated, nil
}

// transition applies ev to the appointment under its lock. prepare runs on the loaded
// appointment before the rule is evaluated and may reject or amend it.
func (s *Service) transition(
	ctx context.Context,
	id, actorID uuid.UUID,
	ev statemachine.Event,
	prepare func(*model.Appointment) error,
) (*model.Appointment, error) {
	var (
		updated *model.Appointment
		from    model.AppointmentStatus
	)
	err := s.tx.WithinLock(ctx, []string{repository.AppointmentLock(id)}, func(ctx context.Context) error {
		apt, err := s.appointments.Get(ctx, id)
		if err != nil {
			return err
		}
		if prepare != nil {
			if err := prepare(apt); err != nil {
				return err
			}
		}

		from = apt.Status
		next, err := statemachine.Transition(from, ev, statemachine.GuardsFor(apt))
		if err != nil {
			return err
		}
		if next == model.StatusRequestCancel {
			apt.PreviousStatus = &from
		} else if from == model.StatusRequestCancel {
			apt.PreviousStatus = nil
		}
		apt.Status = next

		if err := s.appointments.Update(ctx, apt); err != nil {
			return err
		}
		updated = apt

		return s.events.Emit(ctx, model.EventAppointmentStatusChanged, event.StatusChangedPayload{
			AppointmentID: apt.ID,
			Event:         ev.Name(),
			From:          from,
			To:            next,
			ActorID:       actorID,
		})
	})
	s.metrics.StateTransitions.WithLabelValues(ev.Name(), metrics.Result(err)).Inc()
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Appointment status changed",
		"appointment_id", id.String(),
		"event", ev.Name(),
		"from", from.String(),
		"to", updated.Status.String(),
		"actor_id", actorID.String())
	return updated, nil
}

func checkBookable(svc *model.Service, clinicID uuid.UUID) error {
	if svc.ClinicID != clinicID {
		return apperrors.Validation("service belongs to another clinic", nil).
			WithDetail("service_id", svc.ID.String())
	}
	if !svc.Active {
		return apperrors.Validation("service is not offered", nil).
			WithDetail("service_id", svc.ID.String())
	}
	return nil
}

package payment

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	"github.com/jwalitptl/booking-engine/internal/statemachine"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/idempotency"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/payment"
)

const keyPrefix = "payment_event:"

type Service struct {
	tx           repository.Transactor
	appointments repository.AppointmentRepository
	gateway      payment.Gateway
	idempotency  idempotency.Store
	idemTTL      time.Duration
	returnURL    string
	events       event.Emitter
	logger       *logger.Logger
	metrics      *metrics.Metrics
}

type Config struct {
	ReturnURL      string
	IdempotencyTTL time.Duration
}

func NewService(
	repos *repository.Repositories,
	gateway payment.Gateway,
	store idempotency.Store,
	events event.Emitter,
	cfg Config,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = 72 * time.Hour
	}
	return &Service{
		tx:           repos.Transactor,
		appointments: repos.Appointments,
		gateway:      gateway,
		idempotency:  store,
		idemTTL:      cfg.IdempotencyTTL,
		returnURL:    cfg.ReturnURL,
		events:       events,
		logger:       logger,
		metrics:      metrics,
	}
}

// InitiatePayment opens a checkout for the outstanding balance. The appointment is not
// modified; the payment status only moves when the provider reports back.
func (s *Service) InitiatePayment(ctx context.Context, appointmentID uuid.UUID) (*payment.Checkout, error) {
	apt, err := s.appointments.Get(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	switch {
	case apt.Status.Terminal():
		return nil, apperrors.New(apperrors.KindInvalidState, fmt.Sprintf("appointment is %s", apt.Status)).
			WithDetail("status", int(apt.Status))
	case apt.Status == model.StatusRequestCancel || apt.Status == model.StatusRequestRefund:
		return nil, apperrors.New(apperrors.KindInvalidState, "appointment is being cancelled").
			WithDetail("status", int(apt.Status))
	case apt.AmountDue() <= 0:
		return nil, apperrors.New(apperrors.KindInvalidState, "nothing is due").
			WithDetail("payment_status", int(apt.PaymentStatus))
	}

	checkout, err := s.gateway.CreateCheckout(ctx, payment.CheckoutRequest{
		AppointmentID:   apt.ID,
		AppointmentCode: apt.AppointmentCode,
		CustomerID:      apt.CustomerID,
		Amount:          apt.AmountDue(),
		Description:     "Appointment " + apt.AppointmentCode,
		ReturnURL:       s.returnURL,
	})
	if err != nil {
		s.logger.Ctx(ctx).Error(err, "Failed to create checkout", "appointment_id", apt.ID.String())
		return nil, apperrors.Wrap(apperrors.KindPaymentFailed, "payment could not be started", err).
			WithDetail("appointment_id", apt.ID.String())
	}

	s.logger.Ctx(ctx).Info("Checkout created",
		"appointment_id", apt.ID.String(),
		"session_id", checkout.SessionID,
		"amount", apt.AmountDue())
	return checkout, nil
}

// OnPaymentResult applies a provider callback. Each event ID is applied at most once; a
// redelivery returns the current appointment with Duplicate set. Refund outcomes are only
// accepted while the appointment is in RequestRefund.
func (s *Service) OnPaymentResult(ctx context.Context, req *model.PaymentResultRequest) (*model.PaymentResult, error) {
	outcome := statemachine.PaymentOutcome(req.Outcome)
	if !outcome.Valid() {
		return nil, apperrors.Validation("unknown payment outcome", nil).WithDetail("outcome", req.Outcome)
	}
	if req.EventID == "" {
		return nil, apperrors.Validation("event_id is required", nil)
	}

	key := keyPrefix + req.EventID
	first, err := s.idempotency.Acquire(ctx, key, s.idemTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to check payment event: %w", err)
	}
	if !first {
		s.metrics.DuplicateWebhooks.Inc()
		s.logger.Ctx(ctx).Info("Duplicate payment event ignored", "event_id", req.EventID)
		apt, err := s.appointments.Get(ctx, req.AppointmentID)
		if err != nil {
			return nil, err
		}
		return &model.PaymentResult{Appointment: apt, Duplicate: true}, nil
	}

	apt, err := s.apply(ctx, req, outcome)
	s.metrics.PaymentCallbacks.WithLabelValues(string(outcome), metrics.Result(err)).Inc()
	if err != nil {
		if releaseErr := s.idempotency.Release(ctx, key); releaseErr != nil {
			s.logger.Ctx(ctx).Error(releaseErr, "Failed to release payment event", "event_id", req.EventID)
		}
		return nil, err
	}
	return &model.PaymentResult{Appointment: apt}, nil
}

func (s *Service) apply(ctx context.Context, req *model.PaymentResultRequest, outcome statemachine.PaymentOutcome) (*model.Appointment, error) {
	var updated *model.Appointment
	err := s.tx.WithinLock(ctx, []string{repository.AppointmentLock(req.AppointmentID)}, func(ctx context.Context) error {
		apt, err := s.appointments.Get(ctx, req.AppointmentID)
		if err != nil {
			return err
		}

		if outcome.IsRefund() && apt.Status != model.StatusRequestRefund {
			return apperrors.New(apperrors.KindInvalidState, "refunds only settle appointments awaiting a refund").
				WithDetail("status", int(apt.Status))
		}

		fromPayment, fromStatus := apt.PaymentStatus, apt.Status
		nextPayment, err := statemachine.ApplyPayment(fromPayment, outcome)
		if err != nil {
			return err
		}
		apt.PaymentStatus = nextPayment
		apt.PaidAmount = settle(apt, outcome, req.Amount)

		if outcome.IsRefund() && apt.Status == model.StatusRequestRefund {
			next, err := statemachine.Transition(apt.Status, statemachine.RefundCompleted{}, statemachine.GuardsFor(apt))
			if err != nil {
				return err
			}
			apt.Status = next
		}

		if err := s.appointments.Update(ctx, apt); err != nil {
			return err
		}
		updated = apt

		if err := s.events.Emit(ctx, model.EventAppointmentPaymentChange, event.PaymentChangedPayload{
			AppointmentID: apt.ID,
			EventID:       req.EventID,
			Outcome:       string(outcome),
			From:          fromPayment,
			To:            nextPayment,
		}); err != nil {
			return err
		}
		if apt.Status != fromStatus {
			return s.events.Emit(ctx, model.EventAppointmentStatusChanged, event.StatusChangedPayload{
				AppointmentID: apt.ID,
				Event:         statemachine.RefundCompleted{}.Name(),
				From:          fromStatus,
				To:            apt.Status,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Ctx(ctx).Info("Payment result applied",
		"appointment_id", updated.ID.String(),
		"event_id", req.EventID,
		"outcome", string(outcome),
		"payment_status", updated.PaymentStatus.String(),
		"status", updated.Status.String())
	return updated, nil
}

// settle returns the collected amount after outcome.
func settle(apt *model.Appointment, outcome statemachine.PaymentOutcome, amount float64) float64 {
	switch outcome {
	case statemachine.PaymentSucceeded:
		return apt.TotalAmount
	case statemachine.DepositSucceeded:
		return math.Min(apt.PaidAmount+amount, apt.TotalAmount)
	case statemachine.RefundSucceeded:
		return 0
	case statemachine.PartialRefundSettled:
		return math.Max(apt.PaidAmount-amount, 0)
	}
	return apt.PaidAmount
}

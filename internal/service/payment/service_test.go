package payment

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/booking-engine/internal/model"
	"github.com/jwalitptl/booking-engine/internal/repository"
	"github.com/jwalitptl/booking-engine/internal/repository/memory"
	"github.com/jwalitptl/booking-engine/internal/service/event"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
	"github.com/jwalitptl/booking-engine/pkg/idempotency"
	"github.com/jwalitptl/booking-engine/pkg/logger"
	"github.com/jwalitptl/booking-engine/pkg/metrics"
	"github.com/jwalitptl/booking-engine/pkg/payment"
)

type brokenGateway struct{}

func (brokenGateway) CreateCheckout(ctx context.Context, req payment.CheckoutRequest) (*payment.Checkout, error) {
	return nil, payment.ErrUnavailable
}

func setup(t *testing.T, gw payment.Gateway) (*Service, *repository.Repositories) {
	t.Helper()
	repos, _ := memory.NewRepositories()
	events := event.NewEventService(repos.Outbox, logger.Nop())
	store := idempotency.NewMemoryStore(time.Hour, time.Minute)
	svc := NewService(repos, gw, store, events, Config{ReturnURL: "https://clinic.example/return"}, logger.Nop(), metrics.NewTestMetrics())
	return svc, repos
}

func seedAppointment(t *testing.T, repos *repository.Repositories, status model.AppointmentStatus, payment model.PaymentStatus) *model.Appointment {
	t.Helper()
	apt := &model.Appointment{
		AppointmentCode: "APT-20261012-" + uuid.NewString()[:6],
		CustomerID:      uuid.New(),
		SlotID:          uuid.New(),
		Status:          status,
		PaymentStatus:   payment,
		TotalAmount:     40,
		Details: []model.AppointmentDetail{
			{ServiceID: uuid.New(), ServiceType: model.ServiceTypeConsultation, Price: 40},
		},
	}
	if payment == model.PaymentPaid {
		apt.PaidAmount = apt.TotalAmount
	}
	require.NoError(t, repos.Appointments.Create(context.Background(), apt))
	return apt
}

func result(id uuid.UUID, eventID, outcome string) *model.PaymentResultRequest {
	return &model.PaymentResultRequest{AppointmentID: id, EventID: eventID, Outcome: outcome}
}

func TestInitiatePayment(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway("https://pay.example"))
	ctx := context.Background()

	apt := seedAppointment(t, repos, model.StatusPending, model.PaymentAwaiting)
	checkout, err := svc.InitiatePayment(ctx, apt.ID)
	require.NoError(t, err)
	assert.Contains(t, checkout.PaymentURL, apt.AppointmentCode)
	assert.Contains(t, checkout.PaymentURL, "amount=40.00")

	paid := seedAppointment(t, repos, model.StatusConfirmed, model.PaymentPaid)
	_, err = svc.InitiatePayment(ctx, paid.ID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	done := seedAppointment(t, repos, model.StatusCancelled, model.PaymentAwaiting)
	_, err = svc.InitiatePayment(ctx, done.ID)
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = svc.InitiatePayment(ctx, uuid.New())
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestInitiatePayment_GatewayFailureLeavesAppointment(t *testing.T) {
	svc, repos := setup(t, brokenGateway{})
	ctx := context.Background()

	apt := seedAppointment(t, repos, model.StatusPending, model.PaymentAwaiting)
	_, err := svc.InitiatePayment(ctx, apt.ID)
	assert.Equal(t, apperrors.KindPaymentFailed, apperrors.KindOf(err))
	assert.True(t, errors.Is(err, payment.ErrUnavailable))

	stored, err := repos.Appointments.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, apt.Version, stored.Version)
	assert.Equal(t, model.PaymentAwaiting, stored.PaymentStatus)
}

func TestOnPaymentResult_Success(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway(""))
	ctx := context.Background()

	apt := seedAppointment(t, repos, model.StatusConfirmed, model.PaymentAwaiting)
	res, err := svc.OnPaymentResult(ctx, result(apt.ID, "evt_1", "succeeded"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, model.PaymentPaid, res.Appointment.PaymentStatus)
	assert.Equal(t, 40.0, res.Appointment.PaidAmount)
	assert.Equal(t, model.StatusConfirmed, res.Appointment.Status)

	// redelivery of the same event is ignored
	again, err := svc.OnPaymentResult(ctx, result(apt.ID, "evt_1", "succeeded"))
	require.NoError(t, err)
	assert.True(t, again.Duplicate)
	assert.Equal(t, res.Appointment.Version, again.Appointment.Version)

	// a different success event on a paid appointment is a no-op on the payment axis
	repeat, err := svc.OnPaymentResult(ctx, result(apt.ID, "evt_2", "succeeded"))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, repeat.Appointment.PaymentStatus)
}

func TestOnPaymentResult_ConcurrentRedelivery(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway(""))
	apt := seedAppointment(t, repos, model.StatusPending, model.PaymentAwaiting)

	var wg sync.WaitGroup
	results := make([]*model.PaymentResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := svc.OnPaymentResult(context.Background(), result(apt.ID, "evt_same", "succeeded"))
			if assert.NoError(t, err) {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, res := range results {
		if res != nil && !res.Duplicate {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	stored, err := repos.Appointments.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)
}

func TestOnPaymentResult_FailureKeepsStatus(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway(""))
	apt := seedAppointment(t, repos, model.StatusPending, model.PaymentDeposited)

	res, err := svc.OnPaymentResult(context.Background(), result(apt.ID, "evt_f", "failed"))
	require.NoError(t, err)
	assert.Equal(t, model.PaymentDeposited, res.Appointment.PaymentStatus)
}

func TestOnPaymentResult_Deposit(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway(""))
	apt := seedAppointment(t, repos, model.StatusPending, model.PaymentAwaiting)

	req := result(apt.ID, "evt_d", "deposit_succeeded")
	req.Amount = 15
	res, err := svc.OnPaymentResult(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, model.PaymentDeposited, res.Appointment.PaymentStatus)
	assert.Equal(t, 15.0, res.Appointment.PaidAmount)
	assert.Equal(t, 25.0, res.Appointment.AmountDue())
}

func TestOnPaymentResult_RefundCompletesCancellation(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway(""))
	apt := seedAppointment(t, repos, model.StatusRequestRefund, model.PaymentPaid)

	res, err := svc.OnPaymentResult(context.Background(), result(apt.ID, "evt_r", "refunded"))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, res.Appointment.Status)
	assert.Equal(t, model.PaymentRefunded, res.Appointment.PaymentStatus)
	assert.Equal(t, 0.0, res.Appointment.PaidAmount)

	events, err := repos.Outbox.GetPendingEvents(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestOnPaymentResult_RefundOutsideRequestRefund(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway(""))
	ctx := context.Background()

	for _, outcome := range []string{"refunded", "partially_refunded"} {
		apt := seedAppointment(t, repos, model.StatusConfirmed, model.PaymentPaid)

		_, err := svc.OnPaymentResult(ctx, result(apt.ID, "evt_"+outcome, outcome))
		assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err), outcome)

		stored, err := repos.Appointments.Get(ctx, apt.ID)
		require.NoError(t, err)
		assert.Equal(t, model.StatusConfirmed, stored.Status)
		assert.Equal(t, model.PaymentPaid, stored.PaymentStatus)
		assert.Equal(t, 40.0, stored.PaidAmount)
	}

	events, err := repos.Outbox.GetPendingEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestOnPaymentResult_Rejections(t *testing.T) {
	svc, repos := setup(t, payment.NewStaticGateway(""))
	ctx := context.Background()
	apt := seedAppointment(t, repos, model.StatusPending, model.PaymentAwaiting)

	_, err := svc.OnPaymentResult(ctx, result(apt.ID, "evt_x", "chargeback"))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = svc.OnPaymentResult(ctx, result(apt.ID, "", "succeeded"))
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	// refunding an unpaid appointment is rejected and the event can be delivered again
	_, err = svc.OnPaymentResult(ctx, result(apt.ID, "evt_bad", "refunded"))
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))
	_, err = svc.OnPaymentResult(ctx, result(apt.ID, "evt_bad", "refunded"))
	assert.Equal(t, apperrors.KindInvalidState, apperrors.KindOf(err))

	_, err = svc.OnPaymentResult(ctx, result(uuid.New(), "evt_missing", "succeeded"))
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

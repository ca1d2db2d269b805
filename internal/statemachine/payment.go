package statemachine

import (
	"fmt"

	"github.com/jwalitptl/booking-engine/internal/model"
	apperrors "github.com/jwalitptl/booking-engine/pkg/errors"
)

// PaymentOutcome is what the payment provider reports for one event.
type PaymentOutcome string

const (
	PaymentSucceeded     PaymentOutcome = "succeeded"
	DepositSucceeded     PaymentOutcome = "deposit_succeeded"
	PaymentFailed        PaymentOutcome = "failed"
	RefundSucceeded      PaymentOutcome = "refunded"
	PartialRefundSettled PaymentOutcome = "partially_refunded"
)

func (o PaymentOutcome) Valid() bool {
	switch o {
	case PaymentSucceeded, DepositSucceeded, PaymentFailed, RefundSucceeded, PartialRefundSettled:
		return true
	}
	return false
}

// IsRefund reports whether the outcome settles a refund.
func (o PaymentOutcome) IsRefund() bool {
	return o == RefundSucceeded || o == PartialRefundSettled
}

// ApplyPayment moves the payment axis. It never touches the appointment status.
// A repeated success is a no-op and a failure leaves the status unchanged.
func ApplyPayment(current model.PaymentStatus, outcome PaymentOutcome) (model.PaymentStatus, error) {
	switch outcome {
	case PaymentFailed:
		return current, nil
	case PaymentSucceeded:
		switch current {
		case model.PaymentAwaiting, model.PaymentDeposited, model.PaymentPaid:
			return model.PaymentPaid, nil
		}
	case DepositSucceeded:
		switch current {
		case model.PaymentAwaiting, model.PaymentDeposited:
			return model.PaymentDeposited, nil
		case model.PaymentPaid:
			return current, nil
		}
	case RefundSucceeded:
		switch current {
		case model.PaymentDeposited, model.PaymentPaid, model.PaymentRefunded:
			return model.PaymentRefunded, nil
		}
	case PartialRefundSettled:
		switch current {
		case model.PaymentDeposited, model.PaymentPaid, model.PaymentPartiallyRefunded:
			return model.PaymentPartiallyRefunded, nil
		}
	default:
		return current, apperrors.New(apperrors.KindValidation, fmt.Sprintf("unknown payment outcome %q", outcome))
	}
	return current, apperrors.New(apperrors.KindInvalidState,
		fmt.Sprintf("payment %s cannot be applied to %s", outcome, current)).
		WithDetail("payment_status", int(current))
}

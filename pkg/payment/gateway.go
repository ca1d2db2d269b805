// Package payment talks to the external checkout provider.
package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrUnavailable wraps every failure to obtain a checkout session.
var ErrUnavailable = errors.New("payment gateway unavailable")

type CheckoutRequest struct {
	AppointmentID   uuid.UUID `json:"appointment_id"`
	AppointmentCode string    `json:"appointment_code"`
	CustomerID      uuid.UUID `json:"customer_id"`
	Amount          float64   `json:"amount"`
	Description     string    `json:"description"`
	ReturnURL       string    `json:"return_url"`
}

type Checkout struct {
	SessionID  string `json:"session_id"`
	PaymentURL string `json:"payment_url"`
}

// Gateway creates hosted checkout sessions.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
}

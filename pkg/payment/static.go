package payment

import (
	"context"
	"fmt"
	"net/url"
	"strings"
)

// StaticGateway builds checkout links locally without a provider. It is meant for
// development and tests.
type StaticGateway struct {
	BaseURL string
}

func NewStaticGateway(baseURL string) *StaticGateway {
	if baseURL == "" {
		baseURL = "http://localhost:8080/pay"
	}
	return &StaticGateway{BaseURL: strings.TrimRight(baseURL, "/")}
}

func (g *StaticGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error) {
	q := url.Values{}
	q.Set("amount", fmt.Sprintf("%.2f", req.Amount))
	if req.ReturnURL != "" {
		q.Set("return_url", req.ReturnURL)
	}
	return &Checkout{
		SessionID:  "static-" + req.AppointmentID.String(),
		PaymentURL: fmt.Sprintf("%s/%s?%s", g.BaseURL, url.PathEscape(req.AppointmentCode), q.Encode()),
	}, nil
}

package api

import (
	"context"

	"github.com/scholarhub/scholarhub/internal/dashboard/secure"
)

// CheckoutRequest starts a payment for a scholarship application fee.
type CheckoutRequest struct {
	ScholarshipID   string  `json:"scholarshipId"`
	ScholarshipName string  `json:"scholarshipName"`
	UserEmail       string  `json:"userEmail"`
	Amount          float64 `json:"amount"`
	SuccessURL      string  `json:"successUrl,omitempty"`
	CancelURL       string  `json:"cancelUrl,omitempty"`
}

// CheckoutSession is the provider-hosted payment page reference.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

type Payments struct {
	secure *secure.Client
}

// CreateCheckoutSession asks the backend to open a checkout session with the
// payment provider.
func (p *Payments) CreateCheckoutSession(ctx context.Context, in CheckoutRequest) (CheckoutSession, error) {
	var out CheckoutSession
	err := p.secure.Post(ctx, "/create-checkout-session", in, &out)
	return out, err
}

// ConfirmPayment reports a completed checkout back to the backend, which
// marks the application as paid.
func (p *Payments) ConfirmPayment(ctx context.Context, sessionID string) error {
	return p.secure.Post(ctx, "/payment-success",
		map[string]string{"sessionId": sessionID}, nil)
}

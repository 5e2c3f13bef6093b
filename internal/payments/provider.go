package payments

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured is returned when online payments are requested but no
	// gateway credentials were supplied.
	ErrNotConfigured = errors.New("payments: provider not configured")
	// ErrInvalidSignature marks a webhook whose signature did not verify.
	ErrInvalidSignature = errors.New("payments: invalid webhook signature")
)

// CheckoutRequest is what the gateway needs to collect payment for an order.
type CheckoutRequest struct {
	OrderID        string
	OrderNumber    string
	Amount         decimal.Decimal
	Currency       string
	CustomerEmail  string
	IdempotencyKey string
}

// CheckoutSession is the gateway session the buyer is redirected to.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// Provider starts hosted payment collection.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

// Outcome is the normalised result carried by a gateway webhook.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeIgnored   Outcome = "ignored"
)

// Event is a verified webhook reduced to what order tracking needs.
type Event struct {
	ID        string
	Type      string
	Outcome   Outcome
	Reference string
	OrderID   string
}

// MinorUnits converts an amount to the smallest currency unit (paise,
// cents), rounding half away from zero.
func MinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

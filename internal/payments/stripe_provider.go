package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
	"go.uber.org/zap"
	"storefront/internal/logging"
)

const orderIDPlaceholder = "{ORDER_ID}"

type stripeSessionAPI interface {
	New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
}

// StripeConfig configures the StripeProvider.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	SuccessURL    string
	CancelURL     string
	Logger        *zap.Logger

	sessions stripeSessionAPI
}

// StripeProvider collects payment through Stripe Checkout.
type StripeProvider struct {
	sessions      stripeSessionAPI
	webhookSecret string
	successURL    string
	cancelURL     string
	logger        *zap.Logger
}

func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" && cfg.sessions == nil {
		return nil, ErrNotConfigured
	}
	if strings.TrimSpace(cfg.SuccessURL) == "" || strings.TrimSpace(cfg.CancelURL) == "" {
		return nil, errors.New("stripe: success and cancel urls are required")
	}
	sessions := cfg.sessions
	if sessions == nil {
		sessions = client.New(key, nil).CheckoutSessions
	}
	return &StripeProvider{
		sessions:      sessions,
		webhookSecret: strings.TrimSpace(cfg.WebhookSecret),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		logger:        logging.OrNop(cfg.Logger).Named("stripe"),
	}, nil
}

// CreateCheckoutSession opens a hosted checkout for the order total. The
// order is charged as one line so the amount always equals the stored
// total, discount and shipping included.
func (p *StripeProvider) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	amount := MinorUnits(req.Amount)
	if amount <= 0 {
		return nil, fmt.Errorf("stripe: amount must be positive, got %s", req.Amount)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(strings.ReplaceAll(p.successURL, orderIDPlaceholder, req.OrderID)),
		CancelURL:         stripe.String(strings.ReplaceAll(p.cancelURL, orderIDPlaceholder, req.OrderID)),
		ClientReferenceID: stripe.String(req.OrderID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Quantity: stripe.Int64(1),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(amount),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String("Order " + req.OrderNumber),
				},
			},
		}},
		Metadata: map[string]string{
			"order_id":     req.OrderID,
			"order_number": req.OrderNumber,
		},
	}
	params.Context = ctx
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey("checkout-" + key)
	}

	session, err := p.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create checkout session: %w", err)
	}
	if session.URL == "" {
		return nil, errors.New("stripe: checkout session has no redirect url")
	}
	p.logger.Info("checkout session created",
		zap.String("session_id", session.ID),
		zap.String("order_id", req.OrderID),
		zap.Int64("amount", amount),
	)
	return &CheckoutSession{ID: session.ID, RedirectURL: session.URL}, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps checkout
// session events to payment outcomes. Unrelated events are Ignored.
func (p *StripeProvider) ParseWebhook(payload []byte, signature string) (*Event, error) {
	if p.webhookSecret == "" {
		return nil, ErrNotConfigured
	}
	evt, err := webhook.ConstructEventWithOptions(payload, signature, p.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	out := &Event{ID: evt.ID, Type: string(evt.Type), Outcome: OutcomeIgnored}
	switch out.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		out.Outcome = OutcomeSucceeded
	case "checkout.session.expired", "checkout.session.async_payment_failed":
		out.Outcome = OutcomeFailed
	default:
		return out, nil
	}

	var session stripe.CheckoutSession
	if evt.Data == nil {
		return nil, errors.New("stripe: event has no data")
	}
	if err := json.Unmarshal(evt.Data.Raw, &session); err != nil {
		return nil, fmt.Errorf("stripe: decode checkout session: %w", err)
	}
	// Completed sessions for delayed methods are still unpaid.
	if out.Type == "checkout.session.completed" && session.PaymentStatus == stripe.CheckoutSessionPaymentStatusUnpaid {
		out.Outcome = OutcomeIgnored
	}
	out.Reference = session.ID
	out.OrderID = session.ClientReferenceID
	return out, nil
}

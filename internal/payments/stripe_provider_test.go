package payments

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

type fakeSessions struct {
	params *stripe.CheckoutSessionParams
	resp   *stripe.CheckoutSession
	err    error
}

func (f *fakeSessions) New(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error) {
	f.params = params
	return f.resp, f.err
}

func newTestProvider(t *testing.T, sessions *fakeSessions) *StripeProvider {
	t.Helper()
	p, err := NewStripeProvider(StripeConfig{
		WebhookSecret: "whsec_test",
		SuccessURL:    "https://shop.example/orders/{ORDER_ID}",
		CancelURL:     "https://shop.example/checkout",
		sessions:      sessions,
	})
	if err != nil {
		t.Fatalf("NewStripeProvider: %v", err)
	}
	return p
}

func TestCreateCheckoutSession_ChargesOrderTotal(t *testing.T) {
	sessions := &fakeSessions{resp: &stripe.CheckoutSession{ID: "cs_1", URL: "https://checkout.stripe.test/cs_1"}}
	p := newTestProvider(t, sessions)

	session, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{
		OrderID:        "ord-1",
		OrderNumber:    "01JXYZ",
		Amount:         decimal.RequireFromString("1049.50"),
		Currency:       "INR",
		CustomerEmail:  "a@example.com",
		IdempotencyKey: "key-1",
	})
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if session.ID != "cs_1" || session.RedirectURL == "" {
		t.Fatalf("unexpected session %+v", session)
	}

	params := sessions.params
	if got := *params.LineItems[0].PriceData.UnitAmount; got != 104950 {
		t.Fatalf("expected 104950 paise, got %d", got)
	}
	if got := *params.LineItems[0].PriceData.Currency; got != "inr" {
		t.Fatalf("expected lower-case currency, got %q", got)
	}
	if got := *params.SuccessURL; got != "https://shop.example/orders/ord-1" {
		t.Fatalf("unexpected success url %q", got)
	}
	if *params.ClientReferenceID != "ord-1" || params.Metadata["order_number"] != "01JXYZ" {
		t.Fatalf("order reference not set: %+v", params.Metadata)
	}
	if params.IdempotencyKey == nil || *params.IdempotencyKey != "checkout-key-1" {
		t.Fatalf("idempotency key not forwarded")
	}
}

func TestCreateCheckoutSession_Failures(t *testing.T) {
	p := newTestProvider(t, &fakeSessions{err: errors.New("card network down")})
	if _, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{OrderID: "o", Amount: decimal.NewFromInt(10), Currency: "INR"}); err == nil {
		t.Fatalf("expected gateway error")
	}

	p = newTestProvider(t, &fakeSessions{resp: &stripe.CheckoutSession{ID: "cs_2"}})
	if _, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{OrderID: "o", Amount: decimal.NewFromInt(10), Currency: "INR"}); err == nil {
		t.Fatalf("expected error for missing redirect url")
	}

	if _, err := p.CreateCheckoutSession(context.Background(), CheckoutRequest{OrderID: "o", Amount: decimal.Zero, Currency: "INR"}); err == nil {
		t.Fatalf("expected error for zero amount")
	}
}

func TestNewStripeProvider_RequiresKey(t *testing.T) {
	if _, err := NewStripeProvider(StripeConfig{SuccessURL: "a", CancelURL: "b"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func signed(t *testing.T, payload string) (string, []byte) {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    "whsec_test",
		Timestamp: time.Now(),
	})
	return sp.Header, sp.Payload
}

func TestParseWebhook_Outcomes(t *testing.T) {
	p := newTestProvider(t, &fakeSessions{})

	cases := []struct {
		name    string
		payload string
		outcome Outcome
	}{
		{"paid", `{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","client_reference_id":"ord-1","payment_status":"paid"}}}`, OutcomeSucceeded},
		{"unpaid completion", `{"id":"evt_2","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"unpaid"}}}`, OutcomeIgnored},
		{"expired", `{"id":"evt_3","object":"event","type":"checkout.session.expired","data":{"object":{"id":"cs_1","object":"checkout.session"}}}`, OutcomeFailed},
		{"unrelated", `{"id":"evt_4","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`, OutcomeIgnored},
	}
	for _, tc := range cases {
		header, payload := signed(t, tc.payload)
		evt, err := p.ParseWebhook(payload, header)
		if err != nil {
			t.Fatalf("%s: ParseWebhook: %v", tc.name, err)
		}
		if evt.Outcome != tc.outcome {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.outcome, evt.Outcome)
		}
	}

	header, payload := signed(t, cases[0].payload)
	evt, _ := p.ParseWebhook(payload, header)
	if evt.Reference != "cs_1" || evt.OrderID != "ord-1" {
		t.Fatalf("unexpected event %+v", evt)
	}
}

func TestParseWebhook_RejectsBadSignature(t *testing.T) {
	p := newTestProvider(t, &fakeSessions{})
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)
	if _, err := p.ParseWebhook(payload, "t=1,v1=deadbeef"); !errors.Is(err, ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestMinorUnits(t *testing.T) {
	if got := MinorUnits(decimal.RequireFromString("0.005")); got != 1 {
		t.Fatalf("expected half-up rounding, got %d", got)
	}
	if got := MinorUnits(decimal.NewFromInt(500)); got != 50000 {
		t.Fatalf("unexpected minor units %d", got)
	}
}

package httpserver

import (
	"fmt"
	"net/http"
	"testing"

	"storefront/internal/domain"
	"storefront/internal/payments"
)

func TestStripeWebhookApplied(t *testing.T) {
	deps := testDeps()
	orders := &stubOrderService{}
	deps.Orders = orders
	deps.Webhooks = &stubWebhookParser{evt: &payments.Event{
		ID: "evt_1", Type: "checkout.session.completed", Outcome: payments.OutcomeSucceeded, Reference: "cs_1", OrderID: someID,
	}}
	router := newTestRouter(t, deps)

	rec := do(router, http.MethodPost, "/webhooks/stripe", "", `{}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if len(orders.events) != 1 || orders.events[0].Reference != "cs_1" {
		t.Fatalf("event not applied: %+v", orders.events)
	}
}

func TestStripeWebhookBadSignature(t *testing.T) {
	deps := testDeps()
	deps.Webhooks = &stubWebhookParser{err: fmt.Errorf("%w: no signatures found", payments.ErrInvalidSignature)}
	router := newTestRouter(t, deps)

	rec := do(router, http.MethodPost, "/webhooks/stripe", "", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if got := decodeError(t, rec.Body.Bytes()); got.Error != "InvalidSignature" {
		t.Fatalf("unexpected error code %q", got.Error)
	}
}

func TestStripeWebhookUnknownSessionAcknowledged(t *testing.T) {
	deps := testDeps()
	deps.Orders = &stubOrderService{err: fmt.Errorf("update payment: %w", domain.ErrNotFound)}
	deps.Webhooks = &stubWebhookParser{evt: &payments.Event{ID: "evt_2", Outcome: payments.OutcomeFailed, Reference: "cs_unknown"}}
	router := newTestRouter(t, deps)

	if rec := do(router, http.MethodPost, "/webhooks/stripe", "", `{}`); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestStripeWebhookNotConfigured(t *testing.T) {
	router := newTestRouter(t, testDeps())

	if rec := do(router, http.MethodPost, "/webhooks/stripe", "", `{}`); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

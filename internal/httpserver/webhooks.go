package httpserver

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/payments"
)

const maxWebhookBody = 64 << 10

// stripeWebhook verifies and applies a gateway event. Events for unknown
// sessions are acknowledged so the gateway stops retrying them.
func (h *handlers) stripeWebhook(c *gin.Context) {
	if h.deps.Webhooks == nil {
		abortError(c, http.StatusServiceUnavailable, "PaymentsUnavailable", "payment gateway is not configured", nil)
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "unreadable request body")
		return
	}
	evt, err := h.deps.Webhooks.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrNotConfigured) {
			abortError(c, http.StatusServiceUnavailable, "PaymentsUnavailable", "payment gateway is not configured", nil)
			return
		}
		h.logger.Warn("webhook rejected", zap.Error(err))
		code := "InvalidWebhook"
		if errors.Is(err, payments.ErrInvalidSignature) {
			code = "InvalidSignature"
		}
		abortError(c, http.StatusBadRequest, code, "webhook could not be verified", nil)
		return
	}

	order, err := h.deps.Orders.ApplyPaymentEvent(c.Request.Context(), *evt)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		h.writeError(c, err)
		return
	case order != nil:
		h.logger.Info("webhook applied",
			zap.String("event_id", evt.ID),
			zap.String("event_type", evt.Type),
			zap.String("order_id", order.ID),
		)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

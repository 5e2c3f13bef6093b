package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"storefront/internal/domain"
	"storefront/internal/pricing"
	cartsvc "storefront/internal/service/cart"
	checkoutsvc "storefront/internal/service/checkout"
	ordersvc "storefront/internal/service/order"
)

type errorResponse struct {
	Error   string         `json:"error"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func abortError(c *gin.Context, status int, code, message string, details map[string]any) {
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: message, Details: details})
}

func badRequest(c *gin.Context, message string) {
	abortError(c, http.StatusBadRequest, "InvalidInput", message, nil)
}

// validID rejects route ids that cannot be uuids before they reach storage.
func validID(c *gin.Context, param string) (string, bool) {
	id := c.Param(param)
	if _, err := uuid.Parse(id); err != nil {
		abortError(c, http.StatusNotFound, "NotFound", "resource not found", nil)
		return "", false
	}
	return id, true
}

// writeError maps service errors onto the error envelope. Anything not
// recognised is logged and reported as a 500 without internal detail.
func (h *handlers) writeError(c *gin.Context, err error) {
	var checkoutErr *checkoutsvc.Error
	if errors.As(err, &checkoutErr) {
		writeCheckoutError(c, checkoutErr)
		return
	}

	var couponErr *pricing.CouponError
	switch {
	case errors.As(err, &couponErr):
		abortError(c, http.StatusUnprocessableEntity, string(checkoutsvc.CodeCouponInvalid), couponErr.Error(),
			map[string]any{"reason": couponErr.Reason})
	case errors.Is(err, domain.ErrNotFound):
		abortError(c, http.StatusNotFound, "NotFound", "resource not found", nil)
	case errors.Is(err, cartsvc.ErrItemUnavailable):
		abortError(c, http.StatusUnprocessableEntity, string(checkoutsvc.CodeItemUnavailable), err.Error(), nil)
	case errors.Is(err, domain.ErrInvalidInput):
		abortError(c, http.StatusBadRequest, "InvalidInput", err.Error(), nil)
	case errors.Is(err, ordersvc.ErrIllegalTransition):
		abortError(c, http.StatusConflict, "IllegalTransition", err.Error(), nil)
	case errors.Is(err, domain.ErrConflict):
		abortError(c, http.StatusConflict, "Conflict", "the resource was modified concurrently or already exists", nil)
	default:
		h.logger.Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		c.Error(err)
		abortError(c, http.StatusInternalServerError, "InternalError", "internal server error", nil)
	}
}

// writeCheckoutError renders checkout failures; the checkout service has
// already logged storage and gateway causes.
func writeCheckoutError(c *gin.Context, e *checkoutsvc.Error) {
	details := map[string]any{}
	status := http.StatusUnprocessableEntity
	switch e.Code {
	case checkoutsvc.CodeCouponInvalid:
		details["reason"] = e.Reason
	case checkoutsvc.CodeOrderCreationFailed:
		status = http.StatusConflict
		if e.Err != nil {
			status = http.StatusInternalServerError
		}
	case checkoutsvc.CodePaymentInitiationFailed:
		status = http.StatusBadGateway
		details["orderId"] = e.OrderID
	}
	if len(e.Fields) > 0 {
		details["fields"] = e.Fields
	}
	if len(details) == 0 {
		details = nil
	}
	abortError(c, status, string(e.Code), e.Message, details)
}

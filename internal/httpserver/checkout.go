package httpserver

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"storefront/internal/domain"
	checkoutsvc "storefront/internal/service/checkout"
)

type checkoutRequest struct {
	AddressID     string                  `json:"addressId"`
	Address       *domain.ShippingAddress `json:"address"`
	PaymentMethod string                  `json:"paymentMethod"`
	CouponCode    string                  `json:"couponCode"`
	QuickBuy      *checkoutsvc.LineInput  `json:"quickBuy"`
	Lines         []checkoutsvc.LineInput `json:"lines"`
	Guest         *domain.GuestContact    `json:"guest"`
}

type checkoutResponse struct {
	Order       *domain.Order `json:"order"`
	RedirectURL string        `json:"redirectUrl,omitempty"`
}

// checkout places an order for the signed-in user or a guest. A repeated
// Idempotency-Key answers 200 with the original order.
func (h *handlers) checkout(c *gin.Context) {
	var body checkoutRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	req := checkoutsvc.Request{
		IdempotencyKey: strings.TrimSpace(c.GetHeader(idempotencyHeader)),
		AddressID:      strings.TrimSpace(body.AddressID),
		Address:        body.Address,
		PaymentMethod:  domain.PaymentMethod(strings.ToLower(strings.TrimSpace(body.PaymentMethod))),
		CouponCode:     body.CouponCode,
		QuickBuy:       body.QuickBuy,
		Lines:          body.Lines,
		Guest:          body.Guest,
	}
	if identity, ok := identityFrom(c); ok {
		userID := identity.UserID
		req.UserID = &userID
		req.Email = identity.Email
		req.Guest = nil
	}

	res, err := h.deps.Checkout.PlaceOrder(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, checkoutResponse{Order: res.Order, RedirectURL: res.RedirectURL})
}

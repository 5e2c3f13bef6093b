package httpserver

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"storefront/internal/domain"
	"storefront/internal/pricing"
)

type listResponse[T any] struct {
	Count   int `json:"count"`
	Results []T `json:"results"`
}

func newList[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Count: len(items), Results: items}
}

func (h *handlers) listProducts(c *gin.Context) {
	products, err := h.deps.Products.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(products))
}

func (h *handlers) getProduct(c *gin.Context) {
	id, ok := validID(c, "id")
	if !ok {
		return
	}
	product, err := h.deps.Products.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

type validateCouponRequest struct {
	Code     string          `json:"code"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

type couponPreview struct {
	Valid        bool                 `json:"valid"`
	Code         string               `json:"code"`
	Discount     decimal.Decimal      `json:"discount"`
	DiscountType domain.DiscountType  `json:"discountType,omitempty"`
	Reason       pricing.CouponReason `json:"reason,omitempty"`
}

// validateCoupon previews a coupon against a subtotal. Rejections are a
// normal answer here, not an error.
func (h *handlers) validateCoupon(c *gin.Context) {
	var req validateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if req.Subtotal.IsNegative() {
		badRequest(c, "subtotal must not be negative")
		return
	}

	applied, err := h.deps.Coupons.Evaluate(c.Request.Context(), req.Code, req.Subtotal)
	var ce *pricing.CouponError
	switch {
	case errors.As(err, &ce):
		c.JSON(http.StatusOK, couponPreview{Code: pricing.NormalizeCode(req.Code), Discount: decimal.Zero, Reason: ce.Reason})
	case err != nil:
		h.writeError(c, err)
	default:
		c.JSON(http.StatusOK, couponPreview{
			Valid:        true,
			Code:         applied.Coupon.Code,
			Discount:     applied.Discount,
			DiscountType: applied.Coupon.DiscountType,
		})
	}
}

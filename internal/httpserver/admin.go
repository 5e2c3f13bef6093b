package httpserver

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"storefront/internal/domain"
	orderrepo "storefront/internal/repository/order"
	couponsvc "storefront/internal/service/coupon"
)

func (h *handlers) listCoupons(c *gin.Context) {
	coupons, err := h.deps.Coupons.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(coupons))
}

func (h *handlers) createCoupon(c *gin.Context) {
	var req couponsvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	coupon, err := h.deps.Coupons.Create(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("coupon created", zap.String("code", coupon.Code), zap.String("admin_id", mustIdentity(c).UserID))
	c.JSON(http.StatusCreated, coupon)
}

func (h *handlers) deactivateCoupon(c *gin.Context) {
	id, ok := validID(c, "id")
	if !ok {
		return
	}
	coupon, err := h.deps.Coupons.Deactivate(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, coupon)
}

func (h *handlers) listOrders(c *gin.Context) {
	var filter orderrepo.ListFilter
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		status := domain.OrderStatus(strings.ToLower(raw))
		if !status.Known() {
			badRequest(c, "unknown order status")
			return
		}
		filter.Status = &status
	}
	var err error
	if filter.Limit, err = queryInt(c, "limit"); err != nil {
		badRequest(c, "limit must be a non-negative integer")
		return
	}
	if filter.Offset, err = queryInt(c, "offset"); err != nil {
		badRequest(c, "offset must be a non-negative integer")
		return
	}

	orders, err := h.deps.Orders.List(c.Request.Context(), filter)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(orders))
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *handlers) updateOrderStatus(c *gin.Context) {
	id, ok := validID(c, "id")
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	next := domain.OrderStatus(strings.ToLower(strings.TrimSpace(req.Status)))
	if !next.Known() {
		badRequest(c, "unknown order status")
		return
	}
	order, err := h.deps.Orders.UpdateStatus(c.Request.Context(), id, next)
	if err != nil {
		h.writeError(c, err)
		return
	}
	h.logger.Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.String("admin_id", mustIdentity(c).UserID),
	)
	c.JSON(http.StatusOK, order)
}

func queryInt(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, strconv.ErrSyntax
	}
	return n, nil
}

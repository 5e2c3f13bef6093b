package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	addresssvc "storefront/internal/service/address"
)

func (h *handlers) listMyOrders(c *gin.Context) {
	orders, err := h.deps.Orders.ListForUser(c.Request.Context(), mustIdentity(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(orders))
}

// getMyOrder answers 404 for orders owned by someone else.
func (h *handlers) getMyOrder(c *gin.Context) {
	id, ok := validID(c, "id")
	if !ok {
		return
	}
	order, err := h.deps.Orders.GetForUser(c.Request.Context(), mustIdentity(c).UserID, id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

func (h *handlers) listAddresses(c *gin.Context) {
	addresses, err := h.deps.Addresses.List(c.Request.Context(), mustIdentity(c).UserID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newList(addresses))
}

func (h *handlers) createAddress(c *gin.Context) {
	var req addresssvc.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	address, err := h.deps.Addresses.Create(c.Request.Context(), mustIdentity(c).UserID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, address)
}

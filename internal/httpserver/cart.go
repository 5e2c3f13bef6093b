package httpserver

import (
	"net/http"

	"github.com/gin-gonic/gin"
	cartsvc "storefront/internal/service/cart"
)

func (h *handlers) getCart(c *gin.Context) {
	view, err := h.deps.Carts.View(c.Request.Context(), mustIdentity(c).UserID, c.Query("coupon"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *handlers) addCartItem(c *gin.Context) {
	var req cartsvc.AddItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	line, err := h.deps.Carts.AddItem(c.Request.Context(), mustIdentity(c).UserID, req)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, line)
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

// updateCartItem sets a line's quantity; zero removes the line and
// answers 204.
func (h *handlers) updateCartItem(c *gin.Context) {
	id, ok := validID(c, "id")
	if !ok {
		return
	}
	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		badRequest(c, "quantity is required")
		return
	}
	line, err := h.deps.Carts.UpdateQuantity(c.Request.Context(), mustIdentity(c).UserID, id, *req.Quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if line == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, line)
}

func (h *handlers) removeCartItem(c *gin.Context) {
	id, ok := validID(c, "id")
	if !ok {
		return
	}
	if err := h.deps.Carts.RemoveItem(c.Request.Context(), mustIdentity(c).UserID, id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) clearCart(c *gin.Context) {
	if err := h.deps.Carts.Clear(c.Request.Context(), mustIdentity(c).UserID); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

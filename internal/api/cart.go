package api

import (
	"net/http"

	"storefront/internal/models"

	"github.com/gin-gonic/gin"
)

// getCart returns the caller's cart
func (h *Handler) getCart(c *gin.Context) {
	items, err := h.cart.Get(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"items": items})
}

// setCartItem upserts one cart line; quantity zero removes it
func (h *Handler) setCartItem(c *gin.Context) {
	var req struct {
		ProductID int64 `json:"productId" binding:"required"`
		VariantID int64 `json:"variantId" binding:"required"`
		Quantity  int   `json:"quantity" binding:"min=0"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	item := models.CartItem{
		ProductID: req.ProductID,
		VariantID: req.VariantID,
		Quantity:  req.Quantity,
	}
	if err := h.cart.SetItem(c.Request.Context(), currentUserID(c), item); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, item)
}

// clearCart empties the caller's cart
func (h *Handler) clearCart(c *gin.Context) {
	if err := h.cart.Clear(c.Request.Context(), currentUserID(c)); err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusOK, gin.H{"cleared": true})
}

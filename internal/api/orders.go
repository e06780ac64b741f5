package api

import (
	"net/http"
	"strconv"

	"storefront/internal/models"
	"storefront/internal/service"

	"github.com/gin-gonic/gin"
)

// placeOrder runs checkout for the caller
func (h *Handler) placeOrder(c *gin.Context) {
	var req service.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.checkout.PlaceOrder(c.Request.Context(), currentUserID(c), &req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	respondData(c, http.StatusCreated, resp)
}

type orderWithItems struct {
	Order *models.Order      `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// listMyOrders returns the caller's orders, newest first
func (h *Handler) listMyOrders(c *gin.Context) {
	orders, itemsByOrder, err := h.orders.ListUserOrders(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	out := make([]orderWithItems, 0, len(orders))
	for i := range orders {
		out = append(out, orderWithItems{
			Order: &orders[i],
			Items: itemsByOrder[orders[i].ID],
		})
	}
	respondData(c, http.StatusOK, out)
}

// getOrder returns one order; owner or admin only
func (h *Handler) getOrder(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid order id")
		return
	}

	order, items, err := h.orders.GetOrder(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if order.UserID != currentUserID(c) && !isAdmin(c) {
		respondError(c, http.StatusNotFound, "not found")
		return
	}
	respondData(c, http.StatusOK, orderWithItems{Order: order, Items: items})
}

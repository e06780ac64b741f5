package api

import (
	"io"
	"net/http"

	"storefront/internal/payment"
	"storefront/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// paymentWebhook consumes signed payment processor events. This route is
// the only path out of PENDING; replayed events are no-ops downstream.
func (h *Handler) paymentWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "unreadable payload")
		return
	}

	signature := c.GetHeader(payment.SignatureHeader)
	if !payment.VerifySignature(body, signature, h.webhookSecret) {
		util.WebhookEventsTotal.WithLabelValues("unknown", "bad_signature").Inc()
		respondError(c, http.StatusBadRequest, "invalid webhook signature")
		return
	}

	event, err := payment.ParseEvent(body)
	if err != nil {
		respondError(c, http.StatusBadRequest, "malformed webhook payload")
		return
	}

	if err := h.orders.HandleWebhookEvent(c.Request.Context(), event); err != nil {
		util.GetLogger().Error("Webhook reconciliation failed",
			zap.String("event_id", event.ID),
			zap.String("type", event.Type),
			zap.Error(err))
		respondError(c, http.StatusInternalServerError, "reconciliation failed")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

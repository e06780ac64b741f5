package worker

import (
	"context"
	"encoding/json"

	"storefront/internal/broker"
	"storefront/internal/mail"
	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// InvoiceWorker consumes order events and delivers invoices for fulfilled
// orders. Delivery is deduplicated by event id so a replayed event never
// sends a second invoice.
type InvoiceWorker struct {
	consumer *broker.Consumer
	store    *store.Store
	mailer   mail.Mailer
	logger   *zap.Logger
}

// NewInvoiceWorker creates a new invoice worker
func NewInvoiceWorker(consumer *broker.Consumer, store *store.Store, mailer mail.Mailer) *InvoiceWorker {
	return &InvoiceWorker{
		consumer: consumer,
		store:    store,
		mailer:   mailer,
		logger:   util.GetLogger(),
	}
}

// Start starts the worker
func (w *InvoiceWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting invoice worker")
	return w.consumer.StartConsuming(ctx, w.handleMessage)
}

// Stop stops the worker
func (w *InvoiceWorker) Stop() error {
	w.logger.Info("Stopping invoice worker")
	return w.consumer.Close()
}

func (w *InvoiceWorker) handleMessage(ctx context.Context, msg kafka.Message) error {
	var base models.BaseEvent
	if err := json.Unmarshal(msg.Value, &base); err != nil {
		w.logger.Error("Failed to unmarshal event", zap.Error(err))
		return nil // poison message, commit and move on
	}

	if base.EventType != models.EventTypeOrderFulfilled {
		return nil
	}

	var event models.OrderFulfilledEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		w.logger.Error("Failed to unmarshal OrderFulfilled event", zap.Error(err))
		return nil
	}

	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return err
	}
	if processed {
		w.logger.Info("Invoice already delivered", zap.String("event_id", event.EventID))
		return nil
	}

	order, err := w.store.GetOrderByID(ctx, event.OrderID)
	if err != nil {
		w.logger.Error("Invoice target order missing",
			zap.Int64("order_id", event.OrderID), zap.Error(err))
		return nil
	}
	items, err := w.store.GetOrderItemsByOrderID(ctx, event.OrderID)
	if err != nil {
		return err
	}

	if err := w.mailer.SendInvoice(ctx, event.UserEmail, order, items); err != nil {
		w.logger.Error("Invoice delivery failed",
			zap.Int64("order_id", event.OrderID), zap.Error(err))
		return err
	}

	util.InvoicesDeliveredTotal.Inc()
	w.logger.Info("Invoice delivered",
		zap.Int64("order_id", event.OrderID),
		zap.Int64("order_number", event.OrderNumber))

	return w.store.MarkEventProcessed(ctx, event.EventID, "INVOICE_DELIVERED")
}

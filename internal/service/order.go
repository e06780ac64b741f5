package service

import (
	"context"
	"fmt"
	"time"

	"storefront/internal/models"
	"storefront/internal/payment"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StatusListener observes order status changes (admin live feed)
type StatusListener func(orderID int64, orderNumber int64, status string)

// orderStore is the slice of the store the order service touches.
// *store.Store satisfies it.
type orderStore interface {
	GetOrderByID(ctx context.Context, orderID int64) (*models.Order, error)
	GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
	GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error)
	ListOrders(ctx context.Context, page, pageSize int) ([]models.Order, int64, error)
	GetUserByID(ctx context.Context, userID int64) (*models.User, error)
	GetLatestOrderSummary(ctx context.Context) (*models.OrderSummary, error)
	IsEventProcessed(ctx context.Context, eventID string) (bool, error)
	MarkEventProcessed(ctx context.Context, eventID, eventType string) error
	TransitionOrderStatus(ctx context.Context, orderID int64, from, to string) error
}

// eventDeduper is the redis fast path in front of processed_events.
// *redisclient.Client satisfies it.
type eventDeduper interface {
	IsEventSeen(ctx context.Context, eventID string) (bool, error)
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) error
}

// orderEvents publishes order lifecycle events. *broker.EventPublisher
// satisfies it.
type orderEvents interface {
	PublishOrderFulfilled(ctx context.Context, event *models.OrderFulfilledEvent) error
	PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error
	PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error
}

// OrderService reads orders and owns every status transition. Webhook
// reconciliation is the only path out of PENDING; admins can only move
// FULFILLED orders to SHIPPED.
type OrderService struct {
	store          orderStore
	redis          eventDeduper
	eventPublisher orderEvents
	listener       StatusListener
	logger         *zap.Logger
}

// NewOrderService creates a new order service
func NewOrderService(store orderStore, redis eventDeduper, eventPublisher orderEvents) *OrderService {
	return &OrderService{
		store:          store,
		redis:          redis,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// SetStatusListener registers an observer for status changes
func (s *OrderService) SetStatusListener(l StatusListener) {
	s.listener = l
}

func (s *OrderService) notify(order *models.Order, status string) {
	if s.listener != nil {
		s.listener(order.ID, order.OrderNumber, status)
	}
}

// GetOrder retrieves an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (*models.Order, []models.OrderItem, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}

	items, err := s.store.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	return order, items, nil
}

// ListUserOrders retrieves a user's orders with items, newest first
func (s *OrderService) ListUserOrders(ctx context.Context, userID int64) ([]models.Order, map[int64][]models.OrderItem, error) {
	orders, err := s.store.GetOrdersByUserID(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	itemsByOrder := make(map[int64][]models.OrderItem, len(orders))
	for _, order := range orders {
		items, err := s.store.GetOrderItemsByOrderID(ctx, order.ID)
		if err != nil {
			return nil, nil, err
		}
		itemsByOrder[order.ID] = items
	}
	return orders, itemsByOrder, nil
}

// ListOrders retrieves all orders paginated (admin)
func (s *OrderService) ListOrders(ctx context.Context, page, pageSize int) ([]models.Order, int64, error) {
	return s.store.ListOrders(ctx, page, pageSize)
}

// HandleWebhookEvent reconciles one verified payment processor event.
// Replayed events are no-ops: a redis fast path in front of the
// processed_events table. The dedup key is written only after the event
// is applied and persisted, so a transient failure mid-handler leaves the
// provider's retry able to get through. Unknown sessions and unrecognized
// types are swallowed so the provider sees a 200 and stops retrying.
func (s *OrderService) HandleWebhookEvent(ctx context.Context, event *payment.WebhookEvent) error {
	ctx, span := util.StartSpan(ctx, "OrderService.HandleWebhookEvent")
	defer span.End()

	switch event.Type {
	case payment.EventCheckoutCompleted,
		payment.EventCheckoutExpired,
		payment.EventPaymentFailed:
	default:
		util.WebhookEventsTotal.WithLabelValues(event.Type, "ignored").Inc()
		return nil
	}

	seen, err := s.redis.IsEventSeen(ctx, event.ID)
	if err != nil {
		s.logger.Warn("Redis dedup unavailable, falling back to DB",
			zap.String("event_id", event.ID), zap.Error(err))
	} else if seen {
		util.WebhookEventsTotal.WithLabelValues(event.Type, "replayed").Inc()
		return nil
	}

	processed, err := s.store.IsEventProcessed(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		util.WebhookEventsTotal.WithLabelValues(event.Type, "replayed").Inc()
		return nil
	}

	order, err := s.store.GetOrderBySessionID(ctx, event.Data.SessionID)
	if err == models.ErrNotFound {
		s.logger.Warn("Webhook for unknown checkout session",
			zap.String("session_id", event.Data.SessionID),
			zap.String("type", event.Type))
		util.WebhookEventsTotal.WithLabelValues(event.Type, "unknown_session").Inc()
		return s.finishEvent(ctx, event)
	}
	if err != nil {
		return err
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		err = s.fulfillOrder(ctx, order)
	default:
		err = s.failOrder(ctx, order, event.Type)
	}
	if err != nil {
		return err
	}

	util.WebhookEventsTotal.WithLabelValues(event.Type, "applied").Inc()
	return s.finishEvent(ctx, event)
}

// finishEvent records the event as processed, database first. The redis
// key is best-effort; a miss there only costs the DB lookup on replay.
func (s *OrderService) finishEvent(ctx context.Context, event *payment.WebhookEvent) error {
	if err := s.store.MarkEventProcessed(ctx, event.ID, event.Type); err != nil {
		return err
	}
	if err := s.redis.MarkEventSeen(ctx, event.ID, 24*time.Hour); err != nil {
		s.logger.Warn("Failed to record webhook dedup key",
			zap.String("event_id", event.ID), zap.Error(err))
	}
	return nil
}

func (s *OrderService) fulfillOrder(ctx context.Context, order *models.Order) error {
	err := s.store.TransitionOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusFulfilled)
	if err == models.ErrInvalidTransition {
		// Already reconciled under a different event id; nothing to redo.
		s.logger.Info("Order not pending, skipping fulfillment",
			zap.Int64("order_id", order.ID), zap.String("status", order.Status))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fulfill order: %w", err)
	}

	util.OrdersFulfilledTotal.Inc()
	s.logger.Info("Order fulfilled", zap.Int64("order_id", order.ID))
	s.notify(order, models.OrderStatusFulfilled)

	user, err := s.store.GetUserByID(ctx, order.UserID)
	if err != nil {
		return fmt.Errorf("failed to load order user: %w", err)
	}

	event := &models.OrderFulfilledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderFulfilled,
			Timestamp: time.Now(),
		},
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		UserID:      order.UserID,
		UserEmail:   user.Email,
		Amount:      order.Amount,
	}
	if err := s.eventPublisher.PublishOrderFulfilled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderFulfilled event", zap.Error(err))
	}
	return nil
}

func (s *OrderService) failOrder(ctx context.Context, order *models.Order, reason string) error {
	err := s.store.TransitionOrderStatus(ctx, order.ID, models.OrderStatusPending, models.OrderStatusFailed)
	if err == models.ErrInvalidTransition {
		s.logger.Info("Order not pending, skipping failure",
			zap.Int64("order_id", order.ID), zap.String("status", order.Status))
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fail order: %w", err)
	}

	util.OrdersFailedTotal.WithLabelValues(reason).Inc()
	s.logger.Warn("Order failed",
		zap.Int64("order_id", order.ID), zap.String("reason", reason))
	s.notify(order, models.OrderStatusFailed)

	event := &models.OrderFailedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderFailed,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		Reason:  reason,
	}
	if err := s.eventPublisher.PublishOrderFailed(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderFailed event", zap.Error(err))
	}
	return nil
}

// Ship moves a fulfilled order to SHIPPED. Any other starting status is
// rejected, including SHIPPED itself.
func (s *OrderService) Ship(ctx context.Context, orderID int64) (*models.Order, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.Ship")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !models.CanTransition(order.Status, models.OrderStatusShipped) {
		return nil, models.ErrInvalidTransition
	}

	// Conditional update re-checks the status so a concurrent ship cannot
	// double-apply.
	if err := s.store.TransitionOrderStatus(ctx, orderID, models.OrderStatusFulfilled, models.OrderStatusShipped); err != nil {
		return nil, err
	}
	order.Status = models.OrderStatusShipped

	util.OrdersShippedTotal.Inc()
	s.logger.Info("Order shipped", zap.Int64("order_id", orderID))
	s.notify(order, models.OrderStatusShipped)

	event := &models.OrderShippedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderShipped,
			Timestamp: time.Now(),
		},
		OrderID: order.ID,
		UserID:  order.UserID,
	}
	if err := s.eventPublisher.PublishOrderShipped(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderShipped event", zap.Error(err))
	}
	return order, nil
}

// Summary returns the newest order summary snapshot
func (s *OrderService) Summary(ctx context.Context) (*models.OrderSummary, error) {
	return s.store.GetLatestOrderSummary(ctx)
}

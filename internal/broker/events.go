package broker

import (
	"context"
	"fmt"

	"storefront/internal/models"
)

// EventPublisher handles publishing order domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

func orderKey(orderID int64) string {
	return fmt.Sprintf("order-%d", orderID)
}

// PublishOrderCreated publishes OrderCreated event
func (ep *EventPublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderFulfilled publishes OrderFulfilled event
func (ep *EventPublisher) PublishOrderFulfilled(ctx context.Context, event *models.OrderFulfilledEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderFailed publishes OrderFailed event
func (ep *EventPublisher) PublishOrderFailed(ctx context.Context, event *models.OrderFailedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

// PublishOrderShipped publishes OrderShipped event
func (ep *EventPublisher) PublishOrderShipped(ctx context.Context, event *models.OrderShippedEvent) error {
	return ep.producer.PublishEvent(ctx, orderKey(event.OrderID), event)
}

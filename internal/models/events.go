package models

import "time"

// Event types
const (
	EventTypeOrderCreated   = "ORDER_CREATED"
	EventTypeOrderFulfilled = "ORDER_FULFILLED"
	EventTypeOrderFailed    = "ORDER_FAILED"
	EventTypeOrderShipped   = "ORDER_SHIPPED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// OrderItemData represents item data in events
type OrderItemData struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
	Price     int64 `json:"price"`
}

// OrderCreatedEvent published when checkout places an order
type OrderCreatedEvent struct {
	BaseEvent
	OrderID     int64           `json:"order_id"`
	OrderNumber int64           `json:"order_number"`
	UserID      int64           `json:"user_id"`
	Amount      int64           `json:"amount"`
	Items       []OrderItemData `json:"items"`
}

// OrderFulfilledEvent published when the payment processor confirms a
// checkout session; drives invoice delivery.
type OrderFulfilledEvent struct {
	BaseEvent
	OrderID     int64  `json:"order_id"`
	OrderNumber int64  `json:"order_number"`
	UserID      int64  `json:"user_id"`
	UserEmail   string `json:"user_email"`
	Amount      int64  `json:"amount"`
}

// OrderFailedEvent published when a checkout session expires or payment fails
type OrderFailedEvent struct {
	BaseEvent
	OrderID int64  `json:"order_id"`
	Reason  string `json:"reason"`
}

// OrderShippedEvent published when an admin ships a fulfilled order
type OrderShippedEvent struct {
	BaseEvent
	OrderID int64 `json:"order_id"`
	UserID  int64 `json:"user_id"`
}

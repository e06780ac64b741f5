package models

import (
	"database/sql"
	"time"
)

// Roles
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusFulfilled = "FULFILLED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusFailed    = "FAILED"
)

// Variant sizes
var ValidSizes = map[string]bool{"S": true, "M": true, "L": true, "XL": true}

// User represents an identity record
type User struct {
	ID                int64          `db:"id" json:"id"`
	Email             string         `db:"email" json:"email"`
	PasswordHash      string         `db:"password_hash" json:"-"`
	Role              string         `db:"role" json:"role"`
	ResetToken        sql.NullString `db:"reset_token" json:"-"`
	ResetTokenExpires sql.NullTime   `db:"reset_token_expires_at" json:"-"`
	PaymentCustomerID sql.NullString `db:"payment_customer_id" json:"-"`
	Metadata          sql.NullString `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// Product is a catalog entry, soft-deleted only
type Product struct {
	ID        int64            `db:"id" json:"id"`
	Title     string           `db:"title" json:"title"`
	Deleted   bool             `db:"deleted" json:"deleted,omitempty"`
	Metadata  sql.NullString   `db:"metadata" json:"metadata,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	Variants  []ProductVariant `db:"-" json:"variants"`
}

// ProductVariant is the purchasable unit. Stock is the only field the
// checkout flow mutates and must never go negative.
type ProductVariant struct {
	ID        int64  `db:"id" json:"id"`
	ProductID int64  `db:"product_id" json:"product_id"`
	Color     string `db:"color" json:"color"`
	ColorCode string `db:"color_code" json:"color_code"`
	Size      string `db:"size" json:"size"`
	Price     int64  `db:"price" json:"price"`
	Stock     int    `db:"stock" json:"stock"`
	Image     string `db:"image" json:"image"`
	Deleted   bool   `db:"deleted" json:"deleted,omitempty"`
}

// Order represents a customer order. Amount is tax-inclusive cents.
type Order struct {
	ID                int64          `db:"id" json:"id"`
	OrderNumber       int64          `db:"order_number" json:"order_number"`
	UserID            int64          `db:"user_id" json:"user_id"`
	Amount            int64          `db:"amount" json:"amount"`
	Status            string         `db:"status" json:"status"`
	CheckoutSessionID string         `db:"checkout_session_id" json:"checkout_session_id,omitempty"`
	Metadata          sql.NullString `db:"metadata" json:"metadata,omitempty"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time      `db:"updated_at" json:"updated_at"`
}

// OrderItem snapshots price at purchase time; it is never re-read from
// the catalog.
type OrderItem struct {
	ID        int64 `db:"id" json:"id"`
	OrderID   int64 `db:"order_id" json:"order_id"`
	ProductID int64 `db:"product_id" json:"product_id"`
	VariantID int64 `db:"variant_id" json:"variant_id"`
	Quantity  int   `db:"quantity" json:"quantity"`
	Price     int64 `db:"price" json:"price"`
}

// OrderSummary is a materialized aggregate snapshot; readers always take
// the newest row.
type OrderSummary struct {
	ID                    int64     `db:"id" json:"id"`
	TotalOrders           int64     `db:"total_orders" json:"total_orders"`
	TotalProductsInOrders int64     `db:"total_products_in_orders" json:"total_products_in_orders"`
	TotalOrderAmount      int64     `db:"total_order_amount" json:"total_order_amount"`
	CreatedAt             time.Time `db:"created_at" json:"created_at"`
}

// CartItem lives in redis, keyed by user
type CartItem struct {
	ProductID int64 `json:"product_id"`
	VariantID int64 `json:"variant_id"`
	Quantity  int   `json:"quantity"`
}

// ProcessedEvent guards webhook replay
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}

// CanTransition reports whether an order status change is legal.
// FULFILLED and FAILED are only ever set by webhook reconciliation;
// SHIPPED is only reachable from FULFILLED.
func CanTransition(from, to string) bool {
	switch to {
	case OrderStatusFulfilled, OrderStatusFailed:
		return from == OrderStatusPending
	case OrderStatusShipped:
		return from == OrderStatusFulfilled
	default:
		return false
	}
}

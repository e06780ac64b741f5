package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrPasswordMismatch   = errors.New("Passwords do not Match")
	ErrNoPaymentCustomer  = errors.New("user has no payment customer")
	ErrInvalidTransition  = errors.New("invalid order status transition")
	ErrVariantMismatch    = errors.New("variant does not belong to product")
	ErrResetTokenInvalid  = errors.New("reset token invalid or expired")
)

// OutOfStockLine describes one unsatisfiable checkout line.
type OutOfStockLine struct {
	ProductID      int64  `json:"product_id"`
	VariantID      int64  `json:"variant_id"`
	Title          string `json:"title"`
	AvailableStock int    `json:"available_stock"`
	Requested      int    `json:"requested"`
}

// OutOfStockError carries every short line so the client can render the
// whole rejection at once. The order is all-or-nothing.
type OutOfStockError struct {
	Lines []OutOfStockLine
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %d line(s)", len(e.Lines))
}

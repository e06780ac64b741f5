package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to string
		ok       bool
	}{
		{OrderStatusPending, OrderStatusFulfilled, true},
		{OrderStatusPending, OrderStatusFailed, true},
		{OrderStatusFulfilled, OrderStatusShipped, true},

		// SHIPPED only from FULFILLED
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusFailed, OrderStatusShipped, false},
		{OrderStatusShipped, OrderStatusShipped, false},

		// FAILED is terminal
		{OrderStatusFailed, OrderStatusFulfilled, false},
		{OrderStatusFailed, OrderStatusPending, false},

		// nothing returns to PENDING
		{OrderStatusFulfilled, OrderStatusPending, false},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.ok, CanTransition(tc.from, tc.to),
			"%s -> %s", tc.from, tc.to)
	}
}

func TestOutOfStockError(t *testing.T) {
	err := &OutOfStockError{Lines: []OutOfStockLine{
		{ProductID: 1, VariantID: 10, Requested: 3, AvailableStock: 1},
		{ProductID: 2, VariantID: 20, Requested: 2, AvailableStock: 0},
	}}
	assert.Contains(t, err.Error(), "2 line(s)")
}

package store

import (
	"context"
	"database/sql"

	"storefront/internal/models"
)

// RefreshOrderSummary recomputes the order aggregate and inserts a new
// snapshot row. Failed orders are excluded from the totals.
func (s *Store) RefreshOrderSummary(ctx context.Context) (*models.OrderSummary, error) {
	var summary models.OrderSummary
	err := s.db.GetContext(ctx, &summary, `
		INSERT INTO order_summaries (total_orders, total_products_in_orders, total_order_amount)
		SELECT
			(SELECT COUNT(*) FROM orders WHERE status <> 'FAILED'),
			(SELECT COALESCE(SUM(i.quantity), 0)
			 FROM order_items i JOIN orders o ON o.id = i.order_id
			 WHERE o.status <> 'FAILED'),
			(SELECT COALESCE(SUM(amount), 0) FROM orders WHERE status <> 'FAILED')
		RETURNING id, total_orders, total_products_in_orders, total_order_amount, created_at`)
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

// GetLatestOrderSummary returns the most recent snapshot row
func (s *Store) GetLatestOrderSummary(ctx context.Context) (*models.OrderSummary, error) {
	var summary models.OrderSummary
	err := s.db.GetContext(ctx, &summary,
		"SELECT * FROM order_summaries ORDER BY created_at DESC, id DESC LIMIT 1")
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}

package store

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/models"
)

// PlaceOrder atomically decrements stock for every line and inserts the
// order with its items. Each decrement is conditional on sufficient stock,
// so two checkouts racing on the last unit are resolved by row-level write
// ordering: the loser's update matches zero rows and the whole transaction
// rolls back with an OutOfStockError. Stock is never decremented without
// an order row, and never goes negative.
func (s *Store) PlaceOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, item := range items {
		res, err := tx.ExecContext(ctx, `
			UPDATE product_variants
			SET stock = stock - $1
			WHERE id = $2 AND deleted = false AND stock >= $1`,
			item.Quantity, item.VariantID)
		if err != nil {
			return fmt.Errorf("failed to decrement stock for variant %d: %w", item.VariantID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			line, lookupErr := s.outOfStockLine(ctx, tx, item)
			if lookupErr != nil {
				return fmt.Errorf("insufficient stock for variant %d: %w", item.VariantID, lookupErr)
			}
			return &models.OutOfStockError{Lines: []models.OutOfStockLine{line}}
		}
	}

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (user_id, amount, status, checkout_session_id, metadata)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, order_number, created_at, updated_at`,
		order.UserID, order.Amount, order.Status, order.CheckoutSessionID, order.Metadata)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		items[i].OrderID = order.ID
		err = tx.GetContext(ctx, &items[i].ID, `
			INSERT INTO order_items (order_id, product_id, variant_id, quantity, price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id`,
			items[i].OrderID, items[i].ProductID, items[i].VariantID, items[i].Quantity, items[i].Price)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	return tx.Commit()
}

type txQueryer interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *Store) outOfStockLine(ctx context.Context, tx txQueryer, item models.OrderItem) (models.OutOfStockLine, error) {
	line := models.OutOfStockLine{
		ProductID: item.ProductID,
		VariantID: item.VariantID,
		Requested: item.Quantity,
	}
	err := tx.QueryRowContext(ctx, `
		SELECT p.title, v.stock
		FROM product_variants v
		JOIN products p ON p.id = v.product_id
		WHERE v.id = $1`, item.VariantID).Scan(&line.Title, &line.AvailableStock)
	if err == sql.ErrNoRows {
		line.AvailableStock = 0
		return line, nil
	}
	return line, err
}

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id int64) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderBySessionID retrieves an order by its checkout session id.
// Lookups are tolerant of unknown sessions: the caller gets ErrNotFound.
func (s *Store) GetOrderBySessionID(ctx context.Context, sessionID string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order,
		"SELECT * FROM orders WHERE checkout_session_id = $1", sessionID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrdersByUserID retrieves a user's orders, newest first
func (s *Store) GetOrdersByUserID(ctx context.Context, userID int64) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// ListOrders retrieves all orders paginated, newest first
func (s *Store) ListOrders(ctx context.Context, page, pageSize int) ([]models.Order, int64, error) {
	var total int64
	if err := s.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM orders"); err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2",
		pageSize, (page-1)*pageSize)
	return orders, total, err
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// TransitionOrderStatus flips an order's status only when it currently
// holds the expected one. Returns ErrInvalidTransition when the guard
// does not match, so concurrent transitions cannot double-apply.
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID int64, from, to string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		to, orderID, from)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return models.ErrInvalidTransition
	}
	return nil
}

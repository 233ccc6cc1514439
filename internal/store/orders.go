package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/models"
)

// PlaceOrder validates and applies every line item, then materializes
// the order, all inside one transaction. Per item it runs a conditional
// decrement (stock moves to sold only when enough stock remains), so a
// concurrent order for the same product cannot lose an update. Any
// failure rolls the whole order back, line items applied so far
// included.
//
// On success order.TotalPrice, timestamps and the per-item unit prices
// are filled in from the transaction.
func (s *Store) PlaceOrder(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var total int64
	for i := range items {
		item := &items[i]

		var price int64
		err := tx.GetContext(ctx, &price, `
			UPDATE products
			SET stock = stock - $1, sold = sold + $1, updated_at = NOW()
			WHERE id = $2 AND stock >= $1
			RETURNING price`,
			item.Quantity, item.ProductID)
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.GetContext(ctx, &exists,
				"SELECT EXISTS(SELECT 1 FROM products WHERE id = $1)", item.ProductID); err != nil {
				return fmt.Errorf("failed to check product %s: %w", item.ProductID, err)
			}
			if !exists {
				return fmt.Errorf("%w: %s", models.ErrProductNotFound, item.ProductID)
			}
			return fmt.Errorf("%w: product %s", models.ErrInsufficientStock, item.ProductID)
		}
		if err != nil {
			return fmt.Errorf("failed to reserve stock for product %s: %w", item.ProductID, err)
		}

		item.UnitPrice = price
		total += price * int64(item.Quantity)
	}

	order.TotalPrice = total

	err = tx.GetContext(ctx, order, `
		INSERT INTO orders (id, user_id, vendor_id, address, phone, total_price, status, idempotency_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING *`,
		order.ID, order.UserID, order.VendorID, order.Address, order.Phone,
		order.TotalPrice, order.Status, order.IdempotencyKey)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range items {
		item := &items[i]
		item.OrderID = order.ID
		_, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, product_id, quantity, unit_price, color, size)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice, item.Color, item.Size)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	order.Items = items
	return nil
}

// CancelOrder reverses every line item of an order and marks it
// CANCELLED, all inside one transaction. The order row is locked first
// so a concurrent cancel of the same order sees AlreadyCancelled
// instead of restoring stock twice. The transaction is all-or-nothing,
// so a failed attempt can simply be retried.
func (s *Store) CancelOrder(ctx context.Context, orderID string) (*models.Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var order models.Order
	err = tx.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1 FOR UPDATE", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
	}
	if err != nil {
		return nil, err
	}

	if order.Status == models.OrderStatusCancelled {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderAlreadyCancelled, orderID)
	}

	var items []models.OrderItem
	err = tx.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	if err != nil {
		return nil, err
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx, `
			UPDATE products
			SET stock = stock + $1, sold = sold - $1, updated_at = NOW()
			WHERE id = $2`,
			item.Quantity, item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("failed to restore stock for product %s: %w", item.ProductID, err)
		}
	}

	err = tx.GetContext(ctx, &order, `
		UPDATE orders SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING *`,
		orderID, models.OrderStatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	order.Items = items
	return &order, nil
}

// TransitionOrderStatus moves an order from one status to another. The
// update is conditional on the current status, so a raced transition
// fails instead of clobbering. DELIVERED stamps delivered_at and
// paid_at.
func (s *Store) TransitionOrderStatus(ctx context.Context, orderID, from, to string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, `
		UPDATE orders
		SET status = $3,
		    updated_at = NOW(),
		    delivered_at = CASE WHEN $3 = 'DELIVERED' THEN NOW() ELSE delivered_at END,
		    paid_at = CASE WHEN $3 = 'DELIVERED' THEN NOW() ELSE paid_at END
		WHERE id = $1 AND status = $2
		RETURNING *`,
		orderID, from, to)
	if errors.Is(err, sql.ErrNoRows) {
		var exists bool
		if err := s.db.GetContext(ctx, &exists,
			"SELECT EXISTS(SELECT 1 FROM orders WHERE id = $1)", orderID); err != nil {
			return nil, err
		}
		if !exists {
			return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, orderID)
		}
		return nil, fmt.Errorf("%w: order %s is no longer %s", models.ErrInvalidTransition, orderID, from)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByID retrieves an order with its items.
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", models.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	items, err := s.GetOrderItemsByOrderID(ctx, id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

// GetOrderByIdempotencyKey retrieves an order by idempotency key.
// Returns (nil, nil) when no order carries the key.
func (s *Store) GetOrderByIdempotencyKey(ctx context.Context, key string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE idempotency_key = $1", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderItemsByOrderID retrieves all items for an order
func (s *Store) GetOrderItemsByOrderID(ctx context.Context, orderID string) ([]models.OrderItem, error) {
	var items []models.OrderItem
	err := s.db.SelectContext(ctx, &items,
		"SELECT * FROM order_items WHERE order_id = $1", orderID)
	return items, err
}

// GetOrdersByUserID retrieves all orders for a user, newest first.
func (s *Store) GetOrdersByUserID(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	return orders, err
}

// GetOrdersByVendor retrieves a page of a vendor's orders, newest
// first, along with the total count.
func (s *Store) GetOrdersByVendor(ctx context.Context, vendorID string, page, perPage int) ([]models.Order, int, error) {
	var total int
	err := s.db.GetContext(ctx, &total,
		"SELECT count(*) FROM orders WHERE vendor_id = $1", vendorID)
	if err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err = s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE vendor_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		vendorID, perPage, (page-1)*perPage)
	return orders, total, err
}

// GetOrdersByStatus retrieves all orders with the given status.
func (s *Store) GetOrdersByStatus(ctx context.Context, status string) ([]models.Order, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC", status)
	return orders, err
}

// ListOrders retrieves a page of all orders, newest first, along with
// the total count.
func (s *Store) ListOrders(ctx context.Context, page, perPage int) ([]models.Order, int, error) {
	var total int
	err := s.db.GetContext(ctx, &total, "SELECT count(*) FROM orders")
	if err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	err = s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		perPage, (page-1)*perPage)
	return orders, total, err
}

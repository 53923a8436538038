package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"storefront-service/internal/domain"
)

const (
	orderColumns     = "id, user_id, created_at, total_amount"
	orderItemColumns = "id, order_id, product_id, quantity, unit_price, total_price"
)

func scanOrder(row rowScanner) (*domain.Order, error) {
	var o domain.Order
	if err := row.Scan(&o.ID, &o.UserID, &o.CreatedAt, &o.TotalAmount); err != nil {
		return nil, err
	}
	o.Items = []domain.OrderItem{}
	return &o, nil
}

// Checkout converts the user's cart into an order in one transaction: the
// referenced products are locked in id order, every line is validated and
// priced, stock is decremented, the order is written and the cart emptied.
// Any failure leaves the cart and stock untouched. The returned order is
// built from the rows the transaction wrote; nothing is read after commit.
func (s *PostgresStore) Checkout(ctx context.Context, userID int64) (*domain.Order, error) {
	var placed *domain.Order
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		lockQuery := `
			SELECT id FROM products
			WHERE id IN (SELECT product_id FROM cart_items WHERE user_id = $1)
			ORDER BY id
			FOR UPDATE;
		`
		if _, err := tx.ExecContext(ctx, lockQuery, userID); err != nil {
			return fmt.Errorf("store: Checkout failed to lock products: %w", err)
		}

		items, err := queryCartItems(ctx, tx, userID)
		if err != nil {
			return err
		}
		order, err := domain.PriceCart(userID, items)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			result, err := tx.ExecContext(ctx,
				`UPDATE products SET stock = stock - $1 WHERE id = $2 AND stock >= $1;`,
				item.Quantity, item.ProductID,
			)
			if err != nil {
				return fmt.Errorf("store: Checkout failed to decrement stock of product %d: %w", item.ProductID, err)
			}
			rowsAffected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("store: Checkout failed to get rows affected: %w", err)
			}
			if rowsAffected == 0 {
				return ErrInsufficientStock
			}
		}

		err = tx.QueryRowContext(ctx,
			`INSERT INTO orders (user_id, total_amount) VALUES ($1, $2) RETURNING id, created_at;`,
			userID, order.TotalAmount,
		).Scan(&order.ID, &order.CreatedAt)
		if err != nil {
			return fmt.Errorf("store: Checkout failed to insert order: %w", err)
		}

		itemQuery := `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price, total_price)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id;
		`
		for i := range order.Items {
			item := &order.Items[i]
			item.OrderID = order.ID
			if err := tx.QueryRowContext(ctx, itemQuery,
				order.ID, item.ProductID, item.Quantity, item.UnitPrice, item.TotalPrice,
			).Scan(&item.ID); err != nil {
				return fmt.Errorf("store: Checkout failed to insert order item for product %d: %w", item.ProductID, err)
			}
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1;`, userID); err != nil {
			return fmt.Errorf("store: Checkout failed to clear cart: %w", err)
		}
		placed = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order placed", zap.Int64("order_id", placed.ID), zap.Int64("user_id", userID))
	return placed, nil
}

// GetOrder returns an order with its items. Orders of other users are
// reported as not found.
func (s *PostgresStore) GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 AND user_id = $2;`
	order, err := scanOrder(s.db.QueryRowContext(ctx, query, orderID, userID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("store: GetOrder failed to scan row: %w", err)
	}

	orders := []domain.Order{*order}
	if err := s.attachOrderItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// ListOrders returns a page of the user's orders, newest first, and the
// user's total order count.
func (s *PostgresStore) ListOrders(ctx context.Context, userID int64, params ListOrdersParams) ([]domain.Order, int, error) {
	var totalCount int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders WHERE user_id = $1;`, userID).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders failed to count orders: %w", err)
	}
	if totalCount == 0 {
		return []domain.Order{}, 0, nil
	}

	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3;
	`
	rows, err := s.db.QueryContext(ctx, query, userID, params.Limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders failed to query orders: %w", err)
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListOrders failed to scan order row: %w", err)
		}
		orders = append(orders, *o)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListOrders iteration error: %w", err)
	}

	if err := s.attachOrderItems(ctx, orders); err != nil {
		return nil, 0, err
	}
	return orders, totalCount, nil
}

// attachOrderItems loads the items of all given orders with one query.
func (s *PostgresStore) attachOrderItems(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]int64, len(orders))
	byID := make(map[int64]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = i
	}

	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = ANY($1) ORDER BY id;`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("store: failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var item domain.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Quantity, &item.UnitPrice, &item.TotalPrice); err != nil {
			return fmt.Errorf("store: failed to scan order item row: %w", err)
		}
		i := byID[item.OrderID]
		orders[i].Items = append(orders[i].Items, item)
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("store: order items iteration error: %w", err)
	}
	return nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

const cartItemColumns = "ci.id, ci.user_id, ci.product_id, ci.quantity, " + productColumns

const cartItemsQuery = `
	SELECT ` + cartItemColumns + `
	FROM cart_items ci
	JOIN products p ON p.id = ci.product_id
	WHERE ci.user_id = $1
	ORDER BY ci.id;
`

func scanCartItem(row rowScanner) (*domain.CartItem, error) {
	var item domain.CartItem
	var p domain.Product
	err := row.Scan(
		&item.ID, &item.UserID, &item.ProductID, &item.Quantity,
		&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.Stock, &p.CategoryID, &p.SellerID, &p.Rating, &p.IsActive,
	)
	if err != nil {
		return nil, err
	}
	item.Product = &p
	return &item, nil
}

func queryCartItems(ctx context.Context, q querier, userID int64) ([]domain.CartItem, error) {
	rows, err := q.QueryContext(ctx, cartItemsQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query cart items: %w", err)
	}
	defer rows.Close()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan cart item row: %w", err)
		}
		items = append(items, *item)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: cart items iteration error: %w", err)
	}
	return items, nil
}

func getCartItem(ctx context.Context, q querier, userID, productID int64) (*domain.CartItem, error) {
	query := `
		SELECT ` + cartItemColumns + `
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1 AND ci.product_id = $2;
	`
	item, err := scanCartItem(q.QueryRowContext(ctx, query, userID, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("store: failed to scan cart item: %w", err)
	}
	return item, nil
}

// GetCartItems returns the user's cart lines in insertion order.
func (s *PostgresStore) GetCartItems(ctx context.Context, userID int64) ([]domain.CartItem, error) {
	return queryCartItems(ctx, s.db, userID)
}

// AddCartItem puts quantity units of a visible product in the cart. Adding a
// product that is already there increases its quantity.
func (s *PostgresStore) AddCartItem(ctx context.Context, userID, productID int64, quantity int32) (*domain.CartItem, error) {
	var item *domain.CartItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getVisibleProduct(ctx, tx, productID, false); err != nil {
			return err
		}
		query := `
			INSERT INTO cart_items (user_id, product_id, quantity)
			VALUES ($1, $2, $3)
			ON CONFLICT ON CONSTRAINT cart_items_user_product_key
			DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity;
		`
		if _, err := tx.ExecContext(ctx, query, userID, productID, quantity); err != nil {
			if pqCode(err) == pqForeignKeyViolation {
				return ErrUserNotFound
			}
			return fmt.Errorf("store: AddCartItem failed to upsert cart item: %w", err)
		}
		var err error
		item, err = getCartItem(ctx, tx, userID, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// UpdateCartItem sets the quantity of a product already in the cart.
func (s *PostgresStore) UpdateCartItem(ctx context.Context, userID, productID int64, quantity int32) (*domain.CartItem, error) {
	var item *domain.CartItem
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getVisibleProduct(ctx, tx, productID, false); err != nil {
			return err
		}
		query := `UPDATE cart_items SET quantity = $1 WHERE user_id = $2 AND product_id = $3;`
		result, err := tx.ExecContext(ctx, query, quantity, userID, productID)
		if err != nil {
			return fmt.Errorf("store: UpdateCartItem failed to execute update: %w", err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("store: UpdateCartItem failed to get rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return ErrCartItemNotFound
		}
		item, err = getCartItem(ctx, tx, userID, productID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

func (s *PostgresStore) RemoveCartItem(ctx context.Context, userID, productID int64) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND product_id = $2;`
	result, err := s.db.ExecContext(ctx, query, userID, productID)
	if err != nil {
		return fmt.Errorf("store: RemoveCartItem failed to execute delete: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: RemoveCartItem failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCartItemNotFound
	}
	return nil
}

func (s *PostgresStore) ClearCart(ctx context.Context, userID int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cart_items WHERE user_id = $1;`, userID); err != nil {
		return fmt.Errorf("store: ClearCart failed to execute delete: %w", err)
	}
	return nil
}

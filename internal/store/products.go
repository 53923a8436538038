package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"storefront-service/internal/domain"
)

const productColumns = "p.id, p.name, p.description, p.price, p.image_url, p.stock, p.category_id, p.seller_id, p.rating, p.is_active"

func scanProduct(row rowScanner, extra ...interface{}) (*domain.Product, error) {
	var p domain.Product
	dest := []interface{}{
		&p.ID, &p.Name, &p.Description, &p.Price, &p.ImageURL,
		&p.Stock, &p.CategoryID, &p.SellerID, &p.Rating, &p.IsActive,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &p, nil
}

// getVisibleProduct loads an active product whose category is also active.
func getVisibleProduct(ctx context.Context, q querier, id int64, forUpdate bool) (*domain.Product, error) {
	query := `
		SELECT ` + productColumns + `
		FROM products p
		JOIN categories c ON c.id = p.category_id
		WHERE p.id = $1 AND p.is_active = TRUE AND c.is_active = TRUE`
	if forUpdate {
		query += ` FOR UPDATE OF p`
	}
	product, err := scanProduct(q.QueryRowContext(ctx, query+";", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("store: failed to scan product %d: %w", id, err)
	}
	return product, nil
}

// CreateProduct inserts an active product in an active category.
func (s *PostgresStore) CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	var created *domain.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireActiveCategory(ctx, tx, &product.CategoryID, ErrCategoryNotFound); err != nil {
			return err
		}
		query := `
			INSERT INTO products AS p (name, description, price, image_url, stock, category_id, seller_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING ` + productColumns + `;
		`
		var err error
		created, err = scanProduct(tx.QueryRowContext(ctx, query,
			product.Name, product.Description, product.Price, product.ImageURL,
			product.Stock, product.CategoryID, product.SellerID,
		))
		if err != nil {
			return fmt.Errorf("store: CreateProduct failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) GetProductByID(ctx context.Context, id int64) (*domain.Product, error) {
	return getVisibleProduct(ctx, s.db, id, false)
}

// ListProducts returns one page of active products and the total number of
// rows matching the filters. With a search term, rows must match one of the
// two text search configurations and are ranked by the better of the two
// scores; otherwise they are ordered by id.
func (s *PostgresStore) ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) {
	if err := params.Validate(); err != nil {
		return nil, 0, err
	}

	var queryArgs []interface{}
	whereClauses := []string{"p.is_active = TRUE"}
	argID := 1

	rankExpr := "0::real"
	if params.Search != nil && *params.Search != "" {
		document := "to_tsvector($%[1]d::regconfig, p.name || ' ' || COALESCE(p.description, ''))"
		tsQuery := "plainto_tsquery($%[1]d::regconfig, $%[2]d)"
		primaryDoc := fmt.Sprintf(document, argID)
		primaryQuery := fmt.Sprintf(tsQuery, argID, argID+2)
		secondaryDoc := fmt.Sprintf(document, argID+1)
		secondaryQuery := fmt.Sprintf(tsQuery, argID+1, argID+2)

		whereClauses = append(whereClauses, fmt.Sprintf("(%s @@ %s OR %s @@ %s)",
			primaryDoc, primaryQuery, secondaryDoc, secondaryQuery))
		rankExpr = fmt.Sprintf("GREATEST(ts_rank(%s, %s), ts_rank(%s, %s))",
			primaryDoc, primaryQuery, secondaryDoc, secondaryQuery)
		queryArgs = append(queryArgs, s.search.Primary, s.search.Secondary, *params.Search)
		argID += 3
	}
	if params.CategoryID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.category_id = $%d", argID))
		queryArgs = append(queryArgs, *params.CategoryID)
		argID++
	}
	if params.MinPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.price >= $%d", argID))
		queryArgs = append(queryArgs, *params.MinPrice)
		argID++
	}
	if params.MaxPrice != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.price <= $%d", argID))
		queryArgs = append(queryArgs, *params.MaxPrice)
		argID++
	}
	if params.InStock != nil {
		if *params.InStock {
			whereClauses = append(whereClauses, "p.stock > 0")
		} else {
			whereClauses = append(whereClauses, "p.stock = 0")
		}
	}
	if params.SellerID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("p.seller_id = $%d", argID))
		queryArgs = append(queryArgs, *params.SellerID)
		argID++
	}

	whereCondition := " WHERE " + strings.Join(whereClauses, " AND ")

	countQuery := "SELECT COUNT(*) FROM products p" + whereCondition
	var totalCount int
	if err := s.db.QueryRowContext(ctx, countQuery, queryArgs...).Scan(&totalCount); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to count products: %w", err)
	}
	if totalCount == 0 {
		return []domain.Product{}, 0, nil
	}

	dataQuery := fmt.Sprintf("SELECT %s, %s AS rank FROM products p%s ORDER BY rank DESC, p.id ASC LIMIT $%d OFFSET $%d",
		productColumns, rankExpr, whereCondition, argID, argID+1)
	finalQueryArgs := append(queryArgs, params.Limit, params.Offset)

	rows, err := s.db.QueryContext(ctx, dataQuery, finalQueryArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts failed to query products: %w", err)
	}
	defer rows.Close()

	products := make([]domain.Product, 0, params.Limit)
	for rows.Next() {
		var rank float64
		p, err := scanProduct(rows, &rank)
		if err != nil {
			return nil, 0, fmt.Errorf("store: ListProducts failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("store: ListProducts iteration error: %w", err)
	}

	return products, totalCount, nil
}

// ListProductsByCategory returns the active products of an active category.
func (s *PostgresStore) ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error) {
	if _, err := getActiveCategory(ctx, s.db, categoryID); err != nil {
		return nil, err
	}
	query := `
		SELECT ` + productColumns + `
		FROM products p
		WHERE p.category_id = $1 AND p.is_active = TRUE
		ORDER BY p.id;
	`
	rows, err := s.db.QueryContext(ctx, query, categoryID)
	if err != nil {
		return nil, fmt.Errorf("store: ListProductsByCategory failed to query products: %w", err)
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("store: ListProductsByCategory failed to scan product row: %w", err)
		}
		products = append(products, *p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListProductsByCategory iteration error: %w", err)
	}
	return products, nil
}

// UpdateProduct replaces the editable fields of a product owned by sellerID.
func (s *PostgresStore) UpdateProduct(ctx context.Context, sellerID int64, product *domain.Product) (*domain.Product, error) {
	var updated *domain.Product
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getVisibleProduct(ctx, tx, product.ID, true)
		if err != nil {
			return err
		}
		if existing.SellerID != sellerID {
			return ErrProductNotOwned
		}
		if err := requireActiveCategory(ctx, tx, &product.CategoryID, ErrCategoryNotFound); err != nil {
			return err
		}

		query := `
			UPDATE products AS p
			SET name = $1, description = $2, price = $3, image_url = $4, stock = $5, category_id = $6
			WHERE p.id = $7
			RETURNING ` + productColumns + `;
		`
		updated, err = scanProduct(tx.QueryRowContext(ctx, query,
			product.Name, product.Description, product.Price, product.ImageURL,
			product.Stock, product.CategoryID, product.ID,
		))
		if err != nil {
			return fmt.Errorf("store: UpdateProduct failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteProduct marks a product owned by sellerID inactive.
func (s *PostgresStore) DeleteProduct(ctx context.Context, sellerID, id int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getVisibleProduct(ctx, tx, id, true)
		if err != nil {
			return err
		}
		if existing.SellerID != sellerID {
			return ErrProductNotOwned
		}
		if _, err := tx.ExecContext(ctx, `UPDATE products SET is_active = FALSE WHERE id = $1;`, id); err != nil {
			return fmt.Errorf("store: DeleteProduct failed to execute update: %w", err)
		}
		return nil
	})
}

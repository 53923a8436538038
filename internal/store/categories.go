package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

const categoryColumns = "id, name, parent_id, is_active"

func scanCategory(row rowScanner) (*domain.Category, error) {
	var c domain.Category
	if err := row.Scan(&c.ID, &c.Name, &c.ParentID, &c.IsActive); err != nil {
		return nil, err
	}
	return &c, nil
}

// requireActiveCategory returns missing unless id is nil or names an
// active category.
func requireActiveCategory(ctx context.Context, q querier, id *int64, missing error) error {
	if id == nil {
		return nil
	}
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM categories WHERE id = $1 AND is_active = TRUE);`
	if err := q.QueryRowContext(ctx, query, *id).Scan(&exists); err != nil {
		return fmt.Errorf("store: failed to check category %d: %w", *id, err)
	}
	if !exists {
		return missing
	}
	return nil
}

func (s *PostgresStore) CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	var created *domain.Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if err := requireActiveCategory(ctx, tx, category.ParentID, ErrParentCategoryNotFound); err != nil {
			return err
		}
		query := `
			INSERT INTO categories (name, parent_id)
			VALUES ($1, $2)
			RETURNING ` + categoryColumns + `;
		`
		var err error
		created, err = scanCategory(tx.QueryRowContext(ctx, query, category.Name, category.ParentID))
		if err != nil {
			return fmt.Errorf("store: CreateCategory failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *PostgresStore) GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error) {
	return getActiveCategory(ctx, s.db, id)
}

func getActiveCategory(ctx context.Context, q querier, id int64) (*domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE id = $1 AND is_active = TRUE;`
	category, err := scanCategory(q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("store: failed to scan category %d: %w", id, err)
	}
	return category, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE is_active = TRUE ORDER BY id;`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("store: ListCategories failed to query categories: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("store: ListCategories failed to scan category row: %w", err)
		}
		categories = append(categories, *c)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: ListCategories iteration error: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames and re-parents an active category. The new parent
// must be active and must not have the category among its ancestors.
func (s *PostgresStore) UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error) {
	var updated *domain.Category
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getActiveCategory(ctx, tx, category.ID); err != nil {
			return err
		}
		if err := requireActiveCategory(ctx, tx, category.ParentID, ErrParentCategoryNotFound); err != nil {
			return err
		}
		lookup := func(id int64) (*int64, error) {
			var parentID *int64
			err := tx.QueryRowContext(ctx, `SELECT parent_id FROM categories WHERE id = $1;`, id).Scan(&parentID)
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil
			}
			if err != nil {
				return nil, fmt.Errorf("store: failed to load parent of category %d: %w", id, err)
			}
			return parentID, nil
		}
		if err := domain.ValidateAncestry(category.ID, category.ParentID, lookup); err != nil {
			return err
		}

		query := `
			UPDATE categories
			SET name = $1, parent_id = $2
			WHERE id = $3
			RETURNING ` + categoryColumns + `;
		`
		var err error
		updated, err = scanCategory(tx.QueryRowContext(ctx, query, category.Name, category.ParentID, category.ID))
		if err != nil {
			return fmt.Errorf("store: UpdateCategory failed to scan row: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// DeleteCategory marks an active category inactive.
func (s *PostgresStore) DeleteCategory(ctx context.Context, id int64) error {
	query := `UPDATE categories SET is_active = FALSE WHERE id = $1 AND is_active = TRUE;`
	result, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to execute update: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: DeleteCategory failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

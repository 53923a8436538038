package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

const reviewColumns = "id, user_id, product_id, comment, comment_date, grade, is_active"

func scanReview(row rowScanner) (*domain.Review, error) {
	var r domain.Review
	if err := row.Scan(&r.ID, &r.UserID, &r.ProductID, &r.Comment, &r.CommentDate, &r.Grade, &r.IsActive); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) queryReviews(ctx context.Context, query string, args ...interface{}) ([]domain.Review, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store: failed to query reviews: %w", err)
	}
	defer rows.Close()

	reviews := []domain.Review{}
	for rows.Next() {
		r, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("store: failed to scan review row: %w", err)
		}
		reviews = append(reviews, *r)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("store: reviews iteration error: %w", err)
	}
	return reviews, nil
}

// refreshRating sets the product rating to the mean grade of its active
// reviews, or zero when none remain.
func refreshRating(ctx context.Context, tx *sql.Tx, productID int64) error {
	query := `
		UPDATE products
		SET rating = COALESCE((SELECT AVG(grade) FROM reviews WHERE product_id = $1 AND is_active = TRUE), 0)
		WHERE id = $1;
	`
	if _, err := tx.ExecContext(ctx, query, productID); err != nil {
		return fmt.Errorf("store: failed to update rating of product %d: %w", productID, err)
	}
	return nil
}

func (s *PostgresStore) ListReviews(ctx context.Context) ([]domain.Review, error) {
	return s.queryReviews(ctx, `SELECT `+reviewColumns+` FROM reviews WHERE is_active = TRUE ORDER BY id;`)
}

// ListProductReviews returns the active reviews of a visible product.
func (s *PostgresStore) ListProductReviews(ctx context.Context, productID int64) ([]domain.Review, error) {
	if _, err := getVisibleProduct(ctx, s.db, productID, false); err != nil {
		return nil, err
	}
	return s.queryReviews(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE product_id = $1 AND is_active = TRUE ORDER BY id;`,
		productID,
	)
}

// CreateReview stores a review and refreshes the product rating. A user may
// hold only one active review per product.
func (s *PostgresStore) CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error) {
	var created *domain.Review
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := getVisibleProduct(ctx, tx, review.ProductID, true); err != nil {
			return err
		}

		var exists bool
		existsQuery := `SELECT EXISTS(SELECT 1 FROM reviews WHERE user_id = $1 AND product_id = $2 AND is_active = TRUE);`
		if err := tx.QueryRowContext(ctx, existsQuery, review.UserID, review.ProductID).Scan(&exists); err != nil {
			return fmt.Errorf("store: CreateReview failed to check existing review: %w", err)
		}
		if exists {
			return ErrReviewExists
		}

		query := `
			INSERT INTO reviews (user_id, product_id, comment, grade)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + reviewColumns + `;
		`
		var err error
		created, err = scanReview(tx.QueryRowContext(ctx, query, review.UserID, review.ProductID, review.Comment, review.Grade))
		if err != nil {
			if pqCode(err) == pqUniqueViolation {
				return ErrReviewExists
			}
			return fmt.Errorf("store: CreateReview failed to scan row: %w", err)
		}
		return refreshRating(ctx, tx, review.ProductID)
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// DeleteReview soft-deletes a review and refreshes the product rating.
// Buyers may only delete their own reviews; admins may delete any.
func (s *PostgresStore) DeleteReview(ctx context.Context, actor *domain.User, reviewID int64) (*domain.Review, error) {
	var deleted *domain.Review
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		query := `SELECT ` + reviewColumns + ` FROM reviews WHERE id = $1 AND is_active = TRUE FOR UPDATE;`
		review, err := scanReview(tx.QueryRowContext(ctx, query, reviewID))
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrReviewNotFound
			}
			return fmt.Errorf("store: DeleteReview failed to scan row: %w", err)
		}
		if actor.Role != domain.RoleAdmin && review.UserID != actor.ID {
			return ErrReviewNotOwned
		}

		if _, err := tx.ExecContext(ctx, `UPDATE reviews SET is_active = FALSE WHERE id = $1;`, reviewID); err != nil {
			return fmt.Errorf("store: DeleteReview failed to execute update: %w", err)
		}
		if err := refreshRating(ctx, tx, review.ProductID); err != nil {
			return err
		}
		review.IsActive = false
		deleted = review
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

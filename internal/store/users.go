package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront-service/internal/domain"
)

const userColumns = "id, email, hashed_password, is_active, role"

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &u.IsActive, &u.Role); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new active user. HashedPassword must already be set.
func (s *PostgresStore) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	query := `
		INSERT INTO users (email, hashed_password, role)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns + `;
	`
	created, err := scanUser(s.db.QueryRowContext(ctx, query, user.Email, user.HashedPassword, user.Role))
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("store: CreateUser failed to scan row: %w", err)
	}
	return created, nil
}

// GetUserByEmail returns the user regardless of is_active; callers decide
// whether an inactive account is acceptable.
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("store: GetUserByEmail failed to scan row: %w", err)
	}
	return user, nil
}

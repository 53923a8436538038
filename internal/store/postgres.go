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

// Predefined errors for store operations. They are domain errors so the
// transports can map them by kind.
var (
	ErrUserNotFound           = domain.NewError(domain.KindNotFound, "user not found")
	ErrEmailTaken             = domain.NewError(domain.KindConflict, "email already registered")
	ErrCategoryNotFound       = domain.NewError(domain.KindNotFound, "category not found")
	ErrParentCategoryNotFound = domain.NewError(domain.KindInvalid, "parent category not found")
	ErrProductNotFound        = domain.NewError(domain.KindNotFound, "product not found")
	ErrProductNotOwned        = domain.NewError(domain.KindForbidden, "you can only modify your own products")
	ErrCartItemNotFound       = domain.NewError(domain.KindNotFound, "cart item not found")
	ErrOrderNotFound          = domain.NewError(domain.KindNotFound, "order not found")
	ErrReviewNotFound         = domain.NewError(domain.KindNotFound, "review not found")
	ErrReviewExists           = domain.NewError(domain.KindForbidden, "you can save the review for the same product only once")
	ErrReviewNotOwned         = domain.NewError(domain.KindForbidden, "you can only delete your own reviews")
	ErrInsufficientStock      = domain.NewError(domain.KindInvalid, "insufficient stock")
)

const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

// PostgresStore implements every storer interface on top of PostgreSQL.
type PostgresStore struct {
	db     *sql.DB
	logger *zap.Logger
	search SearchLanguages
}

// SearchLanguages names the two text search configurations used for ranking.
type SearchLanguages struct {
	Primary   string
	Secondary string
}

// Option configures a PostgresStore.
type Option func(*PostgresStore)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l *zap.Logger) Option {
	return func(s *PostgresStore) { s.logger = l }
}

// WithSearchLanguages overrides the default english/russian search pair.
func WithSearchLanguages(primary, secondary string) Option {
	return func(s *PostgresStore) { s.search = SearchLanguages{Primary: primary, Secondary: secondary} }
}

// NewPostgresStore creates a new PostgresStore instance.
func NewPostgresStore(db *sql.DB, opts ...Option) *PostgresStore {
	s := &PostgresStore{
		db:     db,
		logger: zap.NewNop(),
		search: SearchLanguages{Primary: "english", Secondary: "russian"},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ping checks that the database is reachable.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// withTx runs fn inside a transaction. Any error, panic or cancelled
// context rolls the transaction back.
func (s *PostgresStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Warn("transaction rollback failed", zap.Error(rbErr))
			}
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("store: failed to commit transaction: %w", err)
	}
	return nil
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	s.logger.Info("closing database connection pool")
	if err := s.db.Close(); err != nil {
		s.logger.Error("failed to close database connection pool", zap.Error(err))
		return err
	}
	return nil
}

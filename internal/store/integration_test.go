//go:build integration

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"storefront-service/internal/domain"
)

// newContainerStore starts a throwaway PostgreSQL and applies the schema.
func newContainerStore(t *testing.T) *PostgresStore {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:alpine",
		postgres.WithDatabase("storefront"),
		postgres.WithUsername("storefront"),
		postgres.WithPassword("storefront"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	db, err := sql.Open("postgres", connStr)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s := NewPostgresStore(db)
	require.NoError(t, s.Migrate(ctx))
	require.NoError(t, s.Migrate(ctx), "schema is idempotent")
	return s
}

type fixture struct {
	buyer    *domain.User
	seller   *domain.User
	category *domain.Category
	mug      *domain.Product
	lamp     *domain.Product
}

func seed(t *testing.T, s *PostgresStore) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error

	f.buyer, err = s.CreateUser(ctx, &domain.User{Email: "buyer@example.com", HashedPassword: "x", Role: domain.RoleBuyer})
	require.NoError(t, err)
	f.seller, err = s.CreateUser(ctx, &domain.User{Email: "seller@example.com", HashedPassword: "x", Role: domain.RoleSeller})
	require.NoError(t, err)
	f.category, err = s.CreateCategory(ctx, &domain.Category{Name: "Home"})
	require.NoError(t, err)

	mugPrice, lampPrice := decimal.RequireFromString("5.25"), decimal.RequireFromString("15.00")
	f.mug, err = s.CreateProduct(ctx, &domain.Product{
		Name: "Ceramic mug", Price: &mugPrice, Stock: 5, CategoryID: f.category.ID, SellerID: f.seller.ID,
	})
	require.NoError(t, err)
	f.lamp, err = s.CreateProduct(ctx, &domain.Product{
		Name: "Desk lamp", Price: &lampPrice, Stock: 1, CategoryID: f.category.ID, SellerID: f.seller.ID,
	})
	require.NoError(t, err)
	return f
}

func TestIntegration_Checkout(t *testing.T) {
	s := newContainerStore(t)
	f := seed(t, s)
	ctx := context.Background()

	_, err := s.AddCartItem(ctx, f.buyer.ID, f.mug.ID, 1)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, f.buyer.ID, f.mug.ID, 1)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, f.buyer.ID, f.lamp.ID, 1)
	require.NoError(t, err)

	order, err := s.Checkout(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Equal(t, "25.50", order.TotalAmount.StringFixed(2))
	require.Len(t, order.Items, 2)

	mug, err := s.GetProductByID(ctx, f.mug.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), mug.Stock)
	lamp, err := s.GetProductByID(ctx, f.lamp.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(0), lamp.Stock)

	items, err := s.GetCartItems(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, items)

	orders, total, err := s.ListOrders(ctx, f.buyer.ID, ListOrdersParams{Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, order.ID, orders[0].ID)

	_, err = s.GetOrder(ctx, f.seller.ID, order.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestIntegration_CheckoutRollsBack(t *testing.T) {
	s := newContainerStore(t)
	f := seed(t, s)
	ctx := context.Background()

	_, err := s.AddCartItem(ctx, f.buyer.ID, f.mug.ID, 2)
	require.NoError(t, err)
	_, err = s.AddCartItem(ctx, f.buyer.ID, f.lamp.ID, 3)
	require.NoError(t, err)

	_, err = s.Checkout(ctx, f.buyer.ID)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInvalid))

	mug, err := s.GetProductByID(ctx, f.mug.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(5), mug.Stock, "no stock is taken when any line fails")

	items, err := s.GetCartItems(ctx, f.buyer.ID)
	require.NoError(t, err)
	assert.Len(t, items, 2, "cart survives a failed checkout")

	_, total, err := s.ListOrders(ctx, f.buyer.ID, ListOrdersParams{Limit: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestIntegration_ReviewsDriveRating(t *testing.T) {
	s := newContainerStore(t)
	f := seed(t, s)
	ctx := context.Background()

	other, err := s.CreateUser(ctx, &domain.User{Email: "other@example.com", HashedPassword: "x", Role: domain.RoleBuyer})
	require.NoError(t, err)

	first, err := s.CreateReview(ctx, &domain.Review{UserID: f.buyer.ID, ProductID: f.mug.ID, Grade: 5})
	require.NoError(t, err)
	_, err = s.CreateReview(ctx, &domain.Review{UserID: other.ID, ProductID: f.mug.ID, Grade: 2})
	require.NoError(t, err)
	_, err = s.CreateReview(ctx, &domain.Review{UserID: f.buyer.ID, ProductID: f.mug.ID, Grade: 1})
	assert.ErrorIs(t, err, ErrReviewExists)

	mug, err := s.GetProductByID(ctx, f.mug.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.5, mug.Rating, 0.001)

	_, err = s.DeleteReview(ctx, other, first.ID)
	assert.ErrorIs(t, err, ErrReviewNotOwned)
	_, err = s.DeleteReview(ctx, f.buyer, first.ID)
	require.NoError(t, err)

	mug, err = s.GetProductByID(ctx, f.mug.ID)
	require.NoError(t, err)
	assert.InDelta(t, 2.0, mug.Rating, 0.001)
}

func TestIntegration_ProductSearch(t *testing.T) {
	s := newContainerStore(t)
	f := seed(t, s)
	ctx := context.Background()

	search := "mugs"
	products, total, err := s.ListProducts(ctx, ListProductsParams{Limit: 10, Search: &search})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, f.mug.ID, products[0].ID)

	inStock := true
	require.NoError(t, s.DeleteProduct(ctx, f.seller.ID, f.lamp.ID))
	products, total, err = s.ListProducts(ctx, ListProductsParams{Limit: 10, InStock: &inStock})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Len(t, products, 1)
}

package store

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
)

func TestPostgresStore_CreateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	product := &domain.Product{Name: "Phone", Price: money("199.99"), Stock: 5, CategoryID: 2, SellerID: 7}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(categoryExistsQuery)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO products AS p (name, description, price, image_url, stock, category_id, seller_id)")).
		WithArgs("Phone", nil, product.Price, nil, int32(5), int64(2), int64(7)).
		WillReturnRows(sqlmock.NewRows(productColumnNames).AddRow(productRow(11, "Phone", "199.99", 5, 2, 7)...))
	mock.ExpectCommit()

	created, err := store.CreateProduct(context.Background(), product)

	require.NoError(t, err)
	assert.Equal(t, int64(11), created.ID)
	require.NotNil(t, created.Price)
	assert.Equal(t, "199.99", created.Price.StringFixed(2))
	assert.Equal(t, int32(5), created.Stock)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_CreateProduct_InactiveCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(categoryExistsQuery)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	created, err := store.CreateProduct(context.Background(), &domain.Product{Name: "Phone", CategoryID: 2, SellerID: 7})

	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.Nil(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetProductByID_NotFound(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	expectVisibleProduct(mock, false, 99, nil)

	product, err := store.GetProductByID(context.Background(), 99)

	assert.ErrorIs(t, err, ErrProductNotFound)
	assert.Nil(t, product)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_NoFilters(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products p WHERE p.is_active = TRUE")).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery(regexp.QuoteMeta("0::real AS rank FROM products p WHERE p.is_active = TRUE ORDER BY rank DESC, p.id ASC LIMIT $1 OFFSET $2")).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(append(productColumnNames, "rank")).
			AddRow(append(productRow(1, "Cable", "5.00", 10, 2, 7), 0.0)...).
			AddRow(append(productRow(2, "Case", nil, 0, 2, 7), 0.0)...))

	products, total, err := store.ListProducts(context.Background(), ListProductsParams{Limit: 20, Offset: 0})

	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, products, 2)
	assert.Equal(t, int64(1), products[0].ID)
	assert.Nil(t, products[1].Price)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_SearchAndFilters(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	params := ListProductsParams{
		Limit:      10,
		Offset:     10,
		Search:     PtrTo("phone"),
		CategoryID: PtrTo(int64(3)),
		MinPrice:   money("10"),
		InStock:    PtrTo(true),
	}

	match := "(to_tsvector($1::regconfig, p.name || ' ' || COALESCE(p.description, '')) @@ plainto_tsquery($1::regconfig, $3)" +
		" OR to_tsvector($2::regconfig, p.name || ' ' || COALESCE(p.description, '')) @@ plainto_tsquery($2::regconfig, $3))"
	filters := " AND p.category_id = $4 AND p.price >= $5 AND p.stock > 0"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products p WHERE p.is_active = TRUE AND "+match+filters)).
		WithArgs("english", "russian", "phone", int64(3), params.MinPrice).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta("GREATEST(ts_rank(")).
		WithArgs("english", "russian", "phone", int64(3), params.MinPrice, 10, 10).
		WillReturnRows(sqlmock.NewRows(append(productColumnNames, "rank")).
			AddRow(append(productRow(20, "Phone", "199.99", 4, 3, 7), 0.6)...))

	products, total, err := store.ListProducts(context.Background(), params)

	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, products, 1)
	assert.Equal(t, "Phone", products[0].Name)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_CustomLanguages(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	store := NewPostgresStore(db, WithSearchLanguages("german", "french"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM products p")).
		WithArgs("german", "french", "tisch").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

	products, total, err := store.ListProducts(context.Background(), ListProductsParams{Limit: 20, Search: PtrTo("tisch")})

	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, products)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListProducts_InvertedPriceRange(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	_, _, err := store.ListProducts(context.Background(), ListProductsParams{Limit: 20, MinPrice: money("50"), MaxPrice: money("10")})

	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.KindInvalid))
	require.NoError(t, mock.ExpectationsWereMet(), "no query may run for an inverted price range")
}

func TestPostgresStore_ListProductsByCategory_InactiveCategory(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectQuery(regexp.QuoteMeta(activeCategoryQuery)).
		WithArgs(int64(4)).
		WillReturnRows(sqlmock.NewRows(categoryColumnNames))

	products, err := store.ListProductsByCategory(context.Background(), 4)

	assert.ErrorIs(t, err, ErrCategoryNotFound)
	assert.Nil(t, products)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProduct_NotOwner(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	expectVisibleProduct(mock, true, 11, productRow(11, "Phone", "199.99", 5, 2, 7))
	mock.ExpectRollback()

	updated, err := store.UpdateProduct(context.Background(), 8, &domain.Product{ID: 11, Name: "Mine now", CategoryID: 2})

	assert.ErrorIs(t, err, ErrProductNotOwned)
	assert.Nil(t, updated)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	product := &domain.Product{ID: 11, Name: "Phone X", Price: money("249.00"), Stock: 3, CategoryID: 2}

	mock.ExpectBegin()
	expectVisibleProduct(mock, true, 11, productRow(11, "Phone", "199.99", 5, 2, 7))
	mock.ExpectQuery(regexp.QuoteMeta(categoryExistsQuery)).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE products AS p SET name = $1, description = $2, price = $3, image_url = $4, stock = $5, category_id = $6 WHERE p.id = $7")).
		WithArgs("Phone X", nil, product.Price, nil, int32(3), int64(2), int64(11)).
		WillReturnRows(sqlmock.NewRows(productColumnNames).AddRow(productRow(11, "Phone X", "249.00", 3, 2, 7)...))
	mock.ExpectCommit()

	updated, err := store.UpdateProduct(context.Background(), 7, product)

	require.NoError(t, err)
	assert.Equal(t, "Phone X", updated.Name)
	assert.Equal(t, int64(7), updated.SellerID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_DeleteProduct(t *testing.T) {
	db, mock, store := newMockDBAndStore(t)
	defer db.Close()

	mock.ExpectBegin()
	expectVisibleProduct(mock, true, 11, productRow(11, "Phone", "199.99", 5, 2, 7))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE products SET is_active = FALSE WHERE id = $1")).
		WithArgs(int64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.DeleteProduct(context.Background(), 7, 11))
	require.NoError(t, mock.ExpectationsWereMet())
}

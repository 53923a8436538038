package api

import (
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestHTTPHandler_ListProducts_DefaultsAndFilters(t *testing.T) {
	env := setupTestChiServer(t, nil)

	env.products.On("ListProducts", mock.Anything, mock.MatchedBy(func(p store.ListProductsParams) bool {
		return p.Limit == 5 && p.Offset == 5 &&
			p.Search != nil && *p.Search == "phone" &&
			p.CategoryID != nil && *p.CategoryID == 3 &&
			p.MinPrice != nil && p.MinPrice.Equal(decimal.NewFromInt(10)) &&
			p.MaxPrice == nil &&
			p.InStock != nil && *p.InStock &&
			p.SellerID == nil
	})).Return([]domain.Product{{ID: 20, Name: "Phone", Price: decimalPtr("199.99"), Stock: 4}}, 6, nil).Once()

	res := env.do(t, http.MethodGet, "/products/?page=2&page_size=5&search=phone&category_id=3&min_price=10&in_stock=true", "", nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[ProductListResponse](t, res)
	assert.Equal(t, 6, body.Total)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 5, body.PageSize)
	require.Len(t, body.Items, 1)
	assert.Equal(t, "199.99", body.Items[0].Price.StringFixed(2))
	env.assertExpectations(t)
}

func TestHTTPHandler_ListProducts_Defaults(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.products.On("ListProducts", mock.Anything, store.ListProductsParams{Limit: 20, Offset: 0}).
		Return([]domain.Product{}, 0, nil).Once()

	res := env.do(t, http.MethodGet, "/products/", "", nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[ProductListResponse](t, res)
	assert.Equal(t, 1, body.Page)
	assert.Equal(t, 20, body.PageSize)
	assert.NotNil(t, body.Items)
	env.assertExpectations(t)
}

func TestHTTPHandler_ListProducts_LastAllowedPage(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.products.On("ListProducts", mock.Anything, store.ListProductsParams{Limit: 100, Offset: 2147483500}).
		Return([]domain.Product{}, 0, nil).Once()

	res := env.do(t, http.MethodGet, "/products/?page=21474836&page_size=100", "", nil)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	env.assertExpectations(t)
}

func TestHTTPHandler_ListProducts_RejectedQueries(t *testing.T) {
	for _, query := range []string{
		"min_price=50&max_price=10",
		"page_size=101",
		"page=0",
		"page=9223372036854775807&page_size=100",
		"page=21474837",
		"category_id=x",
		"in_stock=maybe",
		"min_price=-1",
	} {
		t.Run(query, func(t *testing.T) {
			env := setupTestChiServer(t, nil)

			res := env.do(t, http.MethodGet, "/products/?"+query, "", nil)

			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			env.products.AssertNotCalled(t, "ListProducts", mock.Anything, mock.Anything)
		})
	}
}

func TestHTTPHandler_GetProductByID_NotFound(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.products.On("GetProductByID", mock.Anything, int64(5)).Return(nil, store.ErrProductNotFound).Once()

	res := env.do(t, http.MethodGet, "/products/5", "", nil)

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	errResp := decodeBody[ErrorResponse](t, res)
	assert.Equal(t, "product not found", errResp.Error)
	env.assertExpectations(t)
}

func TestHTTPHandler_ListProductsByCategory(t *testing.T) {
	env := setupTestChiServer(t, nil)
	env.products.On("ListProductsByCategory", mock.Anything, int64(3)).
		Return([]domain.Product{{ID: 1, Name: "Cable"}, {ID: 2, Name: "Case"}}, nil).Once()

	res := env.do(t, http.MethodGet, "/products/category/3", "", nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Len(t, decodeBody[[]domain.Product](t, res), 2)
	env.assertExpectations(t)
}

func TestHTTPHandler_CreateProduct(t *testing.T) {
	env := setupTestChiServer(t, nil)
	token := env.tokenFor(t, testSeller)

	env.products.On("CreateProduct", mock.Anything, mock.MatchedBy(func(p *domain.Product) bool {
		return p.SellerID == testSeller.ID && p.Name == "Phone" && p.Price.Equal(decimal.RequireFromString("199.99"))
	})).Return(&domain.Product{ID: 11, Name: "Phone", Price: decimalPtr("199.99"), SellerID: testSeller.ID, CategoryID: 2, IsActive: true}, nil).Once()

	res := env.do(t, http.MethodPost, "/products/", token, map[string]interface{}{
		"name": "Phone", "price": "199.99", "stock": 5, "category_id": 2,
	})

	require.Equal(t, http.StatusCreated, res.StatusCode)
	created := decodeBody[domain.Product](t, res)
	assert.Equal(t, int64(11), created.ID)
	assert.Equal(t, testSeller.ID, created.SellerID)
	env.assertExpectations(t)
}

func TestHTTPHandler_CreateProduct_InvalidPrice(t *testing.T) {
	for name, p := range map[string]string{"zero": "0", "negative": "-5", "three decimals": "1.999"} {
		t.Run(name, func(t *testing.T) {
			env := setupTestChiServer(t, nil)
			token := env.tokenFor(t, testSeller)

			res := env.do(t, http.MethodPost, "/products/", token, map[string]interface{}{
				"name": "Phone", "price": p, "stock": 5, "category_id": 2,
			})

			assert.Equal(t, http.StatusBadRequest, res.StatusCode)
			env.products.AssertNotCalled(t, "CreateProduct", mock.Anything, mock.Anything)
		})
	}
}

func TestHTTPHandler_CreateProduct_BuyerForbidden(t *testing.T) {
	env := setupTestChiServer(t, nil)
	token := env.tokenFor(t, testBuyer)

	res := env.do(t, http.MethodPost, "/products/", token, map[string]interface{}{
		"name": "Phone", "price": "10", "stock": 1, "category_id": 2,
	})

	assert.Equal(t, http.StatusForbidden, res.StatusCode)
}

func TestHTTPHandler_UpdateProduct_NotOwner(t *testing.T) {
	env := setupTestChiServer(t, nil)
	token := env.tokenFor(t, testSeller)
	env.products.On("UpdateProduct", mock.Anything, testSeller.ID, mock.MatchedBy(func(p *domain.Product) bool { return p.ID == 11 })).
		Return(nil, store.ErrProductNotOwned).Once()

	res := env.do(t, http.MethodPut, "/products/11", token, map[string]interface{}{
		"name": "Phone", "price": "10.50", "stock": 1, "category_id": 2,
	})

	assert.Equal(t, http.StatusForbidden, res.StatusCode)
	env.assertExpectations(t)
}

func TestHTTPHandler_DeleteProduct(t *testing.T) {
	env := setupTestChiServer(t, nil)
	token := env.tokenFor(t, testSeller)
	env.products.On("DeleteProduct", mock.Anything, testSeller.ID, int64(11)).Return(nil).Once()

	res := env.do(t, http.MethodDelete, "/products/11", token, nil)

	require.Equal(t, http.StatusOK, res.StatusCode)
	body := decodeBody[StatusResponse](t, res)
	assert.Equal(t, "Product with ID [11] is deleted", body.Message)
	env.assertExpectations(t)
}

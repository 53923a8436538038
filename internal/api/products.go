package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
	"storefront-service/internal/store"
)

const (
	defaultProductPageSize = 20
	maxPageSize            = 100
)

// ProductInput defines the expected input for creating or updating a product.
// Price is validated separately since validator cannot compare decimals.
type ProductInput struct {
	Name        string          `json:"name" validate:"required,min=3,max=100"`
	Description *string         `json:"description" validate:"omitempty,max=500"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"image_url" validate:"omitempty,max=200"`
	Stock       int32           `json:"stock" validate:"gte=0"`
	CategoryID  int64           `json:"category_id" validate:"required,gt=0"`
}

func (in ProductInput) product() (*domain.Product, error) {
	if !in.Price.IsPositive() {
		return nil, domain.NewError(domain.KindInvalid, "price must be greater than 0")
	}
	if !in.Price.Equal(in.Price.Round(2)) {
		return nil, domain.NewError(domain.KindInvalid, "price must have at most 2 decimal places")
	}
	price := in.Price
	return &domain.Product{
		Name:        in.Name,
		Description: in.Description,
		Price:       &price,
		ImageURL:    in.ImageURL,
		Stock:       in.Stock,
		CategoryID:  in.CategoryID,
	}, nil
}

// ProductListResponse is one page of the product listing.
type ProductListResponse struct {
	Items    []domain.Product `json:"items"`
	Total    int              `json:"total"`
	Page     int              `json:"page"`
	PageSize int              `json:"page_size"`
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	product, err := input.product()
	if err != nil {
		h.respondWithDomainError(w, r, err, "create product")
		return
	}
	product.SellerID = UserFromContext(r.Context()).ID

	created, err := h.productStore.CreateProduct(r.Context(), product)
	if err != nil {
		h.respondWithDomainError(w, r, err, "create product")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

// parseListProductsParams reads the listing filters from the query string.
func parseListProductsParams(r *http.Request) (store.ListProductsParams, error) {
	var params store.ListProductsParams
	q := r.URL.Query()

	if s := strings.TrimSpace(q.Get("search")); s != "" {
		params.Search = &s
	}
	if s := q.Get("category_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return params, domain.NewError(domain.KindInvalid, "invalid category_id")
		}
		params.CategoryID = &id
	}
	if s := q.Get("seller_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return params, domain.NewError(domain.KindInvalid, "invalid seller_id")
		}
		params.SellerID = &id
	}
	for name, dst := range map[string]**decimal.Decimal{"min_price": &params.MinPrice, "max_price": &params.MaxPrice} {
		s := q.Get(name)
		if s == "" {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil || d.IsNegative() {
			return params, domain.Errorf(domain.KindInvalid, "invalid %s", name)
		}
		*dst = &d
	}
	if s := q.Get("in_stock"); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			return params, domain.NewError(domain.KindInvalid, "invalid in_stock")
		}
		params.InStock = &b
	}
	return params, params.Validate()
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := pageParams(w, r, defaultProductPageSize, maxPageSize)
	if !ok {
		return
	}
	params, err := parseListProductsParams(r)
	if err != nil {
		h.respondWithDomainError(w, r, err, "list products")
		return
	}
	params.Limit = pageSize
	params.Offset = (page - 1) * pageSize

	products, total, err := h.productStore.ListProducts(r.Context(), params)
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, ProductListResponse{
		Items:    products,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	})
}

func (h *HTTPHandler) GetProductByID(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID", "product")
	if !ok {
		return
	}
	product, err := h.productStore.GetProductByID(r.Context(), productID)
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve product")
		return
	}
	respondWithJSON(w, http.StatusOK, product)
}

func (h *HTTPHandler) ListProductsByCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryID", "category")
	if !ok {
		return
	}
	products, err := h.productStore.ListProductsByCategory(r.Context(), categoryID)
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve products")
		return
	}
	respondWithJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID", "product")
	if !ok {
		return
	}
	var input ProductInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	product, err := input.product()
	if err != nil {
		h.respondWithDomainError(w, r, err, "update product")
		return
	}
	product.ID = productID

	updated, err := h.productStore.UpdateProduct(r.Context(), UserFromContext(r.Context()).ID, product)
	if err != nil {
		h.respondWithDomainError(w, r, err, "update product")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID", "product")
	if !ok {
		return
	}
	if err := h.productStore.DeleteProduct(r.Context(), UserFromContext(r.Context()).ID, productID); err != nil {
		h.respondWithDomainError(w, r, err, "delete product")
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Product with ID [%d] is deleted", productID),
	})
}

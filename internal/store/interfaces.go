package store

import (
	"context"

	"github.com/shopspring/decimal"

	"storefront-service/internal/domain"
)

// UserStorer defines the database operations for users.
type UserStorer interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
}

// CategoryStorer defines the database operations for categories.
// Reads only ever see active categories.
type CategoryStorer interface {
	CreateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*domain.Category, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, category *domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id int64) error
}

// ListProductsParams holds parameters for listing products (pagination, filtering, search).
type ListProductsParams struct {
	Limit      int
	Offset     int
	Search     *string
	CategoryID *int64
	MinPrice   *decimal.Decimal
	MaxPrice   *decimal.Decimal
	InStock    *bool
	SellerID   *int64
}

// Validate rejects filter combinations that can never match.
func (p ListProductsParams) Validate() error {
	if p.MinPrice != nil && p.MaxPrice != nil && p.MinPrice.GreaterThan(*p.MaxPrice) {
		return domain.NewError(domain.KindInvalid, "min_price cannot be greater than max_price")
	}
	return nil
}

// ProductStorer defines the database operations for products.
type ProductStorer interface {
	CreateProduct(ctx context.Context, product *domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context, params ListProductsParams) ([]domain.Product, int, error) // Returns products and total count
	ListProductsByCategory(ctx context.Context, categoryID int64) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, sellerID int64, product *domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, sellerID, id int64) error
}

// CartStorer defines the database operations for a user's cart.
type CartStorer interface {
	GetCartItems(ctx context.Context, userID int64) ([]domain.CartItem, error)
	AddCartItem(ctx context.Context, userID, productID int64, quantity int32) (*domain.CartItem, error)
	UpdateCartItem(ctx context.Context, userID, productID int64, quantity int32) (*domain.CartItem, error)
	RemoveCartItem(ctx context.Context, userID, productID int64) error
	ClearCart(ctx context.Context, userID int64) error
}

// ListOrdersParams holds pagination for a user's orders.
type ListOrdersParams struct {
	Limit  int
	Offset int
}

// OrderStorer defines the database operations for orders.
type OrderStorer interface {
	Checkout(ctx context.Context, userID int64) (*domain.Order, error)
	ListOrders(ctx context.Context, userID int64, params ListOrdersParams) ([]domain.Order, int, error)
	GetOrder(ctx context.Context, userID, orderID int64) (*domain.Order, error)
}

// ReviewStorer defines the database operations for reviews. Creating or
// deleting a review recomputes the product rating in the same transaction.
type ReviewStorer interface {
	ListReviews(ctx context.Context) ([]domain.Review, error)
	ListProductReviews(ctx context.Context, productID int64) ([]domain.Review, error)
	CreateReview(ctx context.Context, review *domain.Review) (*domain.Review, error)
	DeleteReview(ctx context.Context, actor *domain.User, reviewID int64) (*domain.Review, error)
}

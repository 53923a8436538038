package domain

import "github.com/shopspring/decimal"

// CartItem is one line of a user's cart. Product is populated on reads.
type CartItem struct {
	ID        int64    `json:"id"`
	UserID    int64    `json:"-"`
	ProductID int64    `json:"product_id"`
	Quantity  int32    `json:"quantity"`
	Product   *Product `json:"product,omitempty"`
}

// Cart is the read model of a user's cart.
type Cart struct {
	UserID        int64           `json:"user_id"`
	Items         []CartItem      `json:"items"`
	TotalQuantity int64           `json:"total_quantity"`
	TotalPrice    decimal.Decimal `json:"total_price"`
}

// NewCart totals the given items. Products without a price count as zero.
func NewCart(userID int64, items []CartItem) Cart {
	cart := Cart{UserID: userID, Items: items, TotalPrice: decimal.Zero}
	if cart.Items == nil {
		cart.Items = []CartItem{}
	}
	for _, item := range items {
		cart.TotalQuantity += int64(item.Quantity)
		if item.Product != nil && item.Product.Price != nil {
			cart.TotalPrice = cart.TotalPrice.Add(item.Product.Price.Mul(decimal.NewFromInt32(item.Quantity)))
		}
	}
	return cart
}

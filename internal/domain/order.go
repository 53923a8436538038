package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is an immutable snapshot of a cart at purchase time.
type Order struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"user_id"`
	CreatedAt   time.Time       `json:"created_at"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Items       []OrderItem     `json:"items"`
}

// OrderItem keeps the unit price the buyer paid; later price changes do not
// touch it.
type OrderItem struct {
	ID         int64           `json:"id"`
	OrderID    int64           `json:"order_id"`
	ProductID  int64           `json:"product_id"`
	Quantity   int32           `json:"quantity"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

// PriceCart turns cart lines into an unsaved order. Lines are checked in
// the given order and the first failing line aborts the whole checkout.
func PriceCart(userID int64, items []CartItem) (*Order, error) {
	if len(items) == 0 {
		return nil, NewError(KindInvalid, "cart is empty")
	}

	order := &Order{UserID: userID, TotalAmount: decimal.Zero, Items: make([]OrderItem, 0, len(items))}
	for _, item := range items {
		product := item.Product
		if product == nil || !product.IsActive {
			return nil, Errorf(KindInvalid, "product %d is unavailable", item.ProductID)
		}
		if product.Stock < item.Quantity {
			return nil, Errorf(KindInvalid, "not enough stock for product %s", product.Name)
		}
		if product.Price == nil {
			return nil, Errorf(KindInvalid, "product %s has no price set", product.Name)
		}

		unitPrice := *product.Price
		lineTotal := unitPrice.Mul(decimal.NewFromInt32(item.Quantity))
		order.TotalAmount = order.TotalAmount.Add(lineTotal)
		order.Items = append(order.Items, OrderItem{
			ProductID:  item.ProductID,
			Quantity:   item.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: lineTotal,
		})
	}
	return order, nil
}

package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestNewCart_Totals(t *testing.T) {
	unpriced := priced(3, "Sample", "0", 4)
	unpriced.Price = nil
	cart := NewCart(9, []CartItem{
		{ProductID: 1, Quantity: 2, Product: priced(1, "A", "10.00", 5)},
		{ProductID: 3, Quantity: 1, Product: unpriced},
	})

	assert.Equal(t, int64(9), cart.UserID)
	assert.Equal(t, int64(3), cart.TotalQuantity)
	assert.True(t, decimal.RequireFromString("20").Equal(cart.TotalPrice))
}

func TestNewCart_Empty(t *testing.T) {
	cart := NewCart(1, nil)
	assert.NotNil(t, cart.Items)
	assert.True(t, cart.TotalPrice.IsZero())
}

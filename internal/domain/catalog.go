package domain

import (
	"github.com/shopspring/decimal"
)

// Category is a node of the catalog tree. The tree is kept as rows indexed
// by id; ParentID is a plain reference resolved by lookup.
type Category struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	ParentID *int64 `json:"parent_id"`
	IsActive bool   `json:"is_active"`
}

// Product is a catalog item. Price is nullable in storage; a product
// without a price cannot be checked out.
type Product struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	ImageURL    *string          `json:"image_url"`
	Stock       int32            `json:"stock"`
	CategoryID  int64            `json:"category_id"`
	SellerID    int64            `json:"seller_id"`
	Rating      float64          `json:"rating"`
	IsActive    bool             `json:"is_active"`
}

// ParentLookup returns the parent id of the category with the given id.
type ParentLookup func(id int64) (*int64, error)

// ValidateAncestry rejects a parent assignment that would make categoryID
// its own ancestor. The chain is walked by repeated lookup; a pre-existing
// loop above the new parent ends the walk.
func ValidateAncestry(categoryID int64, parentID *int64, lookup ParentLookup) error {
	seen := make(map[int64]struct{})
	for cur := parentID; cur != nil; {
		if *cur == categoryID {
			return NewError(KindInvalid, "category cannot be its own ancestor")
		}
		if _, ok := seen[*cur]; ok {
			return nil
		}
		seen[*cur] = struct{}{}

		next, err := lookup(*cur)
		if err != nil {
			return err
		}
		cur = next
	}
	return nil
}

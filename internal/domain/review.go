package domain

import "time"

// Review is a buyer's grade of a product. Only active reviews feed the
// product rating.
type Review struct {
	ID          int64     `json:"id"`
	UserID      int64     `json:"user_id"`
	ProductID   int64     `json:"product_id"`
	Comment     *string   `json:"comment"`
	CommentDate time.Time `json:"comment_date"`
	Grade       int16     `json:"grade"`
	IsActive    bool      `json:"is_active"`
}

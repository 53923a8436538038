package api

import (
	"fmt"
	"net/http"

	"storefront-service/internal/domain"
)

// ReviewInput defines the expected input for creating a review.
type ReviewInput struct {
	ProductID int64   `json:"product_id" validate:"required,gt=0"`
	Comment   *string `json:"comment" validate:"omitempty"`
	Grade     int16   `json:"grade" validate:"required,min=1,max=5"`
}

func (h *HTTPHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.reviewStore.ListReviews(r.Context())
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

func (h *HTTPHandler) ListProductReviews(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID", "product")
	if !ok {
		return
	}
	reviews, err := h.reviewStore.ListProductReviews(r.Context(), productID)
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve reviews")
		return
	}
	respondWithJSON(w, http.StatusOK, reviews)
}

func (h *HTTPHandler) CreateReview(w http.ResponseWriter, r *http.Request) {
	var input ReviewInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	created, err := h.reviewStore.CreateReview(r.Context(), &domain.Review{
		UserID:    UserFromContext(r.Context()).ID,
		ProductID: input.ProductID,
		Comment:   input.Comment,
		Grade:     input.Grade,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err, "create review")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	reviewID, ok := pathID(w, r, "reviewID", "review")
	if !ok {
		return
	}
	if _, err := h.reviewStore.DeleteReview(r.Context(), UserFromContext(r.Context()), reviewID); err != nil {
		h.respondWithDomainError(w, r, err, "delete review")
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Review with ID [%d] is deleted", reviewID),
	})
}

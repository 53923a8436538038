package api

import (
	"fmt"
	"net/http"

	"storefront-service/internal/domain"
)

// CategoryInput defines the expected input for creating or updating a category.
type CategoryInput struct {
	Name     string `json:"name" validate:"required,min=1,max=50"`
	ParentID *int64 `json:"parent_id" validate:"omitempty,gt=0"`
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.categoryStore.ListCategories(r.Context())
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve categories")
		return
	}
	respondWithJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) GetCategoryByID(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryID", "category")
	if !ok {
		return
	}
	category, err := h.categoryStore.GetCategoryByID(r.Context(), categoryID)
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve category")
		return
	}
	respondWithJSON(w, http.StatusOK, category)
}

func (h *HTTPHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	created, err := h.categoryStore.CreateCategory(r.Context(), &domain.Category{
		Name:     input.Name,
		ParentID: input.ParentID,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err, "create category")
		return
	}
	respondWithJSON(w, http.StatusCreated, created)
}

func (h *HTTPHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryID", "category")
	if !ok {
		return
	}
	var input CategoryInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	if input.ParentID != nil && *input.ParentID == categoryID {
		respondWithError(w, http.StatusBadRequest, "category cannot be its own parent")
		return
	}

	updated, err := h.categoryStore.UpdateCategory(r.Context(), &domain.Category{
		ID:       categoryID,
		Name:     input.Name,
		ParentID: input.ParentID,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err, "update category")
		return
	}
	respondWithJSON(w, http.StatusOK, updated)
}

func (h *HTTPHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	categoryID, ok := pathID(w, r, "categoryID", "category")
	if !ok {
		return
	}
	if err := h.categoryStore.DeleteCategory(r.Context(), categoryID); err != nil {
		h.respondWithDomainError(w, r, err, "delete category")
		return
	}
	respondWithJSON(w, http.StatusOK, StatusResponse{
		Status:  "success",
		Message: fmt.Sprintf("Category with ID [%d] is deleted", categoryID),
	})
}

package api

import (
	"net/http"

	"storefront-service/internal/domain"
)

// CartItemInput adds a product to the cart.
type CartItemInput struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int32 `json:"quantity" validate:"required,gte=1"`
}

// CartItemUpdateInput sets the quantity of a cart line.
type CartItemUpdateInput struct {
	Quantity int32 `json:"quantity" validate:"required,gte=1"`
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	items, err := h.cartStore.GetCartItems(r.Context(), user.ID)
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve cart")
		return
	}
	respondWithJSON(w, http.StatusOK, domain.NewCart(user.ID, items))
}

func (h *HTTPHandler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	var input CartItemInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	item, err := h.cartStore.AddCartItem(r.Context(), UserFromContext(r.Context()).ID, input.ProductID, input.Quantity)
	if err != nil {
		h.respondWithDomainError(w, r, err, "add cart item")
		return
	}
	respondWithJSON(w, http.StatusCreated, item)
}

func (h *HTTPHandler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID", "product")
	if !ok {
		return
	}
	var input CartItemUpdateInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	item, err := h.cartStore.UpdateCartItem(r.Context(), UserFromContext(r.Context()).ID, productID, input.Quantity)
	if err != nil {
		h.respondWithDomainError(w, r, err, "update cart item")
		return
	}
	respondWithJSON(w, http.StatusOK, item)
}

func (h *HTTPHandler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := pathID(w, r, "productID", "product")
	if !ok {
		return
	}
	if err := h.cartStore.RemoveCartItem(r.Context(), UserFromContext(r.Context()).ID, productID); err != nil {
		h.respondWithDomainError(w, r, err, "remove cart item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.cartStore.ClearCart(r.Context(), UserFromContext(r.Context()).ID); err != nil {
		h.respondWithDomainError(w, r, err, "clear cart")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

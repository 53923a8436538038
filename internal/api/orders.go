package api

import (
	"net/http"

	"go.uber.org/zap"

	"storefront-service/internal/domain"
	"storefront-service/internal/logger"
	"storefront-service/internal/store"
)

const defaultOrderPageSize = 10

// OrderListResponse is one page of a buyer's orders.
type OrderListResponse struct {
	Items    []domain.Order `json:"items"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	page, pageSize, ok := pageParams(w, r, defaultOrderPageSize, maxPageSize)
	if !ok {
		return
	}
	orders, total, err := h.orderStore.ListOrders(r.Context(), UserFromContext(r.Context()).ID, store.ListOrdersParams{
		Limit:  pageSize,
		Offset: (page - 1) * pageSize,
	})
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve orders")
		return
	}
	respondWithJSON(w, http.StatusOK, OrderListResponse{Items: orders, Total: total, Page: page, PageSize: pageSize})
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(w, r, "orderID", "order")
	if !ok {
		return
	}
	order, err := h.orderStore.GetOrder(r.Context(), UserFromContext(r.Context()).ID, orderID)
	if err != nil {
		h.respondWithDomainError(w, r, err, "retrieve order")
		return
	}
	respondWithJSON(w, http.StatusOK, order)
}

// Checkout turns the caller's cart into an order.
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	order, err := h.orderStore.Checkout(r.Context(), user.ID)
	if err != nil {
		if domain.IsKind(err, domain.KindInvalid) {
			logger.FromContext(r.Context(), h.logger).Info("checkout rejected", zap.Error(err))
		}
		h.respondWithDomainError(w, r, err, "checkout")
		return
	}
	respondWithJSON(w, http.StatusCreated, order)
}

package httpapi

import (
	"errors"
	"net/http"

	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
	"github.com/agamenonmacondo/avashop-sub000/internal/query"
	"github.com/go-chi/chi/v5"
)

type OrdersHandler struct {
	facade *query.Facade
}

func NewOrdersHandler(facade *query.Facade) *OrdersHandler {
	return &OrdersHandler{facade: facade}
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	views, err := h.facade.ListOrders(r.Context(), user.Email)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "orders_unavailable", "could not load orders")
		return
	}
	if views == nil {
		views = []*query.OrderView{}
	}

	respondJSON(w, http.StatusOK, views)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	orderID := chi.URLParam(r, "order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}

	view, err := h.facade.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "unknown order")
			return
		}
		respondError(w, http.StatusInternalServerError, "orders_unavailable", "could not load order")
		return
	}

	respondJSON(w, http.StatusOK, view)
}

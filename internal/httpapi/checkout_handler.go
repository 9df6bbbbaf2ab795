package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/checkout"
	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/agamenonmacondo/avashop-sub000/internal/gateway"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
	"github.com/agamenonmacondo/avashop-sub000/internal/reconcile"
)

type CheckoutHandler struct {
	intents    *checkout.IntentService
	reconciler *reconcile.Reconciler
}

func NewCheckoutHandler(intents *checkout.IntentService, reconciler *reconcile.Reconciler) *CheckoutHandler {
	return &CheckoutHandler{intents: intents, reconciler: reconciler}
}

type CheckoutRequestDTO struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Notes    string `json:"notes"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) CreateIntent(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	if user == nil {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing user authentication")
		return
	}

	var req CheckoutRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	shipping := domain.ShippingDetails{
		FullName: req.FullName,
		Phone:    req.Phone,
		Address:  req.Address,
		City:     req.City,
		Notes:    req.Notes,
	}

	handle, err := h.intents.CreateIntent(r.Context(), user.Email, shipping)
	if err != nil {
		var validation *checkout.ValidationError
		switch {
		case errors.As(err, &validation):
			respondJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:   "missing required fields",
				Code:    "validation_failed",
				Details: validation.Error(),
			})
		case errors.Is(err, checkout.ErrEmptyCart):
			respondError(w, http.StatusBadRequest, "empty_cart", "cart is empty")
		case errors.Is(err, checkout.ErrZeroTotal):
			respondError(w, http.StatusBadRequest, "zero_total", "order total must be positive")
		case errors.Is(err, gateway.ErrSigningUnavailable):
			// Retryable: no order row was created, the next attempt signs
			// a fresh id.
			respondError(w, http.StatusBadGateway, "gateway_unavailable", "payment gateway unavailable, please retry")
		default:
			log.Printf("checkout failed for %s: %v", user.Email, err)
			respondError(w, http.StatusInternalServerError, "checkout_failed", "could not start checkout")
		}
		return
	}

	respondJSON(w, http.StatusCreated, handle)
}

// GET /checkout/return?order_id=...&tx_status=...
//
// The customer lands here coming back from the gateway. The status query
// parameter is only a hint; the webhook remains the source of truth, but
// reconciling eagerly lets the confirmation page render the final state.
//
// Only an explicit approved/paid/declined hint is applied. An absent or
// unrecognized tx_status reads the current status instead: this endpoint
// is unauthenticated, and a stray visit must never push a pending order
// into a terminal state before the checksummed webhook arrives.
func (h *CheckoutHandler) PaymentReturn(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	if orderID == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return
	}
	txStatus := r.URL.Query().Get("tx_status")

	var order *domain.Order
	var err error
	if domain.StatusFromGatewayReport(txStatus) != domain.OrderStatusError {
		order, err = h.reconciler.Reconcile(r.Context(), orderID, txStatus, time.Now())
	} else {
		order, err = h.reconciler.Status(r.Context(), orderID)
	}
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			respondError(w, http.StatusNotFound, "order_not_found", "unknown order")
			return
		}
		log.Printf("redirect reconciliation failed for order %s: %v", orderID, err)
		respondError(w, http.StatusInternalServerError, "reconciliation_failed", "could not confirm payment status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"order_id": order.ID,
		"status":   order.Status.String(),
	})
}

package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/agamenonmacondo/avashop-sub000/internal/gateway"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
	"github.com/agamenonmacondo/avashop-sub000/internal/reconcile"
)

// WebhookHandler is the gateway's server-to-server entry point, the
// source of truth for payment outcomes.
type WebhookHandler struct {
	reconciler   *reconcile.Reconciler
	eventsSecret string
}

func NewWebhookHandler(reconciler *reconcile.Reconciler, eventsSecret string) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler, eventsSecret: eventsSecret}
}

// POST /webhooks/payment
//
// Response codes drive the gateway's redelivery: 2xx stops retries (also
// for idempotent no-ops), 5xx asks for another delivery. Bad checksums
// and unknown orders get 4xx because redelivering them cannot help.
func (h *WebhookHandler) HandleEvent(w http.ResponseWriter, r *http.Request) {
	var event gateway.WebhookEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if event.OrderID == "" || event.Status == "" {
		respondError(w, http.StatusBadRequest, "invalid_event", "order_id and status are required")
		return
	}

	if !gateway.VerifyEvent(&event, h.eventsSecret) {
		log.Printf("webhook checksum mismatch for order %s", event.OrderID)
		respondError(w, http.StatusUnauthorized, "invalid_checksum", "event checksum verification failed")
		return
	}

	order, err := h.reconciler.Reconcile(r.Context(), event.OrderID, event.Status, event.TransactionDate)
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			// Integrity anomaly: the gateway reports an order we never
			// created. Logged, never fabricated.
			log.Printf("webhook for unknown order %s", event.OrderID)
			respondError(w, http.StatusNotFound, "order_not_found", "unknown order")
			return
		}
		log.Printf("webhook reconciliation failed for order %s: %v", event.OrderID, err)
		respondError(w, http.StatusInternalServerError, "reconciliation_failed", "could not apply payment status")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"order_id": order.ID,
		"status":   order.Status.String(),
	})
}

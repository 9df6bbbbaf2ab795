package httpapi

import (
	"net/http"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/identity"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter assembles the HTTP surface: storefront API, gateway webhook,
// and the payment return URL.
func NewRouter(
	provider identity.Provider,
	carts *CartHandler,
	checkouts *CheckoutHandler,
	webhooks *WebhookHandler,
	orderViews *OrdersHandler,
	requestTimeout time.Duration,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	r.Use(middleware.Timeout(requestTimeout))
	r.Use(middleware.RequestSize(1 << 20))
	r.Use(middleware.Compress(5))
	r.Use(AuthMiddleware(provider))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/webhooks/payment", webhooks.HandleEvent)
	r.Get("/checkout/return", checkouts.PaymentReturn)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", carts.GetCart)
			r.Post("/items", carts.AddItem)
			r.Put("/items/{product_id}", carts.UpdateQuantity)
			r.Delete("/items/{product_id}", carts.RemoveItem)
		})
		r.Post("/checkout", checkouts.CreateIntent)
		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderViews.ListOrders)
			r.Get("/{order_id}", orderViews.GetOrder)
		})
	})

	return r
}

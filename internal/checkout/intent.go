package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/cart"
	"github.com/agamenonmacondo/avashop-sub000/internal/catalog"
	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/agamenonmacondo/avashop-sub000/internal/gateway"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
	"github.com/google/uuid"
)

// PaymentHandle is everything the storefront needs to hand the customer
// to the gateway's embedded checkout widget.
type PaymentHandle struct {
	OrderID        string                 `json:"order_id"`
	Amount         int64                  `json:"amount"`
	Currency       string                 `json:"currency"`
	Signature      string                 `json:"signature"`
	RedirectURL    string                 `json:"redirect_url"`
	CustomerEmail  string                 `json:"customer_email"`
	CustomerName   string                 `json:"customer_name"`
	BillingAddress domain.ShippingDetails `json:"billing_address"`
}

// IntentService turns a validated cart into a signed gateway request and
// a pending order row.
type IntentService struct {
	signer      gateway.Signer
	repo        orders.OrderRepository
	carts       *cart.Service
	catalog     catalog.Client
	pricing     domain.Pricing
	redirectURL string
	signTimeout time.Duration
}

func NewIntentService(signer gateway.Signer, repo orders.OrderRepository, carts *cart.Service, cat catalog.Client, pricing domain.Pricing, redirectURL string) *IntentService {
	return &IntentService{
		signer:      signer,
		repo:        repo,
		carts:       carts,
		catalog:     cat,
		pricing:     pricing,
		redirectURL: redirectURL,
		signTimeout: 10 * time.Second,
	}
}

// CreateIntent validates the checkout input, signs a fresh order id with
// the gateway, and persists the pending order before the customer leaves
// for payment.
//
// Ordering matters: the order row is written only after a successful
// sign, and a failed write is never retried against the same order id.
// One order id means at most one signing call and at most one row, so a
// double click can never double-charge.
func (s *IntentService) CreateIntent(ctx context.Context, ownerEmail string, shipping domain.ShippingDetails) (*PaymentHandle, error) {
	if missing := missingShippingFields(ownerEmail, shipping); len(missing) > 0 {
		return nil, &ValidationError{MissingFields: missing}
	}

	current, err := s.carts.Get(ctx, ownerEmail)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	if len(current.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	summary := s.pricing.Summarize(current.Lines)
	if summary.Total <= 0 {
		return nil, ErrZeroTotal
	}

	// Fresh id per attempt. A re-click after a failure signs a new id
	// instead of reusing the previous pending one.
	orderID := uuid.New().String()

	signCtx, cancel := context.WithTimeout(ctx, s.signTimeout)
	defer cancel()
	signature, err := s.signer.Sign(signCtx, orderID, summary.Total, summary.Currency)
	if err != nil {
		return nil, fmt.Errorf("sign payment for order %s: %w", orderID, err)
	}

	order := &domain.Order{
		ID:              orderID,
		OwnerEmail:      ownerEmail,
		Items:           s.snapshotItems(ctx, summary.Lines),
		Subtotal:        summary.Subtotal,
		TaxAmount:       summary.TaxAmount,
		ShippingCost:    summary.ShippingCost,
		Total:           summary.Total,
		Currency:        summary.Currency,
		Status:          domain.OrderStatusPending,
		ShippingDetails: &shipping,
		CreatedAt:       time.Now(),
	}
	if err := s.repo.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("persist pending order %s: %w", orderID, err)
	}

	return &PaymentHandle{
		OrderID:        orderID,
		Amount:         summary.Total,
		Currency:       summary.Currency,
		Signature:      signature,
		RedirectURL:    fmt.Sprintf("%s?order_id=%s", s.redirectURL, orderID),
		CustomerEmail:  ownerEmail,
		CustomerName:   shipping.FullName,
		BillingAddress: shipping,
	}, nil
}

// snapshotItems copies product name and image into the order so later
// catalog edits cannot rewrite a placed order. A catalog miss degrades to
// a nameless line rather than a failed checkout.
func (s *IntentService) snapshotItems(ctx context.Context, lines []domain.CartLine) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(lines))
	for _, line := range lines {
		item := domain.OrderItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		}
		if product, err := s.catalog.Product(ctx, line.ProductID); err == nil {
			item.ProductName = product.Name
			item.ImageURL = product.ImageURL
		} else {
			log.Printf("catalog snapshot failed for product %d: %v", line.ProductID, err)
		}
		items = append(items, item)
	}
	return items
}

func missingShippingFields(ownerEmail string, shipping domain.ShippingDetails) []string {
	var missing []string
	if ownerEmail == "" {
		missing = append(missing, "email")
	}
	if shipping.FullName == "" {
		missing = append(missing, "full_name")
	}
	if shipping.Phone == "" {
		missing = append(missing, "phone")
	}
	if shipping.Address == "" {
		missing = append(missing, "address")
	}
	if shipping.City == "" {
		missing = append(missing, "city")
	}
	return missing
}

package query

import (
	"context"
	"fmt"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
)

// OrderView is the read projection the account pages render. Shipping is
// pre-rendered into a single line so a missing blob shows as a
// placeholder instead of failing the whole page.
type OrderView struct {
	ID              string             `json:"id"`
	Items           []domain.OrderItem `json:"items"`
	Subtotal        int64              `json:"subtotal"`
	TaxAmount       int64              `json:"tax_amount"`
	ShippingCost    int64              `json:"shipping_cost"`
	Total           int64              `json:"total"`
	Currency        string             `json:"currency"`
	Status          string             `json:"status"`
	ShippingAddress string             `json:"shipping_address"`
	CreatedAt       time.Time          `json:"created_at"`
	PaidAt          *time.Time         `json:"paid_at,omitempty"`
}

// Facade is the read path for order history. No business logic.
type Facade struct {
	repo orders.OrderRepository
}

func NewFacade(repo orders.OrderRepository) *Facade {
	return &Facade{repo: repo}
}

func (f *Facade) GetOrder(ctx context.Context, orderID string) (*OrderView, error) {
	order, err := f.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return project(order), nil
}

func (f *Facade) ListOrders(ctx context.Context, ownerEmail string) ([]*OrderView, error) {
	found, err := f.repo.ListOrdersByEmail(ctx, ownerEmail)
	if err != nil {
		return nil, err
	}

	views := make([]*OrderView, 0, len(found))
	for _, order := range found {
		views = append(views, project(order))
	}
	return views, nil
}

func project(order *domain.Order) *OrderView {
	items := order.Items
	if items == nil {
		items = []domain.OrderItem{}
	}
	return &OrderView{
		ID:              order.ID,
		Items:           items,
		Subtotal:        order.Subtotal,
		TaxAmount:       order.TaxAmount,
		ShippingCost:    order.ShippingCost,
		Total:           order.Total,
		Currency:        order.Currency,
		Status:          order.Status.String(),
		ShippingAddress: renderShipping(order.ShippingDetails),
		CreatedAt:       order.CreatedAt,
		PaidAt:          order.PaidAt,
	}
}

func renderShipping(details *domain.ShippingDetails) string {
	if details == nil || (details.Address == "" && details.City == "") {
		return "not available"
	}
	if details.City == "" {
		return details.Address
	}
	return fmt.Sprintf("%s, %s", details.Address, details.City)
}

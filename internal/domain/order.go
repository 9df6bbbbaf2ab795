package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending  OrderStatus = "pending"
	OrderStatusApproved OrderStatus = "approved"
	OrderStatusPaid     OrderStatus = "paid"
	OrderStatusDeclined OrderStatus = "declined"
	OrderStatusError    OrderStatus = "error"
)

// IsTerminal reports whether no further transition is permitted.
// Every status except pending is terminal.
func (s OrderStatus) IsTerminal() bool {
	return s != OrderStatusPending
}

// IsSuccess reports whether the status represents a completed payment.
func (s OrderStatus) IsSuccess() bool {
	return s == OrderStatusApproved || s == OrderStatusPaid
}

// String representation (for logging)
func (s OrderStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether the order state machine allows moving
// from one status to another. The only legal moves are pending -> terminal.
func CanTransitionTo(from, to OrderStatus) bool {
	return from == OrderStatusPending && to.IsTerminal()
}

// StatusFromGatewayReport maps the status string reported by the payment
// gateway (webhook or client redirect) onto the order state machine.
// Unknown values map to error rather than being rejected, so a gateway
// contract change degrades to a recorded failure instead of a stuck order.
func StatusFromGatewayReport(reported string) OrderStatus {
	switch reported {
	case "APPROVED", "approved":
		return OrderStatusApproved
	case "PAID", "paid":
		return OrderStatusPaid
	case "DECLINED", "declined":
		return OrderStatusDeclined
	default:
		return OrderStatusError
	}
}

// OrderItem is a snapshot of a cart line at purchase time. Name and image
// are copied from the catalog so later edits cannot alter a placed order.
type OrderItem struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	ImageURL    string `json:"image_url,omitempty"`
	Quantity    int32  `json:"quantity"`
	UnitPrice   int64  `json:"unit_price"`
}

// ShippingDetails is the delivery information captured at checkout.
// Persisted as a JSON blob alongside the order; older orders may be
// missing some or all of it.
type ShippingDetails struct {
	FullName string `json:"full_name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	City     string `json:"city"`
	Notes    string `json:"notes,omitempty"`
}

// Order is the durable record of a purchase attempt. Created in pending
// status before the customer is handed to the payment gateway, mutated
// only by the reconciler, never deleted.
type Order struct {
	ID              string
	OwnerEmail      string
	Items           []OrderItem
	Subtotal        int64
	TaxAmount       int64
	ShippingCost    int64
	Total           int64
	Currency        string
	Status          OrderStatus
	ShippingDetails *ShippingDetails
	CreatedAt       time.Time
	UpdatedAt       time.Time
	PaidAt          *time.Time
}

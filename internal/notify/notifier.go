package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
)

type ChannelStatus string

const (
	ChannelSent   ChannelStatus = "sent"
	ChannelFailed ChannelStatus = "failed"
)

// Result reports each channel's outcome. A failed channel never affects
// the order: the purchase is already final by the time this runs.
type Result struct {
	Email         ChannelStatus `json:"email"`
	MerchantAlert ChannelStatus `json:"merchant_alert"`
	ReviewRequest ChannelStatus `json:"review_request"`
}

// Mailer delivers a single email. Fire-and-forget from the notifier's
// point of view.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Messenger delivers a templated message (merchant WhatsApp alert).
type Messenger interface {
	Send(ctx context.Context, to, template string, payload map[string]string) error
}

// ReviewScheduler queues a deferred review request for the purchased
// products.
type ReviewScheduler interface {
	Schedule(ctx context.Context, orderID, email string, products []orders.ReviewProduct, delay time.Duration) error
}

// Notifier fans out the post-purchase side effects. Channels run
// concurrently, share nothing, and fail independently.
type Notifier struct {
	mailer        Mailer
	messenger     Messenger
	scheduler     ReviewScheduler
	merchantPhone string
	internalCopy  string
	reviewDelay   time.Duration
}

func NewNotifier(mailer Mailer, messenger Messenger, scheduler ReviewScheduler, merchantPhone, internalCopy string) *Notifier {
	return &Notifier{
		mailer:        mailer,
		messenger:     messenger,
		scheduler:     scheduler,
		merchantPhone: merchantPhone,
		internalCopy:  internalCopy,
		reviewDelay:   7 * 24 * time.Hour,
	}
}

// NotifyOrderPaid runs the three-channel fan-out for a freshly paid
// order. The reconciler guarantees this is called at most once per order.
func (n *Notifier) NotifyOrderPaid(ctx context.Context, order *domain.Order) Result {
	var result Result
	var wg sync.WaitGroup

	wg.Add(3)
	go func() {
		defer wg.Done()
		result.Email = n.sendConfirmationEmail(ctx, order)
	}()
	go func() {
		defer wg.Done()
		result.MerchantAlert = n.sendMerchantAlert(ctx, order)
	}()
	go func() {
		defer wg.Done()
		result.ReviewRequest = n.scheduleReviewRequest(ctx, order)
	}()
	wg.Wait()

	log.Printf("order %s notifications: email=%s merchant=%s review=%s",
		order.ID, result.Email, result.MerchantAlert, result.ReviewRequest)
	return result
}

func (n *Notifier) sendConfirmationEmail(ctx context.Context, order *domain.Order) ChannelStatus {
	subject := fmt.Sprintf("Confirmación de tu pedido %s", order.ID)
	body := confirmationBody(order)

	if err := n.mailer.Send(ctx, order.OwnerEmail, subject, body); err != nil {
		log.Printf("confirmation email failed for order %s: %v", order.ID, err)
		return ChannelFailed
	}
	if n.internalCopy != "" {
		if err := n.mailer.Send(ctx, n.internalCopy, subject, body); err != nil {
			// Internal copy is best-effort on top of best-effort.
			log.Printf("internal copy email failed for order %s: %v", order.ID, err)
		}
	}
	return ChannelSent
}

func (n *Notifier) sendMerchantAlert(ctx context.Context, order *domain.Order) ChannelStatus {
	payload := map[string]string{
		"order_id": order.ID,
		"customer": order.OwnerEmail,
		"total":    fmt.Sprintf("%d %s", order.Total, order.Currency),
		"items":    itemSummary(order.Items),
	}
	if order.ShippingDetails != nil {
		payload["customer"] = order.ShippingDetails.FullName
		payload["address"] = fmt.Sprintf("%s, %s", order.ShippingDetails.Address, order.ShippingDetails.City)
		payload["phone"] = order.ShippingDetails.Phone
	}

	if err := n.messenger.Send(ctx, n.merchantPhone, "new_order_alert", payload); err != nil {
		log.Printf("merchant alert failed for order %s: %v", order.ID, err)
		return ChannelFailed
	}
	return ChannelSent
}

func (n *Notifier) scheduleReviewRequest(ctx context.Context, order *domain.Order) ChannelStatus {
	products := make([]orders.ReviewProduct, 0, len(order.Items))
	for _, item := range order.Items {
		products = append(products, orders.ReviewProduct{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
		})
	}

	if err := n.scheduler.Schedule(ctx, order.ID, order.OwnerEmail, products, n.reviewDelay); err != nil {
		log.Printf("review scheduling failed for order %s: %v", order.ID, err)
		return ChannelFailed
	}
	return ChannelSent
}

func confirmationBody(order *domain.Order) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Gracias por tu compra.\n\nPedido %s\n\n", order.ID)
	for _, item := range order.Items {
		name := item.ProductName
		if name == "" {
			name = fmt.Sprintf("Producto %d", item.ProductID)
		}
		fmt.Fprintf(&b, "  %s x%d: %d %s\n", name, item.Quantity, item.UnitPrice*int64(item.Quantity), order.Currency)
	}
	fmt.Fprintf(&b, "\nSubtotal: %d %s\n", order.Subtotal, order.Currency)
	fmt.Fprintf(&b, "IVA: %d %s\n", order.TaxAmount, order.Currency)
	if order.ShippingCost == 0 {
		fmt.Fprintf(&b, "Envío: gratis\n")
	} else {
		fmt.Fprintf(&b, "Envío: %d %s\n", order.ShippingCost, order.Currency)
	}
	fmt.Fprintf(&b, "Total: %d %s\n", order.Total, order.Currency)
	return b.String()
}

func itemSummary(items []domain.OrderItem) string {
	parts := make([]string, 0, len(items))
	for _, item := range items {
		name := item.ProductName
		if name == "" {
			name = fmt.Sprintf("#%d", item.ProductID)
		}
		parts = append(parts, fmt.Sprintf("%s x%d", name, item.Quantity))
	}
	return strings.Join(parts, ", ")
}

package reconcile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/agamenonmacondo/avashop-sub000/internal/notify"
	"github.com/agamenonmacondo/avashop-sub000/internal/orders"
)

// Notifier receives the order exactly once, on its fresh transition into
// a success state.
type Notifier interface {
	NotifyOrderPaid(ctx context.Context, order *domain.Order) notify.Result
}

// CartClearer empties the buyer's cart after a completed purchase.
type CartClearer interface {
	Clear(ctx context.Context, ownerID string) error
}

// Reconciler applies externally reported payment outcomes to orders.
// Both triggers converge here: the client redirect (a hint) and the
// gateway webhook (the source of truth). Delivery is at-least-once, so
// the whole function is written to be safely re-entrant per order.
type Reconciler struct {
	repo     orders.OrderRepository
	notifier Notifier
	carts    CartClearer
}

func NewReconciler(repo orders.OrderRepository, notifier Notifier, carts CartClearer) *Reconciler {
	return &Reconciler{
		repo:     repo,
		notifier: notifier,
		carts:    carts,
	}
}

// Status reads the order without applying any transition. Used when a
// caller has no trustworthy outcome to report.
func (r *Reconciler) Status(ctx context.Context, orderID string) (*domain.Order, error) {
	order, err := r.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("look up order %s: %w", orderID, err)
	}
	return order, nil
}

// Reconcile moves the order to the reported terminal status. Duplicate or
// racing reports are no-ops: the repository's conditional transition
// guarantees at most one caller sees applied=true, and that caller alone
// triggers the post-purchase fan-out.
func (r *Reconciler) Reconcile(ctx context.Context, orderID, reportedStatus string, txTimestamp time.Time) (*domain.Order, error) {
	order, err := r.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		// Orders exist before any gateway handoff; a notification for an
		// unknown id is an integrity anomaly, never a reason to fabricate
		// an order.
		return nil, fmt.Errorf("reconcile order %s: %w", orderID, err)
	}

	if order.Status.IsTerminal() {
		return order, nil
	}

	target := domain.StatusFromGatewayReport(reportedStatus)
	var paidAt *time.Time
	if target.IsSuccess() {
		ts := txTimestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		paidAt = &ts
	}

	applied, err := r.repo.TransitionStatus(ctx, orderID, target, paidAt)
	if err != nil {
		// Surfaced so the webhook responds non-2xx and the gateway
		// redelivers.
		return nil, fmt.Errorf("transition order %s to %s: %w", orderID, target, err)
	}

	if !applied {
		// Lost the race to a concurrent reconciliation; the winner owns
		// the side effects.
		return r.repo.GetOrderByID(ctx, orderID)
	}

	order.Status = target
	order.PaidAt = paidAt
	log.Printf("order %s reconciled to %s", orderID, target)

	if target.IsSuccess() {
		if err := r.carts.Clear(ctx, order.OwnerEmail); err != nil {
			log.Printf("failed to clear cart for %s after order %s: %v", order.OwnerEmail, orderID, err)
		}
		// Failed channels are logged inside the notifier; they never roll
		// back the terminal status.
		_ = r.notifier.NotifyOrderPaid(ctx, order)
	}

	return order, nil
}

package orders

import (
	"context"
	"testing"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPendingOrder(id, email string) *domain.Order {
	return &domain.Order{
		ID:         id,
		OwnerEmail: email,
		Subtotal:   100_000,
		TaxAmount:  19_000,
		Total:      119_000,
		Currency:   "COP",
		Status:     domain.OrderStatusPending,
	}
}

func TestCreateOrder_RejectsDuplicateID(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newPendingOrder("id-1", "a@example.com")))
	err := repo.CreateOrder(ctx, newPendingOrder("id-1", "a@example.com"))
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.GetOrderByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestTransitionStatus_OnlyFromPending(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	require.NoError(t, repo.CreateOrder(ctx, newPendingOrder("id-1", "a@example.com")))

	now := time.Now()
	applied, err := repo.TransitionStatus(ctx, "id-1", domain.OrderStatusApproved, &now)
	require.NoError(t, err)
	assert.True(t, applied)

	// Any later transition attempt loses, whatever it targets.
	applied, err = repo.TransitionStatus(ctx, "id-1", domain.OrderStatusDeclined, nil)
	require.NoError(t, err)
	assert.False(t, applied)

	order, err := repo.GetOrderByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusApproved, order.Status)
	require.NotNil(t, order.PaidAt)
}

func TestTransitionStatus_UnknownOrder(t *testing.T) {
	repo := NewMemoryRepository()
	_, err := repo.TransitionStatus(context.Background(), "missing", domain.OrderStatusApproved, nil)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrdersByEmail_NewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	older := newPendingOrder("id-1", "a@example.com")
	older.CreatedAt = time.Now().Add(-time.Hour)
	newer := newPendingOrder("id-2", "a@example.com")
	newer.CreatedAt = time.Now()
	other := newPendingOrder("id-3", "b@example.com")

	require.NoError(t, repo.CreateOrder(ctx, older))
	require.NoError(t, repo.CreateOrder(ctx, newer))
	require.NoError(t, repo.CreateOrder(ctx, other))

	found, err := repo.ListOrdersByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "id-2", found[0].ID)
	assert.Equal(t, "id-1", found[1].ID)
}

func TestStoredOrderIsIsolatedFromCaller(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	order := newPendingOrder("id-1", "a@example.com")
	order.Items = []domain.OrderItem{{ProductID: 1, Quantity: 1, UnitPrice: 5_000}}
	require.NoError(t, repo.CreateOrder(ctx, order))

	order.Status = domain.OrderStatusError
	order.Items[0].Quantity = 99

	stored, err := repo.GetOrderByID(ctx, "id-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, stored.Status)
	assert.Equal(t, int32(1), stored.Items[0].Quantity)
}

func TestReviewRequests_DueFilterAndLimit(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()

	for i, due := range []time.Duration{-3 * time.Minute, -2 * time.Minute, -time.Minute, time.Hour} {
		require.NoError(t, repo.EnqueueReviewRequest(ctx, &ReviewRequest{
			ID:      string(rune('a' + i)),
			OrderID: "order-1",
			Email:   "a@example.com",
			DueAt:   time.Now().Add(due),
		}))
	}

	due, err := repo.DueReviewRequests(ctx, 2)
	require.NoError(t, err)
	require.Len(t, due, 2, "limit applies after filtering")
	assert.Equal(t, "a", due[0].ID, "oldest due first")
	assert.Equal(t, "b", due[1].ID)

	assert.ErrorIs(t, repo.MarkReviewRequestPublished(ctx, "missing"), ErrReviewRequestNotFound)

	require.NoError(t, repo.MarkReviewRequestPublished(ctx, "a"))
	due, err = repo.DueReviewRequests(ctx, 10)
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, "b", due[0].ID)
}

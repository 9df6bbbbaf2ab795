package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
)

// MemoryRepository implements OrderRepository with in-memory storage.
// Used by unit tests and local development runs without Postgres. The
// mutex gives it the same conditional-transition semantics as the SQL
// implementation.
type MemoryRepository struct {
	mu      sync.RWMutex
	orders  map[string]*domain.Order
	reviews map[string]*ReviewRequest
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		orders:  make(map[string]*domain.Order),
		reviews: make(map[string]*ReviewRequest),
	}
}

func (r *MemoryRepository) CreateOrder(_ context.Context, order *domain.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.orders[order.ID]; exists {
		return ErrDuplicateOrder
	}

	stored := *order
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.UpdatedAt = stored.CreatedAt
	stored.Items = append([]domain.OrderItem(nil), order.Items...)
	r.orders[order.ID] = &stored
	return nil
}

func (r *MemoryRepository) GetOrderByID(_ context.Context, id string) (*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, exists := r.orders[id]
	if !exists {
		return nil, ErrOrderNotFound
	}
	dup := *order
	dup.Items = append([]domain.OrderItem(nil), order.Items...)
	return &dup, nil
}

func (r *MemoryRepository) ListOrdersByEmail(_ context.Context, email string) ([]*domain.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []*domain.Order
	for _, order := range r.orders {
		if order.OwnerEmail == email {
			dup := *order
			dup.Items = append([]domain.OrderItem(nil), order.Items...)
			result = append(result, &dup)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) TransitionStatus(_ context.Context, id string, status domain.OrderStatus, paidAt *time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, exists := r.orders[id]
	if !exists {
		return false, ErrOrderNotFound
	}
	if order.Status != domain.OrderStatusPending {
		return false, nil
	}

	order.Status = status
	order.PaidAt = paidAt
	order.UpdatedAt = time.Now()
	return true, nil
}

func (r *MemoryRepository) EnqueueReviewRequest(_ context.Context, req *ReviewRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *req
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	stored.Products = append([]ReviewProduct(nil), req.Products...)
	r.reviews[req.ID] = &stored
	return nil
}

func (r *MemoryRepository) DueReviewRequests(_ context.Context, limit int) ([]*ReviewRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	now := time.Now()
	var result []*ReviewRequest
	for _, req := range r.reviews {
		if !req.Published && !req.DueAt.After(now) {
			dup := *req
			result = append(result, &dup)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DueAt.Before(result[j].DueAt)
	})
	if len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (r *MemoryRepository) MarkReviewRequestPublished(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, exists := r.reviews[id]
	if !exists {
		return ErrReviewRequestNotFound
	}
	req.Published = true
	return nil
}

func (r *MemoryRepository) RunMigrations(*Credentials) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}

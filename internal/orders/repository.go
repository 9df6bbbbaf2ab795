package orders

import (
	"context"
	"errors"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrDuplicateOrder        = errors.New("order with this id already exists")
	ErrReviewRequestNotFound = errors.New("review request not found")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	MigrationsDirPath string
}

// ReviewProduct is the slice of an order item carried into a deferred
// review request.
type ReviewProduct struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
}

// ReviewRequest is an outbox row for a deferred review-request delivery.
// Rows become publishable once DueAt passes; publication is at-least-once.
type ReviewRequest struct {
	ID        string
	OrderID   string
	Email     string
	Products  []ReviewProduct
	DueAt     time.Time
	CreatedAt time.Time
	Published bool
}

type OrderRepository interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id string) (*domain.Order, error)
	ListOrdersByEmail(ctx context.Context, email string) ([]*domain.Order, error)

	// TransitionStatus applies pending -> status atomically. Returns
	// (false, nil) when the order is already terminal, so racing
	// reconciliation attempts resolve to exactly one applied transition.
	TransitionStatus(ctx context.Context, id string, status domain.OrderStatus, paidAt *time.Time) (bool, error)

	EnqueueReviewRequest(ctx context.Context, req *ReviewRequest) error
	DueReviewRequests(ctx context.Context, limit int) ([]*ReviewRequest, error)
	MarkReviewRequestPublished(ctx context.Context, id string) error

	RunMigrations(*Credentials) error
	Close() error
}

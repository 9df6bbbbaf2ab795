package cart

import (
	"context"
	"errors"

	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
)

var (
	ErrCartNotFound = errors.New("cart not found")
	ErrLineNotFound = errors.New("line not found in cart")
)

// CartRepository is the durable mirror of in-memory carts, one row per
// owner. Carts are ephemeral state: replace-whole-cart writes are fine.
type CartRepository interface {
	GetCart(ctx context.Context, ownerID string) (*domain.Cart, error)
	ReplaceCart(ctx context.Context, cart *domain.Cart) error
	DeleteCart(ctx context.Context, ownerID string) error
}

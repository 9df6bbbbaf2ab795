package checkout

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrEmptyCart = errors.New("cart is empty, nothing to check out")
	ErrZeroTotal = errors.New("order total must be positive")
)

// ValidationError lists the missing checkout fields so the storefront can
// highlight each one. Blocks progression; produces no side effects.
type ValidationError struct {
	MissingFields []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing required fields: %s", strings.Join(e.MissingFields, ", "))
}

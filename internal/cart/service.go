package cart

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/agamenonmacondo/avashop-sub000/internal/cache"
	"github.com/agamenonmacondo/avashop-sub000/internal/catalog"
	"github.com/agamenonmacondo/avashop-sub000/internal/domain"
	"golang.org/x/sync/singleflight"
)

// StockNotice tells the caller a requested quantity was clamped to the
// available stock. Informational only, never an error.
type StockNotice struct {
	ProductID int64 `json:"product_id"`
	Requested int32 `json:"requested"`
	Available int32 `json:"available"`
}

// Service is the authoritative cart store. Mutations apply to the
// in-memory cart first and are mirrored to the repository on a debounce
// timer, so rapid quantity changes coalesce into a single write and a
// repository outage never blocks shopping.
type Service struct {
	repo     CartRepository
	cache    cache.CartCache
	catalog  catalog.Client
	debounce time.Duration
	sfg      singleflight.Group // Prevents cache stampede on load

	mu     sync.Mutex
	carts  map[string]*domain.Cart
	timers map[string]*time.Timer
	dirty  map[string]bool
}

func NewService(repo CartRepository, cartCache cache.CartCache, cat catalog.Client) *Service {
	return &Service{
		repo:     repo,
		cache:    cartCache,
		catalog:  cat,
		debounce: time.Second,
		carts:    make(map[string]*domain.Cart),
		timers:   make(map[string]*time.Timer),
		dirty:    make(map[string]bool),
	}
}

// Get returns the owner's cart, loading it from cache/repository if this
// is the first touch for the owner.
func (s *Service) Get(ctx context.Context, ownerID string) (*domain.Cart, error) {
	s.mu.Lock()
	if cart, ok := s.carts[ownerID]; ok {
		snapshot := copyCart(cart)
		s.mu.Unlock()
		return snapshot, nil
	}
	s.mu.Unlock()

	return s.LoadForOwner(ctx, ownerID)
}

// LoadForOwner fetches the remote cart and replaces any local state for
// the owner. Remote is authoritative once an identity is known.
func (s *Service) LoadForOwner(ctx context.Context, ownerID string) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(ownerID, func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, ownerID)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			log.Printf("cart cache get error: %v", err) // log cache error but continue
		}

		cart, errGet := s.repo.GetCart(ctx, ownerID)
		if errGet != nil && errors.Is(errGet, ErrCartNotFound) {
			now := time.Now()
			return &domain.Cart{
				OwnerID:   ownerID,
				Lines:     nil,
				CreatedAt: now,
				UpdatedAt: now,
			}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			errSet := s.cache.Set(context.Background(), ownerID, cart)
			if errSet != nil {
				log.Printf("cart cache set error: %v", errSet)
			}
		}()

		return cart, nil
	})
	if err != nil {
		return nil, err
	}

	loaded := v.(*domain.Cart)
	s.mu.Lock()
	s.carts[ownerID] = copyCart(loaded)
	s.mu.Unlock()

	return copyCart(loaded), nil
}

// Add appends a line or increments an existing one, clamped to the
// catalog's available stock.
func (s *Service) Add(ctx context.Context, ownerID string, productID int64, quantity int32, unitPrice int64) (*domain.Cart, *StockNotice, error) {
	if quantity <= 0 || unitPrice < 0 {
		return nil, nil, errors.New("quantity must be positive and price non-negative")
	}

	if _, err := s.Get(ctx, ownerID); err != nil {
		return nil, nil, err
	}

	stock, stockKnown := s.availableStock(ctx, productID)

	s.mu.Lock()
	cart := s.carts[ownerID]

	requested := quantity
	if line := cart.Line(productID); line != nil {
		requested = line.Quantity + quantity
	}

	var notice *StockNotice
	applied := requested
	if stockKnown && requested > stock {
		applied = stock
		notice = &StockNotice{ProductID: productID, Requested: requested, Available: stock}
	}

	if line := cart.Line(productID); line != nil {
		line.Quantity = applied
	} else {
		cart.Lines = append(cart.Lines, domain.CartLine{
			ProductID: productID,
			Quantity:  applied,
			UnitPrice: unitPrice,
			AddedAt:   time.Now(),
		})
	}
	cart.UpdatedAt = time.Now()
	snapshot := copyCart(cart)
	s.markDirtyLocked(ownerID)
	s.mu.Unlock()

	s.invalidateCache(ownerID)
	return snapshot, notice, nil
}

// SetQuantity sets the line quantity; zero or less removes the line, more
// than the available stock clamps and returns a notice.
func (s *Service) SetQuantity(ctx context.Context, ownerID string, productID int64, quantity int32) (*domain.Cart, *StockNotice, error) {
	if _, err := s.Get(ctx, ownerID); err != nil {
		return nil, nil, err
	}

	var notice *StockNotice
	if quantity > 0 {
		if stock, known := s.availableStock(ctx, productID); known && quantity > stock {
			notice = &StockNotice{ProductID: productID, Requested: quantity, Available: stock}
			quantity = stock
		}
	}

	s.mu.Lock()
	cart := s.carts[ownerID]
	if quantity <= 0 {
		cart.RemoveLine(productID)
	} else if line := cart.Line(productID); line != nil {
		line.Quantity = quantity
	} else {
		s.mu.Unlock()
		return nil, nil, ErrLineNotFound
	}
	cart.UpdatedAt = time.Now()
	snapshot := copyCart(cart)
	s.markDirtyLocked(ownerID)
	s.mu.Unlock()

	s.invalidateCache(ownerID)
	return snapshot, notice, nil
}

func (s *Service) Remove(ctx context.Context, ownerID string, productID int64) (*domain.Cart, error) {
	cart, _, err := s.SetQuantity(ctx, ownerID, productID, 0)
	return cart, err
}

// Clear drops the owner's cart everywhere. Called once an order completes
// successfully, so this write is immediate rather than debounced.
func (s *Service) Clear(ctx context.Context, ownerID string) error {
	s.mu.Lock()
	delete(s.carts, ownerID)
	delete(s.dirty, ownerID)
	if timer, ok := s.timers[ownerID]; ok {
		timer.Stop()
		delete(s.timers, ownerID)
	}
	s.mu.Unlock()

	s.invalidateCache(ownerID)

	err := s.repo.DeleteCart(ctx, ownerID)
	if err != nil && !errors.Is(err, ErrCartNotFound) {
		return err
	}
	return nil
}

// Close flushes every dirty cart. Call on shutdown.
func (s *Service) Close() {
	s.mu.Lock()
	for owner, timer := range s.timers {
		timer.Stop()
		delete(s.timers, owner)
	}
	owners := make([]string, 0, len(s.dirty))
	for owner := range s.dirty {
		owners = append(owners, owner)
	}
	s.mu.Unlock()

	for _, owner := range owners {
		s.persist(owner)
	}
}

// markDirtyLocked schedules a debounced persist. Caller holds s.mu.
func (s *Service) markDirtyLocked(ownerID string) {
	s.dirty[ownerID] = true
	if timer, ok := s.timers[ownerID]; ok {
		timer.Reset(s.debounce)
		return
	}
	s.timers[ownerID] = time.AfterFunc(s.debounce, func() {
		s.persist(ownerID)
	})
}

func (s *Service) persist(ownerID string) {
	s.mu.Lock()
	delete(s.timers, ownerID)
	if !s.dirty[ownerID] {
		s.mu.Unlock()
		return
	}
	cart, ok := s.carts[ownerID]
	if !ok {
		delete(s.dirty, ownerID)
		s.mu.Unlock()
		return
	}
	snapshot := copyCart(cart)
	delete(s.dirty, ownerID)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.repo.ReplaceCart(ctx, snapshot); err != nil {
		// Cart stays usable; the next mutation schedules another attempt.
		log.Printf("cart persist error for owner %s: %v", ownerID, err)
		s.mu.Lock()
		s.dirty[ownerID] = true
		s.mu.Unlock()
	}
}

func (s *Service) availableStock(ctx context.Context, productID int64) (int32, bool) {
	product, err := s.catalog.Product(ctx, productID)
	if err != nil {
		// Unknown stock must not block the sale; the clamp is a UX aid,
		// the catalog remains the source of truth at fulfillment.
		log.Printf("catalog stock lookup failed for product %d: %v", productID, err)
		return 0, false
	}
	return product.Stock, true
}

func (s *Service) invalidateCache(ownerID string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, ownerID); err != nil {
		log.Printf("cart cache invalidate error: %v", err)
	}
}

func copyCart(cart *domain.Cart) *domain.Cart {
	dup := *cart
	dup.Lines = make([]domain.CartLine, len(cart.Lines))
	copy(dup.Lines, cart.Lines)
	return &dup
}

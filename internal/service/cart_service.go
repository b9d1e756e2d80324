package service

import (
	"context"
	"fmt"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

// CartService persists client carts. The stored payload is trusted as-is;
// every line is re-validated against live products only at checkout.
type CartService struct {
	carts repository.CartStore
}

func NewCartService(carts repository.CartStore) *CartService {
	return &CartService{carts: carts}
}

// Get returns the user's cart verbatim.
func (s *CartService) Get(ctx context.Context, userID string) ([]entity.CartLine, error) {
	return s.carts.Get(ctx, userID)
}

// Put replaces the user's cart wholesale.
func (s *CartService) Put(ctx context.Context, userID string, lines []entity.CartLine) error {
	for _, line := range lines {
		if line.Quantity < 0 {
			return fmt.Errorf("cart line %q has negative quantity: %w", line.Name, entity.ErrValidation)
		}
	}
	return s.carts.Put(ctx, userID, lines)
}

// Clear empties the user's cart.
func (s *CartService) Clear(ctx context.Context, userID string) error {
	return s.carts.Clear(ctx, userID)
}

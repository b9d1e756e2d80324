package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

// ProductService handles the catalog and inventory invariants. Role checks
// for the admin operations happen in the HTTP layer.
type ProductService struct {
	products repository.ProductRepository
}

func NewProductService(products repository.ProductRepository) *ProductService {
	return &ProductService{products: products}
}

// ListActive returns every product still offered for sale.
func (s *ProductService) ListActive(ctx context.Context) ([]entity.Product, error) {
	return s.products.FindActive(ctx)
}

// ListAll returns the whole catalog including soft-deleted products.
func (s *ProductService) ListAll(ctx context.Context) ([]entity.Product, error) {
	return s.products.FindAll(ctx)
}

// Get returns one product by id.
func (s *ProductService) Get(ctx context.Context, id string) (*entity.Product, error) {
	return s.products.FindByID(ctx, id)
}

// Resolve finds the authoritative product for a client-held item reference:
// exact id match first, then name+size. The fallback tolerates stale or
// legacy identifiers held by old client payloads.
func (s *ProductService) Resolve(ctx context.Context, id, name, size string) (*entity.Product, error) {
	if id != "" {
		if p, err := s.products.FindByID(ctx, id); err == nil {
			return p, nil
		}
	}
	if name != "" {
		if p, err := s.products.FindByNameSize(ctx, name, size); err == nil {
			return p, nil
		}
	}
	return nil, fmt.Errorf("product %q (%s): %w", name, size, entity.ErrNotFound)
}

// Create adds a product to the catalog.
func (s *ProductService) Create(ctx context.Context, p *entity.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.IsActive = true
	return s.products.Create(ctx, p)
}

// Update replaces the mutable fields of a product.
func (s *ProductService) Update(ctx context.Context, p *entity.Product) error {
	if err := validateProduct(p); err != nil {
		return err
	}
	return s.products.Update(ctx, p)
}

// Delete soft-deletes a product; orders referencing it keep their snapshots.
func (s *ProductService) Delete(ctx context.Context, id string) error {
	return s.products.Deactivate(ctx, id)
}

// DecreaseStock reserves qty units, failing when fewer are available.
func (s *ProductService) DecreaseStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive: %w", entity.ErrValidation)
	}
	return s.products.DecrementStock(ctx, id, qty)
}

// IncreaseStock returns qty units, reversing a previous reservation.
func (s *ProductService) IncreaseStock(ctx context.Context, id string, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("quantity must be positive: %w", entity.ErrValidation)
	}
	return s.products.RestoreStock(ctx, id, qty)
}

func validateProduct(p *entity.Product) error {
	if p.Name == "" {
		return fmt.Errorf("product name is required: %w", entity.ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("price must not be negative: %w", entity.ErrValidation)
	}
	if p.Stock < 0 {
		return fmt.Errorf("stock must not be negative: %w", entity.ErrValidation)
	}
	if p.Category != entity.CategorySoil && p.Category != entity.CategoryHogs {
		return fmt.Errorf("unknown category %q: %w", p.Category, entity.ErrValidation)
	}
	return nil
}

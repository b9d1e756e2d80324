package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository/inmem"
)

func newProductService(t *testing.T) *ProductService {
	t.Helper()
	store := inmem.NewStore()
	svc := NewProductService(store.Products())

	require.NoError(t, svc.Create(context.Background(), &entity.Product{
		ID: "soil-001", Name: "Premium Garden Soil", Size: "5kg",
		Price: 25, Stock: 10, Category: entity.CategorySoil,
	}))
	require.NoError(t, svc.Create(context.Background(), &entity.Product{
		ID: "soil-002", Name: "Premium Garden Soil", Size: "25kg",
		Price: 100, Stock: 3, Category: entity.CategorySoil,
	}))
	return svc
}

func TestResolvePrefersID(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	// The name+size points elsewhere, but a valid id wins.
	p, err := svc.Resolve(ctx, "soil-002", "Premium Garden Soil", "5kg")
	require.NoError(t, err)
	assert.Equal(t, "soil-002", p.ID)
}

func TestResolveFallsBackToNameSize(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	p, err := svc.Resolve(ctx, "stale-id", "Premium Garden Soil", "25kg")
	require.NoError(t, err)
	assert.Equal(t, "soil-002", p.ID)

	p, err = svc.Resolve(ctx, "", "Premium Garden Soil", "5kg")
	require.NoError(t, err)
	assert.Equal(t, "soil-001", p.ID)
}

func TestResolveNotFound(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, "stale-id", "Premium Garden Soil", "50kg")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = svc.Resolve(ctx, "", "", "")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestResolveSkipsInactive(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "soil-002"))

	// Lookup by id still works for order history, but name+size only
	// matches active products.
	_, err := svc.Resolve(ctx, "soil-002", "", "")
	assert.NoError(t, err)

	_, err = svc.Resolve(ctx, "stale-id", "Premium Garden Soil", "25kg")
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestStockMovement(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	require.NoError(t, svc.DecreaseStock(ctx, "soil-001", 4))
	p, err := svc.Get(ctx, "soil-001")
	require.NoError(t, err)
	assert.Equal(t, 6, p.Stock)
	assert.Equal(t, 4, p.Sold)

	require.NoError(t, svc.IncreaseStock(ctx, "soil-001", 4))
	p, err = svc.Get(ctx, "soil-001")
	require.NoError(t, err)
	assert.Equal(t, 10, p.Stock)
	assert.Equal(t, 0, p.Sold)
}

func TestDecreaseStockInsufficient(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	err := svc.DecreaseStock(ctx, "soil-002", 4)
	assert.ErrorIs(t, err, entity.ErrInsufficientStock)

	p, err := svc.Get(ctx, "soil-002")
	require.NoError(t, err)
	assert.Equal(t, 3, p.Stock)
}

func TestIncreaseStockFloorsSold(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	// Restores beyond what was sold never push sold negative.
	require.NoError(t, svc.IncreaseStock(ctx, "soil-001", 5))
	p, err := svc.Get(ctx, "soil-001")
	require.NoError(t, err)
	assert.Equal(t, 15, p.Stock)
	assert.Equal(t, 0, p.Sold)
}

func TestStockQuantityValidation(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.DecreaseStock(ctx, "soil-001", 0), entity.ErrValidation)
	assert.ErrorIs(t, svc.IncreaseStock(ctx, "soil-001", -1), entity.ErrValidation)
}

func TestCreateValidation(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	cases := []entity.Product{
		{Name: "", Price: 10, Stock: 1, Category: entity.CategorySoil},
		{Name: "Feed", Price: -1, Stock: 1, Category: entity.CategorySoil},
		{Name: "Feed", Price: 10, Stock: -1, Category: entity.CategorySoil},
		{Name: "Feed", Price: 10, Stock: 1, Category: "electronics"},
	}
	for _, p := range cases {
		assert.ErrorIs(t, svc.Create(ctx, &p), entity.ErrValidation, p.Name)
	}
}

func TestDeleteSoftDeletes(t *testing.T) {
	svc := newProductService(t)
	ctx := context.Background()

	require.NoError(t, svc.Delete(ctx, "soil-001"))

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "soil-002", active[0].ID)

	all, err := svc.ListAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	// Still resolvable by id for order snapshots.
	p, err := svc.Get(ctx, "soil-001")
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

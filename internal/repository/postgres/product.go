package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

type productRepository struct {
	db *sql.DB
}

// NewProductRepository creates a ProductRepository backed by Postgres.
func NewProductRepository(db *sql.DB) repository.ProductRepository {
	return &productRepository{db: db}
}

const productColumns = "id, name, size, price, stock, sold, description, image, category, is_active"

func scanProduct(row interface{ Scan(...any) error }) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(&p.ID, &p.Name, &p.Size, &p.Price, &p.Stock, &p.Sold, &p.Description, &p.Image, &p.Category, &p.IsActive)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) FindActive(ctx context.Context) ([]entity.Product, error) {
	return r.findMany(ctx, "WHERE is_active = TRUE")
}

func (r *productRepository) FindAll(ctx context.Context) ([]entity.Product, error) {
	return r.findMany(ctx, "")
}

func (r *productRepository) findMany(ctx context.Context, where string) ([]entity.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products "+where+" ORDER BY name, size")
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*entity.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", id))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product: %w", err)
	}
	return p, nil
}

func (r *productRepository) FindByNameSize(ctx context.Context, name, size string) (*entity.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE name = $1 AND size = $2 AND is_active = TRUE LIMIT 1",
		name, size))
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query product by name/size: %w", err)
	}
	return p, nil
}

func (r *productRepository) Create(ctx context.Context, p *entity.Product) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO products (id, name, size, price, stock, sold, description, image, category, is_active) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)",
		p.ID, p.Name, p.Size, p.Price, p.Stock, p.Sold, p.Description, p.Image, p.Category, p.IsActive,
	)
	if err != nil {
		return fmt.Errorf("failed to insert product: %w", err)
	}
	return nil
}

func (r *productRepository) Update(ctx context.Context, p *entity.Product) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE products SET name = $1, size = $2, price = $3, stock = $4, description = $5, image = $6, category = $7, is_active = $8 WHERE id = $9",
		p.Name, p.Size, p.Price, p.Stock, p.Description, p.Image, p.Category, p.IsActive, p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

func (r *productRepository) Deactivate(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE products SET is_active = FALSE WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate product: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// DecrementStock reserves qty units with a single conditional update, so two
// concurrent checkouts cannot both take the last unit.
func (r *productRepository) DecrementStock(ctx context.Context, id string, qty int) error {
	return decrementStock(ctx, r.db, id, qty)
}

// RestoreStock returns qty units to stock, flooring sold at zero.
func (r *productRepository) RestoreStock(ctx context.Context, id string, qty int) error {
	return restoreStock(ctx, r.db, id, qty)
}

// execer is satisfied by both *sql.DB and *sql.Tx so the order repository can
// reuse the stock updates inside its transactions.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func decrementStock(ctx context.Context, db execer, id string, qty int) error {
	res, err := db.ExecContext(ctx,
		"UPDATE products SET stock = stock - $1, sold = sold + $1 WHERE id = $2 AND stock >= $1",
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update product stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		var exists bool
		if err := db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)", id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check product existence: %w", err)
		}
		if !exists {
			return fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
		}
		return fmt.Errorf("product %s: %w", id, entity.ErrInsufficientStock)
	}
	return nil
}

func restoreStock(ctx context.Context, db execer, id string, qty int) error {
	res, err := db.ExecContext(ctx,
		"UPDATE products SET stock = stock + $1, sold = GREATEST(sold - $1, 0) WHERE id = $2",
		qty, id,
	)
	if err != nil {
		return fmt.Errorf("failed to restore product stock: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("product %s: %w", id, entity.ErrNotFound)
	}
	return nil
}

func (r *productRepository) Seed(ctx context.Context, products []entity.Product) error {
	var count int
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil // already seeded
	}

	for _, p := range products {
		if err := r.Create(ctx, &p); err != nil {
			return fmt.Errorf("failed to seed product %s: %w", p.ID, err)
		}
	}
	return nil
}

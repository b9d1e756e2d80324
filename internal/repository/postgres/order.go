package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository"
)

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates an OrderRepository backed by Postgres.
func NewOrderRepository(db *sql.DB) repository.OrderRepository {
	return &orderRepository{db: db}
}

// Create inserts the order with its items and reserves stock for every item
// in one transaction. Any item failing the conditional stock update aborts
// the whole order, so there is no partial fulfillment and no window where the
// order exists without its stock reserved.
func (r *orderRepository) Create(ctx context.Context, o *entity.Order) error {
	addr, err := entity.MarshalAddress(o.Address)
	if err != nil {
		return fmt.Errorf("failed to encode address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO orders (id, user_id, total, status, payment_method, shipping_method, courier, address, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)",
		o.ID, o.UserID, o.Total, o.Status, o.PaymentMethod, o.ShippingMethod, o.Courier, addr, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i, item := range o.Items {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO order_items (order_id, item_index, product_id, name, price, quantity, size, status) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
			o.ID, i, item.ProductID, item.Name, item.Price, item.Quantity, item.Size, item.Status,
		)
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		if err := decrementStock(ctx, tx, item.ProductID, item.Quantity); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

const orderColumns = "id, user_id, total, status, payment_method, shipping_method, courier, address, created_at"

func (r *orderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	var (
		o    entity.Order
		addr []byte
	)
	err := r.db.QueryRowContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1", id,
	).Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentMethod, &o.ShippingMethod, &o.Courier, &addr, &o.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, entity.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	if o.Address, err = entity.UnmarshalAddress(addr); err != nil {
		return nil, fmt.Errorf("failed to decode address: %w", err)
	}
	if err := r.loadItems(ctx, &o); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *orderRepository) FindByUser(ctx context.Context, userID string) ([]entity.Order, error) {
	return r.findMany(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
}

func (r *orderRepository) FindAll(ctx context.Context, f repository.OrderFilter) ([]entity.Order, error) {
	query := "SELECT o.id, o.user_id, o.total, o.status, o.payment_method, o.shipping_method, o.courier, o.address, o.created_at FROM orders o JOIN users u ON u.id = o.user_id WHERE TRUE"
	var args []any

	if f.Status != "" {
		args = append(args, f.Status)
		query += fmt.Sprintf(" AND o.status = $%d", len(args))
	}
	if f.ShippingMethod != "" {
		args = append(args, f.ShippingMethod)
		query += fmt.Sprintf(" AND o.shipping_method = $%d", len(args))
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		query += fmt.Sprintf(" AND (o.id ILIKE $%d OR u.name ILIKE $%d OR u.email ILIKE $%d)", len(args), len(args), len(args))
	}
	query += " ORDER BY o.created_at DESC"

	return r.findMany(ctx, query, args...)
}

func (r *orderRepository) FindStale(ctx context.Context, cutoff time.Time) ([]entity.Order, error) {
	return r.findMany(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE status = $1 AND created_at < $2 ORDER BY created_at",
		entity.StatusPlaced, cutoff)
}

func (r *orderRepository) findMany(ctx context.Context, query string, args ...any) ([]entity.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []entity.Order
	for rows.Next() {
		var (
			o    entity.Order
			addr []byte
		)
		if err := rows.Scan(&o.ID, &o.UserID, &o.Total, &o.Status, &o.PaymentMethod, &o.ShippingMethod, &o.Courier, &addr, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if o.Address, err = entity.UnmarshalAddress(addr); err != nil {
			return nil, fmt.Errorf("failed to decode address: %w", err)
		}
		orders = append(orders, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order rows: %w", err)
	}

	for i := range orders {
		if err := r.loadItems(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

func (r *orderRepository) loadItems(ctx context.Context, o *entity.Order) error {
	rows, err := r.db.QueryContext(ctx,
		"SELECT product_id, name, price, quantity, size, status, cancelled_at, cancellation_reason FROM order_items WHERE order_id = $1 ORDER BY item_index",
		o.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to query order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			item        entity.OrderItem
			cancelledAt sql.NullTime
		)
		if err := rows.Scan(&item.ProductID, &item.Name, &item.Price, &item.Quantity, &item.Size, &item.Status, &cancelledAt, &item.CancellationReason); err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if cancelledAt.Valid {
			t := cancelledAt.Time
			item.CancelledAt = &t
		}
		o.Items = append(o.Items, item)
	}
	return rows.Err()
}

func (r *orderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE orders SET status = $1 WHERE id = $2", status, id)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}
	return nil
}

// ApplyItemMutation persists a single-item cancel or edit: the stock
// adjustments, the updated item row, and the recomputed total/status all land
// in one transaction, so a failed reservation rolls the whole edit back.
func (r *orderRepository) ApplyItemMutation(ctx context.Context, m repository.ItemMutation) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, op := range m.StockOps {
		if op.Restore {
			err = restoreStock(ctx, tx, op.ProductID, op.Qty)
		} else {
			err = decrementStock(ctx, tx, op.ProductID, op.Qty)
		}
		if err != nil {
			return err
		}
	}

	var cancelledAt sql.NullTime
	if m.Item.CancelledAt != nil {
		cancelledAt = sql.NullTime{Time: *m.Item.CancelledAt, Valid: true}
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE order_items SET product_id = $1, name = $2, price = $3, quantity = $4, size = $5, status = $6, cancelled_at = $7, cancellation_reason = $8 WHERE order_id = $9 AND item_index = $10",
		m.Item.ProductID, m.Item.Name, m.Item.Price, m.Item.Quantity, m.Item.Size, m.Item.Status, cancelledAt, m.Item.CancellationReason, m.OrderID, m.ItemIndex,
	)
	if err != nil {
		return fmt.Errorf("failed to update order item: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrNotFound
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE orders SET total = $1, status = $2 WHERE id = $3",
		m.NewTotal, m.NewStatus, m.OrderID,
	)
	if err != nil {
		return fmt.Errorf("failed to update order total: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

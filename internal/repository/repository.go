package repository

import (
	"context"
	"time"

	"github.com/farmstore/backend/internal/entity"
)

// UserRepository handles persistence for Users.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	FindByID(ctx context.Context, id string) (*entity.User, error)
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	UpdateAddress(ctx context.Context, id string, addr *entity.Address) error
	FindAdmins(ctx context.Context) ([]entity.User, error)
	FindAll(ctx context.Context) ([]entity.User, error)
}

// ProductRepository handles persistence for Products. Stock mutations are
// single conditional updates so concurrent checkouts cannot oversell.
type ProductRepository interface {
	FindActive(ctx context.Context) ([]entity.Product, error)
	FindAll(ctx context.Context) ([]entity.Product, error)
	FindByID(ctx context.Context, id string) (*entity.Product, error)
	FindByNameSize(ctx context.Context, name, size string) (*entity.Product, error)
	Create(ctx context.Context, p *entity.Product) error
	Update(ctx context.Context, p *entity.Product) error
	Deactivate(ctx context.Context, id string) error
	// DecrementStock subtracts qty from stock and adds it to sold, failing
	// with entity.ErrInsufficientStock when stock < qty.
	DecrementStock(ctx context.Context, id string, qty int) error
	// RestoreStock adds qty back to stock and subtracts it from sold,
	// flooring sold at zero.
	RestoreStock(ctx context.Context, id string, qty int) error
	Seed(ctx context.Context, products []entity.Product) error
}

// StockOp is a stock adjustment applied inside an order mutation transaction.
// Restore=false reserves stock (conditional, may fail); Restore=true returns
// it.
type StockOp struct {
	ProductID string
	Qty       int
	Restore   bool
}

// ItemMutation carries the result of a single-item cancel or edit: the
// updated item, the recomputed order total, the (possibly unchanged) order
// status, and the stock adjustments that must land atomically with them.
type ItemMutation struct {
	OrderID   string
	ItemIndex int
	Item      entity.OrderItem
	NewTotal  float64
	NewStatus string
	StockOps  []StockOp
}

// OrderFilter narrows admin order listings.
type OrderFilter struct {
	Status         string
	ShippingMethod string
	Search         string
}

// OrderRepository handles persistence for Orders. Create and ApplyItemMutation
// adjust product stock in the same transaction as the order rows.
type OrderRepository interface {
	// Create persists the order with its items and reserves stock for each,
	// all in one transaction. Any item failing the stock check aborts the
	// whole order with entity.ErrInsufficientStock.
	Create(ctx context.Context, o *entity.Order) error
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	FindByUser(ctx context.Context, userID string) ([]entity.Order, error)
	FindAll(ctx context.Context, f OrderFilter) ([]entity.Order, error)
	UpdateStatus(ctx context.Context, id, status string) error
	// ApplyItemMutation persists an item cancel/edit together with its stock
	// adjustments; a failed reservation rolls everything back.
	ApplyItemMutation(ctx context.Context, m ItemMutation) error
	// FindStale returns orders still in "Order Placed" created before cutoff.
	FindStale(ctx context.Context, cutoff time.Time) ([]entity.Order, error)
}

// NotificationRepository handles persistence for Notifications.
type NotificationRepository interface {
	Create(ctx context.Context, n *entity.Notification) error
	FindByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]entity.Notification, error)
	MarkRead(ctx context.Context, id, userID string) error
	MarkAllRead(ctx context.Context, userID string) error
}

// CartStore persists a user's cart as an opaque whole; Put is a full replace.
type CartStore interface {
	Get(ctx context.Context, userID string) ([]entity.CartLine, error)
	Put(ctx context.Context, userID string, lines []entity.CartLine) error
	Clear(ctx context.Context, userID string) error
}

// EventLog appends order events to an audit trail.
type EventLog interface {
	Append(ctx context.Context, orderID string, events []entity.Event) error
	FindByOrder(ctx context.Context, orderID string) ([]entity.EventRecord, error)
}

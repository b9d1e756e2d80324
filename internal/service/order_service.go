package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/messaging"
	"github.com/farmstore/backend/internal/metrics"
	"github.com/farmstore/backend/internal/repository"
)

// OrderService orchestrates the order lifecycle: checkout, per-item cancel
// and edit, the legacy whole-order cancel, and admin status updates. Every
// mutation lands in the audit log and is published for the notifier.
type OrderService struct {
	orders    repository.OrderRepository
	users     repository.UserRepository
	carts     repository.CartStore
	eventLog  repository.EventLog
	publisher messaging.Publisher
	resolver  *ProductService
}

func NewOrderService(
	orders repository.OrderRepository,
	users repository.UserRepository,
	carts repository.CartStore,
	eventLog repository.EventLog,
	publisher messaging.Publisher,
	products *ProductService,
) *OrderService {
	return &OrderService{
		orders:    orders,
		users:     users,
		carts:     carts,
		eventLog:  eventLog,
		publisher: publisher,
		resolver:  products,
	}
}

// CheckoutItem is one requested line at checkout. ProductID may be a stale or
// legacy identifier; resolution falls back to name+size.
type CheckoutItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Size      string `json:"size"`
	Quantity  int    `json:"quantity"`
}

// CheckoutRequest is the payload of a checkout.
type CheckoutRequest struct {
	Items          []CheckoutItem  `json:"items"`
	PaymentMethod  string          `json:"payment_method"`
	ShippingMethod string          `json:"shipping_method"`
	Courier        string          `json:"courier,omitempty"`
	Address        *entity.Address `json:"address,omitempty"`
	SaveAddress    bool            `json:"save_address,omitempty"`
}

// Checkout turns the requested items into an order. Stock for every item is
// reserved inside the same transaction that persists the order, so either the
// whole order lands with its stock deducted or nothing does.
func (s *OrderService) Checkout(ctx context.Context, userID string, req CheckoutRequest) (*entity.Order, *entity.User, error) {
	if len(req.Items) == 0 {
		return nil, nil, fmt.Errorf("order must have at least one item: %w", entity.ErrValidation)
	}
	if !entity.ValidPaymentMethod(req.PaymentMethod) {
		return nil, nil, fmt.Errorf("unknown payment method %q: %w", req.PaymentMethod, entity.ErrValidation)
	}
	if !entity.ValidShippingMethod(req.ShippingMethod) {
		return nil, nil, fmt.Errorf("unknown shipping method %q: %w", req.ShippingMethod, entity.ErrValidation)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to resolve user: %w", err)
	}

	order := &entity.Order{
		ID:             uuid.NewString(),
		UserID:         userID,
		Status:         entity.StatusPlaced,
		PaymentMethod:  req.PaymentMethod,
		ShippingMethod: req.ShippingMethod,
		Courier:        req.Courier,
		CreatedAt:      time.Now(),
	}

	if req.Address != nil {
		order.Address = req.Address
	} else {
		order.Address = user.Address
	}

	// Resolve every item against the live catalog; price comes from the
	// product, never from the client payload.
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, nil, fmt.Errorf("quantity must be positive for %q: %w", item.Name, entity.ErrValidation)
		}

		product, err := s.resolver.Resolve(ctx, item.ProductID, item.Name, item.Size)
		if err != nil {
			metrics.CheckoutRejections.WithLabelValues("not_found").Inc()
			return nil, nil, err
		}
		if product.Stock < item.Quantity {
			metrics.CheckoutRejections.WithLabelValues("insufficient_stock").Inc()
			return nil, nil, fmt.Errorf("insufficient stock for %s (available: %d, requested: %d): %w",
				product.Name, product.Stock, item.Quantity, entity.ErrInsufficientStock)
		}

		order.Items = append(order.Items, entity.OrderItem{
			ProductID: product.ID,
			Name:      product.Name,
			Price:     product.Price,
			Quantity:  item.Quantity,
			Size:      product.Size,
			Status:    entity.ItemActive,
		})
	}
	order.Total = order.ActiveTotal()

	// The conditional stock updates inside Create are the authoritative
	// check; the pre-check above only produces friendlier messages.
	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, entity.ErrInsufficientStock) {
			metrics.CheckoutRejections.WithLabelValues("insufficient_stock").Inc()
		}
		return nil, nil, err
	}

	if err := s.carts.Clear(ctx, userID); err != nil {
		slog.Error("Failed to clear cart after checkout", "user_id", userID, "err", err)
	}

	var updatedUser *entity.User
	if req.SaveAddress && req.Address != nil {
		if err := s.users.UpdateAddress(ctx, userID, req.Address); err != nil {
			slog.Error("Failed to save address", "user_id", userID, "err", err)
		} else {
			user.Address = req.Address
			updatedUser = user
		}
	}

	event := entity.OrderPlaced{
		OrderID:        order.ID,
		UserID:         userID,
		Items:          order.Items,
		Total:          order.Total,
		PaymentMethod:  order.PaymentMethod,
		ShippingMethod: order.ShippingMethod,
		PlacedAt:       order.CreatedAt,
	}
	s.record(ctx, order.ID, messaging.TopicOrdersPlaced, event)

	metrics.OrdersPlaced.Inc()
	slog.Info("Order placed", "order_id", order.ID, "user_id", userID, "total", order.Total, "items", len(order.Items))
	return order, updatedUser, nil
}

// CancelItem cancels one active line item, restores its stock, recomputes the
// total, and cancels the whole order when no active items remain.
func (s *OrderService) CancelItem(ctx context.Context, userID, orderID string, itemIndex int, reason string) (*entity.Order, error) {
	order, item, err := s.loadMutableItem(ctx, userID, orderID, itemIndex)
	if err != nil {
		return nil, err
	}

	if reason == "" {
		reason = "Buyer request"
	}

	now := time.Now()
	updated := *item
	updated.Status = entity.ItemCancelled
	updated.CancelledAt = &now
	updated.CancellationReason = reason

	order.Items[itemIndex] = updated
	newTotal := order.ActiveTotal()
	newStatus := order.Status
	if !order.HasActiveItems() {
		newStatus = entity.StatusCancelled
	}

	mutation := repository.ItemMutation{
		OrderID:   orderID,
		ItemIndex: itemIndex,
		Item:      updated,
		NewTotal:  newTotal,
		NewStatus: newStatus,
		StockOps: []repository.StockOp{
			{ProductID: item.ProductID, Qty: item.Quantity, Restore: true},
		},
	}
	if err := s.orders.ApplyItemMutation(ctx, mutation); err != nil {
		return nil, err
	}
	order.Total = newTotal
	order.Status = newStatus

	event := entity.OrderItemCancelled{
		OrderID:        orderID,
		UserID:         userID,
		ItemIndex:      itemIndex,
		Item:           updated,
		Reason:         reason,
		RefundAmount:   updated.Subtotal(),
		PaymentMethod:  order.PaymentMethod,
		OrderCancelled: newStatus == entity.StatusCancelled,
		CancelledAt:    now,
	}
	s.record(ctx, orderID, messaging.TopicItemCancelled, event)

	metrics.ItemsCancelled.Inc()
	slog.Info("Order item cancelled", "order_id", orderID, "item_index", itemIndex, "reason", reason)
	return order, nil
}

// VariantChange switches an item to a different product or size.
type VariantChange struct {
	ProductID string `json:"product_id,omitempty"`
	Name      string `json:"name,omitempty"`
	Size      string `json:"size,omitempty"`
}

// EditItemRequest changes an item's quantity, its variant, or both.
type EditItemRequest struct {
	Quantity *int           `json:"quantity,omitempty"`
	Variant  *VariantChange `json:"variant,omitempty"`
}

// EditItem applies a quantity or variant change to an active line item.
// Increases reserve the missing stock before they land; decreases and variant
// switches restore what is no longer held.
func (s *OrderService) EditItem(ctx context.Context, userID, orderID string, itemIndex int, req EditItemRequest) (*entity.Order, error) {
	if req.Quantity == nil && req.Variant == nil {
		return nil, fmt.Errorf("nothing to edit: %w", entity.ErrValidation)
	}

	order, item, err := s.loadMutableItem(ctx, userID, orderID, itemIndex)
	if err != nil {
		return nil, err
	}

	oldQty := item.Quantity
	oldSubtotal := item.Subtotal()

	newQty := oldQty
	if req.Quantity != nil {
		if *req.Quantity <= 0 {
			return nil, fmt.Errorf("quantity must be positive: %w", entity.ErrValidation)
		}
		newQty = *req.Quantity
	}

	updated := *item
	updated.Quantity = newQty

	var ops []repository.StockOp
	switch {
	case req.Variant != nil:
		target, err := s.resolver.Resolve(ctx, req.Variant.ProductID, req.Variant.Name, req.Variant.Size)
		if err != nil {
			return nil, err
		}
		if target.ID == item.ProductID {
			// Same product after resolution; fall back to a plain
			// quantity change.
			ops = quantityOps(item.ProductID, oldQty, newQty)
		} else {
			if target.Stock < newQty {
				return nil, fmt.Errorf("insufficient stock for %s (available: %d, requested: %d): %w",
					target.Name, target.Stock, newQty, entity.ErrInsufficientStock)
			}
			ops = []repository.StockOp{
				{ProductID: item.ProductID, Qty: oldQty, Restore: true},
				{ProductID: target.ID, Qty: newQty},
			}
			updated.ProductID = target.ID
			updated.Name = target.Name
			updated.Size = target.Size
			updated.Price = target.Price
		}
	default:
		ops = quantityOps(item.ProductID, oldQty, newQty)
	}

	order.Items[itemIndex] = updated
	newTotal := order.ActiveTotal()

	mutation := repository.ItemMutation{
		OrderID:   orderID,
		ItemIndex: itemIndex,
		Item:      updated,
		NewTotal:  newTotal,
		NewStatus: order.Status,
		StockOps:  ops,
	}
	if err := s.orders.ApplyItemMutation(ctx, mutation); err != nil {
		return nil, err
	}
	order.Total = newTotal

	event := entity.OrderItemEdited{
		OrderID:         orderID,
		UserID:          userID,
		ItemIndex:       itemIndex,
		Item:            updated,
		OldQuantity:     oldQty,
		NewQuantity:     newQty,
		PriceDifference: updated.Subtotal() - oldSubtotal,
		EditedAt:        time.Now(),
	}
	s.record(ctx, orderID, messaging.TopicItemEdited, event)

	metrics.ItemsEdited.Inc()
	slog.Info("Order item edited", "order_id", orderID, "item_index", itemIndex, "old_qty", oldQty, "new_qty", newQty)
	return order, nil
}

// quantityOps returns the stock adjustment for a same-product quantity
// change; an unchanged quantity needs none.
func quantityOps(productID string, oldQty, newQty int) []repository.StockOp {
	switch {
	case newQty > oldQty:
		return []repository.StockOp{{ProductID: productID, Qty: newQty - oldQty}}
	case newQty < oldQty:
		return []repository.StockOp{{ProductID: productID, Qty: oldQty - newQty, Restore: true}}
	}
	return nil
}

// CancelOrder is the legacy whole-order cancellation: it restores stock for
// every item regardless of per-item state and marks the order cancelled.
func (s *OrderService) CancelOrder(ctx context.Context, userID, orderID string) (*entity.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, entity.ErrAccessDenied
	}
	if entity.Terminal(order.Status) {
		return nil, fmt.Errorf("order in status %q cannot be cancelled: %w", order.Status, entity.ErrValidation)
	}

	for _, item := range order.Items {
		if err := s.resolver.IncreaseStock(ctx, item.ProductID, item.Quantity); err != nil {
			slog.Error("Failed to restore stock", "order_id", orderID, "product_id", item.ProductID, "err", err)
		}
	}

	oldStatus := order.Status
	if err := s.orders.UpdateStatus(ctx, orderID, entity.StatusCancelled); err != nil {
		return nil, err
	}
	order.Status = entity.StatusCancelled

	event := entity.OrderStatusChanged{
		OrderID:   orderID,
		UserID:    order.UserID,
		OldStatus: oldStatus,
		NewStatus: entity.StatusCancelled,
		ChangedAt: time.Now(),
	}
	s.record(ctx, orderID, messaging.TopicStatusChanged, event)

	slog.Info("Order cancelled", "order_id", orderID)
	return order, nil
}

// UpdateStatus sets an order's status to any known value. Per the product's
// rules the admin transition is unconstrained: it does not enforce the
// delivery/pickup track or the current state.
func (s *OrderService) UpdateStatus(ctx context.Context, orderID, status string) (*entity.Order, error) {
	if !entity.ValidOrderStatus(status) {
		return nil, fmt.Errorf("unknown order status %q: %w", status, entity.ErrValidation)
	}

	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	oldStatus := order.Status
	if err := s.orders.UpdateStatus(ctx, orderID, status); err != nil {
		return nil, err
	}
	order.Status = status

	event := entity.OrderStatusChanged{
		OrderID:   orderID,
		UserID:    order.UserID,
		OldStatus: oldStatus,
		NewStatus: status,
		ChangedAt: time.Now(),
	}
	s.record(ctx, orderID, messaging.TopicStatusChanged, event)

	slog.Info("Order status updated", "order_id", orderID, "from", oldStatus, "to", status)
	return order, nil
}

// Get returns one order, visible to its owner and to admins.
func (s *OrderService) Get(ctx context.Context, callerID string, callerIsAdmin bool, orderID string) (*entity.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != callerID && !callerIsAdmin {
		return nil, entity.ErrAccessDenied
	}
	return order, nil
}

// ListForUser returns the caller's orders, newest first.
func (s *OrderService) ListForUser(ctx context.Context, userID string) ([]entity.Order, error) {
	return s.orders.FindByUser(ctx, userID)
}

// ListAll returns orders matching the admin filter.
func (s *OrderService) ListAll(ctx context.Context, f repository.OrderFilter) ([]entity.Order, error) {
	return s.orders.FindAll(ctx, f)
}

// Events returns the audit trail of an order.
func (s *OrderService) Events(ctx context.Context, orderID string) ([]entity.EventRecord, error) {
	return s.eventLog.FindByOrder(ctx, orderID)
}

// loadMutableItem loads an order and checks that the caller owns it, that the
// order is still mutable, and that the addressed item exists and is active.
func (s *OrderService) loadMutableItem(ctx context.Context, userID, orderID string, itemIndex int) (*entity.Order, *entity.OrderItem, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.UserID != userID {
		return nil, nil, entity.ErrAccessDenied
	}
	if entity.Terminal(order.Status) {
		return nil, nil, fmt.Errorf("order in status %q can no longer be modified: %w", order.Status, entity.ErrValidation)
	}
	if itemIndex < 0 || itemIndex >= len(order.Items) {
		return nil, nil, fmt.Errorf("item %d: %w", itemIndex, entity.ErrNotFound)
	}
	item := &order.Items[itemIndex]
	if item.Status != entity.ItemActive {
		return nil, nil, fmt.Errorf("item already cancelled: %w", entity.ErrValidation)
	}
	return order, item, nil
}

// record appends the event to the audit log and publishes it for the
// notifier. Both are best-effort after the mutation has committed.
func (s *OrderService) record(ctx context.Context, orderID, topic string, event entity.Event) {
	if err := s.eventLog.Append(ctx, orderID, []entity.Event{event}); err != nil {
		slog.Error("Failed to append order event", "order_id", orderID, "event", event.EventType(), "err", err)
	}
	if err := s.publisher.PublishEvent(ctx, topic, orderID, event); err != nil {
		slog.Error("Failed to publish order event", "order_id", orderID, "topic", topic, "err", err)
	}
}

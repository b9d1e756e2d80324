// Package notifier turns order events into notification records: one to the
// buyer and, for item mutations, one to every admin. It consumes events from
// the message bus, so each mutation fans out exactly once regardless of which
// code path produced it.
package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/messaging"
	"github.com/farmstore/backend/internal/metrics"
	"github.com/farmstore/backend/internal/repository"
)

// Notifier consumes order events and writes notification records.
type Notifier struct {
	notifications repository.NotificationRepository
	users         repository.UserRepository
	orders        repository.OrderRepository
}

func New(
	notifications repository.NotificationRepository,
	users repository.UserRepository,
	orders repository.OrderRepository,
) *Notifier {
	return &Notifier{notifications: notifications, users: users, orders: orders}
}

// Subscribe registers the notifier's handlers on the subscriber. Blocking
// subscribers (Kafka) are started on their own goroutines by the caller.
func (n *Notifier) Subscribe(ctx context.Context, sub messaging.Subscriber, group string) {
	go sub.Consume(ctx, messaging.TopicOrdersPlaced, group, decode(n.HandleOrderPlaced))
	go sub.Consume(ctx, messaging.TopicItemCancelled, group, decode(n.HandleItemCancelled))
	go sub.Consume(ctx, messaging.TopicItemEdited, group, decode(n.HandleItemEdited))
	go sub.Consume(ctx, messaging.TopicStatusChanged, group, decode(n.HandleStatusChanged))
}

// decode adapts a typed event handler to the raw payload consumer signature.
func decode[T any](handle func(ctx context.Context, event *T) error) func(ctx context.Context, payload []byte) error {
	return func(ctx context.Context, payload []byte) error {
		var event T
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("failed to unmarshal event: %w", err)
		}
		return handle(ctx, &event)
	}
}

// HandleOrderPlaced notifies the buyer that their order was received.
func (n *Notifier) HandleOrderPlaced(ctx context.Context, event *entity.OrderPlaced) error {
	return n.create(ctx, &entity.Notification{
		UserID:  event.UserID,
		Type:    entity.NotifOrderPlaced,
		Title:   "Order placed",
		Message: fmt.Sprintf("Your order has been placed. Total: ₱%.2f for %d item(s).", event.Total, len(event.Items)),
		OrderID: event.OrderID,
	})
}

// HandleItemCancelled notifies the buyer, with refund or deduction wording
// keyed off the payment method, and alerts every admin.
func (n *Notifier) HandleItemCancelled(ctx context.Context, event *entity.OrderItemCancelled) error {
	item := event.Item

	var message string
	if event.PaymentMethod == entity.PaymentCOD {
		message = fmt.Sprintf("%s (x%d) was cancelled. ₱%.2f has been deducted from your order total.",
			item.Name, item.Quantity, event.RefundAmount)
	} else {
		message = fmt.Sprintf("%s (x%d) was cancelled. ₱%.2f will be refunded via %s.",
			item.Name, item.Quantity, event.RefundAmount, event.PaymentMethod)
	}
	if event.OrderCancelled {
		message += " All items are cancelled, so the whole order is now cancelled."
	}

	err := n.create(ctx, &entity.Notification{
		UserID:  event.UserID,
		Type:    entity.NotifOrderCancelled,
		Title:   "Item cancelled",
		Message: message,
		OrderID: event.OrderID,
		Item:    &item,
		Metadata: entity.EncodeMeta(entity.CancellationMeta{
			RefundAmount:  event.RefundAmount,
			PaymentMethod: event.PaymentMethod,
			Reason:        event.Reason,
		}),
	})
	if err != nil {
		return err
	}

	return n.alertAdmins(ctx, event.OrderID, &item,
		fmt.Sprintf("Buyer cancelled %s (x%d) on an order. Reason: %s.", item.Name, item.Quantity, event.Reason))
}

// HandleItemEdited notifies the buyer with the price-delta direction and
// alerts every admin.
func (n *Notifier) HandleItemEdited(ctx context.Context, event *entity.OrderItemEdited) error {
	item := event.Item

	var message string
	switch {
	case event.PriceDifference > 0:
		message = fmt.Sprintf("%s was updated (x%d → x%d). ₱%.2f was added to your order total.",
			item.Name, event.OldQuantity, event.NewQuantity, event.PriceDifference)
	case event.PriceDifference < 0:
		message = fmt.Sprintf("%s was updated (x%d → x%d). ₱%.2f was deducted from your order total.",
			item.Name, event.OldQuantity, event.NewQuantity, -event.PriceDifference)
	default:
		message = fmt.Sprintf("%s was updated (x%d → x%d). Your order total is unchanged.",
			item.Name, event.OldQuantity, event.NewQuantity)
	}

	err := n.create(ctx, &entity.Notification{
		UserID:  event.UserID,
		Type:    entity.NotifOrderUpdated,
		Title:   "Order updated",
		Message: message,
		OrderID: event.OrderID,
		Item:    &item,
		Metadata: entity.EncodeMeta(entity.EditMeta{
			PriceDifference: event.PriceDifference,
			OldQuantity:     event.OldQuantity,
			NewQuantity:     event.NewQuantity,
		}),
	})
	if err != nil {
		return err
	}

	return n.alertAdmins(ctx, event.OrderID, &item,
		fmt.Sprintf("Buyer edited %s on an order (x%d → x%d).", item.Name, event.OldQuantity, event.NewQuantity))
}

// HandleStatusChanged notifies the buyer of the new status.
func (n *Notifier) HandleStatusChanged(ctx context.Context, event *entity.OrderStatusChanged) error {
	return n.create(ctx, &entity.Notification{
		UserID:  event.UserID,
		Type:    entity.NotifStatusChanged,
		Title:   "Order status updated",
		Message: fmt.Sprintf("Your order is now %q.", event.NewStatus),
		OrderID: event.OrderID,
		Metadata: entity.EncodeMeta(entity.StatusMeta{
			OldStatus: event.OldStatus,
			NewStatus: event.NewStatus,
		}),
	})
}

// RemindStaleOrders alerts admins about orders still awaiting processing a
// day after placement. Run from the midnight cron job.
func (n *Notifier) RemindStaleOrders(ctx context.Context) error {
	cutoff := time.Now().Add(-24 * time.Hour)
	stale, err := n.orders.FindStale(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("failed to find stale orders: %w", err)
	}

	for _, order := range stale {
		err := n.alertAdmins(ctx, order.ID, nil,
			fmt.Sprintf("Order placed on %s is still awaiting processing (total ₱%.2f).",
				order.CreatedAt.Format("2006-01-02"), order.Total))
		if err != nil {
			return err
		}
	}

	if len(stale) > 0 {
		slog.Info("Stale order reminders sent", "orders", len(stale))
	}
	return nil
}

// alertAdmins creates one admin_alert per admin user.
func (n *Notifier) alertAdmins(ctx context.Context, orderID string, item *entity.OrderItem, message string) error {
	admins, err := n.users.FindAdmins(ctx)
	if err != nil {
		return fmt.Errorf("failed to list admins: %w", err)
	}

	for _, admin := range admins {
		err := n.create(ctx, &entity.Notification{
			UserID:  admin.ID,
			Type:    entity.NotifAdminAlert,
			Title:   "Order activity",
			Message: message,
			OrderID: orderID,
			Item:    item,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (n *Notifier) create(ctx context.Context, notif *entity.Notification) error {
	notif.ID = uuid.NewString()
	notif.CreatedAt = time.Now()

	if err := n.notifications.Create(ctx, notif); err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	metrics.NotificationsCreated.WithLabelValues(notif.Type).Inc()
	return nil
}

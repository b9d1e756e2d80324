// Package metrics exposes the Prometheus counters tracked by the backend.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// OrdersPlaced counts successful checkouts.
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_orders_placed_total",
		Help: "Number of orders successfully placed.",
	})

	// ItemsCancelled counts individual line-item cancellations.
	ItemsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_items_cancelled_total",
		Help: "Number of order line items cancelled by buyers.",
	})

	// ItemsEdited counts individual line-item edits.
	ItemsEdited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "storefront_order_items_edited_total",
		Help: "Number of order line items edited by buyers.",
	})

	// NotificationsCreated counts notification records, labelled by type.
	NotificationsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_notifications_created_total",
		Help: "Number of notification records created, by type.",
	}, []string{"type"})

	// CheckoutRejections counts checkouts rejected by business rules.
	CheckoutRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "storefront_checkout_rejections_total",
		Help: "Number of rejected checkout attempts, by reason.",
	}, []string{"reason"})
)

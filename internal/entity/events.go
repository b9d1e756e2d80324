package entity

import "time"

// Event represents a domain event emitted by order mutations.
type Event interface {
	EventType() string
}

// EventRecord is an event persisted to the order audit log.
type EventRecord struct {
	ID        string    `json:"id"`
	OrderID   string    `json:"order_id"`
	EventType string    `json:"event_type"`
	Payload   []byte    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

// OrderPlaced is emitted when a checkout succeeds.
type OrderPlaced struct {
	OrderID        string      `json:"order_id"`
	UserID         string      `json:"user_id"`
	Items          []OrderItem `json:"items"`
	Total          float64     `json:"total"`
	PaymentMethod  string      `json:"payment_method"`
	ShippingMethod string      `json:"shipping_method"`
	PlacedAt       time.Time   `json:"placed_at"`
}

func (e OrderPlaced) EventType() string { return "OrderPlaced" }

// OrderItemCancelled is emitted when a buyer cancels a single line item.
type OrderItemCancelled struct {
	OrderID        string    `json:"order_id"`
	UserID         string    `json:"user_id"`
	ItemIndex      int       `json:"item_index"`
	Item           OrderItem `json:"item"`
	Reason         string    `json:"reason"`
	RefundAmount   float64   `json:"refund_amount"`
	PaymentMethod  string    `json:"payment_method"`
	OrderCancelled bool      `json:"order_cancelled"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

func (e OrderItemCancelled) EventType() string { return "OrderItemCancelled" }

// OrderItemEdited is emitted when a buyer changes an item's quantity or
// switches it to a different variant.
type OrderItemEdited struct {
	OrderID         string    `json:"order_id"`
	UserID          string    `json:"user_id"`
	ItemIndex       int       `json:"item_index"`
	Item            OrderItem `json:"item"`
	OldQuantity     int       `json:"old_quantity"`
	NewQuantity     int       `json:"new_quantity"`
	PriceDifference float64   `json:"price_difference"`
	EditedAt        time.Time `json:"edited_at"`
}

func (e OrderItemEdited) EventType() string { return "OrderItemEdited" }

// OrderStatusChanged is emitted when an admin advances an order's status.
type OrderStatusChanged struct {
	OrderID   string    `json:"order_id"`
	UserID    string    `json:"user_id"`
	OldStatus string    `json:"old_status"`
	NewStatus string    `json:"new_status"`
	ChangedAt time.Time `json:"changed_at"`
}

func (e OrderStatusChanged) EventType() string { return "OrderStatusChanged" }

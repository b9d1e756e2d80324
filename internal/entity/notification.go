package entity

import (
	"encoding/json"
	"time"
)

// Notification types.
const (
	NotifOrderPlaced    = "order_placed"
	NotifOrderCancelled = "order_cancelled"
	NotifOrderUpdated   = "order_updated"
	NotifStatusChanged  = "status_changed"
	NotifAdminAlert     = "admin_alert"
)

// Notification is a user-facing message created once per order mutation event.
// Only IsRead changes after creation.
type Notification struct {
	ID        string          `json:"id"`
	UserID    string          `json:"user_id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	OrderID   string          `json:"order_id,omitempty"`
	Item      *OrderItem      `json:"item,omitempty"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	IsRead    bool            `json:"is_read"`
	CreatedAt time.Time       `json:"created_at"`
}

// CancellationMeta accompanies order_cancelled notifications.
type CancellationMeta struct {
	RefundAmount  float64 `json:"refund_amount"`
	PaymentMethod string  `json:"payment_method"`
	Reason        string  `json:"reason"`
}

// EditMeta accompanies order_updated notifications.
type EditMeta struct {
	PriceDifference float64 `json:"price_difference"`
	OldQuantity     int     `json:"old_quantity"`
	NewQuantity     int     `json:"new_quantity"`
}

// StatusMeta accompanies status_changed notifications.
type StatusMeta struct {
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// EncodeMeta serializes a typed metadata variant for storage.
func EncodeMeta(meta any) json.RawMessage {
	if meta == nil {
		return nil
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return nil
	}
	return raw
}

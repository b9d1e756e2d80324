package messaging

import "context"

// Topics carrying order events.
const (
	TopicOrdersPlaced  = "orders.placed"
	TopicItemCancelled = "orders.item_cancelled"
	TopicItemEdited    = "orders.item_edited"
	TopicStatusChanged = "orders.status_changed"
)

// Publisher defines an interface for publishing events to a message broker.
type Publisher interface {
	PublishEvent(ctx context.Context, topic string, key string, event any) error
}

// Subscriber defines an interface for subscribing to a message topic.
type Subscriber interface {
	Consume(ctx context.Context, topic string, groupID string, handler func(ctx context.Context, payload []byte) error)
}

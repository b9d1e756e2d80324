// Package inproc is an in-process message bus implementing the messaging
// interfaces. Handlers run synchronously on publish, which makes it suitable
// for tests and single-binary deployments without a broker.
package inproc

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/farmstore/backend/internal/messaging"
)

// Bus dispatches published events directly to registered handlers.
type Bus struct {
	mu       sync.RWMutex
	handlers map[string][]func(ctx context.Context, payload []byte) error
}

// NewBus creates an empty Bus.
func NewBus() *Bus {
	return &Bus{handlers: make(map[string][]func(ctx context.Context, payload []byte) error)}
}

var _ messaging.Publisher = (*Bus)(nil)
var _ messaging.Subscriber = (*Bus)(nil)

// PublishEvent marshals the event and invokes every handler registered for
// the topic before returning. Handler errors are logged, not propagated,
// matching broker consumer semantics.
func (b *Bus) PublishEvent(ctx context.Context, topic string, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	b.mu.RLock()
	handlers := append([]func(ctx context.Context, payload []byte) error(nil), b.handlers[topic]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, payload); err != nil {
			slog.Error("Error handling message", "topic", topic, "key", key, "err", err)
		}
	}
	return nil
}

// Consume registers the handler for a topic. The groupID is ignored; every
// registered handler sees every message.
func (b *Bus) Consume(_ context.Context, topic string, _ string, handler func(ctx context.Context, payload []byte) error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[topic] = append(b.handlers[topic], handler)
}

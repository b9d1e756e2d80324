package inproc

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	OrderID string `json:"order_id"`
}

func TestPublishDispatchesToTopicHandlers(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var got []testEvent
	bus.Consume(ctx, "orders.placed", "group", func(_ context.Context, payload []byte) error {
		var e testEvent
		if err := json.Unmarshal(payload, &e); err != nil {
			return err
		}
		got = append(got, e)
		return nil
	})

	var other int
	bus.Consume(ctx, "orders.item_edited", "group", func(context.Context, []byte) error {
		other++
		return nil
	})

	require.NoError(t, bus.PublishEvent(ctx, "orders.placed", "order-1", testEvent{OrderID: "order-1"}))

	require.Len(t, got, 1)
	assert.Equal(t, "order-1", got[0].OrderID)
	assert.Zero(t, other, "handler on another topic must not fire")
}

func TestPublishFansOutToAllHandlers(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var first, second int
	bus.Consume(ctx, "orders.placed", "a", func(context.Context, []byte) error { first++; return nil })
	bus.Consume(ctx, "orders.placed", "b", func(context.Context, []byte) error { second++; return nil })

	require.NoError(t, bus.PublishEvent(ctx, "orders.placed", "k", testEvent{}))
	assert.Equal(t, 1, first)
	assert.Equal(t, 1, second)
}

func TestHandlerErrorsAreNotPropagated(t *testing.T) {
	bus := NewBus()
	ctx := context.Background()

	var after int
	bus.Consume(ctx, "orders.placed", "a", func(context.Context, []byte) error { return errors.New("boom") })
	bus.Consume(ctx, "orders.placed", "b", func(context.Context, []byte) error { after++; return nil })

	assert.NoError(t, bus.PublishEvent(ctx, "orders.placed", "k", testEvent{}))
	assert.Equal(t, 1, after, "later handlers still run after a failure")
}

func TestPublishWithoutHandlers(t *testing.T) {
	bus := NewBus()
	assert.NoError(t, bus.PublishEvent(context.Background(), "orders.placed", "k", testEvent{}))
}

func TestPublishUnmarshalableEvent(t *testing.T) {
	bus := NewBus()
	assert.Error(t, bus.PublishEvent(context.Background(), "orders.placed", "k", make(chan int)))
}

package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farmstore/backend/internal/entity"
	"github.com/farmstore/backend/internal/repository/inmem"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	topics []string
	events []any
}

func (p *capturePublisher) PublishEvent(_ context.Context, topic string, _ string, event any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) last() (string, any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.topics) == 0 {
		return "", nil
	}
	return p.topics[len(p.topics)-1], p.events[len(p.events)-1]
}

type orderEnv struct {
	store     *inmem.Store
	orders    *OrderService
	products  *ProductService
	published *capturePublisher
}

func newOrderEnv(t *testing.T) *orderEnv {
	t.Helper()
	ctx := context.Background()

	store := inmem.NewStore()
	require.NoError(t, store.Users().Create(ctx, &entity.User{
		ID:    "buyer-1",
		Name:  "Maria Santos",
		Email: "maria@example.com",
		Role:  entity.RoleCustomer,
	}))
	require.NoError(t, store.Users().Create(ctx, &entity.User{
		ID:    "buyer-2",
		Name:  "Jose Cruz",
		Email: "jose@example.com",
		Role:  entity.RoleCustomer,
	}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: "soil-001", Name: "Premium Garden Soil", Size: "5kg",
		Price: 25, Stock: 10, Category: entity.CategorySoil, IsActive: true,
	}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: "hogs-001", Name: "Native Piglet", Size: "standard",
		Price: 400, Stock: 5, Category: entity.CategoryHogs, IsActive: true,
	}))
	require.NoError(t, store.Products().Create(ctx, &entity.Product{
		ID: "soil-002", Name: "Premium Garden Soil", Size: "25kg",
		Price: 100, Stock: 3, Category: entity.CategorySoil, IsActive: true,
	}))

	published := &capturePublisher{}
	products := NewProductService(store.Products())
	orders := NewOrderService(store.Orders(), store.Users(), store.Carts(), store.Events(), published, products)
	return &orderEnv{store: store, orders: orders, products: products, published: published}
}

func (e *orderEnv) stock(t *testing.T, id string) (stock, sold int) {
	t.Helper()
	p, err := e.store.Products().FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock, p.Sold
}

func (e *orderEnv) checkout(t *testing.T, userID string) *entity.Order {
	t.Helper()
	order, _, err := e.orders.Checkout(context.Background(), userID, CheckoutRequest{
		Items: []CheckoutItem{
			{ProductID: "soil-001", Quantity: 3},
			{ProductID: "hogs-001", Quantity: 1},
		},
		PaymentMethod:  entity.PaymentCOD,
		ShippingMethod: entity.ShippingDelivery,
	})
	require.NoError(t, err)
	return order
}

func TestCheckout(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	require.NoError(t, env.store.Carts().Put(ctx, "buyer-1", []entity.CartLine{{ProductID: "soil-001", Quantity: 3}}))

	order := env.checkout(t, "buyer-1")
	assert.Equal(t, 475.0, order.Total)
	assert.Equal(t, entity.StatusPlaced, order.Status)
	require.Len(t, order.Items, 2)
	assert.Equal(t, entity.ItemActive, order.Items[0].Status)
	assert.Equal(t, 25.0, order.Items[0].Price)

	stock, sold := env.stock(t, "soil-001")
	assert.Equal(t, 7, stock)
	assert.Equal(t, 3, sold)
	stock, sold = env.stock(t, "hogs-001")
	assert.Equal(t, 4, stock)
	assert.Equal(t, 1, sold)

	// Cart is cleared once the order lands.
	lines, err := env.store.Carts().Get(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, lines)

	topic, event := env.published.last()
	assert.Equal(t, "orders.placed", topic)
	placed, ok := event.(entity.OrderPlaced)
	require.True(t, ok)
	assert.Equal(t, order.ID, placed.OrderID)
	assert.Equal(t, 475.0, placed.Total)

	records, err := env.orders.Events(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "OrderPlaced", records[0].EventType)
}

func TestCheckoutIgnoresClientPrice(t *testing.T) {
	env := newOrderEnv(t)

	// Resolution by name+size when the client holds a stale id.
	order, _, err := env.orders.Checkout(context.Background(), "buyer-1", CheckoutRequest{
		Items:          []CheckoutItem{{ProductID: "deleted-id", Name: "Premium Garden Soil", Size: "25kg", Quantity: 2}},
		PaymentMethod:  entity.PaymentEwallet,
		ShippingMethod: entity.ShippingPickup,
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, "soil-002", order.Items[0].ProductID)
	assert.Equal(t, 100.0, order.Items[0].Price)
	assert.Equal(t, 200.0, order.Total)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	_, _, err := env.orders.Checkout(ctx, "buyer-1", CheckoutRequest{
		Items:          []CheckoutItem{{ProductID: "hogs-001", Quantity: 10}},
		PaymentMethod:  entity.PaymentCOD,
		ShippingMethod: entity.ShippingDelivery,
	})
	require.ErrorIs(t, err, entity.ErrInsufficientStock)

	// Nothing persisted, nothing reserved.
	orders, err := env.orders.ListForUser(ctx, "buyer-1")
	require.NoError(t, err)
	assert.Empty(t, orders)
	stock, sold := env.stock(t, "hogs-001")
	assert.Equal(t, 5, stock)
	assert.Equal(t, 0, sold)
}

func TestCheckoutPartialFailureReleasesStock(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	// Second line fails, so the first line's reservation must be undone.
	_, _, err := env.orders.Checkout(ctx, "buyer-1", CheckoutRequest{
		Items: []CheckoutItem{
			{ProductID: "soil-001", Quantity: 3},
			{ProductID: "hogs-001", Quantity: 10},
		},
		PaymentMethod:  entity.PaymentCOD,
		ShippingMethod: entity.ShippingDelivery,
	})
	require.ErrorIs(t, err, entity.ErrInsufficientStock)

	stock, sold := env.stock(t, "soil-001")
	assert.Equal(t, 10, stock)
	assert.Equal(t, 0, sold)
}

func TestCheckoutValidation(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	_, _, err := env.orders.Checkout(ctx, "buyer-1", CheckoutRequest{
		PaymentMethod: entity.PaymentCOD, ShippingMethod: entity.ShippingDelivery,
	})
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, _, err = env.orders.Checkout(ctx, "buyer-1", CheckoutRequest{
		Items:          []CheckoutItem{{ProductID: "soil-001", Quantity: 1}},
		PaymentMethod:  "crypto",
		ShippingMethod: entity.ShippingDelivery,
	})
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, _, err = env.orders.Checkout(ctx, "buyer-1", CheckoutRequest{
		Items:          []CheckoutItem{{ProductID: "soil-001", Quantity: 0}},
		PaymentMethod:  entity.PaymentCOD,
		ShippingMethod: entity.ShippingDelivery,
	})
	assert.ErrorIs(t, err, entity.ErrValidation)

	_, _, err = env.orders.Checkout(ctx, "buyer-1", CheckoutRequest{
		Items:          []CheckoutItem{{ProductID: "no-such", Name: "Ghost", Quantity: 1}},
		PaymentMethod:  entity.PaymentCOD,
		ShippingMethod: entity.ShippingDelivery,
	})
	assert.ErrorIs(t, err, entity.ErrNotFound)
}

func TestCheckoutSavesAddress(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()

	addr := &entity.Address{Line1: "123 Farm Rd", City: "Tarlac"}
	order, user, err := env.orders.Checkout(ctx, "buyer-1", CheckoutRequest{
		Items:          []CheckoutItem{{ProductID: "soil-001", Quantity: 1}},
		PaymentMethod:  entity.PaymentCOD,
		ShippingMethod: entity.ShippingDelivery,
		Address:        addr,
		SaveAddress:    true,
	})
	require.NoError(t, err)
	require.NotNil(t, order.Address)
	assert.Equal(t, "Tarlac", order.Address.City)

	require.NotNil(t, user)
	saved, err := env.store.Users().FindByID(ctx, "buyer-1")
	require.NoError(t, err)
	require.NotNil(t, saved.Address)
	assert.Equal(t, "123 Farm Rd", saved.Address.Line1)
}

func TestCancelItem(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	updated, err := env.orders.CancelItem(ctx, "buyer-1", order.ID, 0, "")
	require.NoError(t, err)

	assert.Equal(t, 400.0, updated.Total)
	assert.Equal(t, entity.StatusPlaced, updated.Status)
	assert.Equal(t, entity.ItemCancelled, updated.Items[0].Status)
	assert.Equal(t, "Buyer request", updated.Items[0].CancellationReason)
	assert.NotNil(t, updated.Items[0].CancelledAt)
	assert.Equal(t, entity.ItemActive, updated.Items[1].Status)

	stock, sold := env.stock(t, "soil-001")
	assert.Equal(t, 10, stock)
	assert.Equal(t, 0, sold)

	topic, event := env.published.last()
	assert.Equal(t, "orders.item_cancelled", topic)
	cancelled, ok := event.(entity.OrderItemCancelled)
	require.True(t, ok)
	assert.Equal(t, 75.0, cancelled.RefundAmount)
	assert.Equal(t, entity.PaymentCOD, cancelled.PaymentMethod)
	assert.False(t, cancelled.OrderCancelled)

	// The change is durable, not just on the returned copy.
	stored, err := env.store.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 400.0, stored.Total)
	assert.Equal(t, entity.ItemCancelled, stored.Items[0].Status)
}

func TestCancelLastItemCancelsOrder(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	_, err := env.orders.CancelItem(ctx, "buyer-1", order.ID, 0, "changed my mind")
	require.NoError(t, err)

	// An order in Cancelled status would reject further edits, but the
	// cancel that empties it is the one that puts it there.
	updated, err := env.orders.CancelItem(ctx, "buyer-1", order.ID, 1, "")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, updated.Status)
	assert.Equal(t, 0.0, updated.Total)
	assert.False(t, updated.HasActiveItems())

	_, event := env.published.last()
	cancelled, ok := event.(entity.OrderItemCancelled)
	require.True(t, ok)
	assert.True(t, cancelled.OrderCancelled)

	stock, _ := env.stock(t, "hogs-001")
	assert.Equal(t, 5, stock)
}

func TestCancelItemTwiceRejected(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	_, err := env.orders.CancelItem(ctx, "buyer-1", order.ID, 0, "")
	require.NoError(t, err)

	_, err = env.orders.CancelItem(ctx, "buyer-1", order.ID, 0, "")
	require.ErrorIs(t, err, entity.ErrValidation)

	// No double restore.
	stock, sold := env.stock(t, "soil-001")
	assert.Equal(t, 10, stock)
	assert.Equal(t, 0, sold)
}

func TestCancelItemAccessChecks(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	_, err := env.orders.CancelItem(ctx, "buyer-2", order.ID, 0, "")
	assert.ErrorIs(t, err, entity.ErrAccessDenied)

	_, err = env.orders.CancelItem(ctx, "buyer-1", order.ID, 5, "")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.orders.CancelItem(ctx, "buyer-1", "no-such-order", 0, "")
	assert.ErrorIs(t, err, entity.ErrNotFound)

	_, err = env.orders.UpdateStatus(ctx, order.ID, entity.StatusDelivered)
	require.NoError(t, err)
	_, err = env.orders.CancelItem(ctx, "buyer-1", order.ID, 0, "")
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestEditItemQuantityIncrease(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	five := 5
	updated, err := env.orders.EditItem(ctx, "buyer-1", order.ID, 0, EditItemRequest{Quantity: &five})
	require.NoError(t, err)

	assert.Equal(t, 5, updated.Items[0].Quantity)
	assert.Equal(t, 525.0, updated.Total)

	stock, sold := env.stock(t, "soil-001")
	assert.Equal(t, 5, stock)
	assert.Equal(t, 5, sold)

	_, event := env.published.last()
	edited, ok := event.(entity.OrderItemEdited)
	require.True(t, ok)
	assert.Equal(t, 3, edited.OldQuantity)
	assert.Equal(t, 5, edited.NewQuantity)
	assert.Equal(t, 50.0, edited.PriceDifference)
}

func TestEditItemQuantityDecrease(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	one := 1
	updated, err := env.orders.EditItem(ctx, "buyer-1", order.ID, 0, EditItemRequest{Quantity: &one})
	require.NoError(t, err)

	assert.Equal(t, 425.0, updated.Total)
	stock, sold := env.stock(t, "soil-001")
	assert.Equal(t, 9, stock)
	assert.Equal(t, 1, sold)

	_, event := env.published.last()
	edited, ok := event.(entity.OrderItemEdited)
	require.True(t, ok)
	assert.Equal(t, -50.0, edited.PriceDifference)
}

func TestEditItemInsufficientStock(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	fifty := 50
	_, err := env.orders.EditItem(ctx, "buyer-1", order.ID, 0, EditItemRequest{Quantity: &fifty})
	require.ErrorIs(t, err, entity.ErrInsufficientStock)

	// The failed edit changed nothing.
	stored, err := env.store.Orders().FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.Items[0].Quantity)
	assert.Equal(t, 475.0, stored.Total)
	stock, _ := env.stock(t, "soil-001")
	assert.Equal(t, 7, stock)
}

func TestEditItemVariantSwitch(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	two := 2
	updated, err := env.orders.EditItem(ctx, "buyer-1", order.ID, 0, EditItemRequest{
		Quantity: &two,
		Variant:  &VariantChange{Name: "Premium Garden Soil", Size: "25kg"},
	})
	require.NoError(t, err)

	item := updated.Items[0]
	assert.Equal(t, "soil-002", item.ProductID)
	assert.Equal(t, "25kg", item.Size)
	assert.Equal(t, 100.0, item.Price)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, 600.0, updated.Total)

	// Old variant fully restored, new one reserved.
	stock, sold := env.stock(t, "soil-001")
	assert.Equal(t, 10, stock)
	assert.Equal(t, 0, sold)
	stock, sold = env.stock(t, "soil-002")
	assert.Equal(t, 1, stock)
	assert.Equal(t, 2, sold)
}

func TestEditItemVariantSameProduct(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	// Resolving the "new" variant lands on the product already held; this
	// degrades to a plain quantity change.
	four := 4
	updated, err := env.orders.EditItem(ctx, "buyer-1", order.ID, 0, EditItemRequest{
		Quantity: &four,
		Variant:  &VariantChange{ProductID: "soil-001"},
	})
	require.NoError(t, err)
	assert.Equal(t, "soil-001", updated.Items[0].ProductID)
	assert.Equal(t, 4, updated.Items[0].Quantity)

	stock, _ := env.stock(t, "soil-001")
	assert.Equal(t, 6, stock)
}

func TestEditItemNothingToEdit(t *testing.T) {
	env := newOrderEnv(t)
	order := env.checkout(t, "buyer-1")

	_, err := env.orders.EditItem(context.Background(), "buyer-1", order.ID, 0, EditItemRequest{})
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestCancelOrder(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	updated, err := env.orders.CancelOrder(ctx, "buyer-1", order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusCancelled, updated.Status)

	stock, _ := env.stock(t, "soil-001")
	assert.Equal(t, 10, stock)
	stock, _ = env.stock(t, "hogs-001")
	assert.Equal(t, 5, stock)

	topic, _ := env.published.last()
	assert.Equal(t, "orders.status_changed", topic)

	_, err = env.orders.CancelOrder(ctx, "buyer-1", order.ID)
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestUpdateStatus(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	updated, err := env.orders.UpdateStatus(ctx, order.ID, entity.StatusPreparing)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusPreparing, updated.Status)

	_, event := env.published.last()
	changed, ok := event.(entity.OrderStatusChanged)
	require.True(t, ok)
	assert.Equal(t, entity.StatusPlaced, changed.OldStatus)
	assert.Equal(t, entity.StatusPreparing, changed.NewStatus)

	_, err = env.orders.UpdateStatus(ctx, order.ID, "Shipped")
	assert.ErrorIs(t, err, entity.ErrValidation)
}

func TestGetOrderVisibility(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	_, err := env.orders.Get(ctx, "buyer-1", false, order.ID)
	assert.NoError(t, err)

	_, err = env.orders.Get(ctx, "buyer-2", false, order.ID)
	assert.ErrorIs(t, err, entity.ErrAccessDenied)

	_, err = env.orders.Get(ctx, "admin-1", true, order.ID)
	assert.NoError(t, err)
}

func TestConcurrentCheckoutLastUnit(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.Products().Create(ctx, &entity.Product{
		ID: "hogs-002", Name: "Breeder Sow", Size: "standard",
		Price: 8000, Stock: 1, Category: entity.CategoryHogs, IsActive: true,
	}))

	req := CheckoutRequest{
		Items:          []CheckoutItem{{ProductID: "hogs-002", Quantity: 1}},
		PaymentMethod:  entity.PaymentCOD,
		ShippingMethod: entity.ShippingPickup,
	}

	errs := make(chan error, 2)
	var wg sync.WaitGroup
	for _, buyer := range []string{"buyer-1", "buyer-2"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := env.orders.Checkout(ctx, buyer, req)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, rejected int
	for err := range errs {
		if err == nil {
			ok++
		} else {
			require.ErrorIs(t, err, entity.ErrInsufficientStock)
			rejected++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, rejected)

	stock, sold := env.stock(t, "hogs-002")
	assert.Equal(t, 0, stock)
	assert.Equal(t, 1, sold)
}

func TestAuditTrailAccumulates(t *testing.T) {
	env := newOrderEnv(t)
	ctx := context.Background()
	order := env.checkout(t, "buyer-1")

	two := 2
	_, err := env.orders.EditItem(ctx, "buyer-1", order.ID, 0, EditItemRequest{Quantity: &two})
	require.NoError(t, err)
	_, err = env.orders.CancelItem(ctx, "buyer-1", order.ID, 0, "")
	require.NoError(t, err)
	_, err = env.orders.UpdateStatus(ctx, order.ID, entity.StatusBeingPacked)
	require.NoError(t, err)

	records, err := env.orders.Events(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, "OrderPlaced", records[0].EventType)
	assert.Equal(t, "OrderItemEdited", records[1].EventType)
	assert.Equal(t, "OrderItemCancelled", records[2].EventType)
	assert.Equal(t, "OrderStatusChanged", records[3].EventType)

	for _, rec := range records {
		assert.Equal(t, order.ID, rec.OrderID)
		assert.NotEmpty(t, rec.Payload)
		assert.WithinDuration(t, time.Now(), rec.CreatedAt, time.Minute)
	}
}

package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTerminal(t *testing.T) {
	terminal := []string{StatusOnTheWay, StatusDelivered, StatusPickedUp, StatusCancelled}
	for _, s := range terminal {
		assert.True(t, Terminal(s), s)
	}

	mutable := []string{StatusPlaced, StatusPreparing, StatusBeingPacked, StatusReadyForPickup}
	for _, s := range mutable {
		assert.False(t, Terminal(s), s)
	}
}

func TestValidOrderStatus(t *testing.T) {
	assert.True(t, ValidOrderStatus(StatusPlaced))
	assert.True(t, ValidOrderStatus(StatusPickedUp))
	assert.False(t, ValidOrderStatus("Shipped"))
	assert.False(t, ValidOrderStatus(""))
}

func TestActiveTotal(t *testing.T) {
	o := Order{
		Items: []OrderItem{
			{Price: 25, Quantity: 3, Status: ItemActive},
			{Price: 400, Quantity: 1, Status: ItemActive},
		},
	}
	assert.Equal(t, 475.0, o.ActiveTotal())

	o.Items[0].Status = ItemCancelled
	assert.Equal(t, 400.0, o.ActiveTotal())

	o.Items[1].Status = ItemCancelled
	assert.Equal(t, 0.0, o.ActiveTotal())
	assert.False(t, o.HasActiveItems())
}

func TestUserProjectionStripsHash(t *testing.T) {
	u := User{ID: "u1", Email: "a@b.c", PasswordHash: "secret"}
	assert.Empty(t, u.Projection().PasswordHash)
	assert.Equal(t, "secret", u.PasswordHash)
}

func TestAddressRoundTrip(t *testing.T) {
	raw, err := MarshalAddress(&Address{Line1: "123 Farm Rd", City: "Tarlac"})
	assert.NoError(t, err)

	addr, err := UnmarshalAddress(raw)
	assert.NoError(t, err)
	assert.Equal(t, "123 Farm Rd", addr.Line1)

	none, err := UnmarshalAddress(nil)
	assert.NoError(t, err)
	assert.Nil(t, none)
}

package entity

import (
	"encoding/json"
	"time"
)

// Role of a registered user.
const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

// Product categories carried by the store.
const (
	CategorySoil = "soil"
	CategoryHogs = "hogs"
)

// Payment methods accepted at checkout.
const (
	PaymentCOD     = "cod"
	PaymentEwallet = "ewallet"
	PaymentCard    = "card"
)

// Shipping methods.
const (
	ShippingPickup   = "pickup"
	ShippingDelivery = "delivery"
)

// Order status values. Delivery and pickup orders move along parallel tracks;
// either may end in Cancelled.
const (
	StatusPlaced         = "Order Placed"
	StatusPreparing      = "Preparing for Shipping"
	StatusOnTheWay       = "On The Way"
	StatusDelivered      = "Delivered"
	StatusBeingPacked    = "Being Packed"
	StatusReadyForPickup = "Ready for Pickup"
	StatusPickedUp       = "Picked Up"
	StatusCancelled      = "Cancelled"
)

// Order item status values.
const (
	ItemActive    = "active"
	ItemCancelled = "cancelled"
)

var orderStatuses = []string{
	StatusPlaced, StatusPreparing, StatusOnTheWay, StatusDelivered,
	StatusBeingPacked, StatusReadyForPickup, StatusPickedUp, StatusCancelled,
}

// ValidOrderStatus reports whether s is one of the known order statuses.
func ValidOrderStatus(s string) bool {
	for _, v := range orderStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ValidPaymentMethod reports whether m is an accepted payment method.
func ValidPaymentMethod(m string) bool {
	return m == PaymentCOD || m == PaymentEwallet || m == PaymentCard
}

// ValidShippingMethod reports whether m is an accepted shipping method.
func ValidShippingMethod(m string) bool {
	return m == ShippingPickup || m == ShippingDelivery
}

// Terminal reports whether an order in status s can no longer be cancelled
// or have its items mutated by the buyer.
func Terminal(s string) bool {
	switch s {
	case StatusOnTheWay, StatusDelivered, StatusPickedUp, StatusCancelled:
		return true
	}
	return false
}

// Address is a delivery address, stored on the user profile and snapshotted
// onto orders at checkout.
type Address struct {
	Line1    string `json:"line1"`
	City     string `json:"city"`
	Province string `json:"province"`
	ZipCode  string `json:"zip_code"`
	Phone    string `json:"phone"`
}

// User represents a registered account. The password hash never leaves the
// server; Projection strips it for API responses.
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	Address      *Address  `json:"address,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Projection returns a copy of the user safe to send to clients.
func (u *User) Projection() User {
	cp := *u
	cp.PasswordHash = ""
	return cp
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Product is a sellable item for a specific size variant. Stock and sold move
// together: decrementing stock by k increments sold by k, and restoring
// reverses both.
type Product struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Size        string  `json:"size"`
	Price       float64 `json:"price"`
	Stock       int     `json:"stock"`
	Sold        int     `json:"sold"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
	Category    string  `json:"category"`
	IsActive    bool    `json:"is_active"`
}

// CartLine is one entry in a user's cart. The server stores the payload
// verbatim; prices and quantities are re-validated against live products only
// at checkout.
type CartLine struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image"`
	Size      string  `json:"size"`
}

// OrderItem is a line item within an order, tracked independently so it can
// be cancelled or edited on its own.
type OrderItem struct {
	ProductID          string     `json:"product_id"`
	Name               string     `json:"name"`
	Price              float64    `json:"price"`
	Quantity           int        `json:"quantity"`
	Size               string     `json:"size"`
	Status             string     `json:"status"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	CancellationReason string     `json:"cancellation_reason,omitempty"`
}

// Subtotal is the item's contribution to the order total while active.
func (i OrderItem) Subtotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Order represents a customer order.
type Order struct {
	ID             string      `json:"id"`
	UserID         string      `json:"user_id"`
	Items          []OrderItem `json:"items"`
	Total          float64     `json:"total"`
	Status         string      `json:"status"`
	PaymentMethod  string      `json:"payment_method"`
	ShippingMethod string      `json:"shipping_method"`
	Courier        string      `json:"courier,omitempty"`
	Address        *Address    `json:"address,omitempty"`
	CreatedAt      time.Time   `json:"created_at"`
}

// ActiveTotal recomputes the order total from items still active.
func (o *Order) ActiveTotal() float64 {
	var total float64
	for _, it := range o.Items {
		if it.Status == ItemActive {
			total += it.Subtotal()
		}
	}
	return total
}

// HasActiveItems reports whether any line item has not been cancelled.
func (o *Order) HasActiveItems() bool {
	for _, it := range o.Items {
		if it.Status == ItemActive {
			return true
		}
	}
	return false
}

// MarshalAddress encodes an address for storage. Nil encodes as nil.
func MarshalAddress(a *Address) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// UnmarshalAddress decodes a stored address. Empty input yields nil.
func UnmarshalAddress(raw []byte) (*Address, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var a Address
	if err := json.Unmarshal(raw, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

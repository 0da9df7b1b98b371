package orders

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// OrderStatus enumerates fulfillment states.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCanceled   OrderStatus = "canceled"
)

// ShippingMethod is where the carrier hands the parcel over.
type ShippingMethod string

const (
	ShippingDesk ShippingMethod = "desk"
	ShippingHome ShippingMethod = "home"
)

// Order is a storefront order. Stock is reserved at fulfillment time, not at
// order creation, so creating an order never mutates the ledger.
type Order struct {
	ID             int64          `json:"id"`
	OrderNumber    string         `json:"order_number"`
	PublicToken    uuid.UUID      `json:"public_token"`
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name"`
	LastName       string         `json:"last_name"`
	Address        string         `json:"address"`
	Apartment      string         `json:"apartment,omitempty"`
	City           string         `json:"city"`
	State          string         `json:"state"`
	ZipCode        string         `json:"zip_code"`
	Wilaya         string         `json:"wilaya"`
	Commune        string         `json:"commune"`
	Phone          string         `json:"phone"`
	ShippingMethod ShippingMethod `json:"shipping_method"`
	Status         OrderStatus    `json:"status"`
	Items          []OrderItem    `json:"items"`
	Totals         Totals         `json:"totals"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// OrderItem is one ordered variant, denormalized at purchase time.
type OrderItem struct {
	ProductID int64   `json:"product_id"`
	VariantID int64   `json:"variant_id"`
	Name      string  `json:"name"`
	Variant   string  `json:"variant"`
	SKU       string  `json:"sku"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

// Totals is the order money summary.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("orders: order not found")
	// ErrNoItems indicates an order without items.
	ErrNoItems = errors.New("orders: order requires at least one item")
	// ErrItemInvalid indicates a malformed order item.
	ErrItemInvalid = errors.New("orders: invalid item")
	// ErrInvalidStatus indicates an unknown order status.
	ErrInvalidStatus = errors.New("orders: invalid status")
	// ErrInvalidShipping indicates an unknown shipping method.
	ErrInvalidShipping = errors.New("orders: invalid shipping method")
	// ErrInvalidField indicates an update touching a non-updatable field.
	ErrInvalidField = errors.New("orders: field is not updatable")
	// ErrInvalid indicates a malformed order payload.
	ErrInvalid = errors.New("orders: invalid order")
)

// ValidStatus reports whether s is a known order status.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusShipped, StatusDelivered, StatusCanceled:
		return true
	}
	return false
}

// ValidShippingMethod reports whether m is a known shipping method.
func ValidShippingMethod(m ShippingMethod) bool {
	return m == ShippingDesk || m == ShippingHome
}

package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueMail is the queue for transactional emails.
	QueueMail = "mail"

	// TaskOrderConfirmation is sent once when an order is placed.
	TaskOrderConfirmation = "mail:order_confirmation"
	// TaskOrderStatus is sent on every order status change.
	TaskOrderStatus = "mail:order_status"
	// TaskWishlistSale is sent to wishlist subscribers when a product goes on sale.
	TaskWishlistSale = "mail:wishlist_sale"
)

// OrderLine is one purchased item as rendered in an email.
type OrderLine struct {
	Name     string  `json:"name"`
	Variant  string  `json:"variant"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// OrderConfirmationPayload carries everything the confirmation email needs.
type OrderConfirmationPayload struct {
	Email       string      `json:"email"`
	FirstName   string      `json:"first_name"`
	OrderNumber string      `json:"order_number"`
	Items       []OrderLine `json:"items"`
	Subtotal    float64     `json:"subtotal"`
	Shipping    float64     `json:"shipping"`
	Tax         float64     `json:"tax"`
	Total       float64     `json:"total"`
}

// OrderStatusPayload carries a status-change notification.
type OrderStatusPayload struct {
	Email       string `json:"email"`
	FirstName   string `json:"first_name"`
	OrderNumber string `json:"order_number"`
	Status      string `json:"status"`
}

// WishlistSalePayload announces a sale price to one subscriber.
type WishlistSalePayload struct {
	Email       string  `json:"email"`
	ProductName string  `json:"product_name"`
	Price       float64 `json:"price"`
	SalePrice   float64 `json:"sale_price"`
	Slug        string  `json:"slug"`
}

// NewOrderConfirmationTask constructs an Asynq task.
func NewOrderConfirmationTask(payload OrderConfirmationPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderConfirmation, data), nil
}

// NewOrderStatusTask constructs an Asynq task.
func NewOrderStatusTask(payload OrderStatusPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskOrderStatus, data), nil
}

// NewWishlistSaleTask constructs an Asynq task.
func NewWishlistSaleTask(payload WishlistSalePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWishlistSale, data), nil
}

package sales

import (
	"errors"
	"time"
)

// SaleStatus enumerates point-of-sale transaction states. The machine is
// completed ⇄ refunded; transitioning to the current status is a no-op.
type SaleStatus string

const (
	SaleStatusCompleted SaleStatus = "completed"
	SaleStatusRefunded  SaleStatus = "refunded"
)

// PaymentMethod enumerates accepted tender types.
type PaymentMethod string

const (
	PaymentCash       PaymentMethod = "cash"
	PaymentCreditCard PaymentMethod = "credit_card"
	PaymentDebitCard  PaymentMethod = "debit_card"
)

// Sale records a completed point-of-sale transaction. Stock is decremented
// once per item at creation; refunds restore it.
type Sale struct {
	ID                 int64         `json:"id"`
	SaleNumber         string        `json:"sale_number"`
	Items              []SaleItem    `json:"items"`
	PaymentMethod      PaymentMethod `json:"payment_method"`
	Status             SaleStatus    `json:"status"`
	Subtotal           float64       `json:"subtotal"`
	DiscountedSubtotal float64       `json:"discounted_subtotal"`
	TaxAmount          float64       `json:"tax_amount"`
	Total              float64       `json:"total"`
	AmountTendered     *float64      `json:"amount_tendered,omitempty"`
	ChangeDue          *float64      `json:"change_due,omitempty"`
	Timestamp          time.Time     `json:"timestamp"`
	CreatedAt          time.Time     `json:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at"`
}

// SaleItem is one sold variant, denormalized for receipts.
type SaleItem struct {
	VariantID int64   `json:"variant_id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Variant   string  `json:"variant"`
	SKU       string  `json:"sku"`
	Barcode   string  `json:"barcode"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

var (
	// ErrNotFound indicates the sale does not exist.
	ErrNotFound = errors.New("sales: sale not found")
	// ErrNoItems indicates a sale without items.
	ErrNoItems = errors.New("sales: sale requires at least one item")
	// ErrItemInvalid indicates a malformed sale item.
	ErrItemInvalid = errors.New("sales: invalid item")
	// ErrInvalidPayment indicates an unknown payment method.
	ErrInvalidPayment = errors.New("sales: invalid payment method")
	// ErrInvalidTotals indicates a negative money amount.
	ErrInvalidTotals = errors.New("sales: totals must be >= 0")
	// ErrInvalidStatus indicates an unknown sale status.
	ErrInvalidStatus = errors.New("sales: invalid status")
)

// ValidStatus reports whether s is a known sale status.
func ValidStatus(s SaleStatus) bool {
	return s == SaleStatusCompleted || s == SaleStatusRefunded
}

// ValidPaymentMethod reports whether m is a known payment method.
func ValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentCash, PaymentCreditCard, PaymentDebitCard:
		return true
	}
	return false
}

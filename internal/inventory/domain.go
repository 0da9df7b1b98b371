package inventory

import (
	"errors"
	"time"
)

// StockEntry is an administrative record of a manual inventory adjustment
// affecting one or more variants. The entry and its stock effects are created,
// edited and removed atomically.
type StockEntry struct {
	ID        int64       `json:"id"`
	Reference string      `json:"reference"`
	Date      time.Time   `json:"date"`
	Notes     string      `json:"notes"`
	Items     []StockItem `json:"items"`
	CreatedBy string      `json:"created_by"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// StockItem is one variant adjustment within a stock entry. PreviousStock is
// the variant's stock before the entry was applied; keeping it on the item is
// what makes exact reversal possible on edit.
type StockItem struct {
	ProductID     int64  `json:"product_id"`
	VariantID     int64  `json:"variant_id"`
	ProductName   string `json:"product_name"`
	SKU           string `json:"sku"`
	Color         string `json:"color"`
	Size          string `json:"size"`
	PreviousStock int    `json:"previous_stock"`
	Quantity      int    `json:"quantity"`
	NewStock      int    `json:"new_stock"`
}

var (
	// ErrInvalidDate indicates the entry date failed to parse.
	ErrInvalidDate = errors.New("inventory: invalid date")
	// ErrNoItems indicates an entry without items.
	ErrNoItems = errors.New("inventory: entry requires at least one item")
	// ErrItemInvalid indicates a malformed item (missing ids or quantity < 1).
	ErrItemInvalid = errors.New("inventory: invalid item")
	// ErrItemArithmetic indicates newStock != previousStock + quantity.
	ErrItemArithmetic = errors.New("inventory: item stock arithmetic does not add up")
	// ErrNotFound indicates the stock entry does not exist.
	ErrNotFound = errors.New("inventory: stock entry not found")
)

// DateLayout is the wire format accepted for entry dates.
const DateLayout = "2006-01-02"

func validateItems(items []StockItem) error {
	if len(items) == 0 {
		return ErrNoItems
	}
	for _, item := range items {
		if item.ProductID == 0 || item.VariantID == 0 || item.Quantity < 1 {
			return ErrItemInvalid
		}
		if item.PreviousStock < 0 || item.NewStock < 0 {
			return ErrItemInvalid
		}
		if item.NewStock != item.PreviousStock+item.Quantity {
			return ErrItemArithmetic
		}
	}
	return nil
}

package catalog

import (
	"errors"
	"time"
)

// ProductStatus enumerates catalog visibility states.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusArchived ProductStatus = "archived"
)

// Product is a sellable catalog entry with embedded variants.
type Product struct {
	ID          int64         `json:"id"`
	Name        string        `json:"name"`
	Slug        string        `json:"slug"`
	Description string        `json:"description"`
	Price       float64       `json:"price"`
	SalePrice   *float64      `json:"sale_price,omitempty"`
	SaleStart   *time.Time    `json:"sale_start,omitempty"`
	SaleEnd     *time.Time    `json:"sale_end,omitempty"`
	Status      ProductStatus `json:"status"`
	Variants    []Variant     `json:"variants"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// Variant is a specific sellable configuration of a product, the unit stock
// is tracked against. Stock is mutated only through the stock ledger.
type Variant struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	SKU       string `json:"sku"`
	Barcode   string `json:"barcode"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	Stock     int    `json:"stock"`
}

// Label renders the storefront variant label, e.g. "M/Red".
func (v Variant) Label() string {
	switch {
	case v.Size != "" && v.Color != "":
		return v.Size + "/" + v.Color
	case v.Size != "":
		return v.Size
	default:
		return v.Color
	}
}

// CurrentPrice returns the effective price at now: the sale price when one is
// set and now falls inside the optional sale window, the base price otherwise.
func (p Product) CurrentPrice(now time.Time) float64 {
	if p.SalePrice == nil {
		return p.Price
	}
	if p.SaleStart != nil && now.Before(*p.SaleStart) {
		return p.Price
	}
	if p.SaleEnd != nil && now.After(*p.SaleEnd) {
		return p.Price
	}
	return *p.SalePrice
}

// OnSale reports whether the sale price applies at now.
func (p Product) OnSale(now time.Time) bool {
	return p.SalePrice != nil && p.CurrentPrice(now) == *p.SalePrice
}

var (
	// ErrInvalid indicates a malformed product payload.
	ErrInvalid = errors.New("catalog: invalid input")
	// ErrNotFound indicates no product matches the lookup.
	ErrNotFound = errors.New("catalog: product not found")
	// ErrDuplicateSlug indicates the generated slug is already taken.
	ErrDuplicateSlug = errors.New("catalog: slug already taken")
	// ErrDuplicateSKU indicates a variant SKU is already taken.
	ErrDuplicateSKU = errors.New("catalog: sku already taken")
)

// ValidStatus reports whether s is a known product status.
func ValidStatus(s ProductStatus) bool {
	switch s {
	case ProductStatusActive, ProductStatusInactive, ProductStatusArchived:
		return true
	}
	return false
}

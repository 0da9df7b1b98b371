// Package stock is the single mutation path for per-variant stock counts.
//
// Every stock change in the system funnels through ApplyDelta or SetAbsolute,
// executed on a transaction owned by the calling manager. The package holds no
// connection of its own: callers supply a Store scoped to their transaction.
package stock

import (
	"context"
	"errors"
	"fmt"
)

// Store provides tx-scoped access to a variant's stock count. Implemented by
// each manager's transactional repository.
type Store interface {
	// VariantStockForUpdate returns the current stock for the variant,
	// locking the row for the remainder of the transaction.
	VariantStockForUpdate(ctx context.Context, productID, variantID int64) (int, error)
	// SetVariantStock writes the new stock count for the variant.
	SetVariantStock(ctx context.Context, productID, variantID int64, stock int) error
}

var (
	// ErrVariantNotFound indicates no variant matches (productID, variantID).
	// Fatal for stock entries, logged-and-skipped for sale refunds.
	ErrVariantNotFound = errors.New("stock: variant not found")
	// ErrInsufficientStock indicates the mutation would drive stock below zero.
	ErrInsufficientStock = errors.New("stock: insufficient stock")
	// ErrNegativeStock indicates a caller asked for an absolute value below zero.
	ErrNegativeStock = errors.New("stock: stock must not be negative")
)

// ApplyDelta adjusts the variant's stock by delta and returns the committed
// value. With clamp set, a result below zero is pinned to zero (refund
// re-deduction policy); without it the mutation fails with
// ErrInsufficientStock and nothing is written.
func ApplyDelta(ctx context.Context, s Store, productID, variantID int64, delta int, clamp bool) (int, error) {
	current, err := s.VariantStockForUpdate(ctx, productID, variantID)
	if err != nil {
		return 0, err
	}

	next := current + delta
	if next < 0 {
		if !clamp {
			return 0, fmt.Errorf("%w: variant %d has %d, delta %d", ErrInsufficientStock, variantID, current, delta)
		}
		next = 0
	}

	if err := s.SetVariantStock(ctx, productID, variantID, next); err != nil {
		return 0, err
	}
	return next, nil
}

// SetAbsolute writes an exact stock value for the variant. Used by stock-entry
// apply and revert, where the target count is recorded on the entry itself.
func SetAbsolute(ctx context.Context, s Store, productID, variantID int64, value int) error {
	if value < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeStock, value)
	}
	if _, err := s.VariantStockForUpdate(ctx, productID, variantID); err != nil {
		return err
	}
	return s.SetVariantStock(ctx, productID, variantID, value)
}

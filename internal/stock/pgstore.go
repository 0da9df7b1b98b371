package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Querier is the subset of pgx used by PgStore, satisfied by pools and
// transactions alike.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgStore implements Store against the variants table. Embed it in a
// transactional repository to give that module's transactions ledger access.
type PgStore struct {
	Q Querier
}

// VariantStockForUpdate locks the variant row and returns its stock.
func (s PgStore) VariantStockForUpdate(ctx context.Context, productID, variantID int64) (int, error) {
	var current int
	err := s.Q.QueryRow(ctx, `SELECT stock FROM variants WHERE product_id=$1 AND id=$2 FOR UPDATE`,
		productID, variantID).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrVariantNotFound
		}
		return 0, err
	}
	return current, nil
}

// SetVariantStock writes the variant's stock count.
func (s PgStore) SetVariantStock(ctx context.Context, productID, variantID int64, stock int) error {
	tag, err := s.Q.Exec(ctx, `UPDATE variants SET stock=$3 WHERE product_id=$1 AND id=$2`,
		productID, variantID, stock)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrVariantNotFound
	}
	return nil
}

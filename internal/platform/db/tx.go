package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Ledger mutations and document numbering both read-then-write inside the
// same transaction, so everything runs at repeatable read.
var txOptions = pgx.TxOptions{IsoLevel: pgx.RepeatableRead}

// WithTx runs fn inside a transaction, committing on success. Errors from fn
// abort the transaction and are returned unchanged so sentinel checks still
// work at the handler layer.
func WithTx(ctx context.Context, pool *pgxpool.Pool, fn func(pgx.Tx) error) error {
	tx, err := pool.BeginTx(ctx, txOptions)
	if err != nil {
		return fmt.Errorf("db: begin tx: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("db: commit tx: %w", err)
	}

	return nil
}

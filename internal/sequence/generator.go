// Package sequence assigns period-scoped, human-readable document numbers.
//
// Each document kind keeps one counter row per calendar month in
// sequence_counters. The counter is incremented with a single upsert inside
// the caller's transaction, so an aborted insert rolls the increment back and
// the next caller reuses the value. The unique index on the document's number
// column remains the backstop: a duplicate insert surfaces as
// ErrReferenceConflict and is never retried automatically.
package sequence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Kind identifies a numbered document collection.
type Kind string

const (
	// KindStockEntry numbers manual inventory adjustments ("YYYY-MM-N").
	KindStockEntry Kind = "stock_entry"
	// KindSale numbers point-of-sale transactions ("YYYY-MM-N").
	KindSale Kind = "sale"
	// KindOrder numbers customer orders ("MM-N").
	KindOrder Kind = "order"
)

// ErrReferenceConflict indicates the generated number collided with an
// existing document. The caller reports a conflict; it does not retry.
var ErrReferenceConflict = errors.New("sequence: reference already taken")

// Querier is the subset of pgx used by the generator, satisfied by both
// *pgxpool.Pool and pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Generator produces the next number for a document kind.
type Generator struct{}

// NewGenerator constructs a Generator.
func NewGenerator() *Generator {
	return &Generator{}
}

// Next increments the per-period counter for kind and returns the formatted
// number. Must run on the transaction that inserts the numbered document.
func (g *Generator) Next(ctx context.Context, q Querier, kind Kind, at time.Time) (string, error) {
	period := at.UTC().Format("2006-01")

	var value int64
	err := q.QueryRow(ctx, `INSERT INTO sequence_counters (kind, period, value)
VALUES ($1, $2, 1)
ON CONFLICT (kind, period) DO UPDATE SET value = sequence_counters.value + 1
RETURNING value`, string(kind), period).Scan(&value)
	if err != nil {
		return "", fmt.Errorf("sequence: next %s: %w", kind, err)
	}

	return Format(kind, at, value), nil
}

// Seed raises the counter for kind/period to at least n. Used when aligning
// counters with documents that predate counter-based numbering.
func (g *Generator) Seed(ctx context.Context, q Querier, kind Kind, at time.Time, n int64) error {
	period := at.UTC().Format("2006-01")
	_, err := q.Exec(ctx, `INSERT INTO sequence_counters (kind, period, value)
VALUES ($1, $2, $3)
ON CONFLICT (kind, period) DO UPDATE SET value = GREATEST(sequence_counters.value, EXCLUDED.value)`,
		string(kind), period, n)
	if err != nil {
		return fmt.Errorf("sequence: seed %s: %w", kind, err)
	}
	return nil
}

// Format renders a counter value as the document number for kind.
func Format(kind Kind, at time.Time, value int64) string {
	at = at.UTC()
	if kind == KindOrder {
		return fmt.Sprintf("%s-%d", at.Format("01"), value)
	}
	return fmt.Sprintf("%s-%d", at.Format("2006-01"), value)
}

// IsUniqueViolation reports whether err is a Postgres unique-index violation.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

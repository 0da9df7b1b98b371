package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonah2xm/e-commerce/internal/platform/db"
	"github.com/jonah2xm/e-commerce/internal/sequence"
	"github.com/jonah2xm/e-commerce/internal/stock"
)

// TxRepository exposes the transactional operations used by the service. It
// embeds stock.Store so ledger mutations run on the same transaction as the
// entry itself.
type TxRepository interface {
	stock.Store
	NextReference(ctx context.Context, at time.Time) (string, error)
	InsertEntry(ctx context.Context, entry StockEntry) (int64, error)
	GetEntry(ctx context.Context, id int64) (StockEntry, error)
	SaveEntry(ctx context.Context, entry StockEntry) error
	DeleteEntry(ctx context.Context, id int64) error
}

// Repository persists stock entries in PostgreSQL.
type Repository struct {
	pool      *pgxpool.Pool
	sequences *sequence.Generator
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, sequences *sequence.Generator) *Repository {
	return &Repository{pool: pool, sequences: sequences}
}

type txRepository struct {
	stock.PgStore
	tx        pgx.Tx
	sequences *sequence.Generator
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{
			PgStore:   stock.PgStore{Q: tx},
			tx:        tx,
			sequences: r.sequences,
		})
	})
}

func (r *txRepository) NextReference(ctx context.Context, at time.Time) (string, error) {
	return r.sequences.Next(ctx, r.tx, sequence.KindStockEntry, at)
}

func (r *txRepository) InsertEntry(ctx context.Context, entry StockEntry) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO stock_entries (reference, entry_date, notes, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $5)
RETURNING id`, entry.Reference, entry.Date, entry.Notes, entry.CreatedBy, now).Scan(&id)
	if err != nil {
		if sequence.IsUniqueViolation(err) {
			return 0, sequence.ErrReferenceConflict
		}
		return 0, err
	}

	if err := r.insertItems(ctx, id, entry.Items); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *txRepository) GetEntry(ctx context.Context, id int64) (StockEntry, error) {
	row := r.tx.QueryRow(ctx, `SELECT id, reference, entry_date, notes, created_by, created_at, updated_at
FROM stock_entries WHERE id=$1 FOR UPDATE`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockEntry{}, ErrNotFound
		}
		return StockEntry{}, err
	}

	entry.Items, err = loadItems(ctx, r.tx, id)
	if err != nil {
		return StockEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) SaveEntry(ctx context.Context, entry StockEntry) error {
	tag, err := r.tx.Exec(ctx, `UPDATE stock_entries SET entry_date=$2, notes=$3, updated_at=$4 WHERE id=$1`,
		entry.ID, entry.Date, entry.Notes, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}

	if _, err := r.tx.Exec(ctx, `DELETE FROM stock_entry_items WHERE stock_entry_id=$1`, entry.ID); err != nil {
		return err
	}
	return r.insertItems(ctx, entry.ID, entry.Items)
}

func (r *txRepository) DeleteEntry(ctx context.Context, id int64) error {
	tag, err := r.tx.Exec(ctx, `DELETE FROM stock_entries WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *txRepository) insertItems(ctx context.Context, entryID int64, items []StockItem) error {
	for _, item := range items {
		_, err := r.tx.Exec(ctx, `INSERT INTO stock_entry_items
(stock_entry_id, product_id, variant_id, product_name, sku, color, size, previous_stock, quantity, new_stock)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			entryID, item.ProductID, item.VariantID, item.ProductName, item.SKU,
			item.Color, item.Size, item.PreviousStock, item.Quantity, item.NewStock)
		if err != nil {
			return err
		}
	}
	return nil
}

// List returns all entries, newest first.
func (r *Repository) List(ctx context.Context) ([]StockEntry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, reference, entry_date, notes, created_by, created_at, updated_at
FROM stock_entries ORDER BY entry_date DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []StockEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Items, err = loadItems(ctx, r.pool, entries[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return entries, nil
}

// Get returns one entry with its items.
func (r *Repository) Get(ctx context.Context, id int64) (StockEntry, error) {
	row := r.pool.QueryRow(ctx, `SELECT id, reference, entry_date, notes, created_by, created_at, updated_at
FROM stock_entries WHERE id=$1`, id)
	entry, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StockEntry{}, ErrNotFound
		}
		return StockEntry{}, err
	}

	entry.Items, err = loadItems(ctx, r.pool, id)
	if err != nil {
		return StockEntry{}, err
	}
	return entry, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, entryID int64) ([]StockItem, error) {
	rows, err := q.Query(ctx, `SELECT product_id, variant_id, product_name, sku, color, size, previous_stock, quantity, new_stock
FROM stock_entry_items WHERE stock_entry_id=$1 ORDER BY id`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []StockItem
	for rows.Next() {
		var item StockItem
		err := rows.Scan(&item.ProductID, &item.VariantID, &item.ProductName, &item.SKU,
			&item.Color, &item.Size, &item.PreviousStock, &item.Quantity, &item.NewStock)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanEntry(row pgx.Row) (StockEntry, error) {
	var entry StockEntry
	err := row.Scan(&entry.ID, &entry.Reference, &entry.Date, &entry.Notes,
		&entry.CreatedBy, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		return StockEntry{}, err
	}
	return entry, nil
}

package sales

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

// TxRepository exposes the transactional operations used by the service.
type TxRepository interface {
	stock.Store
	NextSaleNumber(ctx context.Context, at time.Time) (string, error)
	InsertSale(ctx context.Context, sale Sale) (int64, error)
	GetSale(ctx context.Context, id int64) (Sale, error)
	UpdateSaleStatus(ctx context.Context, id int64, status SaleStatus) error
}

// Repository persists sales in PostgreSQL.
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

func (r *txRepository) NextSaleNumber(ctx context.Context, at time.Time) (string, error) {
	return r.sequences.Next(ctx, r.tx, sequence.KindSale, at)
}

func (r *txRepository) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO sales
(sale_number, payment_method, status, subtotal, discounted_subtotal, tax_amount, total, amount_tendered, change_due, sold_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $11)
RETURNING id`,
		sale.SaleNumber, string(sale.PaymentMethod), string(sale.Status),
		sale.Subtotal, sale.DiscountedSubtotal, sale.TaxAmount, sale.Total,
		sale.AmountTendered, sale.ChangeDue, sale.Timestamp, now).Scan(&id)
	if err != nil {
		if sequence.IsUniqueViolation(err) {
			return 0, sequence.ErrReferenceConflict
		}
		return 0, err
	}

	for _, item := range sale.Items {
		_, err := r.tx.Exec(ctx, `INSERT INTO sale_items
(sale_id, variant_id, product_id, name, variant_label, sku, barcode, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			id, item.VariantID, item.ProductID, item.Name, item.Variant,
			item.SKU, item.Barcode, item.Price, item.Quantity)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

func (r *txRepository) GetSale(ctx context.Context, id int64) (Sale, error) {
	row := r.tx.QueryRow(ctx, saleColumns+` FROM sales WHERE id=$1 FOR UPDATE`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}

	sale.Items, err = loadItems(ctx, r.tx, id)
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (r *txRepository) UpdateSaleStatus(ctx context.Context, id int64, status SaleStatus) error {
	tag, err := r.tx.Exec(ctx, `UPDATE sales SET status=$2, updated_at=$3 WHERE id=$1`,
		id, string(status), time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

const saleColumns = `SELECT id, sale_number, payment_method, status, subtotal, discounted_subtotal, tax_amount, total, amount_tendered, change_due, sold_at, created_at, updated_at`

// List returns sales newest first along with the total count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]Sale, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM sales`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, saleColumns+` FROM sales ORDER BY sold_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, 0, err
		}
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	for i := range sales {
		sales[i].Items, err = loadItems(ctx, r.pool, sales[i].ID)
		if err != nil {
			return nil, 0, err
		}
	}
	return sales, total, nil
}

// Get returns one sale with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Sale, error) {
	row := r.pool.QueryRow(ctx, saleColumns+` FROM sales WHERE id=$1`, id)
	sale, err := scanSale(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}

	sale.Items, err = loadItems(ctx, r.pool, id)
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func loadItems(ctx context.Context, q querier, saleID int64) ([]SaleItem, error) {
	rows, err := q.Query(ctx, `SELECT variant_id, product_id, name, variant_label, sku, barcode, price, quantity
FROM sale_items WHERE sale_id=$1 ORDER BY id`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []SaleItem
	for rows.Next() {
		var item SaleItem
		err := rows.Scan(&item.VariantID, &item.ProductID, &item.Name, &item.Variant,
			&item.SKU, &item.Barcode, &item.Price, &item.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanSale(row pgx.Row) (Sale, error) {
	var sale Sale
	var payment, status string
	err := row.Scan(&sale.ID, &sale.SaleNumber, &payment, &status,
		&sale.Subtotal, &sale.DiscountedSubtotal, &sale.TaxAmount, &sale.Total,
		&sale.AmountTendered, &sale.ChangeDue, &sale.Timestamp, &sale.CreatedAt, &sale.UpdatedAt)
	if err != nil {
		return Sale{}, err
	}
	sale.PaymentMethod = PaymentMethod(payment)
	sale.Status = SaleStatus(status)
	return sale, nil
}

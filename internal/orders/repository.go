package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonah2xm/e-commerce/internal/platform/db"
	"github.com/jonah2xm/e-commerce/internal/sequence"
)

// TxRepository exposes the transactional operations used by the service.
type TxRepository interface {
	NextOrderNumber(ctx context.Context, at time.Time) (string, error)
	InsertOrder(ctx context.Context, order Order) (int64, error)
}

// Repository persists orders in PostgreSQL.
type Repository struct {
	pool      *pgxpool.Pool
	sequences *sequence.Generator
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool, sequences *sequence.Generator) *Repository {
	return &Repository{pool: pool, sequences: sequences}
}

type txRepository struct {
	tx        pgx.Tx
	sequences *sequence.Generator
}

// WithTx executes the callback inside a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx, sequences: r.sequences})
	})
}

func (r *txRepository) NextOrderNumber(ctx context.Context, at time.Time) (string, error) {
	return r.sequences.Next(ctx, r.tx, sequence.KindOrder, at)
}

func (r *txRepository) InsertOrder(ctx context.Context, order Order) (int64, error) {
	now := time.Now().UTC()
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO orders
(order_number, public_token, email, first_name, last_name, address, apartment, city, state, zip_code, wilaya, commune, phone, shipping_method, status, subtotal, shipping, tax, total, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $20)
RETURNING id`,
		order.OrderNumber, order.PublicToken, order.Email, order.FirstName, order.LastName,
		order.Address, order.Apartment, order.City, order.State, order.ZipCode,
		order.Wilaya, order.Commune, order.Phone, string(order.ShippingMethod), string(order.Status),
		order.Totals.Subtotal, order.Totals.Shipping, order.Totals.Tax, order.Totals.Total,
		now).Scan(&id)
	if err != nil {
		if sequence.IsUniqueViolation(err) {
			return 0, sequence.ErrReferenceConflict
		}
		return 0, err
	}

	for _, item := range order.Items {
		_, err := r.tx.Exec(ctx, `INSERT INTO order_items
(order_id, product_id, variant_id, name, variant_label, sku, price, quantity)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			id, item.ProductID, item.VariantID, item.Name, item.Variant,
			item.SKU, item.Price, item.Quantity)
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

const orderColumns = `SELECT id, order_number, public_token, email, first_name, last_name, address, apartment, city, state, zip_code, wilaya, commune, phone, shipping_method, status, subtotal, shipping, tax, total, created_at, updated_at`

// Update patches whitelisted columns and returns the fresh row. The service
// has already validated the field names.
func (r *Repository) Update(ctx context.Context, id int64, fields map[string]any) (Order, error) {
	sets := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	args = append(args, id)
	for column, value := range fields {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s=$%d", column, len(args)))
	}
	args = append(args, time.Now().UTC())
	sets = append(sets, fmt.Sprintf("updated_at=$%d", len(args)))

	tag, err := r.pool.Exec(ctx, `UPDATE orders SET `+strings.Join(sets, ", ")+` WHERE id=$1`, args...)
	if err != nil {
		return Order{}, err
	}
	if tag.RowsAffected() == 0 {
		return Order{}, ErrNotFound
	}
	return r.Get(ctx, id)
}

// Get returns one order with its items.
func (r *Repository) Get(ctx context.Context, id int64) (Order, error) {
	return r.getBy(ctx, `id=$1`, id)
}

// GetByNumber returns one order by order number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Order, error) {
	return r.getBy(ctx, `order_number=$1`, number)
}

// GetByToken returns one order by its public tracking token.
func (r *Repository) GetByToken(ctx context.Context, token uuid.UUID) (Order, error) {
	return r.getBy(ctx, `public_token=$1`, token)
}

func (r *Repository) getBy(ctx context.Context, where string, arg any) (Order, error) {
	row := r.pool.QueryRow(ctx, orderColumns+` FROM orders WHERE `+where, arg)
	order, err := scanOrder(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}

	order.Items, err = r.loadItems(ctx, order.ID)
	if err != nil {
		return Order{}, err
	}
	return order, nil
}

// List returns orders newest first along with the total count.
func (r *Repository) List(ctx context.Context, page, limit int) ([]Order, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM orders`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, orderColumns+` FROM orders ORDER BY created_at DESC, id DESC LIMIT $1 OFFSET $2`,
		limit, (page-1)*limit)
	if err != nil {
		return nil, 0, err
	}
	out, err := r.collect(ctx, rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByEmail returns a customer's orders newest first. Emails are stored
// lowercased, so the comparison is a plain equality.
func (r *Repository) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	rows, err := r.pool.Query(ctx, orderColumns+` FROM orders WHERE email=$1 ORDER BY created_at DESC, id DESC`,
		strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	return r.collect(ctx, rows)
}

func (r *Repository) collect(ctx context.Context, rows pgx.Rows) ([]Order, error) {
	defer rows.Close()

	var out []Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range out {
		items, err := r.loadItems(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

func (r *Repository) loadItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT product_id, variant_id, name, variant_label, sku, price, quantity
FROM order_items WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var item OrderItem
		err := rows.Scan(&item.ProductID, &item.VariantID, &item.Name, &item.Variant,
			&item.SKU, &item.Price, &item.Quantity)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func scanOrder(row pgx.Row) (Order, error) {
	var order Order
	var shipping, status string
	err := row.Scan(&order.ID, &order.OrderNumber, &order.PublicToken, &order.Email,
		&order.FirstName, &order.LastName, &order.Address, &order.Apartment,
		&order.City, &order.State, &order.ZipCode, &order.Wilaya, &order.Commune,
		&order.Phone, &shipping, &status,
		&order.Totals.Subtotal, &order.Totals.Shipping, &order.Totals.Tax, &order.Totals.Total,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return Order{}, err
	}
	order.ShippingMethod = ShippingMethod(shipping)
	order.Status = OrderStatus(status)
	return order, nil
}

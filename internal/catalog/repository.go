package catalog

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ListFilters narrows product listings.
type ListFilters struct {
	Status ProductStatus
	Search string
	Limit  int
	Offset int
}

type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Product, error)
	Get(ctx context.Context, id int64) (Product, error)
	GetBySlug(ctx context.Context, slug string) (Product, error)
	Create(ctx context.Context, product Product) (Product, error)
	Update(ctx context.Context, id int64, product Product) error
	Delete(ctx context.Context, id int64) error
	WishlistEmails(ctx context.Context, productID int64) ([]string, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Product, error) {
	query := `SELECT id, name, slug, description, price, sale_price, sale_start, sale_end, status, created_at, updated_at FROM products WHERE 1=1`
	args := []interface{}{}
	argCount := 0

	if filters.Status != "" {
		argCount++
		query += ` AND status = $` + strconv.Itoa(argCount)
		args = append(args, string(filters.Status))
	}
	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR slug ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	query += ` ORDER BY created_at DESC`
	limit := filters.Limit
	if limit <= 0 {
		limit = 100
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	if filters.Offset > 0 {
		argCount++
		query += ` OFFSET $` + strconv.Itoa(argCount)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []Product
	ids := []int64{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, p)
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return products, nil
	}

	variants, err := r.variantsForProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range products {
		products[i].Variants = variants[products[i].ID]
	}
	return products, nil
}

func (r *repository) Get(ctx context.Context, id int64) (Product, error) {
	return r.getWhere(ctx, `id = $1`, id)
}

func (r *repository) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return r.getWhere(ctx, `slug = $1`, slug)
}

func (r *repository) getWhere(ctx context.Context, cond string, arg interface{}) (Product, error) {
	row := r.db.QueryRow(ctx, `SELECT id, name, slug, description, price, sale_price, sale_start, sale_end, status, created_at, updated_at FROM products WHERE `+cond, arg)
	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, ErrNotFound
		}
		return Product{}, err
	}

	variants, err := r.variantsForProducts(ctx, []int64{p.ID})
	if err != nil {
		return Product{}, err
	}
	p.Variants = variants[p.ID]
	return p, nil
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	now := time.Now().UTC()
	err := r.db.QueryRow(ctx, `INSERT INTO products (name, slug, description, price, sale_price, sale_start, sale_end, status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING id`,
		product.Name, product.Slug, product.Description, product.Price,
		product.SalePrice, product.SaleStart, product.SaleEnd, string(product.Status), now,
	).Scan(&product.ID)
	if err != nil {
		return Product{}, mapCatalogError(err)
	}

	for i := range product.Variants {
		v := &product.Variants[i]
		v.ProductID = product.ID
		err := r.db.QueryRow(ctx, `INSERT INTO variants (product_id, sku, barcode, color, size, stock)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`, v.ProductID, v.SKU, v.Barcode, v.Color, v.Size, v.Stock).Scan(&v.ID)
		if err != nil {
			return Product{}, mapCatalogError(err)
		}
	}

	product.CreatedAt = now
	product.UpdatedAt = now
	return product, nil
}

func (r *repository) Update(ctx context.Context, id int64, product Product) error {
	tag, err := r.db.Exec(ctx, `UPDATE products
SET name=$2, slug=$3, description=$4, price=$5, sale_price=$6, sale_start=$7, sale_end=$8, status=$9, updated_at=$10
WHERE id=$1`,
		id, product.Name, product.Slug, product.Description, product.Price,
		product.SalePrice, product.SaleStart, product.SaleEnd, string(product.Status), time.Now().UTC())
	if err != nil {
		return mapCatalogError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM products WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) WishlistEmails(ctx context.Context, productID int64) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT email FROM wishlist_subscriptions WHERE product_id=$1`, productID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, email)
	}
	return emails, rows.Err()
}

func (r *repository) variantsForProducts(ctx context.Context, ids []int64) (map[int64][]Variant, error) {
	rows, err := r.db.Query(ctx, `SELECT id, product_id, sku, barcode, color, size, stock
FROM variants WHERE product_id = ANY($1) ORDER BY id`, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[int64][]Variant)
	for rows.Next() {
		var v Variant
		if err := rows.Scan(&v.ID, &v.ProductID, &v.SKU, &v.Barcode, &v.Color, &v.Size, &v.Stock); err != nil {
			return nil, err
		}
		out[v.ProductID] = append(out[v.ProductID], v)
	}
	return out, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	var status string
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.Price,
		&p.SalePrice, &p.SaleStart, &p.SaleEnd, &status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Status = ProductStatus(status)
	return p, nil
}

func mapCatalogError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "products_slug_key":
			return ErrDuplicateSlug
		case "variants_sku_key":
			return ErrDuplicateSKU
		}
	}
	return err
}

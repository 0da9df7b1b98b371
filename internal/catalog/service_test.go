package catalog

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	products map[int64]Product
	wishlist map[int64][]string
	nextID   int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{products: make(map[int64]Product), wishlist: make(map[int64][]string)}
}

func (r *memoryRepo) List(ctx context.Context, filters ListFilters) ([]Product, error) {
	var out []Product
	for _, p := range r.products {
		if filters.Status != "" && p.Status != filters.Status {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (Product, error) {
	p, ok := r.products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (r *memoryRepo) GetBySlug(ctx context.Context, slug string) (Product, error) {
	for _, p := range r.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return Product{}, ErrNotFound
}

func (r *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	r.nextID++
	product.ID = r.nextID
	r.products[product.ID] = product
	return product, nil
}

func (r *memoryRepo) Update(ctx context.Context, id int64, product Product) error {
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	product.ID = id
	r.products[id] = product
	return nil
}

func (r *memoryRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.products[id]; !ok {
		return ErrNotFound
	}
	delete(r.products, id)
	return nil
}

func (r *memoryRepo) WishlistEmails(ctx context.Context, productID int64) ([]string, error) {
	return r.wishlist[productID], nil
}

type capturingNotifier struct {
	product Product
	emails  []string
	calls   int
}

func (n *capturingNotifier) ProductOnSale(ctx context.Context, product Product, emails []string) {
	n.product = product
	n.emails = emails
	n.calls++
}

func testLogger() *slog.Logger {
	return slog.Default()
}

func TestCreateGeneratesSlug(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil, testLogger())

	product, err := svc.Create(context.Background(), CreateProductInput{
		Name:  "Summer T-Shirt",
		Price: 25,
		Variants: []Variant{
			{SKU: "TS-M-RED", Size: "M", Color: "Red", Stock: 10},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "summer-t-shirt", product.Slug)
	require.Equal(t, ProductStatusActive, product.Status)
}

func TestCreateValidation(t *testing.T) {
	svc := NewService(newMemoryRepo(), nil, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductInput{Name: " ", Price: 5})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, CreateProductInput{Name: "x", Price: -1})
	require.ErrorIs(t, err, ErrInvalid)

	_, err = svc.Create(ctx, CreateProductInput{Name: "x", Price: 1, Variants: []Variant{{SKU: "A", Stock: -2}}})
	require.ErrorIs(t, err, ErrInvalid)
}

func TestUpdateNotifiesWishlistOnNewSale(t *testing.T) {
	repo := newMemoryRepo()
	notifier := &capturingNotifier{}
	svc := NewService(repo, nil, notifier, testLogger())
	ctx := context.Background()

	product, err := svc.Create(ctx, CreateProductInput{Name: "Boots", Price: 120})
	require.NoError(t, err)
	repo.wishlist[product.ID] = []string{"a@example.com", "b@example.com"}

	sale := 90.0
	_, err = svc.Update(ctx, product.ID, UpdateProductInput{
		Name: "Boots", Price: 120, SalePrice: &sale, Status: ProductStatusActive,
	})
	require.NoError(t, err)
	require.Equal(t, 1, notifier.calls)
	require.Equal(t, []string{"a@example.com", "b@example.com"}, notifier.emails)

	// Updating again while already on sale must not re-notify.
	_, err = svc.Update(ctx, product.ID, UpdateProductInput{
		Name: "Boots", Price: 120, SalePrice: &sale, Status: ProductStatusActive,
	})
	require.NoError(t, err)
	require.Equal(t, 1, notifier.calls)
}

func TestPublicListUsesCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache := NewProductCache(client, time.Minute)

	repo := newMemoryRepo()
	svc := NewService(repo, cache, nil, testLogger())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateProductInput{Name: "Cap", Price: 10})
	require.NoError(t, err)

	first, err := svc.PublicList(ctx)
	require.NoError(t, err)
	require.Len(t, first, 1)

	// Mutate the repo behind the cache; the cached listing must still serve.
	repo.products[first[0].ID] = Product{}
	delete(repo.products, first[0].ID)

	cached, err := svc.PublicList(ctx)
	require.NoError(t, err)
	require.Len(t, cached, 1)

	// Any write invalidates.
	_, err = svc.Create(ctx, CreateProductInput{Name: "Scarf", Price: 15})
	require.NoError(t, err)

	fresh, err := svc.PublicList(ctx)
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	require.Equal(t, "scarf", fresh[0].Slug)
}

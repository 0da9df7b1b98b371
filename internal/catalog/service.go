package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// Notifier dispatches catalog notifications. Implementations must be fire and
// forget: enqueue failures are logged, never returned to the caller.
type Notifier interface {
	ProductOnSale(ctx context.Context, product Product, emails []string)
}

// Service coordinates catalog operations.
type Service struct {
	repo     Repository
	cache    *ProductCache
	notifier Notifier
	logger   *slog.Logger
}

// NewService builds Service.
func NewService(repo Repository, cache *ProductCache, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, cache: cache, notifier: notifier, logger: logger}
}

// CreateProductInput carries the fields accepted on product creation.
type CreateProductInput struct {
	Name        string
	Description string
	Price       float64
	SalePrice   *float64
	SaleStart   *time.Time
	SaleEnd     *time.Time
	Status      ProductStatus
	Variants    []Variant
}

func (s *Service) Create(ctx context.Context, input CreateProductInput) (Product, error) {
	if strings.TrimSpace(input.Name) == "" {
		return Product{}, fmt.Errorf("%w: product name is required", ErrInvalid)
	}
	if input.Price < 0 {
		return Product{}, fmt.Errorf("%w: price must be >= 0", ErrInvalid)
	}
	for _, v := range input.Variants {
		if strings.TrimSpace(v.SKU) == "" {
			return Product{}, fmt.Errorf("%w: variant sku is required", ErrInvalid)
		}
		if v.Stock < 0 {
			return Product{}, fmt.Errorf("%w: variant stock must be >= 0", ErrInvalid)
		}
	}

	status := input.Status
	if status == "" {
		status = ProductStatusActive
	}
	if !ValidStatus(status) {
		return Product{}, fmt.Errorf("%w: invalid product status", ErrInvalid)
	}

	product := Product{
		Name:        strings.TrimSpace(input.Name),
		Slug:        Slugify(input.Name),
		Description: input.Description,
		Price:       input.Price,
		SalePrice:   input.SalePrice,
		SaleStart:   input.SaleStart,
		SaleEnd:     input.SaleEnd,
		Status:      status,
		Variants:    input.Variants,
	}

	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return Product{}, err
	}
	s.cache.Invalidate(ctx)
	return created, nil
}

// UpdateProductInput mirrors CreateProductInput for updates; variants are
// managed separately so a catalog edit can never touch stock counts.
type UpdateProductInput struct {
	Name        string
	Description string
	Price       float64
	SalePrice   *float64
	SaleStart   *time.Time
	SaleEnd     *time.Time
	Status      ProductStatus
}

func (s *Service) Update(ctx context.Context, id int64, input UpdateProductInput) (Product, error) {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !ValidStatus(input.Status) {
		return Product{}, fmt.Errorf("%w: invalid product status", ErrInvalid)
	}

	now := time.Now().UTC()
	wasOnSale := existing.OnSale(now)

	updated := existing
	updated.Name = strings.TrimSpace(input.Name)
	updated.Slug = Slugify(input.Name)
	updated.Description = input.Description
	updated.Price = input.Price
	updated.SalePrice = input.SalePrice
	updated.SaleStart = input.SaleStart
	updated.SaleEnd = input.SaleEnd
	updated.Status = input.Status

	if err := s.repo.Update(ctx, id, updated); err != nil {
		return Product{}, err
	}
	s.cache.Invalidate(ctx)

	if !wasOnSale && updated.OnSale(now) && s.notifier != nil {
		emails, err := s.repo.WishlistEmails(ctx, id)
		if err != nil {
			s.logger.Warn("wishlist lookup failed", slog.Int64("product_id", id), slog.Any("error", err))
		} else if len(emails) > 0 {
			s.notifier.ProductOnSale(ctx, updated, emails)
		}
	}

	return s.repo.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx)
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (Product, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) GetBySlug(ctx context.Context, slug string) (Product, error) {
	return s.repo.GetBySlug(ctx, slug)
}

// List serves the admin console; no caching, all statuses.
func (s *Service) List(ctx context.Context, filters ListFilters) ([]Product, error) {
	return s.repo.List(ctx, filters)
}

// PublicList serves the storefront: active products only, cached.
func (s *Service) PublicList(ctx context.Context) ([]Product, error) {
	if products, ok := s.cache.Get(ctx); ok {
		return products, nil
	}
	products, err := s.repo.List(ctx, ListFilters{Status: ProductStatusActive})
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, products)
	return products, nil
}

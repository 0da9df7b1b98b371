package sales

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonah2xm/e-commerce/internal/stock"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, page, limit int) ([]Sale, int, error)
	Get(ctx context.Context, id int64) (Sale, error)
}

// Service is the sale transaction manager.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
	now    func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// CreateInput carries a new point-of-sale transaction.
type CreateInput struct {
	Items              []SaleItem
	PaymentMethod      PaymentMethod
	Subtotal           float64
	DiscountedSubtotal float64
	TaxAmount          float64
	Total              float64
	AmountTendered     *float64
	ChangeDue          *float64
	Timestamp          *time.Time
}

func (input CreateInput) validate() error {
	if len(input.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range input.Items {
		if item.VariantID == 0 || item.ProductID == 0 || item.Quantity < 1 || item.Price < 0 {
			return ErrItemInvalid
		}
	}
	if !ValidPaymentMethod(input.PaymentMethod) {
		return ErrInvalidPayment
	}
	if input.Subtotal < 0 || input.DiscountedSubtotal < 0 || input.TaxAmount < 0 || input.Total < 0 {
		return ErrInvalidTotals
	}
	if input.AmountTendered != nil && *input.AmountTendered < 0 {
		return ErrInvalidTotals
	}
	if input.ChangeDue != nil && *input.ChangeDue < 0 {
		return ErrInvalidTotals
	}
	return nil
}

// Create assigns the next sale number, decrements stock for every item and
// persists the sale, all in one transaction: a failed item decrement leaves
// neither the sale nor any partial stock change behind.
func (s *Service) Create(ctx context.Context, input CreateInput) (Sale, error) {
	if err := input.validate(); err != nil {
		return Sale{}, err
	}

	now := s.now().UTC()
	timestamp := now
	if input.Timestamp != nil {
		timestamp = input.Timestamp.UTC()
	}

	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextSaleNumber(ctx, now)
		if err != nil {
			return err
		}

		for _, item := range input.Items {
			if _, err := stock.ApplyDelta(ctx, tx, item.ProductID, item.VariantID, -item.Quantity, false); err != nil {
				return fmt.Errorf("item %d/%d: %w", item.ProductID, item.VariantID, err)
			}
		}

		sale = Sale{
			SaleNumber:         number,
			Items:              input.Items,
			PaymentMethod:      input.PaymentMethod,
			Status:             SaleStatusCompleted,
			Subtotal:           input.Subtotal,
			DiscountedSubtotal: input.DiscountedSubtotal,
			TaxAmount:          input.TaxAmount,
			Total:              input.Total,
			AmountTendered:     input.AmountTendered,
			ChangeDue:          input.ChangeDue,
			Timestamp:          timestamp,
		}
		id, err := tx.InsertSale(ctx, sale)
		if err != nil {
			return err
		}
		sale.ID = id
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// UpdateStatus flips a sale between completed and refunded. Moving to
// refunded restores every item's quantity; moving away from refunded
// re-deducts, clamped at zero. A variant deleted since the sale is logged and
// skipped: refund status must not be blocked by unrelated catalog changes.
func (s *Service) UpdateStatus(ctx context.Context, id int64, newStatus SaleStatus) (Sale, error) {
	if !ValidStatus(newStatus) {
		return Sale{}, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetSale(ctx, id)
		if err != nil {
			return err
		}

		if existing.Status == newStatus {
			sale = existing
			return nil
		}

		switch {
		case newStatus == SaleStatusRefunded:
			for _, item := range existing.Items {
				if err := s.adjustForTransition(ctx, tx, item, item.Quantity, false); err != nil {
					return err
				}
			}
		case existing.Status == SaleStatusRefunded:
			for _, item := range existing.Items {
				if err := s.adjustForTransition(ctx, tx, item, -item.Quantity, true); err != nil {
					return err
				}
			}
		}

		if err := tx.UpdateSaleStatus(ctx, id, newStatus); err != nil {
			return err
		}
		existing.Status = newStatus
		sale = existing
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

func (s *Service) adjustForTransition(ctx context.Context, tx TxRepository, item SaleItem, delta int, clamp bool) error {
	_, err := stock.ApplyDelta(ctx, tx, item.ProductID, item.VariantID, delta, clamp)
	if err != nil {
		if errors.Is(err, stock.ErrVariantNotFound) {
			s.logger.Warn("variant missing during sale status change; skipping",
				slog.Int64("product_id", item.ProductID),
				slog.Int64("variant_id", item.VariantID))
			return nil
		}
		return fmt.Errorf("item %d/%d: %w", item.ProductID, item.VariantID, err)
	}
	return nil
}

// List returns sales newest first with the total count.
func (s *Service) List(ctx context.Context, page, limit int) ([]Sale, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	return s.repo.List(ctx, page, limit)
}

// Get returns one sale by id.
func (s *Service) Get(ctx context.Context, id int64) (Sale, error) {
	return s.repo.Get(ctx, id)
}

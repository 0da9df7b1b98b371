package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonah2xm/e-commerce/internal/stock"
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context) ([]StockEntry, error)
	Get(ctx context.Context, id int64) (StockEntry, error)
}

// Service is the stock entry manager: every manual inventory adjustment goes
// through it, and each operation is all or nothing.
type Service struct {
	repo   RepositoryPort
	logger *slog.Logger
}

// NewService builds Service.
func NewService(repo RepositoryPort, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// CreateInput carries a new stock entry. Date arrives as a string so a
// malformed value is rejected before any mutation is attempted.
type CreateInput struct {
	Date      string
	Notes     string
	Items     []StockItem
	CreatedBy string
}

// Create assigns the next period-scoped reference, inserts the entry and
// applies every item's new stock count inside one transaction.
func (s *Service) Create(ctx context.Context, input CreateInput) (StockEntry, error) {
	date, err := time.Parse(DateLayout, input.Date)
	if err != nil {
		return StockEntry{}, fmt.Errorf("%w: %q", ErrInvalidDate, input.Date)
	}
	if err := validateItems(input.Items); err != nil {
		return StockEntry{}, err
	}

	var entry StockEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		reference, err := tx.NextReference(ctx, date)
		if err != nil {
			return err
		}

		entry = StockEntry{
			Reference: reference,
			Date:      date,
			Notes:     input.Notes,
			Items:     input.Items,
			CreatedBy: input.CreatedBy,
		}
		id, err := tx.InsertEntry(ctx, entry)
		if err != nil {
			return err
		}
		entry.ID = id

		for _, item := range input.Items {
			if err := stock.SetAbsolute(ctx, tx, item.ProductID, item.VariantID, item.NewStock); err != nil {
				return fmt.Errorf("apply item %d/%d: %w", item.ProductID, item.VariantID, err)
			}
		}
		return nil
	})
	if err != nil {
		return StockEntry{}, err
	}
	return entry, nil
}

// UpdateInput carries replacement fields for an existing entry.
type UpdateInput struct {
	Date  string
	Notes string
	Items []StockItem
}

// Update reverts the stored item set to its recorded previous stock, replaces
// the entry's fields, then applies the new item set. Revert before apply is
// mandatory: applying first would double-count overlapping variants.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput) (StockEntry, error) {
	date, err := time.Parse(DateLayout, input.Date)
	if err != nil {
		return StockEntry{}, fmt.Errorf("%w: %q", ErrInvalidDate, input.Date)
	}
	if err := validateItems(input.Items); err != nil {
		return StockEntry{}, err
	}

	var entry StockEntry
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}

		for _, old := range existing.Items {
			if err := stock.SetAbsolute(ctx, tx, old.ProductID, old.VariantID, old.PreviousStock); err != nil {
				return fmt.Errorf("revert item %d/%d: %w", old.ProductID, old.VariantID, err)
			}
		}

		existing.Date = date
		existing.Notes = input.Notes
		existing.Items = input.Items
		if err := tx.SaveEntry(ctx, existing); err != nil {
			return err
		}

		for _, item := range input.Items {
			if err := stock.SetAbsolute(ctx, tx, item.ProductID, item.VariantID, item.NewStock); err != nil {
				return fmt.Errorf("apply item %d/%d: %w", item.ProductID, item.VariantID, err)
			}
		}

		entry = existing
		return nil
	})
	if err != nil {
		return StockEntry{}, err
	}
	return entry, nil
}

// Delete reverses each stored item by its quantity, not by restoring
// previousStock: the variant may have moved since the entry was created.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntry(ctx, id)
		if err != nil {
			return err
		}

		for _, item := range entry.Items {
			if _, err := stock.ApplyDelta(ctx, tx, item.ProductID, item.VariantID, -item.Quantity, false); err != nil {
				return fmt.Errorf("reverse item %d/%d: %w", item.ProductID, item.VariantID, err)
			}
		}

		return tx.DeleteEntry(ctx, id)
	})
}

// List returns entries newest first.
func (s *Service) List(ctx context.Context) ([]StockEntry, error) {
	return s.repo.List(ctx)
}

// Get returns one entry by id.
func (s *Service) Get(ctx context.Context, id int64) (StockEntry, error) {
	return s.repo.Get(ctx, id)
}

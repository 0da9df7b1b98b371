package inventory

import (
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jonah2xm/e-commerce/internal/sequence"
	"github.com/jonah2xm/e-commerce/internal/stock"
)

// memoryRepo emulates the Postgres repository including transaction rollback:
// WithTx snapshots state and restores it when the callback fails.
type memoryRepo struct {
	entries map[int64]StockEntry
	stocks  map[string]int
	refSeq  map[string]int64
	nextID  int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		entries: make(map[int64]StockEntry),
		stocks:  make(map[string]int),
		refSeq:  make(map[string]int64),
	}
}

func key(productID, variantID int64) string {
	return fmt.Sprintf("%d:%d", productID, variantID)
}

func (r *memoryRepo) snapshot() *memoryRepo {
	clone := newMemoryRepo()
	clone.nextID = r.nextID
	for k, v := range r.entries {
		clone.entries[k] = v
	}
	for k, v := range r.stocks {
		clone.stocks[k] = v
	}
	for k, v := range r.refSeq {
		clone.refSeq[k] = v
	}
	return clone
}

func (r *memoryRepo) restore(snap *memoryRepo) {
	r.entries = snap.entries
	r.stocks = snap.stocks
	r.refSeq = snap.refSeq
	r.nextID = snap.nextID
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.snapshot()
	if err := fn(ctx, &memoryTx{repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memoryRepo) List(ctx context.Context) ([]StockEntry, error) {
	var out []StockEntry
	for _, e := range r.entries {
		out = append(out, e)
	}
	return out, nil
}

func (r *memoryRepo) Get(ctx context.Context, id int64) (StockEntry, error) {
	e, ok := r.entries[id]
	if !ok {
		return StockEntry{}, ErrNotFound
	}
	return e, nil
}

type memoryTx struct {
	repo *memoryRepo
}

func (tx *memoryTx) VariantStockForUpdate(ctx context.Context, productID, variantID int64) (int, error) {
	current, ok := tx.repo.stocks[key(productID, variantID)]
	if !ok {
		return 0, stock.ErrVariantNotFound
	}
	return current, nil
}

func (tx *memoryTx) SetVariantStock(ctx context.Context, productID, variantID int64, value int) error {
	tx.repo.stocks[key(productID, variantID)] = value
	return nil
}

func (tx *memoryTx) NextReference(ctx context.Context, at time.Time) (string, error) {
	period := at.UTC().Format("2006-01")
	tx.repo.refSeq[period]++
	return sequence.Format(sequence.KindStockEntry, at, tx.repo.refSeq[period]), nil
}

func (tx *memoryTx) InsertEntry(ctx context.Context, entry StockEntry) (int64, error) {
	for _, existing := range tx.repo.entries {
		if existing.Reference == entry.Reference {
			return 0, sequence.ErrReferenceConflict
		}
	}
	tx.repo.nextID++
	entry.ID = tx.repo.nextID
	tx.repo.entries[entry.ID] = entry
	return entry.ID, nil
}

func (tx *memoryTx) GetEntry(ctx context.Context, id int64) (StockEntry, error) {
	e, ok := tx.repo.entries[id]
	if !ok {
		return StockEntry{}, ErrNotFound
	}
	return e, nil
}

func (tx *memoryTx) SaveEntry(ctx context.Context, entry StockEntry) error {
	if _, ok := tx.repo.entries[entry.ID]; !ok {
		return ErrNotFound
	}
	tx.repo.entries[entry.ID] = entry
	return nil
}

func (tx *memoryTx) DeleteEntry(ctx context.Context, id int64) error {
	if _, ok := tx.repo.entries[id]; !ok {
		return ErrNotFound
	}
	delete(tx.repo.entries, id)
	return nil
}

func newTestService(repo *memoryRepo) *Service {
	return NewService(repo, slog.Default())
}

func item(productID, variantID int64, previous, quantity int) StockItem {
	return StockItem{
		ProductID:     productID,
		VariantID:     variantID,
		ProductName:   "Test Product",
		SKU:           fmt.Sprintf("SKU-%d", variantID),
		PreviousStock: previous,
		Quantity:      quantity,
		NewStock:      previous + quantity,
	}
}

func TestCreateAppliesNewStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[key(1, 10)] = 10
	svc := newTestService(repo)

	entry, err := svc.Create(context.Background(), CreateInput{
		Date:      "2024-06-12",
		Notes:     "restock",
		Items:     []StockItem{item(1, 10, 10, 5)},
		CreatedBy: "admin",
	})
	require.NoError(t, err)
	require.Equal(t, "2024-06-1", entry.Reference)
	require.Equal(t, 15, repo.stocks[key(1, 10)])
}

func TestCreateThenDeleteRestoresStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[key(1, 10)] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date:  "2024-06-12",
		Items: []StockItem{item(1, 10, 10, 5)},
	})
	require.NoError(t, err)
	require.Equal(t, 15, repo.stocks[key(1, 10)])

	require.NoError(t, svc.Delete(ctx, entry.ID))
	require.Equal(t, 10, repo.stocks[key(1, 10)])
	require.Empty(t, repo.entries)
}

func TestDeleteReversesByQuantityNotPreviousStock(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[key(1, 10)] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date:  "2024-06-12",
		Items: []StockItem{item(1, 10, 10, 5)},
	})
	require.NoError(t, err)

	// The variant moved since the entry: a sale took 3.
	repo.stocks[key(1, 10)] = 12

	require.NoError(t, svc.Delete(ctx, entry.ID))
	require.Equal(t, 7, repo.stocks[key(1, 10)])
}

func TestCreateInvalidDate(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Create(context.Background(), CreateInput{
		Date:  "not-a-date",
		Items: []StockItem{item(1, 10, 0, 1)},
	})
	require.ErrorIs(t, err, ErrInvalidDate)
}

func TestCreateValidatesItems(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Date: "2024-06-12"})
	require.ErrorIs(t, err, ErrNoItems)

	bad := item(1, 10, 10, 5)
	bad.NewStock = 99
	_, err = svc.Create(ctx, CreateInput{Date: "2024-06-12", Items: []StockItem{bad}})
	require.ErrorIs(t, err, ErrItemArithmetic)

	zeroQty := StockItem{ProductID: 1, VariantID: 10, PreviousStock: 5, Quantity: 0, NewStock: 5}
	_, err = svc.Create(ctx, CreateInput{Date: "2024-06-12", Items: []StockItem{zeroQty}})
	require.ErrorIs(t, err, ErrItemInvalid)
}

func TestCreateAbortsOnMissingVariant(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[key(1, 10)] = 10
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), CreateInput{
		Date: "2024-06-12",
		Items: []StockItem{
			item(1, 10, 10, 5),
			item(2, 99, 0, 3), // no such variant
		},
	})
	require.ErrorIs(t, err, stock.ErrVariantNotFound)
	require.Equal(t, 10, repo.stocks[key(1, 10)], "first item's effect must roll back")
	require.Empty(t, repo.entries, "entry must not persist")
}

func TestUpdateRevertsThenApplies(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[key(1, 10)] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date:  "2024-06-12",
		Items: []StockItem{item(1, 10, 10, 5)},
	})
	require.NoError(t, err)
	require.Equal(t, 15, repo.stocks[key(1, 10)])

	// Replace the adjustment on the same variant: +5 becomes +2.
	updated, err := svc.Update(ctx, entry.ID, UpdateInput{
		Date:  "2024-06-13",
		Items: []StockItem{item(1, 10, 10, 2)},
	})
	require.NoError(t, err)
	require.Equal(t, 12, repo.stocks[key(1, 10)])
	require.Equal(t, entry.Reference, updated.Reference, "reference survives edits")
}

func TestUpdateWithIdenticalItemsIsIdempotent(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[key(1, 10)] = 10
	repo.stocks[key(1, 11)] = 4
	svc := newTestService(repo)
	ctx := context.Background()

	items := []StockItem{item(1, 10, 10, 5), item(1, 11, 4, 2)}
	entry, err := svc.Create(ctx, CreateInput{Date: "2024-06-12", Items: items})
	require.NoError(t, err)
	require.Equal(t, 15, repo.stocks[key(1, 10)])
	require.Equal(t, 6, repo.stocks[key(1, 11)])

	_, err = svc.Update(ctx, entry.ID, UpdateInput{Date: "2024-06-12", Items: items})
	require.NoError(t, err)
	require.Equal(t, 15, repo.stocks[key(1, 10)])
	require.Equal(t, 6, repo.stocks[key(1, 11)])
}

func TestUpdateAbortsWhenVariantMissing(t *testing.T) {
	repo := newMemoryRepo()
	repo.stocks[key(1, 10)] = 10
	svc := newTestService(repo)
	ctx := context.Background()

	entry, err := svc.Create(ctx, CreateInput{
		Date:  "2024-06-12",
		Items: []StockItem{item(1, 10, 10, 5)},
	})
	require.NoError(t, err)

	_, err = svc.Update(ctx, entry.ID, UpdateInput{
		Date:  "2024-06-13",
		Items: []StockItem{item(9, 99, 0, 1)},
	})
	require.ErrorIs(t, err, stock.ErrVariantNotFound)
	require.Equal(t, 15, repo.stocks[key(1, 10)], "revert of old items must roll back")
	require.Equal(t, []StockItem{item(1, 10, 10, 5)}, repo.entries[entry.ID].Items)
}

func TestUpdateNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	_, err := svc.Update(context.Background(), 42, UpdateInput{
		Date:  "2024-06-12",
		Items: []StockItem{item(1, 10, 0, 1)},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteNotFound(t *testing.T) {
	svc := newTestService(newMemoryRepo())
	require.ErrorIs(t, svc.Delete(context.Background(), 42), ErrNotFound)
}

func TestReferencesIncrementWithoutReuse(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	var entries []StockEntry
	for i := 0; i < 3; i++ {
		repo.stocks[key(1, int64(10+i))] = 0
		entry, err := svc.Create(ctx, CreateInput{
			Date:  "2024-06-12",
			Items: []StockItem{item(1, int64(10+i), 0, 1)},
		})
		require.NoError(t, err)
		entries = append(entries, entry)
	}
	require.Equal(t, "2024-06-1", entries[0].Reference)
	require.Equal(t, "2024-06-2", entries[1].Reference)
	require.Equal(t, "2024-06-3", entries[2].Reference)

	// Deleting an entry mid-sequence leaves a gap; the number is never reused.
	require.NoError(t, svc.Delete(ctx, entries[1].ID))
	entry, err := svc.Create(ctx, CreateInput{
		Date:  "2024-06-20",
		Items: []StockItem{item(1, 10, 1, 1)},
	})
	require.NoError(t, err)
	require.Equal(t, "2024-06-4", entry.Reference)
}

package sales

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

// memorySaleRepo emulates the Postgres repository including transaction
// rollback: WithTx snapshots state and restores it when the callback fails.
type memorySaleRepo struct {
	sales   map[int64]Sale
	stocks  map[string]int
	numbers map[string]int64
	nextID  int64
}

func newMemorySaleRepo() *memorySaleRepo {
	return &memorySaleRepo{
		sales:   make(map[int64]Sale),
		stocks:  make(map[string]int),
		numbers: make(map[string]int64),
	}
}

func stockKey(productID, variantID int64) string {
	return fmt.Sprintf("%d:%d", productID, variantID)
}

func (r *memorySaleRepo) snapshot() *memorySaleRepo {
	clone := newMemorySaleRepo()
	clone.nextID = r.nextID
	for k, v := range r.sales {
		clone.sales[k] = v
	}
	for k, v := range r.stocks {
		clone.stocks[k] = v
	}
	for k, v := range r.numbers {
		clone.numbers[k] = v
	}
	return clone
}

func (r *memorySaleRepo) restore(snap *memorySaleRepo) {
	r.sales = snap.sales
	r.stocks = snap.stocks
	r.numbers = snap.numbers
	r.nextID = snap.nextID
}

func (r *memorySaleRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	snap := r.snapshot()
	if err := fn(ctx, &memorySaleTx{repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

func (r *memorySaleRepo) List(ctx context.Context, page, limit int) ([]Sale, int, error) {
	var out []Sale
	for _, s := range r.sales {
		out = append(out, s)
	}
	return out, len(out), nil
}

func (r *memorySaleRepo) Get(ctx context.Context, id int64) (Sale, error) {
	s, ok := r.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return s, nil
}

type memorySaleTx struct {
	repo *memorySaleRepo
}

func (tx *memorySaleTx) VariantStockForUpdate(ctx context.Context, productID, variantID int64) (int, error) {
	current, ok := tx.repo.stocks[stockKey(productID, variantID)]
	if !ok {
		return 0, stock.ErrVariantNotFound
	}
	return current, nil
}

func (tx *memorySaleTx) SetVariantStock(ctx context.Context, productID, variantID int64, value int) error {
	tx.repo.stocks[stockKey(productID, variantID)] = value
	return nil
}

func (tx *memorySaleTx) NextSaleNumber(ctx context.Context, at time.Time) (string, error) {
	period := at.UTC().Format("2006-01")
	tx.repo.numbers[period]++
	return sequence.Format(sequence.KindSale, at, tx.repo.numbers[period]), nil
}

func (tx *memorySaleTx) InsertSale(ctx context.Context, sale Sale) (int64, error) {
	for _, existing := range tx.repo.sales {
		if existing.SaleNumber == sale.SaleNumber {
			return 0, sequence.ErrReferenceConflict
		}
	}
	tx.repo.nextID++
	sale.ID = tx.repo.nextID
	tx.repo.sales[sale.ID] = sale
	return sale.ID, nil
}

func (tx *memorySaleTx) GetSale(ctx context.Context, id int64) (Sale, error) {
	s, ok := tx.repo.sales[id]
	if !ok {
		return Sale{}, ErrNotFound
	}
	return s, nil
}

func (tx *memorySaleTx) UpdateSaleStatus(ctx context.Context, id int64, status SaleStatus) error {
	s, ok := tx.repo.sales[id]
	if !ok {
		return ErrNotFound
	}
	s.Status = status
	tx.repo.sales[id] = s
	return nil
}

func newTestService(repo *memorySaleRepo) *Service {
	svc := NewService(repo, slog.Default())
	svc.now = func() time.Time {
		return time.Date(2024, time.June, 15, 10, 0, 0, 0, time.UTC)
	}
	return svc
}

func saleInput(items ...SaleItem) CreateInput {
	return CreateInput{
		Items:              items,
		PaymentMethod:      PaymentCash,
		Subtotal:           100,
		DiscountedSubtotal: 100,
		TaxAmount:          19,
		Total:              119,
	}
}

func TestCreateDecrementsStockPerItem(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 8
	repo.stocks[stockKey(1, 11)] = 5
	svc := newTestService(repo)

	sale, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 3},
		SaleItem{ProductID: 1, VariantID: 11, Name: "Tee", Price: 25, Quantity: 1},
	))
	require.NoError(t, err)
	require.Equal(t, "2024-06-1", sale.SaleNumber)
	require.Equal(t, SaleStatusCompleted, sale.Status)
	require.Equal(t, 5, repo.stocks[stockKey(1, 10)])
	require.Equal(t, 4, repo.stocks[stockKey(1, 11)])
}

func TestCreateInsufficientStockRollsBack(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 5
	repo.stocks[stockKey(1, 11)] = 2
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 4},
		SaleItem{ProductID: 1, VariantID: 11, Name: "Tee", Price: 25, Quantity: 3},
	))
	require.ErrorIs(t, err, stock.ErrInsufficientStock)

	// Nothing committed: first item's decrement is rolled back too.
	require.Equal(t, 5, repo.stocks[stockKey(1, 10)])
	require.Equal(t, 2, repo.stocks[stockKey(1, 11)])
	require.Empty(t, repo.sales)
}

func TestCreateExactStockReachesZero(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 2
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 2},
	))
	require.NoError(t, err)
	require.Equal(t, 0, repo.stocks[stockKey(1, 10)])
}

func TestCreateMissingVariantFails(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 9, VariantID: 99, Name: "Ghost", Price: 10, Quantity: 1},
	))
	require.ErrorIs(t, err, stock.ErrVariantNotFound)
	require.Empty(t, repo.sales)
}

func TestSaleNumbersIncrementWithinMonth(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 100
	repo.numbers["2024-06"] = 4 // existing sales this month
	svc := newTestService(repo)

	sale, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 1},
	))
	require.NoError(t, err)
	require.Equal(t, "2024-06-5", sale.SaleNumber)

	sale, err = svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 1},
	))
	require.NoError(t, err)
	require.Equal(t, "2024-06-6", sale.SaleNumber)
}

func TestRefundRestoresStock(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 10
	svc := newTestService(repo)

	sale, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 4},
	))
	require.NoError(t, err)
	require.Equal(t, 6, repo.stocks[stockKey(1, 10)])

	refunded, err := svc.UpdateStatus(context.Background(), sale.ID, SaleStatusRefunded)
	require.NoError(t, err)
	require.Equal(t, SaleStatusRefunded, refunded.Status)
	require.Equal(t, 10, repo.stocks[stockKey(1, 10)])

	// Back to completed: re-deduct.
	completed, err := svc.UpdateStatus(context.Background(), sale.ID, SaleStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, SaleStatusCompleted, completed.Status)
	require.Equal(t, 6, repo.stocks[stockKey(1, 10)])
}

func TestRepeatedStatusIsNoOp(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 10
	svc := newTestService(repo)

	sale, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 3},
	))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), sale.ID, SaleStatusRefunded)
	require.NoError(t, err)
	require.Equal(t, 10, repo.stocks[stockKey(1, 10)])

	// Refunding an already refunded sale must not restore stock again.
	again, err := svc.UpdateStatus(context.Background(), sale.ID, SaleStatusRefunded)
	require.NoError(t, err)
	require.Equal(t, SaleStatusRefunded, again.Status)
	require.Equal(t, 10, repo.stocks[stockKey(1, 10)])
}

func TestReDeductClampsAtZero(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 5
	svc := newTestService(repo)

	sale, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 5},
	))
	require.NoError(t, err)

	_, err = svc.UpdateStatus(context.Background(), sale.ID, SaleStatusRefunded)
	require.NoError(t, err)
	require.Equal(t, 5, repo.stocks[stockKey(1, 10)])

	// Someone else bought 3 while the sale sat refunded.
	repo.stocks[stockKey(1, 10)] = 2

	_, err = svc.UpdateStatus(context.Background(), sale.ID, SaleStatusCompleted)
	require.NoError(t, err)
	require.Equal(t, 0, repo.stocks[stockKey(1, 10)])
}

func TestRefundSkipsDeletedVariant(t *testing.T) {
	repo := newMemorySaleRepo()
	repo.stocks[stockKey(1, 10)] = 10
	repo.stocks[stockKey(1, 11)] = 10
	svc := newTestService(repo)

	sale, err := svc.Create(context.Background(), saleInput(
		SaleItem{ProductID: 1, VariantID: 10, Name: "Tee", Price: 25, Quantity: 2},
		SaleItem{ProductID: 1, VariantID: 11, Name: "Tee", Price: 25, Quantity: 2},
	))
	require.NoError(t, err)

	// Variant 10 removed from the catalog after the sale.
	delete(repo.stocks, stockKey(1, 10))

	refunded, err := svc.UpdateStatus(context.Background(), sale.ID, SaleStatusRefunded)
	require.NoError(t, err)
	require.Equal(t, SaleStatusRefunded, refunded.Status)
	require.Equal(t, 10, repo.stocks[stockKey(1, 11)])
	_, exists := repo.stocks[stockKey(1, 10)]
	require.False(t, exists)
}

func TestUpdateStatusValidation(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := newTestService(repo)

	_, err := svc.UpdateStatus(context.Background(), 1, SaleStatus("archived"))
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.UpdateStatus(context.Background(), 404, SaleStatusRefunded)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateValidation(t *testing.T) {
	repo := newMemorySaleRepo()
	svc := newTestService(repo)
	ctx := context.Background()

	_, err := svc.Create(ctx, saleInput())
	require.ErrorIs(t, err, ErrNoItems)

	_, err = svc.Create(ctx, saleInput(SaleItem{ProductID: 1, VariantID: 10, Quantity: 0}))
	require.ErrorIs(t, err, ErrItemInvalid)

	input := saleInput(SaleItem{ProductID: 1, VariantID: 10, Price: 5, Quantity: 1})
	input.PaymentMethod = "barter"
	_, err = svc.Create(ctx, input)
	require.ErrorIs(t, err, ErrInvalidPayment)

	input = saleInput(SaleItem{ProductID: 1, VariantID: 10, Price: 5, Quantity: 1})
	input.Total = -1
	_, err = svc.Create(ctx, input)
	require.ErrorIs(t, err, ErrInvalidTotals)
}

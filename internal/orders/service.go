package orders

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Notifier dispatches order emails. Implementations must be fire and forget:
// a failed enqueue is the notifier's problem, never the caller's.
type Notifier interface {
	OrderConfirmation(ctx context.Context, order Order)
	OrderStatusChanged(ctx context.Context, order Order)
}

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	List(ctx context.Context, page, limit int) ([]Order, int, error)
	ListByEmail(ctx context.Context, email string) ([]Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	GetByNumber(ctx context.Context, number string) (Order, error)
	GetByToken(ctx context.Context, token uuid.UUID) (Order, error)
	Update(ctx context.Context, id int64, fields map[string]any) (Order, error)
}

// Service is the order manager.
type Service struct {
	repo     RepositoryPort
	notifier Notifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, notifier Notifier, logger *slog.Logger) *Service {
	return &Service{repo: repo, notifier: notifier, logger: logger, now: time.Now}
}

// CreateInput carries a new storefront order.
type CreateInput struct {
	Email          string
	FirstName      string
	LastName       string
	Address        string
	Apartment      string
	City           string
	State          string
	ZipCode        string
	Wilaya         string
	Commune        string
	Phone          string
	ShippingMethod ShippingMethod
	Items          []OrderItem
	Totals         Totals
}

func (input CreateInput) validate() error {
	if _, err := mail.ParseAddress(input.Email); err != nil {
		return fmt.Errorf("%w: email", ErrInvalid)
	}
	if input.FirstName == "" || input.LastName == "" || input.Address == "" || input.Phone == "" {
		return fmt.Errorf("%w: missing contact fields", ErrInvalid)
	}
	if !ValidShippingMethod(input.ShippingMethod) {
		return ErrInvalidShipping
	}
	if len(input.Items) == 0 {
		return ErrNoItems
	}
	for _, item := range input.Items {
		if item.ProductID == 0 || item.VariantID == 0 || item.Quantity < 1 || item.Price < 0 {
			return ErrItemInvalid
		}
	}
	if input.Totals.Subtotal < 0 || input.Totals.Shipping < 0 || input.Totals.Tax < 0 || input.Totals.Total < 0 {
		return fmt.Errorf("%w: totals must be >= 0", ErrInvalid)
	}
	return nil
}

// Create assigns the next order number and persists the order. The stock
// ledger is intentionally untouched: inventory moves when the order ships,
// not when it is placed. The confirmation email is enqueued after commit.
func (s *Service) Create(ctx context.Context, input CreateInput) (Order, error) {
	if err := input.validate(); err != nil {
		return Order{}, err
	}

	now := s.now().UTC()
	var order Order
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextOrderNumber(ctx, now)
		if err != nil {
			return err
		}

		order = Order{
			OrderNumber:    number,
			PublicToken:    uuid.New(),
			Email:          strings.ToLower(input.Email),
			FirstName:      input.FirstName,
			LastName:       input.LastName,
			Address:        input.Address,
			Apartment:      input.Apartment,
			City:           input.City,
			State:          input.State,
			ZipCode:        input.ZipCode,
			Wilaya:         input.Wilaya,
			Commune:        input.Commune,
			Phone:          input.Phone,
			ShippingMethod: input.ShippingMethod,
			Status:         StatusPending,
			Items:          input.Items,
			Totals:         input.Totals,
		}
		id, err := tx.InsertOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		return nil
	})
	if err != nil {
		return Order{}, err
	}

	s.notifier.OrderConfirmation(ctx, order)
	return order, nil
}

// updatableFields is the closed set of columns an update may touch.
var updatableFields = map[string]struct{}{
	"email":           {},
	"first_name":      {},
	"last_name":       {},
	"address":         {},
	"apartment":       {},
	"city":            {},
	"state":           {},
	"zip_code":        {},
	"wilaya":          {},
	"commune":         {},
	"phone":           {},
	"shipping_method": {},
	"status":          {},
}

// Update applies a partial update. Any key outside the whitelist rejects the
// whole request. A status change rides the same path as UpdateStatus,
// including the notification.
func (s *Service) Update(ctx context.Context, id int64, fields map[string]any) (Order, error) {
	if len(fields) == 0 {
		return Order{}, fmt.Errorf("%w: no fields", ErrInvalid)
	}
	for key := range fields {
		if _, ok := updatableFields[key]; !ok {
			return Order{}, fmt.Errorf("%w: %q", ErrInvalidField, key)
		}
	}
	if raw, ok := fields["status"]; ok {
		status, _ := raw.(string)
		if !ValidStatus(OrderStatus(status)) {
			return Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
	}
	if raw, ok := fields["shipping_method"]; ok {
		method, _ := raw.(string)
		if !ValidShippingMethod(ShippingMethod(method)) {
			return Order{}, fmt.Errorf("%w: %q", ErrInvalidShipping, method)
		}
	}
	if raw, ok := fields["email"]; ok {
		email, _ := raw.(string)
		if _, err := mail.ParseAddress(email); err != nil {
			return Order{}, fmt.Errorf("%w: email", ErrInvalid)
		}
		fields["email"] = strings.ToLower(email)
	}

	order, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		return Order{}, err
	}

	if _, ok := fields["status"]; ok {
		s.notifier.OrderStatusChanged(ctx, order)
	}
	return order, nil
}

// UpdateStatus moves the order through the fulfillment machine and enqueues a
// best-effort status email.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status OrderStatus) (Order, error) {
	if !ValidStatus(status) {
		return Order{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	return s.Update(ctx, id, map[string]any{"status": string(status)})
}

// Get returns one order by id.
func (s *Service) Get(ctx context.Context, id int64) (Order, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber returns one order by its human-readable number.
func (s *Service) GetByNumber(ctx context.Context, number string) (Order, error) {
	return s.repo.GetByNumber(ctx, number)
}

// GetByToken returns one order by its public tracking token.
func (s *Service) GetByToken(ctx context.Context, token uuid.UUID) (Order, error) {
	return s.repo.GetByToken(ctx, token)
}

// List returns orders newest first with the total count.
func (s *Service) List(ctx context.Context, page, limit int) ([]Order, int, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 25
	}
	return s.repo.List(ctx, page, limit)
}

// ListByEmail returns a customer's orders, matching email case-insensitively.
func (s *Service) ListByEmail(ctx context.Context, email string) ([]Order, error) {
	return s.repo.ListByEmail(ctx, strings.ToLower(email))
}

package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/jonah2xm/e-commerce/internal/platform/httpx"
	"github.com/jonah2xm/e-commerce/internal/sequence"
	"github.com/jonah2xm/e-commerce/internal/stock"
)

// Handler wires HTTP endpoints for the sales module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/sales", h.list)
	r.Post("/sales", h.create)
	r.Get("/sales/{id}", h.get)
	r.Patch("/sales/updateSaleStatus/{id}", h.updateStatus)
}

type saleItemPayload struct {
	VariantID int64   `json:"variant_id" validate:"required"`
	ProductID int64   `json:"product_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Variant   string  `json:"variant"`
	SKU       string  `json:"sku"`
	Barcode   string  `json:"barcode"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
}

type createSalePayload struct {
	Items              []saleItemPayload `json:"items" validate:"required,min=1,dive"`
	PaymentMethod      string            `json:"payment_method" validate:"required,oneof=cash credit_card debit_card"`
	Subtotal           float64           `json:"subtotal" validate:"gte=0"`
	DiscountedSubtotal float64           `json:"discounted_subtotal" validate:"gte=0"`
	TaxAmount          float64           `json:"tax_amount" validate:"gte=0"`
	Total              float64           `json:"total" validate:"gte=0"`
	AmountTendered     *float64          `json:"amount_tendered" validate:"omitempty,gte=0"`
	ChangeDue          *float64          `json:"change_due" validate:"omitempty,gte=0"`
	Timestamp          *time.Time        `json:"timestamp"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createSalePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items := make([]SaleItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, SaleItem{
			VariantID: item.VariantID,
			ProductID: item.ProductID,
			Name:      item.Name,
			Variant:   item.Variant,
			SKU:       item.SKU,
			Barcode:   item.Barcode,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	sale, err := h.service.Create(r.Context(), CreateInput{
		Items:              items,
		PaymentMethod:      PaymentMethod(payload.PaymentMethod),
		Subtotal:           payload.Subtotal,
		DiscountedSubtotal: payload.DiscountedSubtotal,
		TaxAmount:          payload.TaxAmount,
		Total:              payload.Total,
		AmountTendered:     payload.AmountTendered,
		ChangeDue:          payload.ChangeDue,
		Timestamp:          payload.Timestamp,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sale)
}

type updateStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=completed refunded"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	var payload updateStatusPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	sale, err := h.service.UpdateStatus(r.Context(), id, SaleStatus(payload.Status))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	salesList, total, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if salesList == nil {
		salesList = []Sale{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sales": salesList,
		"total": total,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid sale id")
		return
	}
	sale, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNoItems), errors.Is(err, ErrItemInvalid),
		errors.Is(err, ErrInvalidPayment), errors.Is(err, ErrInvalidTotals),
		errors.Is(err, ErrInvalidStatus):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, stock.ErrVariantNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	case errors.Is(err, stock.ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, sequence.ErrReferenceConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "sale number conflict, please retry")
	default:
		h.logger.Error("sales request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jonah2xm/e-commerce/internal/platform/httpx"
	"github.com/jonah2xm/e-commerce/internal/sequence"
)

// Handler wires HTTP endpoints for the orders module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs orders handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers admin order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/orders", h.list)
	r.Get("/orders/{id}", h.get)
	r.Get("/orders/number/{number}", h.getByNumber)
	r.Put("/orders/{id}", h.update)
	r.Patch("/orders/{id}", h.update)
	r.Patch("/orders/updateOrderStatus/{id}", h.updateStatus)
}

// MountPublicRoutes registers storefront order routes.
func (h *Handler) MountPublicRoutes(r chi.Router) {
	r.Post("/orders", h.create)
	r.Get("/orders/track/{token}", h.getByToken)
	r.Get("/orders", h.listByEmail)
}

type orderItemPayload struct {
	ProductID int64   `json:"product_id" validate:"required"`
	VariantID int64   `json:"variant_id" validate:"required"`
	Name      string  `json:"name" validate:"required"`
	Variant   string  `json:"variant"`
	SKU       string  `json:"sku"`
	Price     float64 `json:"price" validate:"gte=0"`
	Quantity  int     `json:"quantity" validate:"gte=1"`
}

type createOrderPayload struct {
	Email          string             `json:"email" validate:"required,email"`
	FirstName      string             `json:"first_name" validate:"required"`
	LastName       string             `json:"last_name" validate:"required"`
	Address        string             `json:"address" validate:"required"`
	Apartment      string             `json:"apartment"`
	City           string             `json:"city"`
	State          string             `json:"state"`
	ZipCode        string             `json:"zip_code"`
	Wilaya         string             `json:"wilaya"`
	Commune        string             `json:"commune"`
	Phone          string             `json:"phone" validate:"required"`
	ShippingMethod string             `json:"shipping_method" validate:"required,oneof=desk home"`
	Items          []orderItemPayload `json:"items" validate:"required,min=1,dive"`
	Totals         Totals             `json:"totals"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var payload createOrderPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	items := make([]OrderItem, 0, len(payload.Items))
	for _, item := range payload.Items {
		items = append(items, OrderItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Name:      item.Name,
			Variant:   item.Variant,
			SKU:       item.SKU,
			Price:     item.Price,
			Quantity:  item.Quantity,
		})
	}

	order, err := h.service.Create(r.Context(), CreateInput{
		Email:          payload.Email,
		FirstName:      payload.FirstName,
		LastName:       payload.LastName,
		Address:        payload.Address,
		Apartment:      payload.Apartment,
		City:           payload.City,
		State:          payload.State,
		ZipCode:        payload.ZipCode,
		Wilaya:         payload.Wilaya,
		Commune:        payload.Commune,
		Phone:          payload.Phone,
		ShippingMethod: ShippingMethod(payload.ShippingMethod),
		Items:          items,
		Totals:         payload.Totals,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	var fields map[string]any
	if err := httpx.DecodeJSON(r, &fields); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}

	order, err := h.service.Update(r.Context(), id, fields)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

type updateOrderStatusPayload struct {
	Status string `json:"status" validate:"required,oneof=pending processing shipped delivered canceled"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	var payload updateOrderStatusPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, OrderStatus(payload.Status))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))

	ordersList, total, err := h.service.List(r.Context(), page, limit)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if ordersList == nil {
		ordersList = []Order{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"orders": ordersList,
		"total":  total,
	})
}

func (h *Handler) listByEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "email query parameter is required")
		return
	}
	ordersList, err := h.service.ListByEmail(r.Context(), email)
	if err != nil {
		h.respondError(w, err)
		return
	}
	if ordersList == nil {
		ordersList = []Order{}
	}
	httpx.JSON(w, http.StatusOK, ordersList)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid order id")
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) getByNumber(w http.ResponseWriter, r *http.Request) {
	order, err := h.service.GetByNumber(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) getByToken(w http.ResponseWriter, r *http.Request) {
	token, err := uuid.Parse(chi.URLParam(r, "token"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid tracking token")
		return
	}
	order, err := h.service.GetByToken(r.Context(), token)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalid), errors.Is(err, ErrNoItems), errors.Is(err, ErrItemInvalid),
		errors.Is(err, ErrInvalidStatus), errors.Is(err, ErrInvalidShipping),
		errors.Is(err, ErrInvalidField):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, sequence.ErrReferenceConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "order number conflict, please retry")
	default:
		h.logger.Error("orders request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}

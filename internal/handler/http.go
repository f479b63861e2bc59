package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/evermart/order-service/internal/entities"
	"github.com/evermart/order-service/internal/service"
	"github.com/evermart/order-service/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type OrderService interface {
	CreateCustomerOrder(ctx context.Context, input service.CreateCustomerOrderInput) (uuid.UUID, error)
	CreateAdminOrder(ctx context.Context, input service.CreateAdminOrderInput) (uuid.UUID, error)
	ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	ListOrders(ctx context.Context, limit, offset int) ([]entities.Order, error)
	ListOrderOverviews(ctx context.Context, limit, offset int) ([]entities.OrderOverview, error)
	CountOrders(ctx context.Context) (int, error)
	OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)
	ProductIsBought(ctx context.Context, productID uuid.UUID) (bool, error)
	VariantIsBought(ctx context.Context, variantID uuid.UUID) (bool, error)
}

type HTTPHandler struct {
	logger   *slog.Logger
	validate *validator.Validate
	svc      OrderService
}

func NewHTTPHandler(logger *slog.Logger, svc OrderService) *HTTPHandler {
	return &HTTPHandler{
		logger:   logger.With(slog.String("handler", "http")),
		validate: validator.New(),
		svc:      svc,
	}
}

func (h *HTTPHandler) Init(r chi.Router) {
	r.Post("/orders", h.CreateOrder)
	r.Post("/admin/orders", h.CreateAdminOrder)
	r.Post("/orders/{order_id}/payment", h.ConfirmPayment)
	r.Get("/orders/{order_id}", h.GetOrderByID)
	r.Get("/orders", h.ListOrderOverviews)
	r.Head("/orders/{order_id}", h.OrderExists)
	r.Get("/admin/orders", h.ListOrders)
	r.Get("/admin/stats", h.GetOrderStats)
	r.Get("/admin/products/{product_id}/purchased", h.ProductPurchased)
	r.Get("/admin/variants/{variant_id}/purchased", h.VariantPurchased)
}

// CreateOrder оформляет гостевой заказ.
// @Summary  Создать заказ
// @Tags     orders
// @Router   /orders [post]
func (h *HTTPHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	products, err := productsToInput(req.Products)
	if err != nil {
		utils.WriteError(w, "invalid identifier", http.StatusBadRequest)
		return
	}

	orderID, err := h.svc.CreateCustomerOrder(ctx, service.CreateCustomerOrderInput{
		Customer: customerToEntity(req.Customer),
		Shipping: shippingToEntity(req.ShippingAddress),
		Products: products,
	})
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, CreateOrderResponse{OrderID: orderID.String()}, http.StatusCreated)
}

// CreateAdminOrder оформляет заказ от имени админа.
// @Summary  Создать заказ (админ)
// @Tags     orders
// @Router   /admin/orders [post]
func (h *HTTPHandler) CreateAdminOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req CreateAdminOrderRequest
	if err := utils.DecodeBody(r, &req); err != nil {
		utils.WriteError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		utils.WriteValidationError(w, err)
		return
	}

	adminID, err := uuid.Parse(req.AdminID)
	if err != nil {
		utils.WriteError(w, "invalid identifier", http.StatusBadRequest)
		return
	}
	products, err := productsToInput(req.Products)
	if err != nil {
		utils.WriteError(w, "invalid identifier", http.StatusBadRequest)
		return
	}

	payment, err := entities.NewPaymentInfo(
		entities.PaymentStatus(req.PaymentStatus),
		req.PaidAt,
		req.PaymentDeadline,
	)
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	orderID, err := h.svc.CreateAdminOrder(ctx, service.CreateAdminOrderInput{
		AdminID:  adminID,
		Customer: customerToEntity(req.Customer),
		Shipping: shippingToEntity(req.ShippingAddress),
		Products: products,
		Status:   entities.OrderStatus(req.Status),
		Payment:  payment,
	})
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, CreateOrderResponse{OrderID: orderID.String()}, http.StatusCreated)
}

// ConfirmPayment обрабатывает callback об успешной оплате.
// @Summary  Подтвердить оплату
// @Tags     orders
// @Router   /orders/{order_id}/payment [post]
func (h *HTTPHandler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		utils.WriteError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var req ConfirmPaymentRequest
	if r.ContentLength > 0 {
		if err := utils.DecodeBody(r, &req); err != nil {
			utils.WriteError(w, "invalid request body", http.StatusBadRequest)
			return
		}
	}

	var paidAt time.Time
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}

	if err := h.svc.ConfirmPayment(ctx, orderID, paidAt); err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetOrderByID возвращает заказ по идентификатору.
// @Summary  Получить заказ
// @Tags     orders
// @Router   /orders/{order_id} [get]
func (h *HTTPHandler) GetOrderByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		utils.WriteError(w, "invalid order id", http.StatusBadRequest)
		return
	}

	order, err := h.svc.GetOrderByID(ctx, orderID)
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, OrderEntityToJSON(order), http.StatusOK)
}

// ListOrders возвращает страницу полных заказов для админки.
// @Summary  Список заказов (полные агрегаты)
// @Tags     orders
// @Router   /admin/orders [get]
func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	orders, err := h.svc.ListOrders(ctx, limit, offset)
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	res := make([]OrderJSON, 0, len(orders))
	for _, o := range orders {
		res = append(res, OrderEntityToJSON(o))
	}
	utils.WriteJSON(w, res, http.StatusOK)
}

// ListOrderOverviews возвращает страницу списка заказов.
// @Summary  Список заказов
// @Tags     orders
// @Router   /orders [get]
func (h *HTTPHandler) ListOrderOverviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	overviews, err := h.svc.ListOrderOverviews(ctx, limit, offset)
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	res := make([]OrderOverviewJSON, 0, len(overviews))
	for _, o := range overviews {
		res = append(res, OverviewEntityToJSON(o))
	}
	utils.WriteJSON(w, res, http.StatusOK)
}

// OrderExists проверяет наличие заказа, тело не возвращается.
// @Summary  Проверить существование заказа
// @Tags     orders
// @Router   /orders/{order_id} [head]
func (h *HTTPHandler) OrderExists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	orderID, err := uuid.Parse(chi.URLParam(r, "order_id"))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	exists, err := h.svc.OrderExists(ctx, orderID)
	if err != nil {
		h.logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if !exists {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetOrderStats отдаёт счётчики для админки.
// @Summary  Статистика заказов
// @Tags     orders
// @Router   /admin/stats [get]
func (h *HTTPHandler) GetOrderStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	count, err := h.svc.CountOrders(ctx)
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, OrderStatsResponse{Orders: count}, http.StatusOK)
}

// ProductPurchased отвечает, встречается ли товар в заказах.
// @Summary  Товар встречается в заказах
// @Tags     catalog
// @Router   /admin/products/{product_id}/purchased [get]
func (h *HTTPHandler) ProductPurchased(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	productID, err := uuid.Parse(chi.URLParam(r, "product_id"))
	if err != nil {
		utils.WriteError(w, "invalid product id", http.StatusBadRequest)
		return
	}

	bought, err := h.svc.ProductIsBought(ctx, productID)
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, PurchasedResponse{Purchased: bought}, http.StatusOK)
}

// VariantPurchased отвечает, встречается ли вариант в заказах.
// @Summary  Вариант встречается в заказах
// @Tags     catalog
// @Router   /admin/variants/{variant_id}/purchased [get]
func (h *HTTPHandler) VariantPurchased(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	variantID, err := uuid.Parse(chi.URLParam(r, "variant_id"))
	if err != nil {
		utils.WriteError(w, "invalid variant id", http.StatusBadRequest)
		return
	}

	bought, err := h.svc.VariantIsBought(ctx, variantID)
	if err != nil {
		h.writeBusinessError(ctx, w, err)
		return
	}

	utils.WriteJSON(w, PurchasedResponse{Purchased: bought}, http.StatusOK)
}

// writeBusinessError маппит типизированные доменные ошибки на HTTP-статусы,
// всё незнакомое уходит как 500.
func (h *HTTPHandler) writeBusinessError(ctx context.Context, w http.ResponseWriter, err error) {
	var (
		notEnoughStock   *entities.NotEnoughStockError
		invalidProduct   *entities.InvalidProductError
		invalidVariant   *entities.InvalidVariantError
		sizeNotAvailable *entities.SizeNotAvailableError
		invalidTransit   *entities.InvalidOrderStatusTransitionError
		invalidPayment   *entities.InvalidPaymentStatusError
		alreadyPaid      *entities.PaymentAlreadyMadeError
		deadlineExceeded *entities.PaymentDeadlineExceededError
		invalidCreator   *entities.InvalidCreatorError
	)

	switch {
	case errors.Is(err, entities.ErrOrderNotFound),
		errors.As(err, &invalidProduct),
		errors.As(err, &invalidVariant),
		errors.As(err, &sizeNotAvailable):
		utils.WriteError(w, err.Error(), http.StatusNotFound)
	case errors.As(err, &notEnoughStock),
		errors.As(err, &alreadyPaid),
		errors.As(err, &deadlineExceeded),
		errors.As(err, &invalidTransit),
		errors.As(err, &invalidPayment),
		errors.Is(err, entities.ErrStockConflict):
		utils.WriteError(w, err.Error(), http.StatusConflict)
	case errors.As(err, &invalidCreator),
		errors.Is(err, entities.ErrOrderCreatorRequired):
		utils.WriteError(w, err.Error(), http.StatusForbidden)
	default:
		h.logger.ErrorContext(ctx, "request failed", slog.Any("error", err))
		utils.WriteError(w, "internal server error", http.StatusInternalServerError)
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return fallback
	}
	i, err := strconv.Atoi(value)
	if err != nil || i < 0 {
		return fallback
	}
	return i
}

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evermart/order-service/internal/entities"
	"github.com/evermart/order-service/pkg/trm"
	"github.com/evermart/order-service/pkg/utils"

	"github.com/google/uuid"
)

type OrderRepo interface {
	SaveOrder(ctx context.Context, o entities.Order) error
	UpdateOrderPayment(ctx context.Context, o entities.Order) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
	GetPaymentOrder(ctx context.Context, orderID uuid.UUID) (entities.PaymentOrder, error)
	ListOrders(ctx context.Context, limit, offset int) ([]entities.Order, error)
	ListOrderOverviews(ctx context.Context, limit, offset int) ([]entities.OrderOverview, error)
	ListExpiredUnpaidOrders(ctx context.Context, now time.Time) ([]entities.Order, error)
	DeleteUnpaidOrder(ctx context.Context, orderID uuid.UUID) error
	CountOrders(ctx context.Context) (int, error)
	OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)
	ProductIsBought(ctx context.Context, productID uuid.UUID) (bool, error)
	VariantIsBought(ctx context.Context, variantID uuid.UUID) (bool, error)
}

type StockProvider interface {
	RetrieveProductUpdaters(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*entities.ProductUpdater, error)
	ApplyProductUpdaters(ctx context.Context, updaters map[uuid.UUID]*entities.ProductUpdater) error
	CheckAdminExists(ctx context.Context, adminID uuid.UUID) error
}

type Notifier interface {
	SendPaymentConfirmation(ctx context.Context, order entities.Order) error
}

type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte)
	Remove(key string)
}

type Config struct {
	PaymentTimeout   time.Duration
	SweepConcurrency int
}

type orderService struct {
	logger    *slog.Logger
	txManager trm.Manager
	repo      OrderRepo
	stock     StockProvider
	notifier  Notifier
	cache     Cache
	cfg       Config
}

func NewOrderService(
	logger *slog.Logger,
	txManager trm.Manager,
	repo OrderRepo,
	stock StockProvider,
	notifier Notifier,
	cache Cache,
	cfg Config,
) *orderService {
	return &orderService{
		logger:    logger.With(slog.String("service", "order")),
		txManager: txManager,
		repo:      repo,
		stock:     stock,
		notifier:  notifier,
		cache:     cache,
		cfg:       cfg,
	}
}

type OrderSizeInput struct {
	SizeValue string
	Quantity  int
}

type OrderVariantInput struct {
	VariantID uuid.UUID
	Sizes     []OrderSizeInput
}

type OrderProductInput struct {
	ProductID uuid.UUID
	Variants  []OrderVariantInput
}

type CreateCustomerOrderInput struct {
	Customer entities.Customer
	Shipping entities.ShippingAddress
	Products []OrderProductInput
}

type CreateAdminOrderInput struct {
	AdminID  uuid.UUID
	Customer entities.Customer
	Shipping entities.ShippingAddress
	Products []OrderProductInput
	Status   entities.OrderStatus
	Payment  entities.PaymentInfo
}

// CreateCustomerOrder оформляет гостевой заказ: резерв списывается сразу,
// оплата ждётся до дедлайна, дальше резерв вернёт sweep.
func (s *orderService) CreateCustomerOrder(ctx context.Context, input CreateCustomerOrderInput) (uuid.UUID, error) {
	now := time.Now()
	payment, err := entities.NewPaymentInfo(entities.PaymentStatusInGateway, nil, now.Add(s.cfg.PaymentTimeout))
	if err != nil {
		return uuid.Nil, err
	}
	return s.createOrder(ctx, createOrderParams{
		customer: input.Customer,
		shipping: input.Shipping,
		products: input.Products,
		status:   entities.OrderStatusWaitingForPayment,
		payment:  payment,
		creator:  entities.GuestCreator(),
		now:      now,
	})
}

// CreateAdminOrder делает то же самое, но создатель обязан быть существующим
// админом, а статус и платёжная информация приходят снаружи.
func (s *orderService) CreateAdminOrder(ctx context.Context, input CreateAdminOrderInput) (uuid.UUID, error) {
	if input.AdminID == uuid.Nil {
		return uuid.Nil, entities.ErrOrderCreatorRequired
	}
	if err := s.stock.CheckAdminExists(ctx, input.AdminID); err != nil {
		return uuid.Nil, err
	}
	return s.createOrder(ctx, createOrderParams{
		customer: input.Customer,
		shipping: input.Shipping,
		products: input.Products,
		status:   input.Status,
		payment:  input.Payment,
		creator:  entities.AdminCreator(input.AdminID),
		now:      time.Now(),
	})
}

type createOrderParams struct {
	customer entities.Customer
	shipping entities.ShippingAddress
	products []OrderProductInput
	status   entities.OrderStatus
	payment  entities.PaymentInfo
	creator  entities.Creator
	now      time.Time
}

func (s *orderService) createOrder(ctx context.Context, params createOrderParams) (uuid.UUID, error) {
	updaters, err := s.stock.RetrieveProductUpdaters(ctx, productIDs(params.products))
	if err != nil {
		countRejection(err)
		return uuid.Nil, err
	}

	products, err := foldOrderProducts(updaters, params.products)
	if err != nil {
		countRejection(err)
		return uuid.Nil, err
	}

	order, err := entities.NewOrder(
		uuid.New(),
		params.customer,
		params.shipping,
		params.status,
		params.payment,
		params.creator,
		products,
		params.now,
	)
	if err != nil {
		return uuid.Nil, err
	}

	err = s.txManager.Do(ctx, func(ctx context.Context) error {
		if err := s.repo.SaveOrder(ctx, order); err != nil {
			return fmt.Errorf("failed to save order: %w", err)
		}
		if order.Status.ReservesStock() {
			if err := s.stock.ApplyProductUpdaters(ctx, updaters); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	ordersCreated.WithLabelValues(creatorKind(order.Creator)).Inc()
	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID.String()),
		slog.String("status", string(order.Status)),
	)
	return order.ID, nil
}

// foldOrderProducts сворачивает запрошенные позиции в агрегат, по ходу
// проверяя существование варианта/размера и списывая резерв из ledger'а.
// Любая ошибка прерывает сборку целиком: частичных заказов не бывает.
func foldOrderProducts(updaters map[uuid.UUID]*entities.ProductUpdater, inputs []OrderProductInput) ([]entities.OrderProduct, error) {
	products := make([]entities.OrderProduct, 0, len(inputs))
	for _, input := range inputs {
		updater, ok := updaters[input.ProductID]
		if !ok {
			return nil, &entities.InvalidProductError{ProductID: input.ProductID}
		}

		product := entities.OrderProduct{
			ProductID: input.ProductID,
			Name:      updater.Name(),
			UnitPrice: updater.UnitPrice(),
		}
		for _, v := range input.Variants {
			variant := entities.OrderVariant{VariantID: v.VariantID}
			for _, size := range v.Sizes {
				if err := updater.SubtractStockForVariant(v.VariantID, size.SizeValue, size.Quantity); err != nil {
					return nil, err
				}
				variant.Sizes = append(variant.Sizes, entities.OrderSize{
					SizeValue: size.SizeValue,
					Quantity:  size.Quantity,
				})
			}
			product.Variants = append(product.Variants, variant)
		}
		products = append(products, product)
	}
	return products, nil
}

func productIDs(inputs []OrderProductInput) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(inputs))
	ids := make([]uuid.UUID, 0, len(inputs))
	for _, input := range inputs {
		if _, ok := seen[input.ProductID]; ok {
			continue
		}
		seen[input.ProductID] = struct{}{}
		ids = append(ids, input.ProductID)
	}
	return ids
}

func creatorKind(c entities.Creator) string {
	if c.IsAdmin() {
		return "admin"
	}
	return "guest"
}

func countRejection(err error) {
	var (
		notEnoughStock   *entities.NotEnoughStockError
		invalidProduct   *entities.InvalidProductError
		invalidVariant   *entities.InvalidVariantError
		sizeNotAvailable *entities.SizeNotAvailableError
	)
	switch {
	case errors.As(err, &notEnoughStock):
		ordersRejected.WithLabelValues("not_enough_stock").Inc()
	case errors.As(err, &invalidProduct):
		ordersRejected.WithLabelValues("unknown_product").Inc()
	case errors.As(err, &invalidVariant):
		ordersRejected.WithLabelValues("unknown_variant").Inc()
	case errors.As(err, &sizeNotAvailable):
		ordersRejected.WithLabelValues("unknown_size").Inc()
	}
}

func (s *orderService) GetOrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	if data, ok := s.cache.Get(orderID.String()); ok {
		var order entities.Order
		if err := order.Unmarshal(data); err != nil {
			s.logger.Error("failed to unmarshal cached order", slog.Any("error", err))
			return entities.Order{}, err
		}
		return order, nil
	}

	var order entities.Order
	fn := func() error {
		var err error
		order, err = s.repo.GetOrderByID(ctx, orderID)
		return err
	}
	cfg := utils.RetryConfig{
		InitialDelay: 100 * time.Millisecond,
		MaxAttempts:  3,
		Multiplier:   2,
	}
	if err := utils.Retry(cfg, fn, entities.ErrOrderNotFound); err != nil {
		return entities.Order{}, err
	}

	data, err := order.Marshal()
	if err != nil {
		s.logger.Error("failed to marshal order", slog.Any("error", err))
		return entities.Order{}, err
	}
	s.cache.Set(orderID.String(), data)
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, limit, offset int) ([]entities.Order, error) {
	return s.repo.ListOrders(ctx, limit, offset)
}

func (s *orderService) ListOrderOverviews(ctx context.Context, limit, offset int) ([]entities.OrderOverview, error) {
	return s.repo.ListOrderOverviews(ctx, limit, offset)
}

func (s *orderService) CountOrders(ctx context.Context) (int, error) {
	return s.repo.CountOrders(ctx)
}

func (s *orderService) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return s.repo.OrderExists(ctx, orderID)
}

// ProductIsBought отвечает, встречается ли товар в заказах. Каталог
// спрашивает перед удалением товара.
func (s *orderService) ProductIsBought(ctx context.Context, productID uuid.UUID) (bool, error) {
	return s.repo.ProductIsBought(ctx, productID)
}

func (s *orderService) VariantIsBought(ctx context.Context, variantID uuid.UUID) (bool, error) {
	return s.repo.VariantIsBought(ctx, variantID)
}

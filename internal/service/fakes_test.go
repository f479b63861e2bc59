package service_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/evermart/order-service/internal/entities"
	"github.com/evermart/order-service/internal/provider"
	"github.com/evermart/order-service/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// passthroughTxManager просто вызывает callback: отката нет, что слабее
// продакшен-гарантии, но все проверяемые сбои падают до первой записи.
type passthroughTxManager struct {
	mu    sync.Mutex
	calls int
}

func (m *passthroughTxManager) Do(ctx context.Context, callback func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return callback(ctx)
}

type fakeOrderRepo struct {
	mu      sync.Mutex
	orders  map[uuid.UUID]entities.Order
	saveErr error

	// listHook срабатывает после выборки просроченных, до возврата:
	// окно между списком и транзакцией освобождения.
	listHook func()
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: make(map[uuid.UUID]entities.Order)}
}

func (r *fakeOrderRepo) SaveOrder(_ context.Context, o entities.Order) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) UpdateOrderPayment(_ context.Context, o entities.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.orders[o.ID]; !ok {
		return entities.ErrOrderNotFound
	}
	r.orders[o.ID] = o
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(_ context.Context, orderID uuid.UUID) (entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	return o, nil
}

func (r *fakeOrderRepo) GetPaymentOrder(_ context.Context, orderID uuid.UUID) (entities.PaymentOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok {
		return entities.PaymentOrder{}, entities.ErrOrderNotFound
	}
	return entities.PaymentOrder{
		OrderID:  o.ID,
		Amount:   o.TotalAmount(),
		Paid:     o.Payment.IsPaid(),
		Deadline: o.Payment.Deadline,
	}, nil
}

func (r *fakeOrderRepo) ListOrders(_ context.Context, limit, offset int) ([]entities.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var orders []entities.Order
	for _, o := range r.orders {
		orders = append(orders, o)
	}
	return orders, nil
}

func (r *fakeOrderRepo) ListOrderOverviews(_ context.Context, limit, offset int) ([]entities.OrderOverview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var overviews []entities.OrderOverview
	for _, o := range r.orders {
		overviews = append(overviews, entities.OrderOverview{
			OrderID:       o.ID,
			Status:        o.Status,
			CustomerEmail: o.Customer.Email,
			TotalAmount:   o.TotalAmount(),
			PaymentStatus: o.Payment.Status,
			CreatedAt:     o.CreatedAt,
			UpdatedAt:     o.UpdatedAt,
		})
	}
	return overviews, nil
}

func (r *fakeOrderRepo) ListExpiredUnpaidOrders(_ context.Context, now time.Time) ([]entities.Order, error) {
	r.mu.Lock()
	var expired []entities.Order
	for _, o := range r.orders {
		if o.Status == entities.OrderStatusWaitingForPayment && now.After(o.Payment.Deadline) {
			expired = append(expired, o)
		}
	}
	r.mu.Unlock()
	if r.listHook != nil {
		r.listHook()
	}
	return expired, nil
}

func (r *fakeOrderRepo) DeleteUnpaidOrder(_ context.Context, orderID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[orderID]
	if !ok || o.Status != entities.OrderStatusWaitingForPayment {
		return entities.ErrOrderNotPending
	}
	delete(r.orders, orderID)
	return nil
}

func (r *fakeOrderRepo) CountOrders(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.orders), nil
}

func (r *fakeOrderRepo) OrderExists(_ context.Context, orderID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.orders[orderID]
	return ok, nil
}

func (r *fakeOrderRepo) ProductIsBought(_ context.Context, productID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		for _, p := range o.Products {
			if p.ProductID == productID {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakeOrderRepo) VariantIsBought(_ context.Context, variantID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		for _, p := range o.Products {
			for _, v := range p.Variants {
				if v.VariantID == variantID {
					return true, nil
				}
			}
		}
	}
	return false, nil
}

// fakeInventory хранит остатки в памяти и повторяет guarded-update
// продакшен-repo: уход в минус даёт ErrStockConflict.
type fakeInventory struct {
	mu       sync.Mutex
	products map[uuid.UUID]*productState
}

type productState struct {
	name      string
	unitPrice decimal.Decimal
	stock     map[uuid.UUID]map[string]int
}

func newFakeInventory() *fakeInventory {
	return &fakeInventory{products: make(map[uuid.UUID]*productState)}
}

func (f *fakeInventory) addProduct(productID uuid.UUID, name string, price decimal.Decimal) {
	f.products[productID] = &productState{
		name:      name,
		unitPrice: price,
		stock:     make(map[uuid.UUID]map[string]int),
	}
}

func (f *fakeInventory) setStock(productID, variantID uuid.UUID, sizeValue string, stock int) {
	p := f.products[productID]
	if p.stock[variantID] == nil {
		p.stock[variantID] = make(map[string]int)
	}
	p.stock[variantID][sizeValue] = stock
}

func (f *fakeInventory) stockOf(productID, variantID uuid.UUID, sizeValue string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.products[productID].stock[variantID][sizeValue]
}

func (f *fakeInventory) RetrievePartialProductDetails(_ context.Context, productIDs []uuid.UUID) ([]entities.ProductStockSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var snapshots []entities.ProductStockSnapshot
	for _, id := range productIDs {
		p, ok := f.products[id]
		if !ok {
			continue
		}
		snapshot := entities.ProductStockSnapshot{
			ProductID: id,
			Name:      p.name,
			UnitPrice: p.unitPrice,
		}
		for variantID, sizes := range p.stock {
			variant := entities.VariantStockSnapshot{VariantID: variantID}
			for sizeValue, stock := range sizes {
				variant.Sizes = append(variant.Sizes, entities.SizeStockSnapshot{
					SizeValue: sizeValue,
					Stock:     stock,
				})
			}
			snapshot.Variants = append(snapshot.Variants, variant)
		}
		snapshots = append(snapshots, snapshot)
	}
	return snapshots, nil
}

func (f *fakeInventory) ModifyStock(_ context.Context, adjustments []entities.StockAdjustment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, adj := range adjustments {
		p, ok := f.products[adj.ProductID]
		if !ok {
			return entities.ErrStockConflict
		}
		current, ok := p.stock[adj.VariantID][adj.SizeValue]
		if !ok || current+adj.Adjustment < 0 {
			return entities.ErrStockConflict
		}
		p.stock[adj.VariantID][adj.SizeValue] = current + adj.Adjustment
	}
	return nil
}

type fakeAdmins struct {
	ids map[uuid.UUID]bool
}

func (f *fakeAdmins) AdminExists(_ context.Context, adminID uuid.UUID) (bool, error) {
	return f.ids[adminID], nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent int
	err  error
}

func (f *fakeNotifier) SendPaymentConfirmation(context.Context, entities.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent++
	return nil
}

func (f *fakeNotifier) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent
}

type fakeCache struct {
	mu    sync.Mutex
	items map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: make(map[string][]byte)}
}

func (c *fakeCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.items[key]
	return v, ok
}

func (c *fakeCache) Set(key string, value []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = value
}

func (c *fakeCache) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, key)
}

type testEnv struct {
	svc interface {
		CreateCustomerOrder(ctx context.Context, input service.CreateCustomerOrderInput) (uuid.UUID, error)
		CreateAdminOrder(ctx context.Context, input service.CreateAdminOrderInput) (uuid.UUID, error)
		ConfirmPayment(ctx context.Context, orderID uuid.UUID, paidAt time.Time) error
		GetOrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error)
		ReleaseExpiredOrders(ctx context.Context) (int, error)
		OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error)
		ProductIsBought(ctx context.Context, productID uuid.UUID) (bool, error)
		VariantIsBought(ctx context.Context, variantID uuid.UUID) (bool, error)
	}
	repo      *fakeOrderRepo
	inventory *fakeInventory
	admins    *fakeAdmins
	notifier  *fakeNotifier
	cache     *fakeCache
	tx        *passthroughTxManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	repo := newFakeOrderRepo()
	inventory := newFakeInventory()
	admins := &fakeAdmins{ids: make(map[uuid.UUID]bool)}
	notifier := &fakeNotifier{}
	cache := newFakeCache()
	tx := &passthroughTxManager{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	svc := service.NewOrderService(
		logger,
		tx,
		repo,
		provider.New(inventory, admins),
		notifier,
		cache,
		service.Config{PaymentTimeout: 30 * time.Minute, SweepConcurrency: 2},
	)

	return &testEnv{
		svc:       svc,
		repo:      repo,
		inventory: inventory,
		admins:    admins,
		notifier:  notifier,
		cache:     cache,
		tx:        tx,
	}
}

var errBoom = errors.New("boom")

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/evermart/order-service/internal/entities"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var orderColumns = []string{
	"order_id", "status", "customer_name", "customer_email", "customer_phone",
	"ship_country", "ship_city", "ship_street", "ship_zip",
	"payment_status", "paid_at", "payment_deadline",
	"creator_admin_id", "total_amount", "created_at", "updated_at",
}

var orderItemColumns = []string{
	"order_id", "product_id", "variant_id", "size_value",
	"quantity", "product_name", "unit_price",
}

type orderRepo struct {
	db
	qb sq.StatementBuilderType
}

func NewOrderRepo(conn *sqlx.DB) *orderRepo {
	return &orderRepo{
		db: db{conn: conn},
		qb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *orderRepo) SaveOrder(ctx context.Context, o entities.Order) error {
	row := OrderToRow(o)
	query, args := r.qb.Insert("orders").
		Columns(orderColumns...).
		Values(
			row.OrderID, row.Status, row.CustomerName, row.CustomerEmail, row.CustomerPhone,
			row.ShipCountry, row.ShipCity, row.ShipStreet, row.ShipZIP,
			row.PaymentStatus, row.PaidAt, row.PaymentDeadline,
			row.CreatorAdminID, row.TotalAmount, row.CreatedAt, row.UpdatedAt,
		).
		MustSql()

	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}

	items := OrderItemsToRows(o)
	if len(items) == 0 {
		return nil
	}

	q := r.qb.Insert("order_items").Columns(orderItemColumns...)
	for _, it := range items {
		q = q.Values(it.OrderID, it.ProductID, it.VariantID, it.SizeValue, it.Quantity, it.ProductName, it.UnitPrice)
	}
	query, args = q.MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save order items: %w", err)
	}
	return nil
}

func (r *orderRepo) UpdateOrderPayment(ctx context.Context, o entities.Order) error {
	row := OrderToRow(o)
	query, args := r.qb.Update("orders").
		Set("status", row.Status).
		Set("payment_status", row.PaymentStatus).
		Set("paid_at", row.PaidAt).
		Set("updated_at", row.UpdatedAt).
		Where(sq.Eq{"order_id": row.OrderID}).
		MustSql()

	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update order payment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrOrderNotFound
	}
	return nil
}

func (r *orderRepo) GetOrderByID(ctx context.Context, orderID uuid.UUID) (entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.Order{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.Order{}, fmt.Errorf("failed to get order: %w", err)
	}

	items, err := r.selectItems(ctx, []uuid.UUID{orderID})
	if err != nil {
		return entities.Order{}, err
	}
	return OrderToEntity(order, items), nil
}

func (r *orderRepo) GetPaymentOrder(ctx context.Context, orderID uuid.UUID) (entities.PaymentOrder, error) {
	query, args := r.qb.Select("order_id", "total_amount", "payment_status", "payment_deadline").
		From("orders").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()

	var order Order
	err := r.getContext(ctx, &order, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return entities.PaymentOrder{}, entities.ErrOrderNotFound
	}
	if err != nil {
		return entities.PaymentOrder{}, fmt.Errorf("failed to get payment order: %w", err)
	}

	return entities.PaymentOrder{
		OrderID:  order.OrderID,
		Amount:   order.TotalAmount,
		Paid:     entities.PaymentStatus(order.PaymentStatus) == entities.PaymentStatusPaid,
		Deadline: order.PaymentDeadline,
	}, nil
}

func (r *orderRepo) ListOrderOverviews(ctx context.Context, limit, offset int) ([]entities.OrderOverview, error) {
	query, args := r.qb.Select(
		"order_id", "status", "customer_email",
		"total_amount", "payment_status", "created_at", "updated_at").
		From("orders").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		MustSql()

	var rows []OrderOverview
	if err := r.selectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select order overviews: %w", err)
	}

	overviews := make([]entities.OrderOverview, 0, len(rows))
	for _, row := range rows {
		overviews = append(overviews, OverviewToEntity(row))
	}
	return overviews, nil
}

// ListOrders возвращает страницу полных агрегатов, свежие первыми.
func (r *orderRepo) ListOrders(ctx context.Context, limit, offset int) ([]entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		MustSql()

	var orders []Order
	if err := r.selectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select orders: %w", err)
	}
	return r.attachItems(ctx, orders)
}

// ListExpiredUnpaidOrders возвращает полные агрегаты: sweep'у нужны
// позиции заказа, чтобы вернуть резерв на склад.
func (r *orderRepo) ListExpiredUnpaidOrders(ctx context.Context, now time.Time) ([]entities.Order, error) {
	query, args := r.qb.Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"status": string(entities.OrderStatusWaitingForPayment)}).
		Where(sq.Lt{"payment_deadline": now}).
		OrderBy("payment_deadline ASC").
		MustSql()

	var orders []Order
	if err := r.selectContext(ctx, &orders, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select expired orders: %w", err)
	}
	return r.attachItems(ctx, orders)
}

func (r *orderRepo) attachItems(ctx context.Context, orders []Order) ([]entities.Order, error) {
	if len(orders) == 0 {
		return []entities.Order{}, nil
	}

	ids := make([]uuid.UUID, len(orders))
	for i, o := range orders {
		ids[i] = o.OrderID
	}

	items, err := r.selectItems(ctx, ids)
	if err != nil {
		return nil, err
	}
	itemsMap := make(map[uuid.UUID][]OrderItem, len(ids))
	for _, it := range items {
		itemsMap[it.OrderID] = append(itemsMap[it.OrderID], it)
	}

	result := make([]entities.Order, 0, len(orders))
	for _, o := range orders {
		result = append(result, OrderToEntity(o, itemsMap[o.OrderID]))
	}
	return result, nil
}

// DeleteUnpaidOrder удаляет заказ, только пока он ждёт оплаты. Ноль
// затронутых строк значит, что заказ успели оплатить или удалить,
// вызывающая транзакция обязана откатиться целиком.
func (r *orderRepo) DeleteUnpaidOrder(ctx context.Context, orderID uuid.UUID) error {
	query, args := r.qb.Delete("order_items").
		Where(sq.Eq{"order_id": orderID}).
		MustSql()
	if _, err := r.execContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to delete order items: %w", err)
	}

	query, args = r.qb.Delete("orders").
		Where(sq.Eq{"order_id": orderID}).
		Where(sq.Eq{"status": string(entities.OrderStatusWaitingForPayment)}).
		MustSql()
	res, err := r.execContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return entities.ErrOrderNotPending
	}
	return nil
}

func (r *orderRepo) CountOrders(ctx context.Context) (int, error) {
	query, args := r.qb.Select("COUNT(*)").From("orders").MustSql()
	var count int
	if err := r.getContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

func (r *orderRepo) OrderExists(ctx context.Context, orderID uuid.UUID) (bool, error) {
	return r.exists(ctx, "orders", sq.Eq{"order_id": orderID})
}

func (r *orderRepo) ProductIsBought(ctx context.Context, productID uuid.UUID) (bool, error) {
	return r.exists(ctx, "order_items", sq.Eq{"product_id": productID})
}

func (r *orderRepo) VariantIsBought(ctx context.Context, variantID uuid.UUID) (bool, error) {
	return r.exists(ctx, "order_items", sq.Eq{"variant_id": variantID})
}

func (r *orderRepo) exists(ctx context.Context, table string, where sq.Eq) (bool, error) {
	sub := r.qb.Select("1").From(table).Where(where)
	query, args := r.qb.Select().
		Column(sq.Expr("EXISTS(?)", sub)).
		MustSql()

	var exists bool
	if err := r.getContext(ctx, &exists, query, args...); err != nil {
		return false, fmt.Errorf("failed to check existence in %s: %w", table, err)
	}
	return exists, nil
}

func (r *orderRepo) selectItems(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	query, args := r.qb.Select(orderItemColumns...).
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		MustSql()

	var items []OrderItem
	if err := r.selectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("failed to select order items: %w", err)
	}
	return items, nil
}
